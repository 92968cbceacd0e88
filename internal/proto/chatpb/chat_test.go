package chatpb

import (
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestUserWireFormat(t *testing.T) {
	u := &User{ID: "a", Name: "Al", IsOnline: true}
	b, err := u.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := []byte{
		0x0a, 0x01, 'a',
		0x12, 0x02, 'A', 'l',
		0x18, 0x01,
	}
	if string(b) != string(want) {
		t.Fatalf("got % x, want % x", b, want)
	}
}

func TestServerMessageOneof(t *testing.T) {
	cases := []struct {
		name    string
		payload Payload
		field   protowire.Number
	}{
		{"global", &GlobalMessage{ID: "m1", Sender: &User{ID: "a"}, Text: "hi", Timestamp: 1700000000000}, 1},
		{"private", &PrivateMessage{ID: "m2", Sender: &User{ID: "a"}, Recipient: &User{ID: "b"}, Text: "yo", Timestamp: 1}, 2},
		{"presence", &UserPresenceUpdate{User: &User{ID: "b", Name: "B"}, IsOnline: true, Timestamp: 5}, 3},
		{"typing", &TypingEvent{User: &User{ID: "a"}, ContextID: "global", IsTyping: true}, 4},
		{"user list", &UserList{Users: []*User{{ID: "a"}, {ID: "b", IsOnline: true}}}, 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := (&ServerMessage{Payload: tc.payload}).Marshal()
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			num, typ, n := protowire.ConsumeTag(b)
			if n < 0 || num != tc.field || typ != protowire.BytesType {
				t.Fatalf("unexpected leading tag %d/%d", num, typ)
			}

			var got ServerMessage
			if err := got.Unmarshal(b); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Payload == nil || got.Payload.payloadField() != tc.field {
				t.Fatalf("decoded payload %T", got.Payload)
			}
		})
	}
}

func TestServerMessageWithoutPayload(t *testing.T) {
	payloads := []struct {
		name    string
		payload Payload
	}{
		{"nil", nil},
		{"nil global", (*GlobalMessage)(nil)},
		{"nil private", (*PrivateMessage)(nil)},
		{"nil presence", (*UserPresenceUpdate)(nil)},
		{"nil typing", (*TypingEvent)(nil)},
		{"nil user list", (*UserList)(nil)},
	}
	for _, tc := range payloads {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := (&ServerMessage{Payload: tc.payload}).Marshal(); err == nil {
				t.Fatalf("expected error for %s payload", tc.name)
			}
			if _, err := (Codec{}).Marshal(&ServerMessage{Payload: tc.payload}); err == nil {
				t.Fatalf("codec accepted %s payload", tc.name)
			}
		})
	}
}

func TestPrivateMessageFields(t *testing.T) {
	in := &PrivateMessage{
		ID:        "msg_1",
		Sender:    &User{ID: "alice", Name: "Alice", IsOnline: true},
		Recipient: &User{ID: "bob", Name: "Bob"},
		Text:      "Hi Bob",
		Timestamp: 1712345678901,
	}
	b, _ := in.Marshal()

	var out PrivateMessage
	if err := out.Unmarshal(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.ID != in.ID || out.Text != in.Text || out.Timestamp != in.Timestamp {
		t.Fatalf("got %+v", out)
	}
	if *out.Sender != *in.Sender || *out.Recipient != *in.Recipient {
		t.Fatalf("users differ: %+v %+v", out.Sender, out.Recipient)
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, "hello")
	b = protowire.AppendTag(b, 9, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 42)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, "bob")

	var m ClientMessage
	if err := m.Unmarshal(b); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Text != "hello" || m.RecipientID != "bob" {
		t.Fatalf("got %+v", m)
	}
}

func TestUnmarshalRejectsTruncatedInput(t *testing.T) {
	b, _ := (&ClientMessage{Text: "hello"}).Marshal()

	var m ClientMessage
	if err := m.Unmarshal(b[:len(b)-2]); err == nil {
		t.Fatalf("expected error for truncated input")
	}
}

func TestUnmarshalRejectsWrongWireType(t *testing.T) {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)

	var m ClientMessage
	if err := m.Unmarshal(b); err == nil {
		t.Fatalf("expected error for varint text field")
	}
}

func TestCodecRejectsForeignTypes(t *testing.T) {
	var c Codec
	if _, err := c.Marshal("nope"); err == nil {
		t.Fatalf("expected marshal error")
	}
	if err := c.Unmarshal(nil, new(int)); err == nil {
		t.Fatalf("expected unmarshal error")
	}
	var e Empty
	if err := c.Unmarshal(nil, &e); err != nil {
		t.Fatalf("empty message: %v", err)
	}
}
