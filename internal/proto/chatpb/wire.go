// Package chatpb holds the protobuf messages of the chat.ChatService gRPC
// API and their wire encoding. Field numbers match chat.proto.
package chatpb

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Message is implemented by every type in this package.
type Message interface {
	Marshal() ([]byte, error)
	Unmarshal(b []byte) error
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeBool(v))
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

type appender interface {
	appendTo(b []byte) []byte
}

// appendMessage writes m as a length-delimited field.
func appendMessage(b []byte, num protowire.Number, m appender) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.appendTo(nil))
}

// field is one decoded tag and its raw value.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

// walk calls fn for each field in b. Unknown fields are passed to fn too
// and ignored there.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("chatpb: %w", protowire.ParseError(n))
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("chatpb: field %d: %w", num, protowire.ParseError(n))
		}
		b = b[n:]

		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (f field) asString(dst *string) error {
	if f.typ != protowire.BytesType {
		return fmt.Errorf("chatpb: field %d: want bytes, got wire type %d", f.num, f.typ)
	}
	*dst = string(f.bytes)
	return nil
}

func (f field) asBool(dst *bool) error {
	if f.typ != protowire.VarintType {
		return fmt.Errorf("chatpb: field %d: want varint, got wire type %d", f.num, f.typ)
	}
	*dst = protowire.DecodeBool(f.varint)
	return nil
}

func (f field) asInt64(dst *int64) error {
	if f.typ != protowire.VarintType {
		return fmt.Errorf("chatpb: field %d: want varint, got wire type %d", f.num, f.typ)
	}
	*dst = int64(f.varint)
	return nil
}

func (f field) asMessage(dst Message) error {
	if f.typ != protowire.BytesType {
		return fmt.Errorf("chatpb: field %d: want bytes, got wire type %d", f.num, f.typ)
	}
	return dst.Unmarshal(f.bytes)
}
