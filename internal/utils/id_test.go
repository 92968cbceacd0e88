package utils

import (
	"strings"
	"testing"
)

func TestNewMessageIDUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for _i := 0; _i < 1000; _i++ {
		id := NewMessageID()
		if !strings.HasPrefix(id, "msg_") {
			t.Fatalf("unexpected id format: %s", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = struct{}{}
	}
}
