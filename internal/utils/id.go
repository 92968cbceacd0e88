package utils

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random unique identifier.
func NewID() string {
	return uuid.NewString()
}

// NewMessageID returns a message id of the form msg_<unix millis>_<uuid>.
// The millisecond prefix keeps ids roughly sortable by creation time.
func NewMessageID() string {
	return "msg_" + strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + uuid.NewString()
}
