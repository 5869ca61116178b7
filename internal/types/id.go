package types

import (
	"crypto/rand"
	"encoding/hex"
)

// IDPrefix is prepended to every generated task id.
const IDPrefix = "trak-"

// NewTaskID returns a fresh id of the form "trak-" followed by six
// lowercase hex characters. Plain crypto/rand is the right tool here:
// three bytes of randomness hex-encoded is a three-line operation with
// no meaningful library surface to delegate to.
func NewTaskID() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return IDPrefix + hex.EncodeToString(buf), nil
}
