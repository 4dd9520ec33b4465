// Package clientdriver implements the reference client used to exercise a
// running cache server end to end: generate a stream id, upload a file,
// settle it, download it back, and verify the round trip.
package clientdriver

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewStreamID returns an id of the form "stream-xxxxxxxx" where x is lower
// case hex, which is safe to use as the server's cache-file stem.
func NewStreamID() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("clientdriver: generate stream id: %w", err)
	}
	return "stream-" + hex.EncodeToString(buf[:]), nil
}
