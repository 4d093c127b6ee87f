package api

import (
	"crypto/rand"
	"encoding/hex"
)

// NewVerifyToken generates the process-local handshake token. Regenerated
// on every restart, never persisted: the provider re-verifies against
// whatever token is sent with the subscription registration.
func NewVerifyToken() string {
	b := make([]byte, 12)
	rand.Read(b)
	return hex.EncodeToString(b)
}
