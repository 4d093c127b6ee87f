package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
)

// ErrBadSignature is returned when a hub signature header is present but
// does not match the digest of the request body.
var ErrBadSignature = errors.New("invalid hub signature")

// Sign computes the provider's hub signature for a raw request body:
// HMAC-SHA1 over the exact bytes, formatted "sha1=<hexdigest>".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks the hub signature header against the raw request body.
// An absent header passes: the provider's handshake requests carry no
// signature. The body must be the bytes as received on the wire, never a
// re-serialization of the parsed payload.
func Verify(secret string, body []byte, header string) error {
	if header == "" {
		return nil
	}
	expected := Sign(secret, body)
	if !hmac.Equal([]byte(expected), []byte(header)) {
		return ErrBadSignature
	}
	return nil
}
