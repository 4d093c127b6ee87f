package signing

import (
	"errors"
	"testing"
)

func TestVerifyPassesWhenHeaderAbsent(t *testing.T) {
	if err := Verify("secret", []byte(`{"object":"page"}`), ""); err != nil {
		t.Fatalf("absent header must pass verification, got %v", err)
	}
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	body := []byte(`{"object":"page","entry":[]}`)
	header := Sign("secret", body)

	if err := Verify("secret", body, header); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
}

func TestVerifyRejectsAnyBodyMutation(t *testing.T) {
	body := []byte(`{"object":"page","entry":[{"id":"1"}]}`)
	header := Sign("secret", body)

	for i := range body {
		mutated := make([]byte, len(body))
		copy(mutated, body)
		mutated[i] ^= 0x01

		err := Verify("secret", mutated, header)
		if !errors.Is(err, ErrBadSignature) {
			t.Fatalf("byte %d flipped: expected ErrBadSignature, got %v", i, err)
		}
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"object":"page"}`)
	header := Sign("secret", body)

	if err := Verify("other", body, header); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature, got %v", err)
	}
}

func TestVerifyRejectsMalformedHeader(t *testing.T) {
	if err := Verify("secret", []byte("body"), "sha1=nothex"); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("expected ErrBadSignature for malformed header, got %v", err)
	}
}
