package crypto

import (
	"bytes"
	"errors"
	"net/url"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	salt := []byte("evite-rsvp-token")

	key1 := DeriveKey("correct horse battery staple", salt)
	key2 := DeriveKey("correct horse battery staple", salt)
	if !bytes.Equal(key1, key2) {
		t.Error("DeriveKey with same inputs produced different results")
	}
	if bytes.Equal(key1, DeriveKey("different secret", salt)) {
		t.Error("DeriveKey with different secrets produced same results")
	}
	if len(key1) != 32 {
		t.Errorf("Expected 32-byte key, got %d bytes", len(key1))
	}
}

func newSealer(t *testing.T, secret, label string) *Sealer {
	t.Helper()
	s, err := NewSealer(secret, label)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	return s
}

func TestSealOpen(t *testing.T) {
	s := newSealer(t, "my-secret", "guest")

	for _, id := range []int64{1, 42, 1 << 40} {
		token, err := s.Seal(id)
		if err != nil {
			t.Fatalf("Seal(%d): %v", id, err)
		}
		if url.PathEscape(token) != token {
			t.Errorf("token %q is not safe in a URL path", token)
		}
		again, _ := s.Seal(id)
		if again == token {
			t.Error("two seals of the same id should differ (random nonce)")
		}
		got, err := s.Open(token)
		if err != nil || got != id {
			t.Errorf("Open(Seal(%d)) = %d, %v", id, got, err)
		}
	}
}

func TestOpenRejectsForeignTokens(t *testing.T) {
	token, err := newSealer(t, "my-secret", "guest").Seal(7)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := newSealer(t, "wrong-secret", "guest").Open(token); !errors.Is(err, ErrForged) {
		t.Errorf("other secret: expected ErrForged, got %v", err)
	}
	if _, err := newSealer(t, "my-secret", "invitation").Open(token); !errors.Is(err, ErrForged) {
		t.Errorf("other label: expected ErrForged, got %v", err)
	}

	// flip one character of the ciphertext
	b := []byte(token)
	if b[len(b)-2] == 'A' {
		b[len(b)-2] = 'B'
	} else {
		b[len(b)-2] = 'A'
	}
	if _, err := newSealer(t, "my-secret", "guest").Open(string(b)); err == nil {
		t.Error("tampered token was accepted")
	}
}

func TestOpenMalformed(t *testing.T) {
	s := newSealer(t, "my-secret", "guest")
	for _, in := range []string{"", "42", "not base64!", "AAAA"} {
		if _, err := s.Open(in); !errors.Is(err, ErrMalformed) {
			t.Errorf("Open(%q): expected ErrMalformed, got %v", in, err)
		}
	}
}
