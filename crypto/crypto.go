// Package crypto seals numeric ids into opaque, URL-safe tokens.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"errors"

	"golang.org/x/crypto/argon2"
)

var (
	ErrMalformed = errors.New("malformed token")
	ErrForged    = errors.New("token failed authentication")
)

// DeriveKey stretches secret into a 32-byte AES key with argon2id.
func DeriveKey(secret string, salt []byte) []byte {
	return argon2.IDKey([]byte(secret), salt, 1, 64*1024, 4, 32)
}

// Sealer encrypts ids with AES-GCM. The label is both the key derivation
// salt and the additional data, so tokens of one purpose never open under
// another.
type Sealer struct {
	aead  cipher.AEAD
	label []byte
}

func NewSealer(secret, label string) (*Sealer, error) {
	block, err := aes.NewCipher(DeriveKey(secret, []byte(label)))
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Sealer{aead: aead, label: []byte(label)}, nil
}

func (s *Sealer) tokenLen() int {
	return s.aead.NonceSize() + 8 + s.aead.Overhead()
}

// Seal returns nonce || AES-GCM(id as big-endian uint64), base64url without
// padding. Every call uses a fresh nonce.
func (s *Sealer) Seal(id int64) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.tokenLen())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	plain := binary.BigEndian.AppendUint64(nil, uint64(id))
	return base64.RawURLEncoding.EncodeToString(s.aead.Seal(nonce, nonce, plain, s.label)), nil
}

// Open reverses Seal. Anything not produced by this Sealer's key and label
// fails with ErrMalformed or ErrForged.
func (s *Sealer) Open(token string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != s.tokenLen() {
		return 0, ErrMalformed
	}
	n := s.aead.NonceSize()
	plain, err := s.aead.Open(nil, raw[:n], raw[n:], s.label)
	if err != nil {
		return 0, ErrForged
	}
	return int64(binary.BigEndian.Uint64(plain)), nil
}
