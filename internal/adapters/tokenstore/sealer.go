package tokenstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sealer protects credential values at rest.
type Sealer interface {
	Seal(plaintext []byte) (string, error)
	Open(sealed string) ([]byte, error)
}

const (
	// Versioned prefixes allow key/algorithm rotation without rewriting stores by hand.
	sealedPrefixV1 = "v1:"
	plainPrefix    = "plain:"
)

// AESGCMSealer seals values with AES-256-GCM and a random nonce.
type AESGCMSealer struct {
	aead cipher.AEAD
}

// NewAESGCMSealer builds a sealer from a 32-byte key.
func NewAESGCMSealer(key []byte) (*AESGCMSealer, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return &AESGCMSealer{aead: aead}, nil
}

// NewAESGCMSealerFromBase64 decodes a standard base64 key and builds a sealer.
func NewAESGCMSealerFromBase64(encoded string) (*AESGCMSealer, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode token store key: %w", err)
	}
	return NewAESGCMSealer(key)
}

// Seal returns "v1:" + base64(nonce||ciphertext).
func (s *AESGCMSealer) Seal(plaintext []byte) (string, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, plaintext, nil)
	return sealedPrefixV1 + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values written by PlainSealer are still readable so a
// store can be upgraded to encryption in place.
func (s *AESGCMSealer) Open(sealed string) ([]byte, error) {
	if strings.HasPrefix(sealed, plainPrefix) {
		return PlainSealer{}.Open(sealed)
	}
	if !strings.HasPrefix(sealed, sealedPrefixV1) {
		return nil, errors.New("unknown sealed value version")
	}
	data, err := base64.StdEncoding.DecodeString(sealed[len(sealedPrefixV1):])
	if err != nil {
		return nil, fmt.Errorf("decode sealed value: %w", err)
	}
	n := s.aead.NonceSize()
	if len(data) < n {
		return nil, errors.New("sealed value too short")
	}
	return s.aead.Open(nil, data[:n], data[n:], nil)
}

// PlainSealer stores values base64-encoded with a marker prefix. No secrecy.
type PlainSealer struct{}

func (PlainSealer) Seal(plaintext []byte) (string, error) {
	return plainPrefix + base64.StdEncoding.EncodeToString(plaintext), nil
}

func (PlainSealer) Open(sealed string) ([]byte, error) {
	if !strings.HasPrefix(sealed, plainPrefix) {
		return nil, errors.New("value is not plain-sealed")
	}
	return base64.StdEncoding.DecodeString(sealed[len(plainPrefix):])
}
