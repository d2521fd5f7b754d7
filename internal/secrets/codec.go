// Package secrets provides AES-256-GCM encryption for credential storage.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// ivSize is the GCM nonce length in bytes. 16 rather than the GCM
	// default of 12, for wire compatibility with records sealed by
	// earlier deployments.
	ivSize = 16
	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16
)

// ErrTampered is returned by Open when a record parses as a sealed triple
// but fails authentication.
var ErrTampered = errors.New("secrets: record failed authentication")

// Codec seals and opens individual string fields. It has no knowledge of
// what it encrypts; callers decide which fields are sensitive.
type Codec struct {
	aead cipher.AEAD
}

// NewCodec creates a Codec from a hex-encoded 32-byte key.
func NewCodec(hexKey string) (*Codec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("secrets: decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("secrets: key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("secrets: create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return nil, fmt.Errorf("secrets: create GCM: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce and returns the
// record as a hex-encoded "nonce:tag:ciphertext" triple.
func (c *Codec) Seal(plaintext string) (string, error) {
	nonce := make([]byte, ivSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secrets: generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	// GCM appends the tag to the ciphertext; split it out for the triple.
	ct, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]
	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ct), nil
}

// Open decrypts a sealed triple. A value that does not parse as a triple
// is returned unchanged: pre-encryption rows stored plaintext, and reads
// must keep working against them. A value that does parse but fails
// authentication returns ErrTampered; it is never passed through.
func (c *Codec) Open(record string) (string, error) {
	nonce, tag, ct, ok := splitTriple(record)
	if !ok {
		return record, nil
	}
	plaintext, err := c.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrTampered
	}
	return string(plaintext), nil
}

// IsSealed reports whether a value parses as a sealed triple. Write paths
// use it to avoid re-encrypting ciphertext on repeated save cycles.
func (c *Codec) IsSealed(value string) bool {
	_, _, _, ok := splitTriple(value)
	return ok
}

// splitTriple parses "nonce:tag:ciphertext" with hex components of the
// expected widths. Anything else is treated as legacy plaintext.
func splitTriple(record string) (nonce, tag, ct []byte, ok bool) {
	parts := strings.Split(record, ":")
	if len(parts) != 3 {
		return nil, nil, nil, false
	}
	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != ivSize {
		return nil, nil, nil, false
	}
	tag, err = hex.DecodeString(parts[1])
	if err != nil || len(tag) != tagSize {
		return nil, nil, nil, false
	}
	ct, err = hex.DecodeString(parts[2])
	if err != nil {
		return nil, nil, nil, false
	}
	return nonce, tag, ct, true
}
