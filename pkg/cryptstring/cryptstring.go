// Package cryptstring implements the "opaque crypted string store" referred
// to by spec.md sections 3 and 6: password-like EAP credential fields are
// never written to the persistent store in cleartext.
//
// Key derivation follows the teacher's pkg/commissioning/spake2plus.go use of
// golang.org/x/crypto/hkdf to turn a root secret into purpose-bound key
// material; here a single per-installation root secret is expanded into an
// AES-256-GCM key for at-rest credential sealing.
package cryptstring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// ErrDecrypt is returned when a sealed string cannot be opened, either
// because it is malformed or because it was sealed under a different key.
var ErrDecrypt = errors.New("cryptstring: failed to decrypt")

const hkdfInfo = "shillgo-crypted-string-v1"

// Sealer seals and opens crypted-string values with a key derived from a
// single root secret (e.g. a machine-local key file).
type Sealer struct {
	key [32]byte
}

// NewSealer derives a Sealer's AES-256-GCM key from rootSecret via HKDF-SHA256.
func NewSealer(rootSecret []byte) (*Sealer, error) {
	kdf := hkdf.New(sha256.New, rootSecret, nil, []byte(hkdfInfo))
	var key [32]byte
	if _, err := io.ReadFull(kdf, key[:]); err != nil {
		return nil, err
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext and returns a base64-encoded ciphertext suitable
// for storage as a string value in a StoreInterface group.
func (s *Sealer) Seal(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal.
func (s *Sealer) Open(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrDecrypt
	}
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}
