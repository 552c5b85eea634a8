// Package cipher provides the symmetric encryption applied to file payloads
// before they reach storage. Ciphers are stateless: every call derives what
// it needs from the configured password and the payload itself.
package cipher

import (
	stdcipher "crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Cipher encrypts and decrypts file payloads.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// ErrDecrypt is returned when a payload cannot be authenticated or is too
// short to carry the expected header.
var ErrDecrypt = errors.New("payload cannot be decrypted")

// Noop passes payloads through unchanged. Selectable for debugging and for
// profiles that do not need encryption at rest.
type Noop struct{}

func (Noop) Encrypt(plaintext []byte) ([]byte, error)  { return plaintext, nil }
func (Noop) Decrypt(ciphertext []byte) ([]byte, error) { return ciphertext, nil }

// Argon2id parameters. Saves are infrequent and payloads small, so the
// derivation cost is paid per file write, not per record.
const (
	saltLen      = 16
	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	keyLen       = chacha20poly1305.KeySize
)

// XChaCha encrypts payloads with XChaCha20-Poly1305 using a key derived
// from the password via Argon2id. Each encryption draws a fresh salt and
// nonce, both prepended to the ciphertext:
//
//	salt (16) | nonce (24) | sealed payload
type XChaCha struct {
	password []byte
}

// NewXChaCha returns a password-based cipher.
func NewXChaCha(password string) *XChaCha {
	return &XChaCha{password: []byte(password)}
}

func (c *XChaCha) Encrypt(plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	out := make([]byte, 0, saltLen+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, nil), nil
}

func (c *XChaCha) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < saltLen+chacha20poly1305.NonceSizeX {
		return nil, ErrDecrypt
	}
	salt := ciphertext[:saltLen]
	nonce := ciphertext[saltLen : saltLen+chacha20poly1305.NonceSizeX]
	sealed := ciphertext[saltLen+chacha20poly1305.NonceSizeX:]

	aead, err := c.aead(salt)
	if err != nil {
		return nil, err
	}

	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plain, nil
}

func (c *XChaCha) aead(salt []byte) (stdcipher.AEAD, error) {
	key := argon2.IDKey(c.password, salt, argonTime, argonMemory, argonThreads, keyLen)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("initializing aead: %w", err)
	}
	return aead, nil
}
