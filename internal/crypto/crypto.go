// Package crypto encrypts user API keys for storage at rest. Ciphertexts are
// opaque base64url strings; the symmetric key comes from process config and
// is never persisted.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt is returned when a stored ciphertext cannot be decrypted,
// typically because it is corrupt or was written under a different key.
var ErrDecrypt = errors.New("decryption failed")

// Cipher encrypts and decrypts key material. Implementations must be safe
// for concurrent use.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// AEADCipher implements Cipher with XChaCha20-Poly1305. The random nonce is
// prepended to the sealed ciphertext before encoding.
type AEADCipher struct {
	key []byte
}

// NewAEADCipher creates an AEADCipher from a base64-encoded 32-byte key.
func NewAEADCipher(base64Key string) (*AEADCipher, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &AEADCipher{key: key}, nil
}

func (c *AEADCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", fmt.Errorf("plaintext must not be empty")
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func (c *AEADCipher) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrDecrypt
	}

	aead, err := chacha20poly1305.NewX(c.key)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	if len(raw) < aead.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

var _ Cipher = (*AEADCipher)(nil)

// Mask returns a display-safe form of a plaintext key, showing only the
// first and last three characters.
func Mask(plaintext string) string {
	if len(plaintext) <= 6 {
		return "***"
	}
	return plaintext[:3] + "..." + plaintext[len(plaintext)-3:]
}
