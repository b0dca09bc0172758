// Package crypto provides AES-256-GCM encryption for connection secrets.
//
// Ciphertext wire format: base64( nonce(12) || authTag(16) || ciphertext ).
// The segments are unpacked by fixed offsets on decrypt and the tag is
// verified before any plaintext is returned.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the required size for AES-256 keys (32 bytes)
	KeySize = 32
	// NonceSize is the standard size for GCM nonces (12 bytes)
	NonceSize = 12
	// TagSize is the GCM authentication tag size (16 bytes)
	TagSize = 16
)

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes for AES-256")
	ErrCiphertextTooShort = errors.New("ciphertext too short")
	ErrDecryptionFailed   = errors.New("decryption failed: authentication error")
)

// Encryptor handles AES-256-GCM encryption and decryption
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new Encryptor with the given key.
// Key must be exactly 32 bytes for AES-256.
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	// Copy key to avoid external mutation
	keyCopy := make([]byte, KeySize)
	copy(keyCopy, key)

	return &Encryptor{key: keyCopy}, nil
}

// NewEncryptorFromBase64 creates a new Encryptor from a base64-encoded key.
func NewEncryptorFromBase64(encodedKey string) (*Encryptor, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 key: %w", err)
	}
	return NewEncryptor(key)
}

// Encrypt encrypts plaintext using AES-256-GCM with a fresh random nonce.
// Returns base64(nonce || tag || ciphertext).
func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	gcm, err := e.newGCM()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal produces ciphertext with the tag appended; repack as
	// nonce || tag || ciphertext.
	sealed := gcm.Seal(nil, nonce, []byte(plaintext), nil)
	tagStart := len(sealed) - TagSize

	packed := make([]byte, 0, NonceSize+len(sealed))
	packed = append(packed, nonce...)
	packed = append(packed, sealed[tagStart:]...)
	packed = append(packed, sealed[:tagStart]...)

	return base64.StdEncoding.EncodeToString(packed), nil
}

// Decrypt unpacks base64(nonce || tag || ciphertext) and verifies the
// authentication tag before returning plaintext.
func (e *Encryptor) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	packed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	if len(packed) < NonceSize+TagSize {
		return "", ErrCiphertextTooShort
	}

	nonce := packed[:NonceSize]
	tag := packed[NonceSize : NonceSize+TagSize]
	ciphertext := packed[NonceSize+TagSize:]

	gcm, err := e.newGCM()
	if err != nil {
		return "", err
	}

	// GCM expects the tag appended to the ciphertext.
	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	return string(plaintext), nil
}

func (e *Encryptor) newGCM() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// kdfSalt is the fixed application salt used when the configured secret
// is a passphrase rather than a base64 key. It must stay stable or
// previously encrypted connections become unreadable.
var kdfSalt = []byte("tillworks-cloudsync-v1")

const kdfIterations = 10000

// DeriveKey stretches an arbitrary passphrase into an AES-256 key.
func DeriveKey(secret string) []byte {
	return pbkdf2.Key([]byte(secret), kdfSalt, kdfIterations, KeySize, sha256.New)
}

// GenerateKey generates a new random 32-byte key for AES-256.
// Returns the key as a base64-encoded string.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
