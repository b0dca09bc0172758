package crypto

import (
	"encoding/base64"
	"log"
	"os"
)

// EnvEncryptionKey is the environment variable holding the encryption
// secret: either a base64-encoded 32-byte key or a passphrase.
const EnvEncryptionKey = "SYNC_ENCRYPTION_KEY"

// fallbackKey is used when no secret is configured. This keeps a fresh
// local/desktop install working without setup, at the cost of being
// insecure in shared deployments. The warning below is the only guard.
var fallbackKey = []byte("tillworks-pos-default-sync-key!!")

// ResolveKey determines the AES-256 key from the environment.
//
// A base64 value decoding to exactly 32 bytes is used directly; any
// other non-empty value is treated as a passphrase and stretched with
// PBKDF2. An absent value falls back to a fixed built-in key with a
// loud warning.
func ResolveKey() []byte {
	secret := os.Getenv(EnvEncryptionKey)
	if secret == "" {
		log.Printf("WARNING: %s is not set; using built-in fallback encryption key. "+
			"Connection secrets are NOT protected against other users of this machine.", EnvEncryptionKey)
		return fallbackKey
	}

	if key, err := base64.StdEncoding.DecodeString(secret); err == nil && len(key) == KeySize {
		return key
	}

	return DeriveKey(secret)
}

// NewEncryptorFromEnv builds an Encryptor using ResolveKey.
func NewEncryptorFromEnv() (*Encryptor, error) {
	return NewEncryptor(ResolveKey())
}
