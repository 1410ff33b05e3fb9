package backup

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// aesKeySize is the key length AES-256 requires.
	aesKeySize = 32

	// pbkdf2Iterations must not change once password-derived keys are in
	// use, or existing artifacts become undecryptable.
	pbkdf2Iterations = 100000
)

// GetEncryptionKey resolves the key material the config points at. A nil
// key with a nil error means encryption is disabled.
func (ec *EncryptionConfig) GetEncryptionKey() ([]byte, error) {
	if !ec.Enabled {
		return nil, nil
	}

	// Custom retriever wins, for testing or external key management
	if ec.KeyRetriever != nil {
		return ec.KeyRetriever()
	}

	switch ec.KeySource {
	case "env":
		return ec.keyFromEnv()
	case "file":
		return ec.keyFromFile()
	default:
		return nil, fmt.Errorf("invalid key source: %s", ec.KeySource)
	}
}

func (ec *EncryptionConfig) keyFromEnv() ([]byte, error) {
	encoded := os.Getenv(ec.KeyEnvVar)
	if encoded == "" {
		return nil, fmt.Errorf("encryption key not found in environment variable %s", ec.KeyEnvVar)
	}
	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex key from environment variable: %w", err)
	}
	if len(key) != aesKeySize {
		return nil, fmt.Errorf("encryption key must be 32 bytes for AES-256, got %d bytes", len(key))
	}
	return key, nil
}

func (ec *EncryptionConfig) keyFromFile() ([]byte, error) {
	key, err := os.ReadFile(ec.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read encryption key from file %s: %w", ec.KeyPath, err)
	}
	if len(key) != aesKeySize {
		return nil, fmt.Errorf("encryption key file must contain 32 bytes for AES-256, got %d bytes", len(key))
	}
	return key, nil
}

// KeyManager generates, derives, stores, and validates encryption keys.
type KeyManager struct {
	config *EncryptionConfig
}

func NewKeyManager(config *EncryptionConfig) *KeyManager {
	return &KeyManager{config: config}
}

// GenerateKey produces a fresh random 256-bit key.
func (k *KeyManager) GenerateKey() ([]byte, error) {
	key := make([]byte, aesKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, NewEncryptionError("failed to generate encryption key", err)
	}
	return key, nil
}

// GenerateKeyFromPassword derives a key with PBKDF2-SHA256. An empty salt
// is replaced with a random one, which makes the result non-reproducible;
// callers that need the same key back must keep their salt.
func (k *KeyManager) GenerateKeyFromPassword(password string, salt []byte) []byte {
	if len(salt) == 0 {
		salt = make([]byte, aesKeySize)
		rand.Read(salt)
	}

	return pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeySize, sha256.New)
}

// SaveKeyToFile writes a key with owner-only permissions.
func (k *KeyManager) SaveKeyToFile(key []byte, filepath string) error {
	if len(key) != aesKeySize {
		return NewEncryptionError("key must be 32 bytes for AES-256", nil)
	}

	if err := os.WriteFile(filepath, key, 0600); err != nil {
		return NewEncryptionError("failed to save key to file", err)
	}

	return nil
}

// LoadKeyFromFile reads a raw 32-byte key file.
func (k *KeyManager) LoadKeyFromFile(filepath string) ([]byte, error) {
	key, err := os.ReadFile(filepath)
	if err != nil {
		return nil, NewEncryptionError("failed to read key from file", err)
	}

	if len(key) != aesKeySize {
		return nil, NewEncryptionError("key file must contain 32 bytes for AES-256", nil)
	}

	return key, nil
}

// LoadKeyFromEnv reads a hex-encoded key from an environment variable.
func (k *KeyManager) LoadKeyFromEnv(envVar string) ([]byte, error) {
	encoded := os.Getenv(envVar)
	if encoded == "" {
		return nil, NewEncryptionError(fmt.Sprintf("environment variable %s not set", envVar), nil)
	}

	key, err := hex.DecodeString(encoded)
	if err != nil {
		return nil, NewEncryptionError("failed to decode hex key from environment variable", err)
	}

	if len(key) != aesKeySize {
		return nil, NewEncryptionError("key from environment variable must be 32 bytes for AES-256", nil)
	}

	return key, nil
}

// ValidateKey rejects keys of the wrong size and trivially weak keys.
func (k *KeyManager) ValidateKey(key []byte) error {
	if len(key) != aesKeySize {
		return NewEncryptionError("key must be 32 bytes for AES-256", nil)
	}

	if isUniform(key, 0x00) {
		return NewEncryptionError("key cannot be all zeros", nil)
	}
	if isUniform(key, 0xFF) {
		return NewEncryptionError("key cannot be all ones", nil)
	}

	return nil
}

func isUniform(key []byte, b byte) bool {
	for _, kb := range key {
		if kb != b {
			return false
		}
	}
	return true
}
