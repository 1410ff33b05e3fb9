package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"time"
)

// EncryptionStats describes one encryption pass over a snapshot artifact.
type EncryptionStats struct {
	Algorithm     string        `json:"algorithm"`
	KeyDerivation string        `json:"key_derivation"`
	OriginalSize  int64         `json:"original_size"`
	EncryptedSize int64         `json:"encrypted_size"`
	Duration      time.Duration `json:"duration"`
}

// EncryptionManager encrypts snapshot artifacts at rest. When disabled it
// passes data through untouched so the writer pipeline stays uniform.
type EncryptionManager struct {
	config *EncryptionConfig
}

func NewEncryptionManager(config *EncryptionConfig) *EncryptionManager {
	return &EncryptionManager{config: config}
}

// aead resolves the configured key and builds the AES-256-GCM cipher both
// directions share.
func (m *EncryptionManager) aead() (cipher.AEAD, error) {
	key, err := m.config.GetEncryptionKey()
	if err != nil {
		return nil, NewEncryptionError("failed to get encryption key", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create AES cipher", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM cipher", err)
	}

	return gcm, nil
}

// Encrypt seals data with AES-256-GCM. The artifact layout is the random
// nonce followed by the ciphertext and auth tag.
func (m *EncryptionManager) Encrypt(data []byte) ([]byte, *EncryptionStats, error) {
	if !m.config.Enabled {
		return data, &EncryptionStats{
			Algorithm:     "NONE",
			OriginalSize:  int64(len(data)),
			EncryptedSize: int64(len(data)),
		}, nil
	}

	start := time.Now()

	gcm, err := m.aead()
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, NewEncryptionError("failed to generate nonce", err)
	}

	sealed := gcm.Seal(nonce, nonce, data, nil)

	return sealed, &EncryptionStats{
		Algorithm:     "AES-256-GCM",
		KeyDerivation: m.config.KeySource,
		OriginalSize:  int64(len(data)),
		EncryptedSize: int64(len(sealed)),
		Duration:      time.Since(start),
	}, nil
}

// Decrypt opens an artifact produced by Encrypt. Any tampering with the
// nonce, the payload, or the auth tag fails the open.
func (m *EncryptionManager) Decrypt(encryptedData []byte) ([]byte, error) {
	if !m.config.Enabled {
		return encryptedData, nil
	}

	gcm, err := m.aead()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(encryptedData) < nonceSize {
		return nil, NewEncryptionError("encrypted data too short", nil)
	}

	nonce, sealed := encryptedData[:nonceSize], encryptedData[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, NewEncryptionError("failed to decrypt data", err)
	}
	return plaintext, nil
}

// IsEnabled reports whether artifacts are encrypted at rest.
func (m *EncryptionManager) IsEnabled() bool {
	return m.config.Enabled
}

// GetAlgorithm names the cipher in use, or "NONE" when encryption is off.
func (m *EncryptionManager) GetAlgorithm() string {
	if !m.config.Enabled {
		return "NONE"
	}
	return "AES-256-GCM"
}
