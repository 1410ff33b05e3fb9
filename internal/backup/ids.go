package backup

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateSnapshotID generates a unique snapshot ID
func GenerateSnapshotID() string {
	return GenerateIDWithPrefix("snap")
}

// GenerateRestoreID generates a unique restore job ID
func GenerateRestoreID() string {
	return GenerateIDWithPrefix("restore")
}

// GenerateIDWithPrefix generates a sortable unique ID with a custom prefix
func GenerateIDWithPrefix(prefix string) string {
	// UUID v4 for uniqueness with timestamp prefix for sorting
	timestamp := time.Now().UTC().Format("20060102-150405")
	uuid := uuid.New().String()

	// Remove hyphens from UUID and take first 8 characters for brevity
	shortUUID := strings.ReplaceAll(uuid, "-", "")[:8]

	return fmt.Sprintf("%s-%s-%s", prefix, timestamp, shortUUID)
}

// CalculateDataChecksum returns the hex-encoded SHA-256 digest of data.
func CalculateDataChecksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// GenerateSecureRandomBytes returns length bytes from the system CSPRNG.
func GenerateSecureRandomBytes(length int) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return nil, NewEncryptionError("failed to generate secure random bytes", err)
	}
	return buf, nil
}
