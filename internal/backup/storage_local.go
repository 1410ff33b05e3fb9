package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactExtension is the file suffix for snapshot artifacts
const ArtifactExtension = ".snap"

// LocalStorageTarget implements StorageTarget on the local file system.
// Each snapshot is a single opaque artifact file under the base path.
type LocalStorageTarget struct {
	basePath    string
	permissions os.FileMode
}

// NewLocalStorageTarget creates a new LocalStorageTarget instance
func NewLocalStorageTarget(config *StorageConfig) (*LocalStorageTarget, error) {
	if config == nil {
		return nil, NewValidationError("storage configuration is required", nil)
	}

	if err := config.Validate(); err != nil {
		return nil, NewValidationError("invalid storage configuration", err)
	}

	target := &LocalStorageTarget{
		basePath:    config.BasePath,
		permissions: config.Permissions,
	}

	// Ensure base directory exists
	if err := target.ensureBaseDirectory(); err != nil {
		return nil, NewStorageError("failed to create base directory", err)
	}

	return target, nil
}

// Put writes an artifact to the local file system. The payload lands in a
// temporary file first and is renamed into place, so a crash mid-write
// never leaves a partial artifact at the final location.
func (lst *LocalStorageTarget) Put(ctx context.Context, snapshotID string, data []byte) (string, int64, error) {
	if snapshotID == "" {
		return "", 0, NewValidationError("snapshot ID cannot be empty", nil)
	}

	if err := ctx.Err(); err != nil {
		return "", 0, NewStorageError("storage write cancelled", err)
	}

	location := lst.artifactPath(snapshotID)
	tmpPath := location + ".tmp"

	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", 0, NewStorageError("failed to write artifact file", err)
	}

	if err := os.Rename(tmpPath, location); err != nil {
		os.Remove(tmpPath)
		return "", 0, NewStorageError("failed to move artifact into place", err)
	}

	return location, int64(len(data)), nil
}

// Get reads an artifact back from the local file system
func (lst *LocalStorageTarget) Get(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, NewValidationError("artifact location cannot be empty", nil)
	}

	if err := ctx.Err(); err != nil {
		return nil, NewStorageError("storage read cancelled", err)
	}

	data, err := os.ReadFile(location)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewNotFoundError(fmt.Sprintf("artifact not found at %s", location), err)
		}
		return nil, NewStorageError("failed to read artifact file", err)
	}

	return data, nil
}

// Delete removes an artifact. Deleting an artifact that is already gone
// succeeds, so a retention retry after a partial pass converges.
func (lst *LocalStorageTarget) Delete(ctx context.Context, location string) error {
	if location == "" {
		return NewValidationError("artifact location cannot be empty", nil)
	}

	if err := os.Remove(location); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return NewStorageError("failed to delete artifact file", err)
	}

	return nil
}

// List returns the locations of all artifacts under the base path
func (lst *LocalStorageTarget) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(lst.basePath)
	if err != nil {
		return nil, NewStorageError("failed to list artifacts", err)
	}

	var locations []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.HasSuffix(entry.Name(), ArtifactExtension) {
			continue
		}
		locations = append(locations, filepath.Join(lst.basePath, entry.Name()))
	}

	return locations, nil
}

// HealthCheck verifies that the storage target is accessible and writable
func (lst *LocalStorageTarget) HealthCheck(ctx context.Context) error {
	testFile := filepath.Join(lst.basePath, ".health_check")

	// Try to create a test file
	if err := os.WriteFile(testFile, []byte("health_check"), 0644); err != nil {
		return NewStorageError("storage health check failed: cannot write to base directory", err)
	}

	// Try to read the test file
	if _, err := os.ReadFile(testFile); err != nil {
		return NewStorageError("storage health check failed: cannot read from base directory", err)
	}

	// Clean up test file
	if err := os.Remove(testFile); err != nil {
		// Leftover health check files are harmless
		return nil
	}

	return nil
}

// GetBasePath returns the base path for the storage target
func (lst *LocalStorageTarget) GetBasePath() string {
	return lst.basePath
}

// GetStorageInfo returns information about the storage target
func (lst *LocalStorageTarget) GetStorageInfo() map[string]interface{} {
	return map[string]interface{}{
		"target":      "local",
		"base_path":   lst.basePath,
		"permissions": lst.permissions.String(),
	}
}

// Helper methods

// ensureBaseDirectory creates the base directory if it doesn't exist
func (lst *LocalStorageTarget) ensureBaseDirectory() error {
	if err := os.MkdirAll(lst.basePath, lst.permissions); err != nil {
		return fmt.Errorf("failed to create base directory %s: %w", lst.basePath, err)
	}
	return nil
}

// artifactPath returns the file path for a snapshot artifact
func (lst *LocalStorageTarget) artifactPath(snapshotID string) string {
	return filepath.Join(lst.basePath, sanitizeSnapshotID(snapshotID)+ArtifactExtension)
}

// sanitizeSnapshotID removes path separators so an ID can never escape the
// base directory
func sanitizeSnapshotID(snapshotID string) string {
	sanitized := strings.ReplaceAll(snapshotID, "/", "_")
	sanitized = strings.ReplaceAll(sanitized, "\\", "_")
	sanitized = strings.ReplaceAll(sanitized, "..", "_")
	return sanitized
}
