package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initializerConfig(t *testing.T) *Config {
	t.Helper()
	root := t.TempDir()

	cfg := defaultConfig()
	cfg.Store.Path = filepath.Join(root, "data", "inventory.db")
	cfg.Catalog.Path = filepath.Join(root, "data", "catalog.db")
	cfg.Backup.Storage.BasePath = filepath.Join(root, "snapshots")
	return cfg
}

func TestInitialize(t *testing.T) {
	cfg := initializerConfig(t)

	result, err := NewVaultInitializer(cfg, false).Initialize()
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.True(t, result.ConfigValid)
	assert.True(t, result.StorageReady)
	assert.True(t, result.CatalogReady)
	assert.Empty(t, result.Errors)

	info, err := os.Stat(cfg.Backup.Storage.BasePath)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	info, err = os.Stat(filepath.Dir(cfg.Catalog.Path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestInitializeWarnsAboutMissingEncryptionKey(t *testing.T) {
	cfg := initializerConfig(t)
	cfg.Backup.Encryption.Enabled = true
	cfg.Backup.Encryption.KeySource = "env"
	cfg.Backup.Encryption.KeyEnvVar = "VAULT_TEST_ABSENT_KEY"

	result, err := NewVaultInitializer(cfg, false).Initialize()
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "VAULT_TEST_ABSENT_KEY")
	assert.NotEmpty(t, result.RecommendedFixes)
}

func TestInitializeWarnsAboutMissingKeyFile(t *testing.T) {
	cfg := initializerConfig(t)
	cfg.Backup.Encryption.Enabled = true
	cfg.Backup.Encryption.KeySource = "file"
	cfg.Backup.Encryption.KeyPath = filepath.Join(t.TempDir(), "absent.key")

	result, err := NewVaultInitializer(cfg, false).Initialize()
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "key file does not exist")
}

func TestInitializeReportsInvalidConfig(t *testing.T) {
	cfg := initializerConfig(t)
	cfg.Logging.Level = "loud"

	result, err := NewVaultInitializer(cfg, false).Initialize()
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.False(t, result.ConfigValid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "Configuration validation failed")
}

func TestInitializeReportsBadPermissions(t *testing.T) {
	cfg := initializerConfig(t)
	cfg.Backup.Storage.Permissions = "what"

	result, err := NewVaultInitializer(cfg, false).Initialize()
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.False(t, result.StorageReady)
}

func TestInitializeRecommendations(t *testing.T) {
	cfg := initializerConfig(t)
	cfg.Backup.Encryption.Enabled = false
	cfg.Backup.Schedule.Enabled = false

	result, err := NewVaultInitializer(cfg, false).Initialize()
	require.NoError(t, err)

	joined := ""
	for _, fix := range result.RecommendedFixes {
		joined += fix + "\n"
	}
	assert.Contains(t, joined, "enabling encryption")
	assert.Contains(t, joined, "snapshot schedule")
}
