package config

import (
	"fmt"
	"os"
	"path/filepath"

	"inventory-vault/internal/store"
)

// VaultInitializer prepares the on-disk layout the vault needs and
// validates the configuration before first use
type VaultInitializer struct {
	config  *Config
	verbose bool
}

// NewVaultInitializer creates an initializer for the given configuration
func NewVaultInitializer(config *Config, verbose bool) *VaultInitializer {
	return &VaultInitializer{
		config:  config,
		verbose: verbose,
	}
}

// InitializationResult reports what the initializer found and fixed
type InitializationResult struct {
	Success          bool
	ConfigValid      bool
	StorageReady     bool
	CatalogReady     bool
	Warnings         []string
	Errors           []string
	RecommendedFixes []string
}

// Initialize validates the configuration and creates the storage and
// catalog directories, verifying each is writable
func (vi *VaultInitializer) Initialize() (*InitializationResult, error) {
	result := &InitializationResult{
		Success:      true,
		ConfigValid:  true,
		StorageReady: true,
		CatalogReady: true,
	}

	// fail records a step failure without stopping the remaining steps,
	// so one pass reports everything that needs fixing
	fail := func(ready *bool, step string, err error) {
		result.Success = false
		*ready = false
		result.Errors = append(result.Errors, fmt.Sprintf("%s failed: %v", step, err))
	}

	if vi.verbose {
		fmt.Println("Initializing inventory vault...")
	}

	if err := vi.validateConfiguration(result); err != nil {
		fail(&result.ConfigValid, "Configuration validation", err)
	}
	if err := vi.initializeStorage(); err != nil {
		fail(&result.StorageReady, "Storage initialization", err)
	}
	if err := vi.initializeCatalog(); err != nil {
		fail(&result.CatalogReady, "Catalog initialization", err)
	}

	vi.generateRecommendations(result)

	if vi.verbose {
		if result.Success {
			fmt.Println("Vault initialization completed successfully")
		} else {
			fmt.Println("Vault initialization completed with errors")
		}
	}

	return result, nil
}

func (vi *VaultInitializer) validateConfiguration(result *InitializationResult) error {
	if vi.verbose {
		fmt.Println("  Validating configuration...")
	}

	if err := vi.config.Validate(); err != nil {
		return err
	}

	enc := vi.config.Backup.Encryption
	switch {
	case enc.Enabled && enc.KeySource == "env":
		if os.Getenv(enc.KeyEnvVar) == "" {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Encryption key environment variable %s is not set", enc.KeyEnvVar))
			result.RecommendedFixes = append(result.RecommendedFixes,
				fmt.Sprintf("Generate a key and export it: export %s=$(openssl rand -hex 32)", enc.KeyEnvVar))
		}

	case enc.Enabled && enc.KeySource == "file":
		if enc.KeyPath == "" {
			return fmt.Errorf("encryption key file path is required when key source is 'file'")
		}
		if _, err := os.Stat(enc.KeyPath); os.IsNotExist(err) {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Encryption key file does not exist: %s", enc.KeyPath))
			result.RecommendedFixes = append(result.RecommendedFixes,
				fmt.Sprintf("Write a 32-byte key to %s before the first encrypted backup", enc.KeyPath))
		}
	}

	return nil
}

func (vi *VaultInitializer) initializeStorage() error {
	basePath := vi.config.Backup.Storage.BasePath

	if vi.verbose {
		fmt.Printf("  Initializing artifact storage at %s...\n", basePath)
	}

	mode, err := parseFileMode(vi.config.Backup.Storage.Permissions)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(basePath, mode); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return verifyWritable(basePath)
}

func (vi *VaultInitializer) initializeCatalog() error {
	if vi.verbose {
		fmt.Printf("  Initializing catalog at %s...\n", vi.config.Catalog.Path)
	}

	dir := filepath.Dir(vi.config.Catalog.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := verifyWritable(dir); err != nil {
		return err
	}

	// The sqlite inventory database needs its parent directory too
	if vi.config.Store.Engine == store.EngineSQLite {
		storeDir := filepath.Dir(vi.config.Store.Path)
		if err := os.MkdirAll(storeDir, 0o755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	return nil
}

func verifyWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dir)
	}

	testFile := filepath.Join(dir, ".vault_write_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("insufficient write permissions for %s: %w", dir, err)
	}
	os.Remove(testFile)

	return nil
}

func (vi *VaultInitializer) generateRecommendations(result *InitializationResult) {
	recommend := func(fix string) {
		result.RecommendedFixes = append(result.RecommendedFixes, fix)
	}

	if !vi.config.Backup.Encryption.Enabled {
		recommend("Consider enabling encryption for snapshot artifacts")
	}

	comp := vi.config.Backup.Compression
	if comp.Enabled && comp.Algorithm == "GZIP" && comp.Level > 6 {
		recommend("GZIP levels above 6 cost significantly more CPU for marginal size gains")
	}

	ret := vi.config.Backup.Retention
	if ret.WindowDays == 0 && ret.MinCount == 0 {
		recommend("Set a retention window or minimum count so the artifact store does not grow without bound")
	}

	if !vi.config.Backup.Schedule.Enabled {
		recommend("Enable the snapshot schedule so backups run without manual intervention")
	}
}
