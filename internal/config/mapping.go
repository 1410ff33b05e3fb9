package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"inventory-vault/internal/migration"
)

// mappingFile is the YAML shape of a custom import mapping file
type mappingFile struct {
	Entries []migration.Entry `yaml:"entries"`
}

// LoadMapping reads a custom import key mapping from a YAML file.
// An empty path returns nil, which tells the importer to use the
// built-in default mapping.
func LoadMapping(path string) (*migration.Mapping, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	var mf mappingFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file %s: %w", path, err)
	}

	if len(mf.Entries) == 0 {
		return nil, fmt.Errorf("mapping file %s contains no entries", path)
	}

	mapping, err := migration.NewMapping(mf.Entries)
	if err != nil {
		return nil, fmt.Errorf("invalid mapping file %s: %w", path, err)
	}

	return mapping, nil
}
