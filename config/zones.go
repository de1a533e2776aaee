package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ZonesFile is the optional YAML file that overrides zone names and extends the
// address gazetteer.
//
//	zone_names: [City Center, Inner City, Outer City]
//	gazetteer: [Blloku, Komuna e Parisit]
type ZonesFile struct {
	ZoneNames []string `yaml:"zone_names"`
	Gazetteer []string `yaml:"gazetteer"`
	Source    string   `yaml:"source,omitempty"`
}

// LoadZones reads a zones file. An empty path returns an empty file.
func LoadZones(path string) (*ZonesFile, error) {
	if path == "" {
		return &ZonesFile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zones: read %q: %w", path, err)
	}
	var z ZonesFile
	if err := yaml.Unmarshal(data, &z); err != nil {
		return nil, fmt.Errorf("zones: parse %q: %w", path, err)
	}
	return &z, nil
}

// SaveZones writes z as YAML to path.
func SaveZones(path string, z *ZonesFile) error {
	data, err := yaml.Marshal(z)
	if err != nil {
		return fmt.Errorf("zones: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("zones: write %q: %w", path, err)
	}
	return nil
}
