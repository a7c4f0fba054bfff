package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "sqlguard.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "sqlguard.yml"

// defaults is the built-in configuration layer. A config file only needs to
// name the keys it changes.
func defaults() map[string]any {
	return map[string]any{
		"parser.lenient": true,
		"max-variants":   10,
		"early-exit":     false,
		"cache.capacity": 1000,
		"cache.ttl":      "100ms",

		"rules.no-where-clause.enabled":         true,
		"rules.dummy-condition.enabled":         true,
		"rules.blacklist-field.enabled":         true,
		"rules.required-field.enabled":          true,
		"rules.denied-table.enabled":            true,
		"rules.dangerous-function.enabled":      true,
		"rules.select-star.enabled":             true,
		"rules.logical-pagination.enabled":      true,
		"rules.no-condition-pagination.enabled": true,
		"rules.deep-pagination.enabled":         true,
		"rules.deep-pagination.max-offset":      50000,
		"rules.large-page-size.enabled":         true,
		"rules.large-page-size.max-page-size":   5000,
		"rules.missing-order-by.enabled":        true,
		"rules.no-pagination.enabled":           true,
	}
}

// Load reads the configuration: built-in defaults overlaid with the YAML
// file at path. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// LoadFromDir loads configuration from sqlguard.yaml or sqlguard.yml in dir,
// falling back to built-in defaults when neither exists.
func LoadFromDir(dir string) (*Config, error) {
	return Load(findConfigFile(dir))
}

func findConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}
	return ""
}
