// Package config loads and validates sqlguard configuration and assembles
// the validation pipeline from it.
package config

import (
	"fmt"
	"time"

	"sqlguard/internal/model"
)

// ParserConfig controls the SQL parser facade.
type ParserConfig struct {
	// Lenient logs parse failures and reports the statement as unchecked
	// instead of failing the run.
	Lenient bool `koanf:"lenient"`
}

// CacheConfig controls the result dedup cache.
type CacheConfig struct {
	Capacity int           `koanf:"capacity"`
	TTL      time.Duration `koanf:"ttl"`
}

// ScanConfig controls the file scan performed by the CLI.
type ScanConfig struct {
	// Exclude lists path substrings to skip while walking.
	Exclude []string `koanf:"exclude"`
	// Workers bounds concurrent file validation. Zero means GOMAXPROCS.
	Workers int `koanf:"workers"`
}

// RuleConfig is the configuration block every rule shares.
type RuleConfig struct {
	Enabled bool `koanf:"enabled"`
	// Level overrides the rule's default risk level when set, e.g. "HIGH".
	Level string `koanf:"level"`
}

// RulesConfig carries the per-rule blocks.
type RulesConfig struct {
	NoWhereClause struct {
		RuleConfig   `koanf:",squash"`
		IgnoreTables []string `koanf:"ignore-tables"`
	} `koanf:"no-where-clause"`

	DummyCondition struct {
		RuleConfig `koanf:",squash"`
		// Patterns replaces the built-in dummy patterns when non-empty.
		Patterns []string `koanf:"patterns"`
		// CustomPatterns extends whichever pattern set is active.
		CustomPatterns []string `koanf:"custom-patterns"`
	} `koanf:"dummy-condition"`

	BlacklistField struct {
		RuleConfig `koanf:",squash"`
		Fields     []string `koanf:"fields"`
	} `koanf:"blacklist-field"`

	RequiredField struct {
		RuleConfig `koanf:",squash"`
		Fields     []string `koanf:"fields"`
		Tables     []string `koanf:"tables"`
	} `koanf:"required-field"`

	DeniedTable struct {
		RuleConfig `koanf:",squash"`
		Tables     []string `koanf:"tables"`
	} `koanf:"denied-table"`

	DangerousFunction struct {
		RuleConfig `koanf:",squash"`
		Functions  []string `koanf:"functions"`
	} `koanf:"dangerous-function"`

	SelectStar struct {
		RuleConfig `koanf:",squash"`
	} `koanf:"select-star"`

	LogicalPagination struct {
		RuleConfig `koanf:",squash"`
	} `koanf:"logical-pagination"`

	NoConditionPagination struct {
		RuleConfig `koanf:",squash"`
	} `koanf:"no-condition-pagination"`

	DeepPagination struct {
		RuleConfig `koanf:",squash"`
		MaxOffset  int64 `koanf:"max-offset"`
	} `koanf:"deep-pagination"`

	LargePageSize struct {
		RuleConfig  `koanf:",squash"`
		MaxPageSize int64 `koanf:"max-page-size"`
	} `koanf:"large-page-size"`

	MissingOrderBy struct {
		RuleConfig `koanf:",squash"`
	} `koanf:"missing-order-by"`

	NoPagination struct {
		RuleConfig    `koanf:",squash"`
		EnforceForAll bool `koanf:"enforce-for-all"`
	} `koanf:"no-pagination"`
}

// Config is the full sqlguard configuration.
type Config struct {
	Parser      ParserConfig `koanf:"parser"`
	MaxVariants int          `koanf:"max-variants"`
	EarlyExit   bool         `koanf:"early-exit"`
	Cache       CacheConfig  `koanf:"cache"`
	Scan        ScanConfig   `koanf:"scan"`
	Rules       RulesConfig  `koanf:"rules"`
}

// Validate fails fast on malformed configuration so no half-configured
// pipeline ever runs.
func (c *Config) Validate() error {
	if c.MaxVariants < 1 {
		return fmt.Errorf("max-variants must be at least 1, got %d", c.MaxVariants)
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("cache.capacity must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL)
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative, got %d", c.Scan.Workers)
	}
	if c.Rules.DeepPagination.MaxOffset < 0 {
		return fmt.Errorf("rules.deep-pagination.max-offset must not be negative, got %d", c.Rules.DeepPagination.MaxOffset)
	}
	if c.Rules.LargePageSize.MaxPageSize < 0 {
		return fmt.Errorf("rules.large-page-size.max-page-size must not be negative, got %d", c.Rules.LargePageSize.MaxPageSize)
	}

	for name, level := range map[string]string{
		"no-where-clause":         c.Rules.NoWhereClause.Level,
		"dummy-condition":         c.Rules.DummyCondition.Level,
		"blacklist-field":         c.Rules.BlacklistField.Level,
		"required-field":          c.Rules.RequiredField.Level,
		"denied-table":            c.Rules.DeniedTable.Level,
		"dangerous-function":      c.Rules.DangerousFunction.Level,
		"select-star":             c.Rules.SelectStar.Level,
		"logical-pagination":      c.Rules.LogicalPagination.Level,
		"no-condition-pagination": c.Rules.NoConditionPagination.Level,
		"deep-pagination":         c.Rules.DeepPagination.Level,
		"large-page-size":         c.Rules.LargePageSize.Level,
		"missing-order-by":        c.Rules.MissingOrderBy.Level,
		"no-pagination":           c.Rules.NoPagination.Level,
	} {
		if level == "" {
			continue
		}
		if _, err := model.ParseRiskLevel(level); err != nil {
			return fmt.Errorf("rules.%s.level: %w", name, err)
		}
	}
	return nil
}
