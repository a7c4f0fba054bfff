package config

import (
	"go.uber.org/zap"

	"sqlguard/internal/checker"
	"sqlguard/internal/model"
	"sqlguard/internal/parser"
	"sqlguard/internal/template"
	"sqlguard/internal/validator"
)

func ruleConfig(rc RuleConfig) checker.Config {
	level := model.RiskNone
	if rc.Level != "" {
		// Validate already rejected unknown level names.
		level, _ = model.ParseRiskLevel(rc.Level)
	}
	return checker.Config{Enabled: rc.Enabled, Level: level}
}

// BuildCheckers assembles the checker pipeline in its fixed execution order.
// Checkers able to produce CRITICAL findings run first so early-exit pays off.
func BuildCheckers(cfg *Config) []checker.Checker {
	r := cfg.Rules
	return []checker.Checker{
		checker.NewNoWhereClauseChecker(checker.NoWhereClauseConfig{
			Config:       ruleConfig(r.NoWhereClause.RuleConfig),
			IgnoreTables: r.NoWhereClause.IgnoreTables,
		}),
		checker.NewDeniedTableChecker(checker.DeniedTableConfig{
			Config: ruleConfig(r.DeniedTable.RuleConfig),
			Tables: r.DeniedTable.Tables,
		}),
		checker.NewNoConditionPaginationChecker(ruleConfig(r.NoConditionPagination.RuleConfig)),
		checker.NewNoPaginationChecker(checker.NoPaginationConfig{
			Config:          ruleConfig(r.NoPagination.RuleConfig),
			EnforceForAll:   r.NoPagination.EnforceForAll,
			BlacklistFields: r.BlacklistField.Fields,
		}),
		checker.NewDummyConditionChecker(checker.DummyConditionConfig{
			Config:         ruleConfig(r.DummyCondition.RuleConfig),
			Patterns:       r.DummyCondition.Patterns,
			CustomPatterns: r.DummyCondition.CustomPatterns,
		}),
		checker.NewBlacklistFieldChecker(checker.BlacklistFieldConfig{
			Config: ruleConfig(r.BlacklistField.RuleConfig),
			Fields: r.BlacklistField.Fields,
		}),
		checker.NewRequiredFieldChecker(checker.RequiredFieldConfig{
			Config: ruleConfig(r.RequiredField.RuleConfig),
			Fields: r.RequiredField.Fields,
			Tables: r.RequiredField.Tables,
		}),
		checker.NewDangerousFunctionChecker(checker.DangerousFunctionConfig{
			Config:    ruleConfig(r.DangerousFunction.RuleConfig),
			Functions: r.DangerousFunction.Functions,
		}),
		checker.NewLogicalPaginationChecker(ruleConfig(r.LogicalPagination.RuleConfig)),
		checker.NewDeepPaginationChecker(checker.DeepPaginationConfig{
			Config:    ruleConfig(r.DeepPagination.RuleConfig),
			MaxOffset: r.DeepPagination.MaxOffset,
		}),
		checker.NewLargePageSizeChecker(checker.LargePageSizeConfig{
			Config:      ruleConfig(r.LargePageSize.RuleConfig),
			MaxPageSize: r.LargePageSize.MaxPageSize,
		}),
		checker.NewMissingOrderByChecker(ruleConfig(r.MissingOrderBy.RuleConfig)),
		checker.NewSelectStarChecker(ruleConfig(r.SelectStar.RuleConfig)),
	}
}

// BuildValidator assembles the full validation pipeline from configuration.
func BuildValidator(cfg *Config, logger *zap.Logger) *validator.Validator {
	facade := parser.NewFacade(cfg.Parser.Lenient, logger)
	generator := template.NewGenerator(cfg.MaxVariants, facade, logger)
	cache := validator.NewResultCache(cfg.Cache.Capacity, cfg.Cache.TTL)
	return validator.NewValidator(facade, generator, BuildCheckers(cfg), cache, cfg.EarlyExit, logger)
}
