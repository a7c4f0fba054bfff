// Package validator orchestrates a validation call: dedup cache lookup,
// variant generation for templated SQL, checker execution and result
// aggregation.
package validator

import (
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"sqlguard/internal/checker"
	"sqlguard/internal/model"
	"sqlguard/internal/parser"
	"sqlguard/internal/template"
)

// Validator runs the configured rule checkers against SQL statements.
// It is safe for concurrent use: the parser facade pools parser instances,
// checkers are stateless and the cache is internally synchronized.
type Validator struct {
	facade    *parser.Facade
	generator *template.Generator
	checkers  []checker.Checker
	cache     *ResultCache
	group     singleflight.Group
	earlyExit bool
	logger    *zap.Logger
}

// NewValidator wires the validation pipeline. Checkers run in the given
// order. With earlyExit set, a CRITICAL violation stops the remaining
// checkers for that statement.
func NewValidator(facade *parser.Facade, generator *template.Generator,
	checkers []checker.Checker, cache *ResultCache, earlyExit bool, logger *zap.Logger) *Validator {
	if cache == nil {
		cache = NewResultCache(0, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		facade:    facade,
		generator: generator,
		checkers:  checkers,
		cache:     cache,
		earlyExit: earlyExit,
		logger:    logger,
	}
}

// Validate runs every enabled checker against the context's SQL and returns
// the aggregated result. Repeated calls for the same (statement, SQL) pair
// within the cache TTL reuse the cached result, and concurrent first calls
// collapse into a single computation.
func (v *Validator) Validate(ctx *model.SqlContext) *model.ValidationResult {
	key := Fingerprint(ctx.StatementID, ctx.SQL)
	if hit := v.cache.Get(key); hit != nil {
		return hit
	}

	res, _, _ := v.group.Do(key, func() (any, error) {
		computed := v.compute(ctx)
		v.cache.Put(key, computed)
		return computed, nil
	})
	return res.(*model.ValidationResult).Clone()
}

func (v *Validator) compute(ctx *model.SqlContext) *model.ValidationResult {
	if ctx.RequiresRuntimeCheck {
		return model.SkippedResult("skipped: predicates are built at runtime, re-validate with the final SQL")
	}
	if template.IsDynamic(ctx.SQL) {
		return v.validateTemplated(ctx)
	}
	return v.validateStatic(ctx)
}

func (v *Validator) validateStatic(ctx *model.SqlContext) *model.ValidationResult {
	if ctx.Statement() == nil {
		stmt, err := v.facade.Parse(ctx.SQL)
		if err != nil {
			v.logger.Warn("skipping unparseable SQL",
				zap.String("statement", ctx.StatementID), zap.Error(err))
			return model.SkippedResult("skipped: unparseable SQL")
		}
		if berr := ctx.BindStatement(stmt); berr != nil {
			v.logger.Warn("statement slot already bound",
				zap.String("statement", ctx.StatementID), zap.Error(berr))
		}
	}
	if ctx.Type == model.CommandUnknown {
		ctx.Type = parser.CommandTypeOf(ctx.Statement())
	}

	res := model.NewValidationResult()
	v.runCheckers(ctx, res)
	return res
}

// validateTemplated expands the templated source and validates every
// concrete variant, merging the per-variant results. A finding counts once
// no matter how many variants exhibit it.
func (v *Validator) validateTemplated(ctx *model.SqlContext) *model.ValidationResult {
	variants := v.generator.Generate(ctx.SQL)

	merged := model.NewValidationResult()
	checked := 0
	for _, variant := range variants {
		stmt := variant.Statement()
		if stmt == nil {
			parsed, err := v.facade.Parse(variant.SQL)
			if err != nil {
				v.logger.Debug("skipping unparseable variant",
					zap.String("statement", ctx.StatementID),
					zap.String("variant", variant.Description),
					zap.Error(err))
				continue
			}
			stmt = parsed
			_ = variant.BindStatement(stmt)
		}

		vctx := &model.SqlContext{
			SQL:         variant.SQL,
			Type:        parser.CommandTypeOf(stmt),
			StatementID: ctx.StatementID,
			Params:      ctx.Params,
			RowBounds:   ctx.RowBounds,
			Location:    ctx.Location,
		}
		_ = vctx.BindStatement(stmt)

		vres := model.NewValidationResult()
		v.runCheckers(vctx, vres)
		merged.Merge(vres)
		checked++
	}

	if checked == 0 {
		v.logger.Warn("no variant of templated SQL could be validated",
			zap.String("statement", ctx.StatementID))
		return model.SkippedResult("skipped: unparseable SQL")
	}
	return merged
}

func (v *Validator) runCheckers(ctx *model.SqlContext, res *model.ValidationResult) {
	for _, c := range v.checkers {
		if !c.Enabled() {
			continue
		}
		checker.Run(c, ctx, res, v.logger)
		if v.earlyExit && res.HasCritical() {
			v.logger.Debug("critical violation found, skipping remaining checkers",
				zap.String("statement", ctx.StatementID))
			break
		}
	}
}
