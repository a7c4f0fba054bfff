// Package checker holds the rule checker framework and all rule
// implementations. Checkers are stateless: configuration is injected at
// construction and immutable afterwards, so one checker instance serves any
// number of concurrent validation calls.
package checker

import (
	"github.com/pingcap/tidb/parser/ast"
	"go.uber.org/zap"

	"sqlguard/internal/model"
)

// Checker inspects one parsed statement and appends violations. A checker
// overrides only the per-kind hooks it cares about; the rest default to
// no-ops via Base.
type Checker interface {
	Name() string
	Enabled() bool

	CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult)
	CheckUpdate(up *ast.UpdateStmt, ctx *model.SqlContext, res *model.ValidationResult)
	CheckDelete(del *ast.DeleteStmt, ctx *model.SqlContext, res *model.ValidationResult)
	CheckInsert(ins *ast.InsertStmt, ctx *model.SqlContext, res *model.ValidationResult)
}

// Config is the part of a rule's configuration every checker shares.
type Config struct {
	Enabled bool
	// Level overrides the checker's default risk level when not RiskNone.
	Level model.RiskLevel
}

// Base supplies the shared Checker plumbing: name, enabled flag, risk-level
// override and no-op hooks. Rule types embed it and override the hooks for
// the statement kinds they validate.
type Base struct {
	name string
	cfg  Config
}

func NewBase(name string, cfg Config) Base {
	return Base{name: name, cfg: cfg}
}

func (b Base) Name() string  { return b.name }
func (b Base) Enabled() bool { return b.cfg.Enabled }

// Level resolves the effective risk level: the configured override when set,
// otherwise the checker's default.
func (b Base) Level(def model.RiskLevel) model.RiskLevel {
	if b.cfg.Level != model.RiskNone {
		return b.cfg.Level
	}
	return def
}

func (Base) CheckSelect(*ast.SelectStmt, *model.SqlContext, *model.ValidationResult) {}
func (Base) CheckUpdate(*ast.UpdateStmt, *model.SqlContext, *model.ValidationResult) {}
func (Base) CheckDelete(*ast.DeleteStmt, *model.SqlContext, *model.ValidationResult) {}
func (Base) CheckInsert(*ast.InsertStmt, *model.SqlContext, *model.ValidationResult) {}

// Run dispatches the context's statement to the checker hook matching its
// kind. The type switch lives here once rather than in every checker. A
// panicking checker is logged and contributes no violation; the caller
// continues with the remaining checkers.
func Run(c Checker, ctx *model.SqlContext, res *model.ValidationResult, logger *zap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("checker failed, continuing with remaining checkers",
				zap.String("checker", c.Name()),
				zap.String("statement", ctx.StatementID),
				zap.Any("panic", r))
		}
	}()

	stmt := ctx.Statement()
	if stmt == nil {
		return
	}
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		c.CheckSelect(s, ctx, res)
	case *ast.UpdateStmt:
		c.CheckUpdate(s, ctx, res)
	case *ast.DeleteStmt:
		c.CheckDelete(s, ctx, res)
	case *ast.InsertStmt:
		c.CheckInsert(s, ctx, res)
	default:
		logger.Debug("statement kind not covered by checkers",
			zap.String("statement", ctx.StatementID))
	}
}
