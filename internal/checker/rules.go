package checker

import (
	"fmt"
	"strings"

	"github.com/pingcap/tidb/parser/ast"

	"sqlguard/internal/model"
	"sqlguard/internal/parser"
)

// NoWhereClauseConfig configures the full-table mutation checker.
type NoWhereClauseConfig struct {
	Config
	// IgnoreTables are tables where unfiltered mutations are accepted
	// (small dictionary/config tables cleared on purpose).
	IgnoreTables []string
}

// NoWhereClauseChecker detects UPDATE/DELETE without a WHERE clause.
type NoWhereClauseChecker struct {
	Base
	ignore map[string]struct{}
}

func NewNoWhereClauseChecker(cfg NoWhereClauseConfig) *NoWhereClauseChecker {
	return &NoWhereClauseChecker{
		Base:   NewBase("no-where-clause", cfg.Config),
		ignore: toSet(cfg.IgnoreTables),
	}
}

func (c *NoWhereClauseChecker) CheckUpdate(up *ast.UpdateStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	if up.Where != nil || c.allIgnored(up) {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "UNSAFE_UPDATE",
		Level:      c.Level(model.RiskCritical),
		Message:    "UPDATE without WHERE clause mutates the full table",
		Suggestion: "Add a WHERE clause limiting the scope of the update.",
	})
}

func (c *NoWhereClauseChecker) CheckDelete(del *ast.DeleteStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	if del.Where != nil || c.allIgnored(del) {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "UNSAFE_DELETE",
		Level:      c.Level(model.RiskCritical),
		Message:    "DELETE without WHERE clause removes the full table",
		Suggestion: "Add a WHERE clause limiting the scope of the delete.",
	})
}

func (c *NoWhereClauseChecker) allIgnored(stmt ast.StmtNode) bool {
	tables := parser.ExtractTableNames(stmt)
	if len(tables) == 0 || len(c.ignore) == 0 {
		return false
	}
	for _, t := range tables {
		if _, ok := c.ignore[strings.ToLower(t)]; !ok {
			return false
		}
	}
	return true
}

// SelectStarChecker flags wildcard projections.
type SelectStarChecker struct {
	Base
}

func NewSelectStarChecker(cfg Config) *SelectStarChecker {
	return &SelectStarChecker{Base: NewBase("select-star", cfg)}
}

func (c *SelectStarChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	if sel.Fields == nil {
		return
	}
	for _, field := range sel.Fields.Fields {
		if field.WildCard != nil {
			res.AddViolation(model.Violation{
				Rule:       c.Name(),
				Code:       "SELECT_STAR",
				Level:      c.Level(model.RiskLow),
				Message:    "SELECT * returns every column",
				Suggestion: "List the needed columns explicitly to cut I/O and stay forward compatible.",
			})
			return
		}
	}
}

// DeniedTableConfig configures the denied-table checker.
type DeniedTableConfig struct {
	Config
	Tables []string
}

// DeniedTableChecker rejects statements touching tables on the deny list.
type DeniedTableChecker struct {
	Base
	denied map[string]struct{}
}

func NewDeniedTableChecker(cfg DeniedTableConfig) *DeniedTableChecker {
	return &DeniedTableChecker{
		Base:   NewBase("denied-table", cfg.Config),
		denied: toSet(cfg.Tables),
	}
}

func (c *DeniedTableChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(sel, res)
}

func (c *DeniedTableChecker) CheckUpdate(up *ast.UpdateStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(up, res)
}

func (c *DeniedTableChecker) CheckDelete(del *ast.DeleteStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(del, res)
}

func (c *DeniedTableChecker) CheckInsert(ins *ast.InsertStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(ins, res)
}

func (c *DeniedTableChecker) check(stmt ast.StmtNode, res *model.ValidationResult) {
	if len(c.denied) == 0 {
		return
	}
	for _, t := range parser.ExtractTableNames(stmt) {
		if _, hit := c.denied[strings.ToLower(t)]; hit {
			res.AddViolation(model.Violation{
				Rule:       c.Name(),
				Code:       "DENIED_TABLE",
				Level:      c.Level(model.RiskCritical),
				Message:    fmt.Sprintf("statement touches denied table %q", t),
				Suggestion: "Access this table through its owning service, not direct SQL.",
			})
			return
		}
	}
}
