package checker

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pingcap/tidb/parser/ast"

	"sqlguard/internal/model"
	"sqlguard/internal/parser"
)

// DefaultDummyPatterns are the constant-truth fragments matched against a
// normalized WHERE clause in addition to AST reduction.
var DefaultDummyPatterns = []string{"1=1", "1 = 1", "'1'='1'", "'a'='a'", "true"}

// DummyConditionConfig configures the tautological-condition checker.
type DummyConditionConfig struct {
	Config
	// Patterns replaces the default pattern list when non-empty.
	Patterns []string
	// CustomPatterns extends the pattern list with organization-specific
	// fragments, e.g. "0=0".
	CustomPatterns []string
}

// DummyConditionChecker detects WHERE clauses that reduce to a constant
// truth ("1=1", "true", "'a'='a'"): the statement looks filtered but scans
// the full table.
type DummyConditionChecker struct {
	Base
	patterns []string
}

func NewDummyConditionChecker(cfg DummyConditionConfig) *DummyConditionChecker {
	patterns := cfg.Patterns
	if len(patterns) == 0 {
		patterns = DefaultDummyPatterns
	}
	normalized := make([]string, 0, len(patterns)+len(cfg.CustomPatterns))
	for _, p := range append(append([]string{}, patterns...), cfg.CustomPatterns...) {
		normalized = append(normalized, normalizeCondition(p))
	}
	return &DummyConditionChecker{
		Base:     NewBase("dummy-condition", cfg.Config),
		patterns: normalized,
	}
}

func (c *DummyConditionChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(sel.Where, res)
}

func (c *DummyConditionChecker) CheckUpdate(up *ast.UpdateStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(up.Where, res)
}

func (c *DummyConditionChecker) CheckDelete(del *ast.DeleteStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(del.Where, res)
}

func (c *DummyConditionChecker) check(where ast.ExprNode, res *model.ValidationResult) {
	if where == nil {
		return
	}

	dummy := isConstantTrue(where)
	if !dummy {
		text := normalizeCondition(parser.RestoreNode(where))
		for _, p := range c.patterns {
			if strings.Contains(text, p) {
				dummy = true
				break
			}
		}
	}
	if !dummy {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "DUMMY_CONDITION",
		Level:      c.Level(model.RiskHigh),
		Message:    "WHERE clause reduces to a constant truth and does not filter rows",
		Suggestion: "Remove the placeholder condition or replace it with a real predicate.",
	})
}

// BlacklistFieldConfig configures the low-selectivity filter checker.
type BlacklistFieldConfig struct {
	Config
	// Fields are known low-cardinality columns (status, type, deleted...).
	Fields []string
}

// BlacklistFieldChecker flags statements whose WHERE clause filters only on
// low-cardinality columns on every satisfiable boolean path: the filter
// exists but barely narrows the scan.
type BlacklistFieldChecker struct {
	Base
	fields map[string]struct{}
}

func NewBlacklistFieldChecker(cfg BlacklistFieldConfig) *BlacklistFieldChecker {
	return &BlacklistFieldChecker{
		Base:   NewBase("blacklist-field", cfg.Config),
		fields: toSet(cfg.Fields),
	}
}

func (c *BlacklistFieldChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(sel.Where, res)
}

func (c *BlacklistFieldChecker) CheckUpdate(up *ast.UpdateStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(up.Where, res)
}

func (c *BlacklistFieldChecker) CheckDelete(del *ast.DeleteStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(del.Where, res)
}

func (c *BlacklistFieldChecker) check(where ast.ExprNode, res *model.ValidationResult) {
	if where == nil || len(c.fields) == 0 {
		return
	}
	cols := collectColumns(where)
	if len(cols) == 0 {
		return // constant conditions are the dummy-condition checker's call
	}
	hit := false
	for _, col := range cols {
		if _, low := c.fields[col]; low {
			hit = true
			break
		}
	}
	if !hit || hasSelectivePath(where, c.fields) {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "BLACKLIST_ONLY",
		Level:      c.Level(model.RiskHigh),
		Message:    fmt.Sprintf("WHERE clause filters only on low-cardinality columns [%s]", strings.Join(dedupSorted(cols), ", ")),
		Suggestion: "Add a selective column (primary key, indexed business key) to the filter.",
	})
}

// RequiredFieldConfig configures the mandatory-filter checker.
type RequiredFieldConfig struct {
	Config
	// Fields must appear in the WHERE clause of every satisfiable boolean
	// path (typically a tenant id).
	Fields []string
	// Tables restricts the check to the listed tables; empty means all.
	Tables []string
}

// RequiredFieldChecker enforces mandatory filter columns. An OR branch
// missing the column still leaks rows, so the column is required on every
// satisfiable path, not just somewhere in the expression.
type RequiredFieldChecker struct {
	Base
	fields []string
	tables map[string]struct{}
}

func NewRequiredFieldChecker(cfg RequiredFieldConfig) *RequiredFieldChecker {
	fields := make([]string, 0, len(cfg.Fields))
	for _, f := range cfg.Fields {
		fields = append(fields, strings.ToLower(f))
	}
	return &RequiredFieldChecker{
		Base:   NewBase("required-field", cfg.Config),
		fields: fields,
		tables: toSet(cfg.Tables),
	}
}

func (c *RequiredFieldChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(sel, sel.Where, res)
}

func (c *RequiredFieldChecker) CheckUpdate(up *ast.UpdateStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(up, up.Where, res)
}

func (c *RequiredFieldChecker) CheckDelete(del *ast.DeleteStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(del, del.Where, res)
}

func (c *RequiredFieldChecker) check(stmt ast.StmtNode, where ast.ExprNode, res *model.ValidationResult) {
	if len(c.fields) == 0 || !c.inScope(stmt) {
		return
	}
	for _, field := range c.fields {
		if where != nil && containsOnAllPaths(where, field) {
			continue
		}
		res.AddViolation(model.Violation{
			Rule:       c.Name(),
			Code:       "REQUIRED_FIELD_MISSING",
			Level:      c.Level(model.RiskHigh),
			Message:    fmt.Sprintf("mandatory filter column %q is missing from the WHERE clause (or from one of its OR branches)", field),
			Suggestion: "Filter on the mandatory column on every boolean path to keep tenant isolation.",
		})
	}
}

func (c *RequiredFieldChecker) inScope(stmt ast.StmtNode) bool {
	if len(c.tables) == 0 {
		return true
	}
	for _, t := range parser.ExtractTableNames(stmt) {
		if _, ok := c.tables[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

func dedupSorted(items []string) []string {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for it := range set {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}
