package checker

import (
	"fmt"

	"github.com/pingcap/tidb/parser/ast"

	"sqlguard/internal/model"
)

// DefaultDangerousFunctions are functions that stall the server, touch the
// filesystem or serve as injection primitives.
var DefaultDangerousFunctions = []string{
	"sleep", "benchmark", "load_file", "updatexml", "extractvalue",
}

// DangerousFunctionConfig configures the dangerous-function checker.
type DangerousFunctionConfig struct {
	Config
	// Functions replaces the default list when non-empty.
	Functions []string
}

// DangerousFunctionChecker flags calls of configured dangerous functions
// anywhere in the statement.
type DangerousFunctionChecker struct {
	Base
	functions map[string]struct{}
}

func NewDangerousFunctionChecker(cfg DangerousFunctionConfig) *DangerousFunctionChecker {
	functions := cfg.Functions
	if len(functions) == 0 {
		functions = DefaultDangerousFunctions
	}
	return &DangerousFunctionChecker{
		Base:      NewBase("dangerous-function", cfg.Config),
		functions: toSet(functions),
	}
}

func (c *DangerousFunctionChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(sel, res)
}

func (c *DangerousFunctionChecker) CheckUpdate(up *ast.UpdateStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(up, res)
}

func (c *DangerousFunctionChecker) CheckDelete(del *ast.DeleteStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(del, res)
}

func (c *DangerousFunctionChecker) CheckInsert(ins *ast.InsertStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	c.check(ins, res)
}

func (c *DangerousFunctionChecker) check(stmt ast.StmtNode, res *model.ValidationResult) {
	var hit string
	stmt.Accept(enterFunc(func(n ast.Node) {
		if hit != "" {
			return
		}
		if call, ok := n.(*ast.FuncCallExpr); ok {
			if _, dangerous := c.functions[call.FnName.L]; dangerous {
				hit = call.FnName.L
			}
		}
	}))
	if hit == "" {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "DANGEROUS_FUNCTION",
		Level:      c.Level(model.RiskHigh),
		Message:    fmt.Sprintf("statement calls dangerous function %s()", hit),
		Suggestion: "Remove the call; these functions stall the server or leak files.",
	})
}
