package checker

import (
	"testing"

	"github.com/pingcap/tidb/parser/ast"
	"go.uber.org/zap"

	"sqlguard/internal/model"
	"sqlguard/internal/parser"
)

var enabled = Config{Enabled: true}

// runOn parses sql and runs a single checker against it.
func runOn(t *testing.T, c Checker, sql string, rb *model.RowBounds) *model.ValidationResult {
	t.Helper()
	facade := parser.NewFacade(false, nil)
	stmt, err := facade.Parse(sql)
	if err != nil {
		t.Fatalf("parse %q: %v", sql, err)
	}
	ctx := &model.SqlContext{SQL: sql, StatementID: "test", RowBounds: rb}
	if err := ctx.BindStatement(stmt); err != nil {
		t.Fatalf("bind: %v", err)
	}
	res := model.NewValidationResult()
	Run(c, ctx, res, zap.NewNop())
	return res
}

func codes(res *model.ValidationResult) []string {
	var out []string
	for _, v := range res.Violations() {
		out = append(out, v.Code)
	}
	return out
}

func wantCodes(t *testing.T, res *model.ValidationResult, want ...string) {
	t.Helper()
	got := codes(res)
	if len(got) != len(want) {
		t.Fatalf("violations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("violations = %v, want %v", got, want)
		}
	}
}

type panicChecker struct {
	Base
}

func (panicChecker) CheckSelect(*ast.SelectStmt, *model.SqlContext, *model.ValidationResult) {
	panic("boom")
}

func TestRun_RecoversPanickingChecker(t *testing.T) {
	c := panicChecker{Base: NewBase("panicking", enabled)}
	res := runOn(t, c, "SELECT id FROM users", nil)
	if !res.Passed() {
		t.Errorf("panicking checker contributed violations: %v", codes(res))
	}
}

func TestRun_NilStatementIsNoop(t *testing.T) {
	ctx := &model.SqlContext{SQL: "SELECT 1", StatementID: "test"}
	res := model.NewValidationResult()
	Run(NewSelectStarChecker(enabled), ctx, res, zap.NewNop())
	if !res.Passed() {
		t.Errorf("unbound context produced violations: %v", codes(res))
	}
}

func TestBase_LevelOverride(t *testing.T) {
	b := NewBase("x", Config{Enabled: true, Level: model.RiskLow})
	if got := b.Level(model.RiskCritical); got != model.RiskLow {
		t.Errorf("Level() = %v, want override LOW", got)
	}
	b = NewBase("x", Config{Enabled: true})
	if got := b.Level(model.RiskCritical); got != model.RiskCritical {
		t.Errorf("Level() = %v, want default CRITICAL", got)
	}
}
