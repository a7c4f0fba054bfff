package reporter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"

	"sqlguard/internal/model"
)

func sampleFindings() []model.Finding {
	bad := model.NewValidationResult()
	bad.AddViolation(model.Violation{
		Rule:       "dummy-condition",
		Code:       "DUMMY_CONDITION",
		Level:      model.RiskHigh,
		Message:    "WHERE clause reduces to a constant truth and does not filter rows",
		Suggestion: "Remove the placeholder condition.",
	})

	return []model.Finding{
		{
			Context: &model.SqlContext{
				SQL:         "SELECT * FROM users WHERE 1 = 1",
				StatementID: "UserMapper.selectAll",
				Location:    model.Location{FilePath: "UserMapper.xml", Line: 12},
			},
			Result: bad,
		},
		{
			Context: &model.SqlContext{
				SQL:         "SELECT id FROM users WHERE id = ?",
				StatementID: "UserMapper.selectByID",
				Location:    model.Location{FilePath: "UserMapper.xml", Line: 20},
			},
			Result: model.NewValidationResult(),
		},
		{
			Context: &model.SqlContext{
				SQL:         "q.Where(cond).Build()",
				StatementID: "dao/user.go:42",
				Location:    model.Location{FilePath: "dao/user.go", Line: 42},
			},
			Result: model.SkippedResult("requires runtime validation"),
		},
	}
}

func TestConsoleReporter_Report(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	if err := NewConsoleReporter(&buf).Report(sampleFindings()); err != nil {
		t.Fatalf("Report() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"UserMapper.xml:12",
		"HIGH",
		"dummy-condition",
		"constant truth",
		"unchecked",
		"Severity",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestConsoleReporter_CleanRun(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	findings := []model.Finding{{
		Context: &model.SqlContext{SQL: "SELECT 1", StatementID: "s"},
		Result:  model.NewValidationResult(),
	}}
	if err := NewConsoleReporter(&buf).Report(findings); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No SQL safety violations") {
		t.Errorf("clean run output = %q", buf.String())
	}
}

func TestHTMLReporter_Report(t *testing.T) {
	var buf bytes.Buffer
	if err := NewHTMLReporter(&buf).Report(sampleFindings()); err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"SQL safety report",
		"UserMapper.xml:12",
		"HIGH",
		"dummy-condition",
		"unchecked",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html output missing %q", want)
		}
	}
}

func TestWorstLevel(t *testing.T) {
	findings := sampleFindings()
	if got := WorstLevel(findings); got != model.RiskHigh {
		t.Errorf("WorstLevel() = %v, want HIGH", got)
	}
	if got := WorstLevel(nil); got != model.RiskNone {
		t.Errorf("WorstLevel(nil) = %v, want NONE", got)
	}
}
