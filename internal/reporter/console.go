// Package reporter renders validation findings for humans and CI.
package reporter

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"sqlguard/internal/model"
)

// ConsoleReporter writes findings as colored text with a severity summary
// table at the end.
type ConsoleReporter struct {
	out io.Writer
}

func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleReporter{out: out}
}

func levelColor(level model.RiskLevel) *color.Color {
	switch level {
	case model.RiskCritical:
		return color.New(color.FgRed, color.Bold)
	case model.RiskHigh:
		return color.New(color.FgRed)
	case model.RiskMedium:
		return color.New(color.FgYellow)
	case model.RiskLow:
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgWhite)
	}
}

func (r *ConsoleReporter) Report(findings []model.Finding) error {
	violations := 0
	skipped := 0
	counts := make(map[model.RiskLevel]int)

	for _, f := range findings {
		if ok, reason := f.Result.Skipped(); ok {
			skipped++
			fmt.Fprintf(r.out, "%s: %s %s\n", f.Context.Location, color.HiBlackString("[unchecked]"), reason)
			fmt.Fprintf(r.out, "\tSQL: %s\n\n", color.CyanString(truncate(f.Context.SQL, 80)))
			continue
		}
		for _, v := range f.Result.Violations() {
			violations++
			counts[v.Level]++
			fmt.Fprintf(r.out, "%s: [%s] %s: %s\n",
				f.Context.Location, levelColor(v.Level).Sprint(v.Level), v.Rule, v.Message)
			fmt.Fprintf(r.out, "\tSQL: %s\n", color.CyanString(truncate(f.Context.SQL, 80)))
			if v.Suggestion != "" {
				fmt.Fprintf(r.out, "\tSuggestion: %s\n", v.Suggestion)
			}
			fmt.Fprintln(r.out)
		}
	}

	if violations == 0 {
		fmt.Fprintln(r.out, color.GreenString("✔ No SQL safety violations found."))
		if skipped > 0 {
			fmt.Fprintf(r.out, "%d statement(s) could not be checked.\n", skipped)
		}
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Severity", "Count"})
	for _, level := range []model.RiskLevel{model.RiskCritical, model.RiskHigh, model.RiskMedium, model.RiskLow} {
		if counts[level] > 0 {
			t.AppendRow(table.Row{level.String(), counts[level]})
		}
	}
	t.AppendFooter(table.Row{"Total", violations})
	t.Render()

	fmt.Fprintf(r.out, "\n%s %d violation(s) in %d statement(s), %d unchecked.\n",
		color.RedString("✘"), violations, len(findings), skipped)
	return nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// WorstLevel returns the highest severity across all findings, used to
// decide the process exit code.
func WorstLevel(findings []model.Finding) model.RiskLevel {
	worst := model.RiskNone
	for _, f := range findings {
		if lvl := f.Result.OverallRisk(); lvl > worst {
			worst = lvl
		}
	}
	return worst
}
