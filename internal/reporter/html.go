package reporter

import (
	"fmt"
	"io"
	"time"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"

	"sqlguard/internal/model"
)

// HTMLReporter renders findings as a standalone HTML page for CI artifacts.
type HTMLReporter struct {
	out io.Writer
	now func() time.Time
}

func NewHTMLReporter(out io.Writer) *HTMLReporter {
	return &HTMLReporter{out: out, now: time.Now}
}

func (r *HTMLReporter) Report(findings []model.Finding) error {
	return reportPage(findings, r.now()).Render(r.out)
}

const pageStyle = `
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin: 1rem 0; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.8rem; text-align: left; }
th { background: #f2f2f2; }
.sql { font-family: monospace; background: #f8f8f8; padding: 0.2rem 0.4rem; }
.CRITICAL { color: #fff; background: #b30000; padding: 0.1rem 0.4rem; }
.HIGH { color: #b30000; font-weight: bold; }
.MEDIUM { color: #996600; }
.LOW { color: #0055aa; }
.unchecked { color: #777; }
`

func reportPage(findings []model.Finding, now time.Time) Node {
	violations := 0
	counts := make(map[model.RiskLevel]int)
	for _, f := range findings {
		for _, v := range f.Result.Violations() {
			violations++
			counts[v.Level]++
		}
	}

	summaryRows := make([]Node, 0, 4)
	for _, level := range []model.RiskLevel{model.RiskCritical, model.RiskHigh, model.RiskMedium, model.RiskLow} {
		if counts[level] > 0 {
			summaryRows = append(summaryRows, Tr(
				Td(Span(Class(level.String()), Text(level.String()))),
				Td(Text(fmt.Sprintf("%d", counts[level]))),
			))
		}
	}

	findingRows := make([]Node, 0, violations)
	for _, f := range findings {
		if ok, reason := f.Result.Skipped(); ok {
			findingRows = append(findingRows, Tr(
				Td(Text(f.Context.Location.String())),
				Td(Span(Class("unchecked"), Text("unchecked"))),
				Td(Text(reason)),
				Td(Span(Class("sql"), Text(truncate(f.Context.SQL, 120)))),
				Td(),
			))
			continue
		}
		for _, v := range f.Result.Violations() {
			findingRows = append(findingRows, Tr(
				Td(Text(f.Context.Location.String())),
				Td(Span(Class(v.Level.String()), Text(v.Level.String()))),
				Td(Text(v.Rule+": "+v.Message)),
				Td(Span(Class("sql"), Text(truncate(f.Context.SQL, 120)))),
				Td(Text(v.Suggestion)),
			))
		}
	}

	return HTML(
		Head(
			TitleEl(Text("SQL safety report")),
			Meta(Charset("utf-8")),
			StyleEl(Text(pageStyle)),
		),
		Body(
			H1(Text("SQL safety report")),
			P(Text(fmt.Sprintf("Generated %s. %d statement(s) checked, %d violation(s).",
				now.Format(time.RFC3339), len(findings), violations))),
			H2(Text("Summary")),
			Table(
				THead(Tr(Th(Text("Severity")), Th(Text("Count")))),
				TBody(Group(summaryRows)),
			),
			H2(Text("Findings")),
			Table(
				THead(Tr(Th(Text("Location")), Th(Text("Severity")), Th(Text("Finding")), Th(Text("SQL")), Th(Text("Suggestion")))),
				TBody(Group(findingRows)),
			),
		),
	)
}
