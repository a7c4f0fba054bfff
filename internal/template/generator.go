package template

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"sqlguard/internal/model"
	"sqlguard/internal/parser"
)

// DefaultMaxVariants bounds the number of concrete variants generated for
// one templated source, however deeply directives nest.
const DefaultMaxVariants = 10

// Generator expands templated SQL into concrete variants. Stateless and
// safe for concurrent use.
type Generator struct {
	maxVariants int
	facade      *parser.Facade
	logger      *zap.Logger
}

// NewGenerator constructs a Generator. The facade is used to verify that
// every emitted variant independently re-parses.
func NewGenerator(maxVariants int, facade *parser.Facade, logger *zap.Logger) *Generator {
	if maxVariants < 1 {
		maxVariants = DefaultMaxVariants
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{maxVariants: maxVariants, facade: facade, logger: logger}
}

// option is one partial resolution of a directive subtree: the produced text
// plus the branch decisions that led to it. Option lists are ordered from
// the minimal resolution (everything excluded/empty) to the maximal one
// (everything included), and truncation always keeps both extremes.
type option struct {
	text string
	desc []string
}

// Generate expands the templated source into 1..maxVariants concrete SQL
// variants, each with its parsed statement already bound. Directives are
// resolved innermost-first by recursing over the parsed tree, never by
// rewriting the output string. If the directive tree itself fails to parse,
// the literal text is returned as the sole (unbound) variant.
func (g *Generator) Generate(raw string) []*model.SqlVariant {
	root, err := ParseTemplate(raw)
	if err != nil {
		g.logger.Warn("dynamic SQL template unparseable, using literal text",
			zap.String("sql", parser.Snippet(raw)), zap.Error(err))
		return []*model.SqlVariant{{
			SQL:         finalize(Flatten(raw)),
			Description: "literal text (template parse failed)",
		}}
	}

	opts := g.expandSeq(root.Children)

	variants := make([]*model.SqlVariant, 0, len(opts))
	seen := make(map[string]struct{}, len(opts))
	for _, o := range opts {
		sql := finalize(o.text)
		if sql == "" {
			continue
		}
		if _, dup := seen[sql]; dup {
			continue
		}
		stmt, perr := g.facade.Parse(sql)
		if perr != nil {
			g.logger.Debug("dropping unparseable variant",
				zap.String("variant", parser.Snippet(sql)), zap.Error(perr))
			continue
		}
		seen[sql] = struct{}{}
		v := &model.SqlVariant{SQL: sql, Description: describe(o.desc)}
		_ = v.BindStatement(stmt)
		variants = append(variants, v)
		if len(variants) == g.maxVariants {
			break
		}
	}

	if len(variants) == 0 {
		g.logger.Warn("no variant of dynamic SQL parsed, using literal text",
			zap.String("sql", parser.Snippet(raw)))
		return []*model.SqlVariant{{
			SQL:         finalize(Flatten(raw)),
			Description: "literal text (no parseable variant)",
		}}
	}
	return variants
}

// expand returns the ordered option list for one node.
func (g *Generator) expand(n *Node) []option {
	switch n.Kind {
	case KindText:
		return []option{{text: n.Text}}

	case KindIf:
		inner := g.expandSeq(n.Children)
		opts := make([]option, 0, len(inner)+1)
		opts = append(opts, option{text: "", desc: []string{"if(" + n.Test + ") excluded"}})
		for _, in := range inner {
			opts = append(opts, option{
				text: in.text,
				desc: append([]string{"if(" + n.Test + ") included"}, in.desc...),
			})
		}
		return g.capOptions(opts)

	case KindForeach:
		body := g.maximalText(n.Children)
		multiple := n.Open +
			body + n.Separator + " " + body + n.Separator + " " + body +
			n.Close
		return []option{
			{text: "", desc: []string{"foreach empty"}},
			{text: n.Open + body + n.Close, desc: []string{"foreach single item"}},
			{text: multiple, desc: []string{"foreach multiple items"}},
		}

	case KindWhere:
		inner := g.expandSeq(n.Children)
		opts := make([]option, 0, len(inner))
		for _, in := range inner {
			trimmed := strings.TrimSpace(in.text)
			if trimmed == "" {
				opts = append(opts, option{text: "", desc: append([]string{"where omitted"}, in.desc...)})
				continue
			}
			opts = append(opts, option{
				text: "WHERE " + stripLeadingConnector(trimmed),
				desc: in.desc,
			})
		}
		return g.capOptions(opts)

	case KindChoose:
		// Branches are mutually exclusive: one option set per branch, never
		// combined. No branch-less option unless an otherwise exists, in
		// which case the otherwise resolutions close the list.
		var opts []option
		for _, branch := range n.Children {
			switch branch.Kind {
			case KindWhen:
				for _, in := range g.expandSeq(branch.Children) {
					opts = append(opts, option{
						text: in.text,
						desc: append([]string{"when(" + branch.Test + ")"}, in.desc...),
					})
				}
			case KindOtherwise:
				for _, in := range g.expandSeq(branch.Children) {
					opts = append(opts, option{
						text: in.text,
						desc: append([]string{"otherwise"}, in.desc...),
					})
				}
			}
		}
		if len(opts) == 0 {
			return []option{{text: ""}}
		}
		return g.capOptions(opts)

	default: // KindOther, KindWhen, KindOtherwise outside choose: inline content
		return g.expandSeq(n.Children)
	}
}

// expandSeq combines the option lists of sibling nodes into the option list
// of the sequence, capping the cross-product at maxVariants.
func (g *Generator) expandSeq(nodes []*Node) []option {
	acc := []option{{}}
	for _, n := range nodes {
		acc = g.combine(acc, g.expand(n))
	}
	return acc
}

// combine builds the capped cross-product of two option lists. Enumeration
// is row-major, so the first combination pairs the two minimal options and
// the appended tail combination pairs the two maximal ones; both extremes
// survive truncation.
func (g *Generator) combine(a, b []option) []option {
	if len(b) == 0 {
		return a
	}
	total := len(a) * len(b)
	if total <= g.maxVariants {
		out := make([]option, 0, total)
		for _, x := range a {
			for _, y := range b {
				out = append(out, join(x, y))
			}
		}
		return out
	}

	out := make([]option, 0, g.maxVariants)
	for i := 0; i < len(a) && len(out) < g.maxVariants-1; i++ {
		for j := 0; j < len(b) && len(out) < g.maxVariants-1; j++ {
			out = append(out, join(a[i], b[j]))
		}
	}
	out = append(out, join(a[len(a)-1], b[len(b)-1]))
	return out
}

// capOptions truncates an option list to maxVariants, keeping the first
// (minimal) and last (maximal) entries.
func (g *Generator) capOptions(opts []option) []option {
	if len(opts) <= g.maxVariants {
		return opts
	}
	out := make([]option, 0, g.maxVariants)
	out = append(out, opts[:g.maxVariants-1]...)
	out = append(out, opts[len(opts)-1])
	return out
}

// maximalText resolves a subtree to its fully-included form, used as the
// foreach body so nested directives inside the loop are resolved before the
// loop itself is expanded.
func (g *Generator) maximalText(nodes []*Node) string {
	opts := g.expandSeq(nodes)
	if len(opts) == 0 {
		return ""
	}
	return strings.TrimSpace(opts[len(opts)-1].text)
}

func join(a, b option) option {
	text := a.text
	bt := b.text
	switch {
	case strings.TrimSpace(text) == "":
		text = bt
	case strings.TrimSpace(bt) == "":
	default:
		text = strings.TrimSpace(text) + " " + strings.TrimSpace(bt)
	}
	desc := a.desc
	if len(b.desc) > 0 {
		desc = append(append([]string{}, a.desc...), b.desc...)
	}
	return option{text: text, desc: desc}
}

// stripLeadingConnector removes exactly the first leading AND/OR. Any later
// connector belongs to the condition chain and is left untouched.
func stripLeadingConnector(s string) string {
	upper := strings.ToUpper(s)
	if strings.HasPrefix(upper, "AND ") {
		return strings.TrimSpace(s[4:])
	}
	if strings.HasPrefix(upper, "OR ") {
		return strings.TrimSpace(s[3:])
	}
	return s
}

func describe(desc []string) string {
	if len(desc) == 0 {
		return "as written"
	}
	return strings.Join(desc, ", ")
}

var (
	placeholderRe = regexp.MustCompile(`[#$]\{[^}]*\}`)
	spaceRe       = regexp.MustCompile(`\s+`)

	// A foreach resolved to EMPTY can leave an IN with no operand; the whole
	// dangling condition goes, together with its connector.
	emptyInRe = regexp.MustCompile(`(?i)(?:\s+(?:AND|OR))?\s+[\w.` + "`" + `]+\s+(?:NOT\s+)?IN\s*(?:\(\s*\))?\s*(\)|ORDER\s+BY\b|GROUP\s+BY\b|LIMIT\b|HAVING\b|$)`)

	// A clause emptied by directive exclusion can leave WHERE with nothing
	// behind it, or WHERE immediately followed by a connector.
	danglingWhereRe  = regexp.MustCompile(`(?i)\bWHERE\s*(\)|ORDER\s+BY\b|GROUP\s+BY\b|LIMIT\b|HAVING\b|$)`)
	whereConnectorRe = regexp.MustCompile(`(?i)\bWHERE\s+(?:AND|OR)\b`)
	trailingConnRe   = regexp.MustCompile(`(?i)\s+(?:AND|OR)\s*(\)|ORDER\s+BY\b|GROUP\s+BY\b|LIMIT\b|HAVING\b|$)`)
)

// finalize turns assembled template text into plain SQL: bind placeholders
// become ?, whitespace is collapsed, and clause fragments left dangling by
// empty directive resolutions are removed.
func finalize(text string) string {
	s := placeholderRe.ReplaceAllString(text, "?")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	s = emptyInRe.ReplaceAllString(s, " $1")
	s = trailingConnRe.ReplaceAllString(s, " $1")
	s = whereConnectorRe.ReplaceAllString(s, "WHERE")
	s = spaceRe.ReplaceAllString(s, " ")
	s = danglingWhereRe.ReplaceAllString(s, "$1")

	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
