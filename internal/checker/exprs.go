package checker

import (
	"strings"

	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/opcode"
	"github.com/pingcap/tidb/parser/test_driver"
)

// enterFunc adapts a function to ast.Visitor for read-only walks.
type enterFunc func(n ast.Node)

func (f enterFunc) Enter(n ast.Node) (ast.Node, bool) {
	f(n)
	return n, false
}

func (f enterFunc) Leave(n ast.Node) (ast.Node, bool) { return n, true }

// collectColumns returns the lower-cased names of all columns referenced
// under the node.
func collectColumns(node ast.Node) []string {
	var cols []string
	node.Accept(enterFunc(func(n ast.Node) {
		if col, ok := n.(*ast.ColumnName); ok {
			cols = append(cols, col.Name.L)
		}
	}))
	return cols
}

func unwrapParens(e ast.ExprNode) ast.ExprNode {
	for {
		p, ok := e.(*ast.ParenthesesExpr)
		if !ok {
			return e
		}
		e = p.Expr
	}
}

// isConstantTrue reduces an expression to decide whether it is a constant
// truth: literal TRUE / non-zero literal, equality of two equal literals,
// AND of two constant truths, OR with a constant-truth side.
func isConstantTrue(e ast.ExprNode) bool {
	switch x := unwrapParens(e).(type) {
	case *test_driver.ValueExpr:
		switch v := x.GetValue().(type) {
		case int64:
			return v != 0
		case uint64:
			return v != 0
		}
		return false
	case *ast.BinaryOperationExpr:
		switch x.Op {
		case opcode.LogicAnd:
			return isConstantTrue(x.L) && isConstantTrue(x.R)
		case opcode.LogicOr:
			return isConstantTrue(x.L) || isConstantTrue(x.R)
		case opcode.EQ:
			return literalEqual(unwrapParens(x.L), unwrapParens(x.R))
		}
	}
	return false
}

func literalEqual(l, r ast.ExprNode) bool {
	lv, lok := l.(*test_driver.ValueExpr)
	rv, rok := r.(*test_driver.ValueExpr)
	if !lok || !rok {
		return false
	}
	return lv.GetValue() == rv.GetValue()
}

// hasSelectivePath reports whether some satisfiable boolean path through the
// expression filters on at least one column outside the low-cardinality set.
// AND needs one selective side; OR needs both, because either branch alone
// can satisfy the predicate.
func hasSelectivePath(e ast.ExprNode, lowCardinality map[string]struct{}) bool {
	switch x := unwrapParens(e).(type) {
	case *ast.BinaryOperationExpr:
		switch x.Op {
		case opcode.LogicAnd:
			return hasSelectivePath(x.L, lowCardinality) || hasSelectivePath(x.R, lowCardinality)
		case opcode.LogicOr:
			return hasSelectivePath(x.L, lowCardinality) && hasSelectivePath(x.R, lowCardinality)
		}
	}
	for _, col := range collectColumns(e) {
		if _, low := lowCardinality[col]; !low {
			return true
		}
	}
	return false
}

// containsOnAllPaths reports whether the column participates in the filter
// on every satisfiable boolean path: both sides of an OR must carry it,
// either side of an AND suffices.
func containsOnAllPaths(e ast.ExprNode, column string) bool {
	switch x := unwrapParens(e).(type) {
	case *ast.BinaryOperationExpr:
		switch x.Op {
		case opcode.LogicAnd:
			return containsOnAllPaths(x.L, column) || containsOnAllPaths(x.R, column)
		case opcode.LogicOr:
			return containsOnAllPaths(x.L, column) && containsOnAllPaths(x.R, column)
		}
	}
	for _, col := range collectColumns(e) {
		if col == column {
			return true
		}
	}
	return false
}

// normalizeCondition lowers and collapses whitespace for pattern matching
// against configured dummy-condition strings.
func normalizeCondition(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = struct{}{}
	}
	return set
}
