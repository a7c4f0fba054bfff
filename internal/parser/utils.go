package parser

import (
	"strings"

	"github.com/pingcap/tidb/parser/ast"
	"github.com/pingcap/tidb/parser/format"
	"github.com/pingcap/tidb/parser/test_driver"

	"sqlguard/internal/model"
)

// CommandTypeOf maps an AST node to the statement command type.
func CommandTypeOf(stmt ast.StmtNode) model.CommandType {
	switch stmt.(type) {
	case *ast.SelectStmt, *ast.SetOprStmt:
		return model.CommandSelect
	case *ast.InsertStmt:
		return model.CommandInsert
	case *ast.UpdateStmt:
		return model.CommandUpdate
	case *ast.DeleteStmt:
		return model.CommandDelete
	default:
		return model.CommandUnknown
	}
}

// ExtractWhere returns the WHERE expression of a statement, or nil.
func ExtractWhere(stmt ast.StmtNode) ast.ExprNode {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return s.Where
	case *ast.UpdateStmt:
		return s.Where
	case *ast.DeleteStmt:
		return s.Where
	}
	return nil
}

// ExtractLimit returns the LIMIT clause of a SELECT (or set operation), or nil.
func ExtractLimit(stmt ast.StmtNode) *ast.Limit {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return s.Limit
	case *ast.SetOprStmt:
		return s.Limit
	}
	return nil
}

// ExtractOrderBy returns the ORDER BY clause of a SELECT (or set operation), or nil.
func ExtractOrderBy(stmt ast.StmtNode) *ast.OrderByClause {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		return s.OrderBy
	case *ast.SetOprStmt:
		return s.OrderBy
	}
	return nil
}

// ExtractTableNames extracts all table names mentioned in a statement.
func ExtractTableNames(stmt ast.StmtNode) []string {
	var tables []string
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		if s.From != nil {
			extractTableRefs(s.From.TableRefs, &tables)
		}
	case *ast.UpdateStmt:
		if s.TableRefs != nil {
			extractTableRefs(s.TableRefs.TableRefs, &tables)
		}
	case *ast.DeleteStmt:
		if s.TableRefs != nil {
			extractTableRefs(s.TableRefs.TableRefs, &tables)
		}
	case *ast.InsertStmt:
		if s.Table != nil {
			extractTableRefs(s.Table.TableRefs, &tables)
		}
	}
	return tables
}

func extractTableRefs(join *ast.Join, tables *[]string) {
	if join == nil {
		return
	}
	if join.Left != nil {
		extractTableSource(join.Left, tables)
	}
	if join.Right != nil {
		extractTableSource(join.Right, tables)
	}
}

func extractTableSource(r ast.ResultSetNode, tables *[]string) {
	switch ts := r.(type) {
	case *ast.TableSource:
		switch src := ts.Source.(type) {
		case *ast.TableName:
			*tables = append(*tables, src.Name.O)
		case *ast.SelectStmt:
			*tables = append(*tables, ExtractTableNames(src)...)
		}
	case *ast.Join:
		extractTableRefs(ts, tables)
	}
}

// RestoreNode renders an AST node back to SQL text. Used for pattern-based
// checks against normalized WHERE clauses; returns "" when the node cannot
// be restored.
func RestoreNode(node ast.Node) string {
	var sb strings.Builder
	ctx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := node.Restore(ctx); err != nil {
		return ""
	}
	return sb.String()
}

// IntValue unwraps an integer literal expression. Returns false for
// placeholders, column refs and non-integer literals.
func IntValue(expr ast.ExprNode) (int64, bool) {
	val, ok := expr.(*test_driver.ValueExpr)
	if !ok {
		return 0, false
	}
	switch v := val.GetValue().(type) {
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	}
	return 0, false
}
