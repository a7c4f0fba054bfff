package model

import (
	"errors"

	"github.com/pingcap/tidb/parser/ast"
)

// SqlContext carries one SQL statement through a single validation call.
// All exported fields are fixed at construction; the parsed statement slot
// is set at most once so every checker shares the same AST.
type SqlContext struct {
	SQL         string
	Type        CommandType
	StatementID string         // stable identity, e.g. "UserMapper.selectByName" or "dao/user.go:42"
	Params      map[string]any // optional bound parameters, never part of the cache key
	RowBounds   *RowBounds     // optional logical pagination hint

	// RequiresRuntimeCheck marks statements whose predicates are only known
	// at call time (query-builder call sites). They bypass variant generation
	// and are reported as unchecked.
	RequiresRuntimeCheck bool

	Location Location // origin for scan findings; zero value for runtime callers

	stmt ast.StmtNode
}

// ErrStatementBound is returned when BindStatement is called twice.
var ErrStatementBound = errors.New("parsed statement already bound")

// BindStatement attaches the parsed AST to the context. The slot is
// write-once: a second bind is rejected so the AST is never swapped out
// underneath checkers holding a reference.
func (c *SqlContext) BindStatement(stmt ast.StmtNode) error {
	if c.stmt != nil {
		return ErrStatementBound
	}
	c.stmt = stmt
	return nil
}

// Statement returns the bound AST, or nil if the context was never parsed.
func (c *SqlContext) Statement() ast.StmtNode {
	return c.stmt
}

// SqlVariant is one concrete SQL string derived from a templated source,
// together with a description of which directive branches were taken. Its
// parsed statement is bound once by the generator and shared by every
// checker, like the slot on SqlContext.
type SqlVariant struct {
	SQL         string
	Description string

	stmt ast.StmtNode
}

// BindStatement attaches the variant's parsed AST; write-once.
func (v *SqlVariant) BindStatement(stmt ast.StmtNode) error {
	if v.stmt != nil {
		return ErrStatementBound
	}
	v.stmt = stmt
	return nil
}

// Statement returns the bound AST, or nil.
func (v *SqlVariant) Statement() ast.StmtNode {
	return v.stmt
}
