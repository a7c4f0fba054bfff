package parser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pingcap/tidb/parser"
	"github.com/pingcap/tidb/parser/ast"
	_ "github.com/pingcap/tidb/parser/test_driver"
	"go.uber.org/zap"
)

const snippetMaxLen = 100

// ParseError is the typed failure returned for malformed SQL. It carries a
// snippet of the original text so callers can log it without re-truncating.
type ParseError struct {
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse SQL: %s - reason: %v", e.Snippet, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Facade wraps the TiDB parser behind a pure, goroutine-safe Parse call.
// parser.Parser instances are stateful and not safe for concurrent use, so
// the facade keeps them in a sync.Pool.
type Facade struct {
	lenient bool
	pool    sync.Pool
	logger  *zap.Logger
}

// NewFacade constructs a Facade. In lenient mode parse failures are logged
// at warn level; the error return is identical in both modes, the flag only
// signals to callers that failures are expected and should degrade rather
// than abort.
func NewFacade(lenient bool, logger *zap.Logger) *Facade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Facade{
		lenient: lenient,
		pool: sync.Pool{
			New: func() any { return parser.New() },
		},
		logger: logger,
	}
}

// Lenient reports whether the facade was built in lenient mode.
func (f *Facade) Lenient() bool { return f.lenient }

// Parse converts a SQL string into an AST. It never panics; malformed input
// yields a *ParseError. When the text contains multiple statements the first
// one is returned, matching how extracted fragments are validated one at a
// time.
func (f *Facade) Parse(sql string) (ast.StmtNode, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return nil, &ParseError{Snippet: "", Err: fmt.Errorf("empty SQL")}
	}

	p := f.pool.Get().(*parser.Parser)
	defer f.pool.Put(p)

	stmts, _, err := p.Parse(trimmed, "", "")
	if err != nil {
		perr := &ParseError{Snippet: Snippet(sql), Err: err}
		if f.lenient {
			f.logger.Warn("sql parse failed", zap.String("sql", perr.Snippet), zap.Error(err))
		}
		return nil, perr
	}
	if len(stmts) == 0 {
		return nil, &ParseError{Snippet: Snippet(sql), Err: fmt.Errorf("no valid SQL found")}
	}
	return stmts[0], nil
}

// Snippet truncates SQL for log and error messages.
func Snippet(sql string) string {
	sql = strings.TrimSpace(sql)
	if len(sql) <= snippetMaxLen {
		return sql
	}
	return sql[:snippetMaxLen] + "..."
}
