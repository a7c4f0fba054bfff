package checker

import (
	"fmt"

	"github.com/pingcap/tidb/parser/ast"

	"sqlguard/internal/model"
	"sqlguard/internal/parser"
)

// Default pagination thresholds.
const (
	DefaultMaxOffset   int64 = 50000
	DefaultMaxPageSize int64 = 5000
)

// LogicalPaginationChecker flags queries paginated only in memory: the
// caller supplied page bounds but the SQL carries no physical LIMIT, so the
// database still materializes the full result set.
type LogicalPaginationChecker struct {
	Base
}

func NewLogicalPaginationChecker(cfg Config) *LogicalPaginationChecker {
	return &LogicalPaginationChecker{Base: NewBase("logical-pagination", cfg)}
}

func (c *LogicalPaginationChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	if ctx.RowBounds == nil || sel.Limit != nil {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "LOGICAL_PAGINATION",
		Level:      c.Level(model.RiskHigh),
		Message:    "page bounds are applied in memory: the query has no physical LIMIT",
		Suggestion: "Push the page bounds into the SQL (LIMIT/OFFSET) or use a pagination plugin.",
	})
}

// NoConditionPaginationChecker flags physically paginated queries without a
// real WHERE clause: LIMIT bounds the rows returned, not the rows scanned.
type NoConditionPaginationChecker struct {
	Base
}

func NewNoConditionPaginationChecker(cfg Config) *NoConditionPaginationChecker {
	return &NoConditionPaginationChecker{Base: NewBase("no-condition-pagination", cfg)}
}

func (c *NoConditionPaginationChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	if sel.Limit == nil {
		return
	}
	if sel.Where != nil && !isConstantTrue(sel.Where) {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "NO_CONDITION_PAGINATION",
		Level:      c.Level(model.RiskCritical),
		Message:    "paginated query has no effective WHERE clause and still scans the full table",
		Suggestion: "Add a business WHERE condition restricting the scanned range.",
	})
}

// DeepPaginationConfig configures the deep-offset checker.
type DeepPaginationConfig struct {
	Config
	MaxOffset int64
}

// DeepPaginationChecker flags OFFSET values beyond the configured threshold;
// the database reads and discards every skipped row.
type DeepPaginationChecker struct {
	Base
	maxOffset int64
}

func NewDeepPaginationChecker(cfg DeepPaginationConfig) *DeepPaginationChecker {
	max := cfg.MaxOffset
	if max <= 0 {
		max = DefaultMaxOffset
	}
	return &DeepPaginationChecker{
		Base:      NewBase("deep-pagination", cfg.Config),
		maxOffset: max,
	}
}

func (c *DeepPaginationChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	offset, ok := statementOffset(sel, ctx)
	if !ok || offset <= c.maxOffset {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "DEEP_PAGINATION",
		Level:      c.Level(model.RiskMedium),
		Message:    fmt.Sprintf("OFFSET %d exceeds the configured limit of %d", offset, c.maxOffset),
		Suggestion: "Use keyset pagination (WHERE id > last_seen_id ORDER BY id) instead of a deep OFFSET.",
	})
}

// LargePageSizeConfig configures the oversized-page checker.
type LargePageSizeConfig struct {
	Config
	MaxPageSize int64
}

// LargePageSizeChecker flags LIMIT counts beyond the configured page size.
type LargePageSizeChecker struct {
	Base
	maxPageSize int64
}

func NewLargePageSizeChecker(cfg LargePageSizeConfig) *LargePageSizeChecker {
	max := cfg.MaxPageSize
	if max <= 0 {
		max = DefaultMaxPageSize
	}
	return &LargePageSizeChecker{
		Base:        NewBase("large-page-size", cfg.Config),
		maxPageSize: max,
	}
}

func (c *LargePageSizeChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	count, ok := statementPageSize(sel, ctx)
	if !ok || count <= c.maxPageSize {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "LARGE_PAGE_SIZE",
		Level:      c.Level(model.RiskMedium),
		Message:    fmt.Sprintf("page size %d exceeds the configured limit of %d", count, c.maxPageSize),
		Suggestion: "Cap the page size and iterate instead of fetching one oversized page.",
	})
}

// MissingOrderByChecker flags LIMIT without ORDER BY: page boundaries are
// then undefined and rows can repeat or vanish between pages.
type MissingOrderByChecker struct {
	Base
}

func NewMissingOrderByChecker(cfg Config) *MissingOrderByChecker {
	return &MissingOrderByChecker{Base: NewBase("missing-order-by", cfg)}
}

func (c *MissingOrderByChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	if sel.Limit == nil || sel.OrderBy != nil {
		return
	}
	res.AddViolation(model.Violation{
		Rule:       c.Name(),
		Code:       "MISSING_ORDER_BY",
		Level:      c.Level(model.RiskLow),
		Message:    "LIMIT without ORDER BY yields non-deterministic pages",
		Suggestion: "Add an ORDER BY on a unique column so pagination is stable.",
	})
}

// NoPaginationConfig configures the unbounded-result checker.
type NoPaginationConfig struct {
	Config
	// EnforceForAll also flags normally filtered queries that lack paging.
	EnforceForAll bool
	// BlacklistFields is the low-cardinality column set used for the
	// weak-filter escalation tier.
	BlacklistFields []string
}

// NoPaginationChecker flags SELECTs with neither a physical LIMIT nor a page
// bounds hint. Severity depends on how weak the WHERE clause is.
type NoPaginationChecker struct {
	Base
	enforceForAll bool
	blacklist     map[string]struct{}
}

func NewNoPaginationChecker(cfg NoPaginationConfig) *NoPaginationChecker {
	return &NoPaginationChecker{
		Base:          NewBase("no-pagination", cfg.Config),
		enforceForAll: cfg.EnforceForAll,
		blacklist:     toSet(cfg.BlacklistFields),
	}
}

func (c *NoPaginationChecker) CheckSelect(sel *ast.SelectStmt, ctx *model.SqlContext, res *model.ValidationResult) {
	if sel.Limit != nil || ctx.RowBounds != nil {
		return
	}

	where := sel.Where
	if where == nil {
		res.AddViolation(model.Violation{
			Rule:       c.Name(),
			Code:       "NO_PAGINATION_FULL_TABLE",
			Level:      c.Level(model.RiskCritical),
			Message:    "SELECT has no WHERE clause and no pagination; the full table comes back",
			Suggestion: "Add a WHERE condition and a LIMIT (or page bounds).",
		})
		return
	}

	weak := isConstantTrue(where)
	if !weak && len(c.blacklist) > 0 {
		cols := collectColumns(where)
		weak = len(cols) > 0 && !hasSelectivePath(where, c.blacklist)
	}
	if weak {
		res.AddViolation(model.Violation{
			Rule:       c.Name(),
			Code:       "NO_PAGINATION_WEAK_FILTER",
			Level:      c.Level(model.RiskHigh),
			Message:    "SELECT has only a weak filter and no pagination; a large result set is likely",
			Suggestion: "Add a selective condition or a LIMIT.",
		})
		return
	}

	if c.enforceForAll {
		res.AddViolation(model.Violation{
			Rule:       c.Name(),
			Code:       "NO_PAGINATION",
			Level:      c.Level(model.RiskMedium),
			Message:    "SELECT has no pagination",
			Suggestion: "Add a LIMIT or page bounds if the result set can grow.",
		})
	}
}

// statementOffset resolves the effective offset: a literal in the LIMIT
// clause, or the caller's page bounds hint. Placeholder offsets are
// unresolvable statically and yield ok=false.
func statementOffset(sel *ast.SelectStmt, ctx *model.SqlContext) (int64, bool) {
	if sel.Limit != nil && sel.Limit.Offset != nil {
		if v, ok := parser.IntValue(sel.Limit.Offset); ok {
			return v, true
		}
		return 0, false
	}
	if ctx.RowBounds != nil {
		return ctx.RowBounds.Offset, true
	}
	return 0, false
}

func statementPageSize(sel *ast.SelectStmt, ctx *model.SqlContext) (int64, bool) {
	if sel.Limit != nil && sel.Limit.Count != nil {
		if v, ok := parser.IntValue(sel.Limit.Count); ok {
			return v, true
		}
		return 0, false
	}
	if ctx.RowBounds != nil && ctx.RowBounds.Limit > 0 {
		return ctx.RowBounds.Limit, true
	}
	return 0, false
}
