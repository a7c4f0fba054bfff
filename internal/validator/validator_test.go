package validator

import (
	"sync"
	"testing"
	"time"

	"github.com/pingcap/tidb/parser/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlguard/internal/checker"
	"sqlguard/internal/model"
	"sqlguard/internal/parser"
	"sqlguard/internal/template"
)

func testCheckers() []checker.Checker {
	enabled := checker.Config{Enabled: true}
	return []checker.Checker{
		checker.NewNoWhereClauseChecker(checker.NoWhereClauseConfig{Config: enabled}),
		checker.NewNoPaginationChecker(checker.NoPaginationConfig{
			Config:          enabled,
			BlacklistFields: []string{"status"},
		}),
		checker.NewDummyConditionChecker(checker.DummyConditionConfig{Config: enabled}),
		checker.NewMissingOrderByChecker(enabled),
		checker.NewSelectStarChecker(enabled),
	}
}

func newTestValidator(checkers []checker.Checker, earlyExit bool) *Validator {
	facade := parser.NewFacade(true, nil)
	gen := template.NewGenerator(template.DefaultMaxVariants, facade, nil)
	cache := NewResultCache(100, time.Minute)
	return NewValidator(facade, gen, checkers, cache, earlyExit, nil)
}

func TestValidate_WeakFilterScan(t *testing.T) {
	v := newTestValidator(testCheckers(), false)
	res := v.Validate(&model.SqlContext{
		SQL:         "SELECT * FROM users WHERE 1 = 1",
		StatementID: "UserMapper.selectAll",
	})

	require.False(t, res.Passed())
	assert.Equal(t, model.RiskHigh, res.OverallRisk())

	got := make(map[string]bool)
	for _, viol := range res.Violations() {
		got[viol.Code] = true
	}
	assert.True(t, got["DUMMY_CONDITION"], "violations: %v", res.Violations())
	assert.True(t, got["NO_PAGINATION_WEAK_FILTER"], "violations: %v", res.Violations())
}

func TestValidate_CleanStatement(t *testing.T) {
	v := newTestValidator(testCheckers(), false)
	res := v.Validate(&model.SqlContext{
		SQL:         "SELECT id FROM users WHERE id = ? ORDER BY id LIMIT 20",
		StatementID: "UserMapper.selectByID",
	})

	assert.True(t, res.Passed(), "violations: %v", res.Violations())
	assert.Equal(t, model.RiskNone, res.OverallRisk())
	skipped, _ := res.Skipped()
	assert.False(t, skipped)
}

func TestValidate_RuntimeOnlyStatementIsSkipped(t *testing.T) {
	v := newTestValidator(testCheckers(), false)
	res := v.Validate(&model.SqlContext{
		SQL:                  "q.Where(cond).Build()",
		StatementID:          "dao/user.go:42",
		RequiresRuntimeCheck: true,
	})

	assert.True(t, res.Passed())
	skipped, reason := res.Skipped()
	require.True(t, skipped)
	assert.Contains(t, reason, "runtime")
}

func TestValidate_UnparseableStatementIsSkipped(t *testing.T) {
	v := newTestValidator(testCheckers(), false)
	res := v.Validate(&model.SqlContext{
		SQL:         "SELEC id FORM users",
		StatementID: "broken",
	})

	assert.True(t, res.Passed())
	skipped, reason := res.Skipped()
	require.True(t, skipped)
	assert.Contains(t, reason, "unparseable")
}

func TestValidate_TemplatedMergesVariants(t *testing.T) {
	v := newTestValidator(testCheckers(), false)
	res := v.Validate(&model.SqlContext{
		SQL: `SELECT id FROM users
			<where>
				<if test="name != null">AND name = #{name}</if>
			</where>
			ORDER BY id`,
		StatementID: "UserMapper.selectByName",
	})

	// The excluded-branch variant has no WHERE clause at all.
	require.False(t, res.Passed())
	codes := make(map[string]int)
	for _, viol := range res.Violations() {
		codes[viol.Code]++
	}
	assert.Equal(t, 1, codes["NO_PAGINATION_FULL_TABLE"], "violations: %v", res.Violations())
}

func TestValidate_TemplatedDeduplicatesAcrossVariants(t *testing.T) {
	v := newTestValidator(testCheckers(), false)
	res := v.Validate(&model.SqlContext{
		SQL: `SELECT id FROM users WHERE 1 = 1
			<if test="name != null">AND name = #{name}</if>
			ORDER BY id LIMIT 20`,
		StatementID: "UserMapper.search",
	})

	// Both variants carry the tautology; the merged result reports it once.
	count := 0
	for _, viol := range res.Violations() {
		if viol.Code == "DUMMY_CONDITION" {
			count++
		}
	}
	assert.Equal(t, 1, count, "violations: %v", res.Violations())
}

func TestValidate_Deterministic(t *testing.T) {
	sql := `SELECT id FROM users
		<where>
			<if test="a != null">AND a = #{a}</if>
			<if test="b != null">AND b = #{b}</if>
		</where>`

	first := newTestValidator(testCheckers(), false).Validate(&model.SqlContext{SQL: sql, StatementID: "s"})
	for i := 0; i < 5; i++ {
		again := newTestValidator(testCheckers(), false).Validate(&model.SqlContext{SQL: sql, StatementID: "s"})
		assert.Equal(t, first.Violations(), again.Violations())
	}
}

type explodingChecker struct {
	checker.Base
}

func (explodingChecker) CheckSelect(*ast.SelectStmt, *model.SqlContext, *model.ValidationResult) {
	panic("boom")
}

func TestValidate_CheckerPanicDoesNotPoisonOthers(t *testing.T) {
	checkers := []checker.Checker{
		explodingChecker{Base: checker.NewBase("exploding", checker.Config{Enabled: true})},
		checker.NewSelectStarChecker(checker.Config{Enabled: true}),
	}
	v := newTestValidator(checkers, false)
	res := v.Validate(&model.SqlContext{
		SQL:         "SELECT * FROM users WHERE id = 1",
		StatementID: "s",
	})

	require.Len(t, res.Violations(), 1)
	assert.Equal(t, "SELECT_STAR", res.Violations()[0].Code)
}

func TestValidate_DisabledCheckerNeverRuns(t *testing.T) {
	checkers := []checker.Checker{
		checker.NewSelectStarChecker(checker.Config{Enabled: false}),
	}
	v := newTestValidator(checkers, false)
	res := v.Validate(&model.SqlContext{
		SQL:         "SELECT * FROM users WHERE id = 1",
		StatementID: "s",
	})
	assert.True(t, res.Passed())
}

func TestValidate_EarlyExitStopsAfterCritical(t *testing.T) {
	enabled := checker.Config{Enabled: true}
	checkers := []checker.Checker{
		checker.NewNoWhereClauseChecker(checker.NoWhereClauseConfig{Config: enabled}),
		checker.NewDummyConditionChecker(checker.DummyConditionConfig{Config: enabled}),
	}
	v := newTestValidator(checkers, true)
	res := v.Validate(&model.SqlContext{
		SQL:         "DELETE FROM users",
		StatementID: "s",
	})

	require.True(t, res.HasCritical())
	assert.Len(t, res.Violations(), 1)
}

func TestValidate_CachedResultIsIsolated(t *testing.T) {
	v := newTestValidator(testCheckers(), false)
	ctx := &model.SqlContext{SQL: "SELECT * FROM users WHERE 1 = 1", StatementID: "s"}

	first := v.Validate(ctx)
	want := len(first.Violations())
	first.AddViolation(model.Violation{Rule: "fake", Code: "FAKE", Level: model.RiskLow})

	second := v.Validate(&model.SqlContext{SQL: ctx.SQL, StatementID: ctx.StatementID})
	assert.Len(t, second.Violations(), want, "mutating a returned result leaked into the cache")
}

func TestValidate_ConcurrentSameStatement(t *testing.T) {
	v := newTestValidator(testCheckers(), false)

	var wg sync.WaitGroup
	results := make([]*model.ValidationResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = v.Validate(&model.SqlContext{
				SQL:         "SELECT * FROM users WHERE 1 = 1",
				StatementID: "s",
			})
		}(i)
	}
	wg.Wait()

	for _, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, results[0].OverallRisk(), res.OverallRisk())
		assert.Len(t, res.Violations(), len(results[0].Violations()))
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("UserMapper.selectAll", "SELECT * FROM users")
	b := Fingerprint("UserMapper.selectAll", "SELECT * FROM users")
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, Fingerprint("OtherMapper.selectAll", "SELECT * FROM users"))
	assert.NotEqual(t, a, Fingerprint("UserMapper.selectAll", "SELECT id FROM users"))
	// The separator keeps (id, sql) pairs from colliding on concatenation.
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
}
