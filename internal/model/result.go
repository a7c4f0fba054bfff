package model

// ValidationResult accumulates violations for one validation call.
// It is written by a single goroutine; cached instances are cloned before
// they cross a goroutine boundary.
type ValidationResult struct {
	violations []Violation

	skipped    bool
	skipReason string
}

// NewValidationResult returns an empty, passing result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{}
}

// SkippedResult returns a result carrying an informational "unchecked"
// marker. It has no violations and passes, but callers can distinguish it
// from a genuinely clean result.
func SkippedResult(reason string) *ValidationResult {
	return &ValidationResult{skipped: true, skipReason: reason}
}

// AddViolation appends one violation.
func (r *ValidationResult) AddViolation(v Violation) {
	r.violations = append(r.violations, v)
}

// Violations returns the ordered violation list.
func (r *ValidationResult) Violations() []Violation {
	return r.violations
}

// Passed reports whether no violations were recorded.
func (r *ValidationResult) Passed() bool {
	return len(r.violations) == 0
}

// Skipped reports whether validation was skipped (unparseable SQL or a
// runtime-only statement), with the reason.
func (r *ValidationResult) Skipped() (bool, string) {
	return r.skipped, r.skipReason
}

// OverallRisk returns the maximum severity present, or RiskNone.
func (r *ValidationResult) OverallRisk() RiskLevel {
	max := RiskNone
	for _, v := range r.violations {
		if v.Level > max {
			max = v.Level
		}
	}
	return max
}

// HasCritical reports whether any CRITICAL violation is present.
func (r *ValidationResult) HasCritical() bool {
	return r.OverallRisk() == RiskCritical
}

// Merge folds another result into this one. Violations carrying a
// (rule, code) pair already present are dropped: the same finding surfacing
// from several variants of one templated source counts once, even when the
// parameter-dependent message text differs.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	seen := make(map[[2]string]struct{}, len(r.violations))
	for _, v := range r.violations {
		seen[[2]string{v.Rule, v.Code}] = struct{}{}
	}
	for _, v := range other.violations {
		key := [2]string{v.Rule, v.Code}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		r.violations = append(r.violations, v)
	}
	if other.skipped && len(r.violations) == 0 {
		r.skipped = true
		r.skipReason = other.skipReason
	}
}

// Clone returns a deep copy. Cached results are cloned on store and on hit
// so no caller can mutate shared state.
func (r *ValidationResult) Clone() *ValidationResult {
	c := &ValidationResult{
		skipped:    r.skipped,
		skipReason: r.skipReason,
	}
	if len(r.violations) > 0 {
		c.violations = make([]Violation, len(r.violations))
		copy(c.violations, r.violations)
	}
	return c
}
