package checker

import (
	"testing"
)

func TestDummyConditionChecker(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		custom []string
		want   []string
	}{
		{
			name: "Numeric tautology",
			sql:  "SELECT id FROM users WHERE 1 = 1",
			want: []string{"DUMMY_CONDITION"},
		},
		{
			name: "String tautology",
			sql:  "SELECT id FROM users WHERE 'a' = 'a'",
			want: []string{"DUMMY_CONDITION"},
		},
		{
			name: "Constant true",
			sql:  "SELECT id FROM users WHERE true",
			want: []string{"DUMMY_CONDITION"},
		},
		{
			name: "Tautology mixed with a real condition",
			sql:  "SELECT id FROM users WHERE 1 = 1 AND status = 1",
			want: []string{"DUMMY_CONDITION"},
		},
		{
			name: "Update with tautology",
			sql:  "UPDATE users SET name = 'x' WHERE 1 = 1",
			want: []string{"DUMMY_CONDITION"},
		},
		{
			name: "Real condition passes",
			sql:  "SELECT id FROM users WHERE id = 1",
		},
		{
			name: "No where is another checker's call",
			sql:  "SELECT id FROM users",
		},
		{
			name:   "Custom pattern",
			sql:    "SELECT id FROM users WHERE 0 = 0",
			custom: []string{"0=0"},
			want:   []string{"DUMMY_CONDITION"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewDummyConditionChecker(DummyConditionConfig{Config: enabled, CustomPatterns: tt.custom})
			wantCodes(t, runOn(t, c, tt.sql, nil), tt.want...)
		})
	}
}

func TestBlacklistFieldChecker(t *testing.T) {
	fields := []string{"status", "deleted", "type"}

	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "Only low-cardinality filter",
			sql:  "SELECT id FROM users WHERE status = 1",
			want: []string{"BLACKLIST_ONLY"},
		},
		{
			name: "Two low-cardinality filters",
			sql:  "SELECT id FROM users WHERE status = 1 AND deleted = 0",
			want: []string{"BLACKLIST_ONLY"},
		},
		{
			name: "AND with a selective column passes",
			sql:  "SELECT id FROM users WHERE status = 1 AND id = 5",
		},
		{
			name: "OR branch without a selective column still scans",
			sql:  "SELECT id FROM users WHERE id = 5 OR status = 1",
			want: []string{"BLACKLIST_ONLY"},
		},
		{
			name: "OR where both branches are selective passes",
			sql:  "SELECT id FROM users WHERE id = 5 OR email = 'x'",
		},
		{
			name: "Selective filter only",
			sql:  "SELECT id FROM users WHERE id = 5",
		},
		{
			name: "Delete filtered only on type",
			sql:  "DELETE FROM users WHERE type = 2",
			want: []string{"BLACKLIST_ONLY"},
		},
		{
			name: "Constant condition is out of scope",
			sql:  "SELECT id FROM users WHERE 1 = 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBlacklistFieldChecker(BlacklistFieldConfig{Config: enabled, Fields: fields})
			wantCodes(t, runOn(t, c, tt.sql, nil), tt.want...)
		})
	}
}

func TestRequiredFieldChecker(t *testing.T) {
	tests := []struct {
		name   string
		sql    string
		fields []string
		tables []string
		want   []string
	}{
		{
			name:   "Mandatory column present",
			sql:    "SELECT id FROM orders WHERE tenant_id = 1 AND amount > 10",
			fields: []string{"tenant_id"},
		},
		{
			name:   "Mandatory column missing",
			sql:    "SELECT id FROM orders WHERE amount > 10",
			fields: []string{"tenant_id"},
			want:   []string{"REQUIRED_FIELD_MISSING"},
		},
		{
			name:   "No where at all",
			sql:    "SELECT id FROM orders",
			fields: []string{"tenant_id"},
			want:   []string{"REQUIRED_FIELD_MISSING"},
		},
		{
			name:   "Missing from one OR branch",
			sql:    "SELECT id FROM orders WHERE tenant_id = 1 OR amount > 10",
			fields: []string{"tenant_id"},
			want:   []string{"REQUIRED_FIELD_MISSING"},
		},
		{
			name:   "Present on both OR branches",
			sql:    "SELECT id FROM orders WHERE (tenant_id = 1 AND a = 1) OR (tenant_id = 2 AND b = 2)",
			fields: []string{"tenant_id"},
		},
		{
			name:   "Table scope excludes other tables",
			sql:    "SELECT id FROM users WHERE name = 'x'",
			fields: []string{"tenant_id"},
			tables: []string{"orders"},
		},
		{
			name:   "Table scope includes listed table",
			sql:    "DELETE FROM orders WHERE amount > 10",
			fields: []string{"tenant_id"},
			tables: []string{"orders"},
			want:   []string{"REQUIRED_FIELD_MISSING"},
		},
		{
			name:   "One violation per missing field",
			sql:    "SELECT id FROM orders WHERE amount > 10",
			fields: []string{"tenant_id", "region"},
			want:   []string{"REQUIRED_FIELD_MISSING", "REQUIRED_FIELD_MISSING"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRequiredFieldChecker(RequiredFieldConfig{Config: enabled, Fields: tt.fields, Tables: tt.tables})
			wantCodes(t, runOn(t, c, tt.sql, nil), tt.want...)
		})
	}
}
