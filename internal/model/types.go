package model

import "fmt"

// Location represents the physical location of an extracted statement
type Location struct {
	FilePath string
	Line     int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.FilePath, l.Line)
}

// RiskLevel defines the severity of a violation. Higher value means more severe.
type RiskLevel int

const (
	RiskNone RiskLevel = iota
	RiskLow
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = [...]string{
	RiskNone:     "NONE",
	RiskLow:      "LOW",
	RiskMedium:   "MEDIUM",
	RiskHigh:     "HIGH",
	RiskCritical: "CRITICAL",
}

func (r RiskLevel) String() string {
	if r >= RiskNone && int(r) < len(riskNames) {
		return riskNames[r]
	}
	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

// ParseRiskLevel converts a config string like "HIGH" into a RiskLevel.
func ParseRiskLevel(s string) (RiskLevel, error) {
	for i, name := range riskNames {
		if name == s {
			return RiskLevel(i), nil
		}
	}
	return RiskNone, fmt.Errorf("unknown risk level %q", s)
}

// CommandType classifies the SQL command of a statement.
type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandSelect
	CommandInsert
	CommandUpdate
	CommandDelete
)

func (c CommandType) String() string {
	switch c {
	case CommandSelect:
		return "SELECT"
	case CommandInsert:
		return "INSERT"
	case CommandUpdate:
		return "UPDATE"
	case CommandDelete:
		return "DELETE"
	default:
		return "UNKNOWN"
	}
}

// Violation is one detected dangerous pattern. Immutable once appended to a result.
type Violation struct {
	Rule       string // checker name, e.g. "no-where-clause"
	Code       string // stable violation code, e.g. "UNSAFE_DELETE"
	Level      RiskLevel
	Message    string
	Suggestion string
}

// RowBounds is a logical pagination hint supplied by the caller (page bounds
// known to the data-access layer but not present in the SQL text).
type RowBounds struct {
	Offset int64
	Limit  int64
}
