package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityCritical:
		return "Critical"
	case SeverityHigh:
		return "High"
	case SeverityMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// ParseSeverity maps the display form back to a Severity. Unknown values
// map to SeverityLow.
func ParseSeverity(s string) Severity {
	switch s {
	case "Critical":
		return SeverityCritical
	case "High":
		return SeverityHigh
	case "Medium":
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Status is a finding's review state.
type Status string

const (
	StatusOpen       Status = "Open"
	StatusReviewed   Status = "Reviewed"
	StatusOverridden Status = "Overridden"
	StatusClosed     Status = "Closed"
)

// Evidence is the structured snapshot attached to a finding: the exact
// values that triggered it, keyed by rule-specific names. Explanations are
// rebuilt from this snapshot alone.
type Evidence map[string]any

// Finding is a single detected anomaly awaiting operator review. Created
// by the detector with StatusOpen and empty history; mutated only through
// the lifecycle state machine; never deleted.
type Finding struct {
	ID       string
	UnitID   string
	RuleID   string
	Severity Severity
	Month    YearMonth
	// Delta is the anomaly magnitude in a rule-specific unit.
	Delta    decimal.Decimal
	Evidence Evidence
	// Narrative and EvidenceIncomplete are filled by the explainability
	// layer.
	Narrative          string
	EvidenceIncomplete bool
	Status             Status
	Notes              string
	History            []OverrideRecord
	CreatedAt          time.Time
}

// OverrideRecord is one entry in a finding's append-only audit trail.
type OverrideRecord struct {
	FindingID  string
	FromStatus Status
	ToStatus   Status
	Actor      string
	Timestamp  time.Time
	Notes      string
}
