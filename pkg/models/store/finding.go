package store

import "time"

type FindingRow struct {
	ID                 string
	UnitID             string
	RuleID             string
	Severity           string
	Month              string
	Delta              string
	Evidence           []byte
	Narrative          string
	EvidenceIncomplete bool
	Status             string
	Notes              string
	CreatedAt          time.Time
}

type OverrideRow struct {
	FindingID  string
	FromStatus string
	ToStatus   string
	Actor      string
	Timestamp  time.Time
	Notes      string
}
