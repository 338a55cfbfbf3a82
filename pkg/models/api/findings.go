package api

import "time"

type Finding struct {
	ID                 string           `json:"id"`
	UnitID             string           `json:"unit_id"`
	RuleID             string           `json:"rule_id"`
	Severity           string           `json:"severity"`
	Month              string           `json:"month"`
	Delta              string           `json:"delta"`
	Evidence           map[string]any   `json:"evidence,omitempty"`
	Narrative          string           `json:"narrative,omitempty"`
	EvidenceIncomplete bool             `json:"evidence_incomplete,omitempty"`
	Status             string           `json:"status"`
	Notes              string           `json:"notes,omitempty"`
	History            []OverrideRecord `json:"history,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
}

type OverrideRecord struct {
	FindingID  string    `json:"finding_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	Timestamp  time.Time `json:"timestamp"`
	Notes      string    `json:"notes,omitempty"`
}

type TransitionRequest struct {
	ToStatus string `json:"to_status"`
	// ExpectedStatus carries the status the operator read; the transition
	// fails with a conflict when the stored status has moved since.
	ExpectedStatus string `json:"expected_status,omitempty"`
	Actor          string `json:"actor"`
	Notes          string `json:"notes,omitempty"`
}

type Summary struct {
	TotalFindings int            `json:"total_findings"`
	BySeverity    map[string]int `json:"by_severity"`
	ByRule        map[string]int `json:"by_rule"`
	AffectedUnits int            `json:"affected_units"`
}

type MonthlyAggregate struct {
	UnitID          string `json:"unit_id"`
	Month           string `json:"month"`
	GrossRent       string `json:"gross_rent"`
	Fees            string `json:"fees"`
	Credits         string `json:"credits"`
	NetRent         string `json:"net_rent"`
	ConcessionRatio string `json:"concession_ratio"`
}

type TrendPoint struct {
	Month     string  `json:"month"`
	Net       string  `json:"net"`
	Change    string  `json:"change"`
	ChangePct *string `json:"change_pct,omitempty"`
}

type Error struct {
	Error string `json:"error"`
}
