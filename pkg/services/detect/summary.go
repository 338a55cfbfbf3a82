package detect

import "github.com/vg-tools/ledger-audit/pkg/models/domain"

// SummaryStats is the dashboard rollup over one finding set.
type SummaryStats struct {
	TotalFindings int
	BySeverity    map[string]int
	ByRule        map[string]int
	AffectedUnits int
}

// Summarize counts findings by severity and rule and the number of
// distinct units affected.
func Summarize(findings []domain.Finding) SummaryStats {
	stats := SummaryStats{
		TotalFindings: len(findings),
		BySeverity:    make(map[string]int),
		ByRule:        make(map[string]int),
	}
	units := make(map[string]struct{})
	for _, f := range findings {
		stats.BySeverity[f.Severity.String()]++
		stats.ByRule[f.RuleID]++
		units[f.UnitID] = struct{}{}
	}
	stats.AffectedUnits = len(units)
	return stats
}
