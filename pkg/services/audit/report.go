package audit

import (
	"fmt"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/aggregate"
)

// deltaUnits maps each rule's delta to its unit of measure.
var deltaUnits = map[string]string{
	domain.RuleLeaseCliffRisk:         "%",
	domain.RuleRentProrationMismatch:  "USD",
	domain.RuleConcessionMisaligned:   "months",
	domain.RuleExcessiveConcession:    "ratio",
	domain.RuleMissingRecurringCharge: "USD",
	domain.RuleFeeAmountMismatch:      "USD",
	domain.RuleDoubleDiscountRisk:     "USD",
}

// BuildReport shapes one audit run into a renderable report with one
// section per severity, most severe first. Severities with no findings
// get no section.
func BuildReport(result Result, window aggregate.Window) domain.Report {
	report := domain.Report{
		Title: "Ledger Audit",
		Window: domain.ReportWindow{
			Start:  window.Start,
			End:    window.End,
			Months: len(window.Months()),
		},
		TotalFindings: result.Stats.TotalFindings,
		AffectedUnits: result.Stats.AffectedUnits,
	}

	severities := []domain.Severity{
		domain.SeverityCritical,
		domain.SeverityHigh,
		domain.SeverityMedium,
		domain.SeverityLow,
	}
	for _, sev := range severities {
		var details []domain.ReportDetail
		byRule := make(map[string]interface{})
		for _, f := range result.Findings {
			if f.Severity != sev {
				continue
			}
			count, _ := byRule[f.RuleID].(int)
			byRule[f.RuleID] = count + 1
			details = append(details, domain.ReportDetail{
				Name:        fmt.Sprintf("%s %s", f.UnitID, f.Month),
				Value:       f.Delta.StringFixed(2),
				Unit:        deltaUnits[f.RuleID],
				Description: f.Narrative,
			})
		}
		if len(details) == 0 {
			continue
		}
		report.Sections = append(report.Sections, domain.ReportSection{
			Title:   sev.String(),
			Summary: byRule,
			Details: details,
		})
	}
	return report
}
