// Package explain attaches human-readable narratives to findings. A
// narrative is derived from the finding's rule id and evidence snapshot
// alone, never from other units' data, so it stays reproducible from the
// persisted finding. Incomplete evidence yields a degraded narrative
// flagged on the finding rather than an error.
package explain

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

// Explain fills the finding's Narrative and EvidenceIncomplete fields.
func Explain(f *domain.Finding) {
	narrative, complete := narrativeFor(f)
	f.Narrative = narrative
	f.EvidenceIncomplete = !complete
}

// ExplainAll explains every finding in place.
func ExplainAll(findings []domain.Finding) []domain.Finding {
	for i := range findings {
		Explain(&findings[i])
	}
	return findings
}

func narrativeFor(f *domain.Finding) (string, bool) {
	ev := reader{evidence: f.Evidence}

	var narrative string
	switch f.RuleID {
	case domain.RuleLeaseCliffRisk:
		prevMonth := ev.str("prev_month")
		prevNet := ev.amount("prev_net")
		currNet := ev.amount("curr_net")
		dropPct := ev.amount("drop_pct")
		narrative = fmt.Sprintf(
			"Revenue cliff detected in unit %s. Net rent dropped from %s in %s to %s in %s, a decline of %s%%. "+
				"This often signals an unrecorded lease expiration or renewal issue.",
			f.UnitID, currency(prevNet), prevMonth, currency(currNet), f.Month.Display(), dropPct.StringFixed(1),
		)

	case domain.RuleRentProrationMismatch:
		expected := ev.amount("expected_rent")
		actual := ev.amount("actual_rent")
		narrative = fmt.Sprintf(
			"Unit %s charged %s in %s but the contract rent is %s (difference %s). "+
				"Verify whether a proration or rent adjustment applies.",
			f.UnitID, currency(actual), f.Month.Display(), currency(expected),
			currency(actual.Sub(expected).Abs()),
		)

	case domain.RuleConcessionMisaligned:
		amount := ev.amount("concession_amount")
		offset := ev.integer("offset_months")
		narrative = fmt.Sprintf(
			"Unit %s has a concession of %s in %s, %d month(s) outside the lease incentive window. "+
				"Concessions should align with the lease term.",
			f.UnitID, currency(amount), f.Month.Display(), offset,
		)

	case domain.RuleExcessiveConcession:
		rent := ev.amount("rent")
		concession := ev.amount("concession")
		ratio := ev.amount("ratio")
		narrative = fmt.Sprintf(
			"Unit %s has an excessive concession in %s: rent %s, concession %s (%s%% of rent). "+
				"Concessions above 50%% of rent should be reviewed for accuracy.",
			f.UnitID, f.Month.Display(), currency(rent), currency(concession), percent(ratio),
		)

	case domain.RuleMissingRecurringCharge:
		feeType := ev.str("fee_type")
		expected := ev.amount("expected_amount")
		narrative = fmt.Sprintf(
			"Unit %s is missing the recurring %q charge of %s in %s despite an active lease. "+
				"Verify whether the charge should be applied.",
			f.UnitID, feeType, currency(expected), f.Month.Display(),
		)

	case domain.RuleFeeAmountMismatch:
		feeType := ev.str("fee_type")
		expected := ev.amount("expected_amount")
		actual := ev.amount("actual_amount")
		narrative = fmt.Sprintf(
			"Unit %s has an incorrect %q amount in %s: expected %s, charged %s. "+
				"Verify the fee schedule is applied correctly.",
			f.UnitID, feeType, f.Month.Display(), currency(expected), currency(actual),
		)

	case domain.RuleDoubleDiscountRisk:
		resident := ev.str("resident_name")
		count := ev.integer("concession_count")
		total := ev.amount("total_concessions")
		narrative = fmt.Sprintf(
			"Unit %s (resident %s) is an employee unit but received %d concession(s) totaling %s in %s. "+
				"Employee allowance and promotional concessions may be stacking.",
			f.UnitID, resident, count, currency(total), f.Month.Display(),
		)

	default:
		return fmt.Sprintf("Unit %s: anomaly %s in %s (delta %s). No narrative template for this rule.",
			f.UnitID, f.RuleID, f.Month.Display(), f.Delta.String()), false
	}

	if ev.incomplete {
		narrative = fmt.Sprintf(
			"Unit %s: %s anomaly in %s (delta %s). Evidence snapshot is incomplete; details unavailable.",
			f.UnitID, f.RuleID, f.Month.Display(), f.Delta.String(),
		)
	}
	return narrative, !ev.incomplete
}

// reader pulls typed values out of an evidence snapshot, remembering
// whether anything was missing or mistyped.
type reader struct {
	evidence   domain.Evidence
	incomplete bool
}

func (r *reader) str(key string) string {
	if v, ok := r.evidence[key].(string); ok {
		return v
	}
	r.incomplete = true
	return ""
}

func (r *reader) amount(key string) decimal.Decimal {
	switch v := r.evidence[key].(type) {
	case decimal.Decimal:
		return v
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	case float64:
		return decimal.NewFromFloat(v)
	}
	r.incomplete = true
	return decimal.Zero
}

func (r *reader) integer(key string) int {
	switch v := r.evidence[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	r.incomplete = true
	return 0
}

func currency(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func percent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).StringFixed(0)
}
