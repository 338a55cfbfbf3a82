package rules

import (
	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

var hundred = decimal.NewFromInt(100)

// LeaseCliffRule flags month-over-month net rent drops exceeding the
// threshold, the classic signature of an unrecorded lease expiration. The
// comparison is strict: a drop of exactly the threshold does not trigger.
type LeaseCliffRule struct {
	// Threshold is the drop fraction, e.g. 0.20 for 20%.
	Threshold decimal.Decimal
}

func (r *LeaseCliffRule) ID() string { return domain.RuleLeaseCliffRisk }

func (r *LeaseCliffRule) Evaluate(uc UnitContext) ([]RawSignal, error) {
	months := sortedMonths(uc.Aggregates)

	var signals []RawSignal
	for i := 1; i < len(months); i++ {
		prev := uc.Aggregates[months[i-1]]
		curr := uc.Aggregates[months[i]]

		if !prev.NetRent.IsPositive() {
			continue
		}

		floor := prev.NetRent.Mul(decimal.NewFromInt(1).Sub(r.Threshold))
		if curr.NetRent.GreaterThanOrEqual(floor) {
			continue
		}

		dropPct := prev.NetRent.Sub(curr.NetRent).Div(prev.NetRent).Mul(hundred)
		signals = append(signals, RawSignal{
			RuleID: r.ID(),
			Month:  months[i],
			// Delta is the percentage drop.
			Delta: dropPct,
			Evidence: domain.Evidence{
				"prev_month": months[i-1].String(),
				"prev_net":   prev.NetRent,
				"curr_net":   curr.NetRent,
				"drop_pct":   dropPct,
			},
		})
	}
	return signals, nil
}
