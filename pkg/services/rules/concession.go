package rules

import (
	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

// ConcessionMisalignedRule flags concession lines posted in months outside
// the lease's incentive window. The incentive window is the lease term
// itself; units with no lease on file are skipped rather than guessed at.
type ConcessionMisalignedRule struct{}

func (r *ConcessionMisalignedRule) ID() string { return domain.RuleConcessionMisaligned }

func (r *ConcessionMisalignedRule) Evaluate(uc UnitContext) ([]RawSignal, error) {
	if len(uc.Leases) == 0 {
		return nil, nil
	}

	var signals []RawSignal
	for _, t := range uc.Transactions {
		if t.Category != domain.CategoryConcession {
			continue
		}
		if _, ok := activeLease(uc.Leases, t.Month); ok {
			continue
		}

		offset := monthsOutsideLease(uc.Leases, t.Month)
		signals = append(signals, RawSignal{
			RuleID: r.ID(),
			Month:  t.Month,
			// Delta is the offset in months from the nearest lease edge.
			Delta: decimal.NewFromInt(int64(offset)),
			Evidence: domain.Evidence{
				"concession_amount": t.Amount.Abs(),
				"offset_months":     offset,
			},
		})
	}
	return signals, nil
}

// monthsOutsideLease returns the distance in months from m to the nearest
// lease interval edge.
func monthsOutsideLease(leases []domain.LeaseTerm, m domain.YearMonth) int {
	best := 0
	for i, l := range leases {
		start := domain.YearMonthOf(l.LeaseStart)
		end := domain.YearMonthOf(l.LeaseEnd)

		var d int
		switch {
		case m.Before(start):
			d = m.MonthsTo(start)
		case m.After(end):
			d = end.MonthsTo(m)
		default:
			d = 0
		}
		if i == 0 || d < best {
			best = d
		}
	}
	return best
}

// ExcessiveConcessionRule flags months where concessions exceed the
// configured fraction of gross rent. Strict comparison: a ratio exactly at
// the threshold does not trigger.
type ExcessiveConcessionRule struct {
	Threshold decimal.Decimal
}

func (r *ExcessiveConcessionRule) ID() string { return domain.RuleExcessiveConcession }

func (r *ExcessiveConcessionRule) Evaluate(uc UnitContext) ([]RawSignal, error) {
	var signals []RawSignal
	for _, m := range sortedMonths(uc.Aggregates) {
		agg := uc.Aggregates[m]
		if !agg.ConcessionRatio.GreaterThan(r.Threshold) {
			continue
		}

		signals = append(signals, RawSignal{
			RuleID: r.ID(),
			Month:  m,
			// Delta is the ratio's excess over the threshold.
			Delta: agg.ConcessionRatio.Sub(r.Threshold),
			Evidence: domain.Evidence{
				"rent":       agg.GrossRent,
				"concession": agg.Credits.Abs(),
				"ratio":      agg.ConcessionRatio,
			},
		})
	}
	return signals, nil
}
