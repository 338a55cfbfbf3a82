package rules

import (
	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

// DoubleDiscountRule flags employee units that also receive promotional
// concessions. Employee rent allowances and lease incentives should never
// stack on the same unit.
type DoubleDiscountRule struct{}

func (r *DoubleDiscountRule) ID() string { return domain.RuleDoubleDiscountRisk }

func (r *DoubleDiscountRule) Evaluate(uc UnitContext) ([]RawSignal, error) {
	if !uc.Unit.IsEmployeeUnit {
		return nil, nil
	}

	totals := make(map[domain.YearMonth]decimal.Decimal)
	counts := make(map[domain.YearMonth]int)
	for _, t := range uc.Transactions {
		if t.Category != domain.CategoryConcession {
			continue
		}
		totals[t.Month] = totals[t.Month].Add(t.Amount.Abs())
		counts[t.Month]++
	}

	var signals []RawSignal
	for m, total := range totals {
		signals = append(signals, RawSignal{
			RuleID: r.ID(),
			Month:  m,
			// Delta is the month's total concession amount.
			Delta: total,
			Evidence: domain.Evidence{
				"resident_name":     uc.Unit.ResidentName,
				"concession_count":  counts[m],
				"total_concessions": total,
			},
		})
	}
	return signals, nil
}
