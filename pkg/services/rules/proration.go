package rules

import (
	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

// RentProrationRule flags rent charges that differ from the contract rent
// without a valid proration explanation. A shortfall in the lease's first
// or last calendar month counts as a move-in/move-out proration; an
// overcharge never does.
type RentProrationRule struct {
	Tolerance decimal.Decimal
}

func (r *RentProrationRule) ID() string { return domain.RuleRentProrationMismatch }

func (r *RentProrationRule) Evaluate(uc UnitContext) ([]RawSignal, error) {
	var signals []RawSignal
	for _, t := range uc.Transactions {
		if t.Category != domain.CategoryRent {
			continue
		}

		lease, ok := activeLease(uc.Leases, t.Month)
		if !ok {
			continue
		}

		diff := t.Amount.Sub(lease.ContractRent)
		if diff.Abs().LessThanOrEqual(r.Tolerance) {
			continue
		}

		edgeMonth := t.Month == domain.YearMonthOf(lease.LeaseStart) ||
			t.Month == domain.YearMonthOf(lease.LeaseEnd)
		if edgeMonth && diff.IsNegative() {
			// Partial-period rent at a lease boundary is expected.
			continue
		}

		signals = append(signals, RawSignal{
			RuleID: r.ID(),
			Month:  t.Month,
			Delta:  diff.Abs(),
			Evidence: domain.Evidence{
				"expected_rent": lease.ContractRent,
				"actual_rent":   t.Amount,
				"is_lease_edge": edgeMonth,
			},
		})
	}
	return signals, nil
}

func activeLease(leases []domain.LeaseTerm, m domain.YearMonth) (domain.LeaseTerm, bool) {
	for _, l := range leases {
		if l.ActiveIn(m) {
			return l, true
		}
	}
	return domain.LeaseTerm{}, false
}
