package rules

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

var errEmptyFeeTemplate = errors.New("fee template is empty")

// MissingRecurringChargeRule flags fee-template entries absent from a
// month where the unit's lease is active.
type MissingRecurringChargeRule struct {
	FeeTemplate map[string]decimal.Decimal
}

func (r *MissingRecurringChargeRule) ID() string { return domain.RuleMissingRecurringCharge }

func (r *MissingRecurringChargeRule) Evaluate(uc UnitContext) ([]RawSignal, error) {
	if len(r.FeeTemplate) == 0 {
		return nil, errEmptyFeeTemplate
	}

	charged := make(map[domain.YearMonth]map[string]bool)
	for _, t := range uc.Transactions {
		if t.Category != domain.CategoryFee || t.FeeName == "" {
			continue
		}
		if charged[t.Month] == nil {
			charged[t.Month] = make(map[string]bool)
		}
		charged[t.Month][t.FeeName] = true
	}

	feeNames := make([]string, 0, len(r.FeeTemplate))
	for name := range r.FeeTemplate {
		feeNames = append(feeNames, name)
	}
	sort.Strings(feeNames)

	var signals []RawSignal
	for _, m := range uc.Window.Months() {
		if _, active := activeLease(uc.Leases, m); !active {
			continue
		}
		for _, name := range feeNames {
			if charged[m][name] {
				continue
			}
			signals = append(signals, RawSignal{
				RuleID: r.ID(),
				Month:  m,
				Delta:  r.FeeTemplate[name],
				Evidence: domain.Evidence{
					"fee_type":        name,
					"expected_amount": r.FeeTemplate[name],
				},
			})
		}
	}
	return signals, nil
}

// FeeAmountMismatchRule flags recognized fees whose charged amount drifts
// from the template amount beyond the tolerance.
type FeeAmountMismatchRule struct {
	FeeTemplate map[string]decimal.Decimal
	Tolerance   decimal.Decimal
}

func (r *FeeAmountMismatchRule) ID() string { return domain.RuleFeeAmountMismatch }

func (r *FeeAmountMismatchRule) Evaluate(uc UnitContext) ([]RawSignal, error) {
	if len(r.FeeTemplate) == 0 {
		return nil, errEmptyFeeTemplate
	}

	var signals []RawSignal
	for _, t := range uc.Transactions {
		if t.Category != domain.CategoryFee || t.FeeName == "" {
			continue
		}
		expected, ok := r.FeeTemplate[t.FeeName]
		if !ok {
			// Recognized label but no template entry; nothing to compare.
			continue
		}

		diff := t.Amount.Sub(expected)
		if diff.Abs().LessThanOrEqual(r.Tolerance) {
			continue
		}

		signals = append(signals, RawSignal{
			RuleID: r.ID(),
			Month:  t.Month,
			Delta:  diff.Abs(),
			Evidence: domain.Evidence{
				"fee_type":        t.FeeName,
				"expected_amount": expected,
				"actual_amount":   t.Amount,
			},
		})
	}
	return signals, nil
}
