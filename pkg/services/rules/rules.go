// Package rules implements the audit rule set. Each rule is a pure
// predicate over one unit's canonical records and aggregates, emitting raw
// anomaly signals. Rules are independent: none may read another rule's
// output, and the engine runs them in the order given at construction.
package rules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/aggregate"
	"github.com/vg-tools/ledger-audit/pkg/services/auditcfg"
)

// UnitContext carries everything a rule may look at for one unit: its
// canonical records restricted to the analysis window and the aggregates
// the date range engine produced for it.
type UnitContext struct {
	Unit         domain.Unit
	Leases       []domain.LeaseTerm
	Transactions []domain.Transaction
	Aggregates   map[domain.YearMonth]domain.MonthlyAggregate
	Window       aggregate.Window
}

// RawSignal is one anomaly emitted by a rule, before deduplication and
// severity assignment.
type RawSignal struct {
	RuleID   string
	Month    domain.YearMonth
	Delta    decimal.Decimal
	Evidence domain.Evidence
}

// Rule is a pure predicate over one unit's aggregates and records.
type Rule interface {
	ID() string
	Evaluate(uc UnitContext) ([]RawSignal, error)
}

// EvaluationError reports a rule that failed for one unit. The engine
// skips the failing rule and keeps evaluating the rest.
type EvaluationError struct {
	RuleID string
	UnitID string
	Err    error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %s failed for unit %s: %v", e.RuleID, e.UnitID, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// Engine holds an explicit ordered rule collection. No global registry:
// the set is fixed at construction so distinct configurations can run side
// by side.
type Engine struct {
	rules []Rule
}

func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// DefaultRules returns the full rule set wired to the given configuration.
func DefaultRules(cfg auditcfg.Config) []Rule {
	return []Rule{
		&LeaseCliffRule{Threshold: cfg.LeaseCliffThreshold},
		&RentProrationRule{Tolerance: cfg.RentTolerance},
		&ConcessionMisalignedRule{},
		&ExcessiveConcessionRule{Threshold: cfg.ExcessiveConcessionThreshold},
		&MissingRecurringChargeRule{FeeTemplate: cfg.FeeTemplate},
		&FeeAmountMismatchRule{FeeTemplate: cfg.FeeTemplate, Tolerance: cfg.FeeTolerance},
		&DoubleDiscountRule{},
	}
}

// EvaluateUnit runs every rule against one unit. A failing rule is logged,
// reported in the returned error slice and skipped; the remaining rules
// still run. Partial results beat total failure for an audit tool.
func (e *Engine) EvaluateUnit(ctx context.Context, uc UnitContext) ([]RawSignal, []error) {
	logger := zerolog.Ctx(ctx)

	var signals []RawSignal
	var errs []error
	for _, rule := range e.rules {
		ruleSignals, err := rule.Evaluate(uc)
		if err != nil {
			evalErr := &EvaluationError{RuleID: rule.ID(), UnitID: uc.Unit.UnitID, Err: err}
			logger.Error().
				Err(evalErr).
				Str("rule", rule.ID()).
				Str("unit", uc.Unit.UnitID).
				Msg("rule evaluation failed")
			errs = append(errs, evalErr)
			continue
		}
		signals = append(signals, ruleSignals...)
	}
	return signals, errs
}

// Rules exposes the configured rule order, mainly for diagnostics.
func (e *Engine) Rules() []string {
	ids := make([]string, 0, len(e.rules))
	for _, r := range e.rules {
		ids = append(ids, r.ID())
	}
	return ids
}

// sortedMonths returns the unit's aggregate months in chronological order.
func sortedMonths(aggs map[domain.YearMonth]domain.MonthlyAggregate) []domain.YearMonth {
	months := make([]domain.YearMonth, 0, len(aggs))
	for m := range aggs {
		months = append(months, m)
	}
	for i := 1; i < len(months); i++ {
		for j := i; j > 0 && months[j].Before(months[j-1]); j-- {
			months[j], months[j-1] = months[j-1], months[j]
		}
	}
	return months
}
