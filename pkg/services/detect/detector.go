// Package detect orchestrates an audit run: aggregate once, evaluate the
// full rule set per unit, deduplicate, band severities and mint findings.
package detect

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/aggregate"
	"github.com/vg-tools/ledger-audit/pkg/services/auditcfg"
	"github.com/vg-tools/ledger-audit/pkg/services/canonical"
	"github.com/vg-tools/ledger-audit/pkg/services/rules"
)

// Lease-cliff severity cutoffs on the 0-100 drop score.
var (
	cliffCriticalScore = decimal.NewFromInt(50)
	cliffHighScore     = decimal.NewFromInt(35)
)

type Detector struct {
	engine *rules.Engine
	bands  map[string]domain.Severity
	now    func() time.Time
	newID  func() string
}

// Option adjusts detector wiring, mainly for tests.
type Option func(*Detector)

func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(d *Detector) { d.newID = newID }
}

func NewDetector(engine *rules.Engine, cfg auditcfg.Config, opts ...Option) *Detector {
	d := &Detector{
		engine: engine,
		bands:  cfg.SeverityBands,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// dedupKey is the identity of one anomaly across re-runs.
type dedupKey struct {
	UnitID string
	RuleID string
	Month  domain.YearMonth
}

type unitSignal struct {
	unitID string
	signal rules.RawSignal
}

// Detect runs the full rule set across all units for the window and
// returns the materialized findings, sorted by severity then unit then
// month. Re-running on identical inputs yields an identical finding set
// modulo finding IDs. The detector persists nothing; storage is the
// caller's concern.
func (d *Detector) Detect(
	ctx context.Context,
	units []domain.Unit,
	txns []domain.Transaction,
	leases []domain.LeaseTerm,
	window aggregate.Window,
) ([]domain.Finding, error) {
	logger := zerolog.Ctx(ctx)

	if err := canonical.ValidateUnits(units); err != nil {
		return nil, err
	}
	if err := canonical.ValidateTransactions(txns); err != nil {
		return nil, err
	}
	if err := canonical.ValidateLeases(leases); err != nil {
		return nil, err
	}

	cells := aggregate.Aggregate(txns, leases, window)

	txnsByUnit := make(map[string][]domain.Transaction)
	for _, t := range txns {
		if window.Contains(t.Month) {
			txnsByUnit[t.UnitID] = append(txnsByUnit[t.UnitID], t)
		}
	}
	leasesByUnit := make(map[string][]domain.LeaseTerm)
	for _, l := range leases {
		leasesByUnit[l.UnitID] = append(leasesByUnit[l.UnitID], l)
	}

	var collected []unitSignal
	var evalErrs int
	for _, unit := range units {
		uc := rules.UnitContext{
			Unit:         unit,
			Leases:       leasesByUnit[unit.UnitID],
			Transactions: txnsByUnit[unit.UnitID],
			Aggregates:   aggregate.ForUnit(cells, unit.UnitID),
			Window:       window,
		}
		signals, errs := d.engine.EvaluateUnit(ctx, uc)
		evalErrs += len(errs)
		for _, s := range signals {
			collected = append(collected, unitSignal{unitID: unit.UnitID, signal: s})
		}
	}

	// Dedupe by (unit, rule, month), keeping the larger delta so
	// re-detection on identical inputs stays idempotent.
	deduped := make(map[dedupKey]unitSignal, len(collected))
	for _, us := range collected {
		key := dedupKey{UnitID: us.unitID, RuleID: us.signal.RuleID, Month: us.signal.Month}
		if prev, exists := deduped[key]; exists && !us.signal.Delta.GreaterThan(prev.signal.Delta) {
			continue
		}
		deduped[key] = us
	}

	findings := make([]domain.Finding, 0, len(deduped))
	for _, us := range deduped {
		findings = append(findings, domain.Finding{
			ID:        d.newID(),
			UnitID:    us.unitID,
			RuleID:    us.signal.RuleID,
			Severity:  d.severityFor(us.signal),
			Month:     us.signal.Month,
			Delta:     us.signal.Delta,
			Evidence:  us.signal.Evidence,
			Status:    domain.StatusOpen,
			CreatedAt: d.now(),
		})
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Severity != findings[j].Severity {
			return findings[i].Severity > findings[j].Severity
		}
		if findings[i].UnitID != findings[j].UnitID {
			return findings[i].UnitID < findings[j].UnitID
		}
		if c := findings[i].Month.Compare(findings[j].Month); c != 0 {
			return c < 0
		}
		return findings[i].RuleID < findings[j].RuleID
	})

	logger.Info().
		Int("units", len(units)).
		Int("signals", len(collected)).
		Int("findings", len(findings)).
		Int("rule_errors", evalErrs).
		Str("window", window.Start.String()+".."+window.End.String()).
		Msg("detection run complete")

	return findings, nil
}

// severityFor applies the configured severity bands. The lease cliff rule
// is scored 0-100 proportional to the drop percentage and then banded; all
// other rules have fixed bands.
func (d *Detector) severityFor(s rules.RawSignal) domain.Severity {
	if s.RuleID == domain.RuleLeaseCliffRisk {
		score := s.Delta
		if score.GreaterThan(decimal.NewFromInt(100)) {
			score = decimal.NewFromInt(100)
		}
		switch {
		case score.GreaterThanOrEqual(cliffCriticalScore):
			return domain.SeverityCritical
		case score.GreaterThanOrEqual(cliffHighScore):
			return domain.SeverityHigh
		default:
			return domain.SeverityMedium
		}
	}
	if sev, ok := d.bands[s.RuleID]; ok {
		return sev
	}
	return domain.SeverityLow
}
