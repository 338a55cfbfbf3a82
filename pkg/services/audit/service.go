// Package audit wires the pipeline end to end: detection, explanation and
// the optional merge into the finding store.
package audit

import (
	"context"
	"fmt"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/services/aggregate"
	"github.com/vg-tools/ledger-audit/pkg/services/auditcfg"
	"github.com/vg-tools/ledger-audit/pkg/services/detect"
	"github.com/vg-tools/ledger-audit/pkg/services/explain"
	"github.com/vg-tools/ledger-audit/pkg/services/rules"
	findingsstore "github.com/vg-tools/ledger-audit/pkg/store/findings"
)

type Service struct {
	detector *detect.Detector
	store    findingsstore.Store // nil for one-shot runs with no persistence
}

func NewService(cfg auditcfg.Config, store findingsstore.Store) *Service {
	engine := rules.NewEngine(rules.DefaultRules(cfg)...)
	return &Service{
		detector: detect.NewDetector(engine, cfg),
		store:    store,
	}
}

// Result is one audit run's output: explained findings plus the summary
// the dashboard renders.
type Result struct {
	Findings []domain.Finding
	Stats    detect.SummaryStats
	// Merged is the number of findings newly persisted; zero when the
	// service has no store or every anomaly was already on record.
	Merged int
}

// Run detects, explains and (when a store is configured) merges findings
// for the window. Previously persisted findings are never mutated: the
// merge only inserts anomalies with no open finding on record.
func (s *Service) Run(
	ctx context.Context,
	units []domain.Unit,
	txns []domain.Transaction,
	leases []domain.LeaseTerm,
	window aggregate.Window,
) (Result, error) {
	found, err := s.detector.Detect(ctx, units, txns, leases, window)
	if err != nil {
		return Result{}, fmt.Errorf("detection failed: %w", err)
	}

	found = explain.ExplainAll(found)

	result := Result{
		Findings: found,
		Stats:    detect.Summarize(found),
	}

	if s.store != nil {
		merged, err := s.store.Merge(ctx, found)
		if err != nil {
			return Result{}, fmt.Errorf("merge findings: %w", err)
		}
		result.Merged = merged
	}
	return result, nil
}
