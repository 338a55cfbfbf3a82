// Package findings defines the persistence interface for findings and
// their audit trails. The core treats it as an external record store with
// at-least-once durability after Save returns.
package findings

import (
	"context"
	"errors"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

var ErrNotFound = errors.New("finding not found")

// Filter narrows List results. Zero-valued fields match everything.
type Filter struct {
	UnitID   string
	Status   domain.Status
	RuleID   string
	Severity *domain.Severity
}

type Store interface {
	// Save persists a finding and its current history.
	Save(ctx context.Context, f domain.Finding) error
	// Get loads one finding with its full history.
	Get(ctx context.Context, findingID string) (domain.Finding, error)
	// List loads findings matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]domain.Finding, error)
	// AppendOverride appends one audit trail entry.
	AppendOverride(ctx context.Context, rec domain.OverrideRecord) error
	// UpdateStatus moves a finding from one status to another with an
	// optimistic guard: it fails if the stored status no longer matches
	// from.
	UpdateStatus(ctx context.Context, findingID string, from, to domain.Status, notes string) error
	// Merge inserts newly detected findings, skipping any whose
	// (unit_id, rule_id, month) key already has a non-closed finding on
	// record, and returns the number inserted.
	Merge(ctx context.Context, detected []domain.Finding) (int, error)
}
