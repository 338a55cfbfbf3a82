// Package lifecycle is the finding review state machine. The append-only
// history is the source of truth; the cached status is a projection of the
// last transition and is validated against it on rehydration. Closed
// findings are immutable and findings are never deleted.
package lifecycle

import (
	"fmt"
	"time"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

// InvalidTransitionError reports a transition request the state machine
// rejects. No-op requests (to == from) are invalid, not silently accepted.
type InvalidTransitionError struct {
	FindingID string
	From      domain.Status
	To        domain.Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("finding %s: invalid transition %s -> %s", e.FindingID, e.From, e.To)
}

// ConcurrentModificationError reports that a finding's status changed
// between read and transition. The caller must re-read and retry.
type ConcurrentModificationError struct {
	FindingID string
	Expected  domain.Status
	Actual    domain.Status
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("finding %s: status is %s, expected %s", e.FindingID, e.Actual, e.Expected)
}

// validTransitions enumerates every allowed edge. Closed is terminal.
var validTransitions = map[domain.Status][]domain.Status{
	domain.StatusOpen:       {domain.StatusReviewed, domain.StatusOverridden, domain.StatusClosed},
	domain.StatusReviewed:   {domain.StatusOverridden, domain.StatusClosed},
	domain.StatusOverridden: {domain.StatusClosed},
	domain.StatusClosed:     {},
}

// CanTransition reports whether the edge from -> to is allowed.
func CanTransition(from, to domain.Status) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// clock is swapped in tests.
var clock = time.Now

// Transition applies an operator action: it validates the edge, appends an
// OverrideRecord to the history and updates the cached status and notes.
// The finding is mutated in place only on success.
func Transition(f *domain.Finding, to domain.Status, actor, notes string) error {
	if !CanTransition(f.Status, to) {
		return &InvalidTransitionError{FindingID: f.ID, From: f.Status, To: to}
	}

	f.History = append(f.History, domain.OverrideRecord{
		FindingID:  f.ID,
		FromStatus: f.Status,
		ToStatus:   to,
		Actor:      actor,
		Timestamp:  clock(),
		Notes:      notes,
	})
	f.Status = to
	if notes != "" {
		f.Notes = notes
	}
	return nil
}

// TransitionExpect applies a transition only when the finding's stored
// status still matches what the operator read. Multi-operator sessions use
// this to avoid silently overwriting another operator's decision.
func TransitionExpect(f *domain.Finding, expected, to domain.Status, actor, notes string) error {
	if f.Status != expected {
		return &ConcurrentModificationError{FindingID: f.ID, Expected: expected, Actual: f.Status}
	}
	return Transition(f, to, actor, notes)
}

// Rehydrate recomputes the status projection from the history and reports
// divergence between the cached status and the last recorded transition.
func Rehydrate(f *domain.Finding) error {
	derived := domain.StatusOpen
	for i, rec := range f.History {
		if rec.FromStatus != derived {
			return fmt.Errorf("finding %s: history entry %d starts at %s, expected %s",
				f.ID, i, rec.FromStatus, derived)
		}
		derived = rec.ToStatus
	}
	if f.Status == "" {
		f.Status = derived
		return nil
	}
	if f.Status != derived {
		return fmt.Errorf("finding %s: cached status %s diverges from history (%s)",
			f.ID, f.Status, derived)
	}
	return nil
}
