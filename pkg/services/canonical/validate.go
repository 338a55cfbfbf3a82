package canonical

import (
	"fmt"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

// ValidationError identifies the malformed record that failed schema
// validation. The pipeline fails fast on the first invalid record rather
// than silently dropping data.
type ValidationError struct {
	Kind   string // unit, transaction, lease
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: field %s: %s", e.Kind, e.ID, e.Field, e.Reason)
}

// ValidateUnits checks required unit fields and unit_id uniqueness.
func ValidateUnits(units []domain.Unit) error {
	seen := make(map[string]struct{}, len(units))
	for _, u := range units {
		if u.UnitID == "" {
			return &ValidationError{Kind: "unit", ID: u.ResidentName, Field: "unit_id", Reason: "required"}
		}
		if _, dup := seen[u.UnitID]; dup {
			return &ValidationError{Kind: "unit", ID: u.UnitID, Field: "unit_id", Reason: "duplicate"}
		}
		seen[u.UnitID] = struct{}{}
	}
	return nil
}

// ValidateTransactions checks required transaction fields.
func ValidateTransactions(txns []domain.Transaction) error {
	for _, t := range txns {
		if t.UnitID == "" {
			return &ValidationError{Kind: "transaction", ID: t.TransactionID, Field: "unit_id", Reason: "required"}
		}
		if t.Month.IsZero() {
			return &ValidationError{Kind: "transaction", ID: t.TransactionID, Field: "month", Reason: "required"}
		}
		if t.Month.Year < 0 {
			return &ValidationError{Kind: "transaction", ID: t.TransactionID, Field: "month", Reason: "negative year"}
		}
		if t.Category == "" {
			return &ValidationError{Kind: "transaction", ID: t.TransactionID, Field: "category", Reason: "required"}
		}
	}
	return nil
}

// ValidateLeases checks required lease fields and interval ordering.
func ValidateLeases(leases []domain.LeaseTerm) error {
	for _, l := range leases {
		if l.UnitID == "" {
			return &ValidationError{Kind: "lease", ID: l.UnitID, Field: "unit_id", Reason: "required"}
		}
		if l.LeaseStart.IsZero() || l.LeaseEnd.IsZero() {
			return &ValidationError{Kind: "lease", ID: l.UnitID, Field: "lease_start", Reason: "required"}
		}
		if l.LeaseStart.After(l.LeaseEnd) {
			return &ValidationError{Kind: "lease", ID: l.UnitID, Field: "lease_start", Reason: "after lease_end"}
		}
	}
	return nil
}
