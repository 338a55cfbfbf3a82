package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the canonical transaction category. Ingestion collaborators
// must normalize raw ledger labels into one of these values before the
// rules engine sees them; anything unrecognized maps to CategoryOther and
// participates in no rule.
type Category string

const (
	CategoryRent       Category = "rent"
	CategoryFee        Category = "fee"
	CategoryConcession Category = "concession"
	CategoryOther      Category = "other"
)

// Unit is a rental unit. Immutable for the duration of an analysis session.
type Unit struct {
	UnitID         string
	ResidentName   string
	UnitType       string
	IsEmployeeUnit bool
}

// Transaction is a single recurring charge or credit line. Amount sign
// convention: positive for charges, negative for credits and concessions.
type Transaction struct {
	TransactionID string
	UnitID        string
	Category      Category
	// FeeName is the normalized fee-template name, set only for fee lines.
	FeeName     string
	Amount      decimal.Decimal
	Month       YearMonth
	Description string
	Source      string // pdf, excel, csv, resman
}

// LeaseTerm holds per-unit lease attributes. At most one lease is active
// per unit over any overlapping date range.
type LeaseTerm struct {
	UnitID           string
	LeaseStart       time.Time
	LeaseEnd         time.Time
	ContractRent     decimal.Decimal
	ConcessionAmount decimal.Decimal
}

// ActiveIn reports whether the lease interval overlaps any day of the
// given month. A lease starting or ending mid-month counts as active for
// that whole month.
func (l LeaseTerm) ActiveIn(m YearMonth) bool {
	return !l.LeaseStart.After(m.Last()) && !l.LeaseEnd.Before(m.First())
}
