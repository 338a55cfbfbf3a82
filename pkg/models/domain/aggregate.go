package domain

import "github.com/shopspring/decimal"

// MonthlyAggregate is the per (unit, month) rollup produced by the date
// range engine. Derived data: recomputed for every query window, never
// persisted.
type MonthlyAggregate struct {
	UnitID string
	Month  YearMonth
	// GrossRent is the sum of rent-category charges.
	GrossRent decimal.Decimal
	// Fees is the sum of fee-category charges.
	Fees decimal.Decimal
	// Credits is the sum of negative concession/credit lines (a negative
	// number, or zero).
	Credits decimal.Decimal
	// NetRent = GrossRent + Credits.
	NetRent decimal.Decimal
	// ConcessionRatio = |Credits| / GrossRent, defined as zero when
	// GrossRent is zero so non-finite values never leave the engine.
	ConcessionRatio decimal.Decimal
}
