// Package aggregate is the date range engine: it filters canonical
// transactions to an inclusive month window and rolls them up into per
// (unit, month) aggregates. A lease counts as active for a month if its
// interval overlaps any day of that month; active-lease months with no
// transactions still aggregate to zero so missing charges stay detectable.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
)

// Window is an inclusive calendar-month range.
type Window struct {
	Start domain.YearMonth
	End   domain.YearMonth
}

func (w Window) Contains(m domain.YearMonth) bool {
	return !m.Before(w.Start) && !m.After(w.End)
}

// Months lists every month in the window in chronological order.
func (w Window) Months() []domain.YearMonth {
	var months []domain.YearMonth
	for m := w.Start; !m.After(w.End); m = m.Next() {
		months = append(months, m)
	}
	return months
}

// Key identifies one aggregate cell.
type Key struct {
	UnitID string
	Month  domain.YearMonth
}

// Aggregate rolls up the transactions falling inside the window. Pure
// function over its inputs: nothing is mutated and identical inputs yield
// identical output, so it is safe to re-run with different windows without
// re-parsing source data.
func Aggregate(
	txns []domain.Transaction,
	leases []domain.LeaseTerm,
	window Window,
) map[Key]domain.MonthlyAggregate {
	cells := make(map[Key]domain.MonthlyAggregate)

	get := func(k Key) domain.MonthlyAggregate {
		if cell, ok := cells[k]; ok {
			return cell
		}
		return domain.MonthlyAggregate{UnitID: k.UnitID, Month: k.Month}
	}

	// Zero-fill months covered by an active lease.
	for _, lease := range leases {
		for _, m := range window.Months() {
			if lease.ActiveIn(m) {
				k := Key{UnitID: lease.UnitID, Month: m}
				cells[k] = get(k)
			}
		}
	}

	for _, t := range txns {
		if !window.Contains(t.Month) {
			continue
		}
		k := Key{UnitID: t.UnitID, Month: t.Month}
		cell := get(k)

		switch t.Category {
		case domain.CategoryRent:
			cell.GrossRent = cell.GrossRent.Add(t.Amount)
		case domain.CategoryFee:
			cell.Fees = cell.Fees.Add(t.Amount)
		case domain.CategoryConcession:
			cell.Credits = cell.Credits.Add(t.Amount)
		}
		cells[k] = cell
	}

	for k, cell := range cells {
		cell.NetRent = cell.GrossRent.Add(cell.Credits)
		if cell.GrossRent.IsPositive() {
			cell.ConcessionRatio = cell.Credits.Abs().Div(cell.GrossRent)
		} else {
			cell.ConcessionRatio = decimal.Zero
		}
		cells[k] = cell
	}

	return cells
}

// ForUnit extracts one unit's aggregates keyed by month.
func ForUnit(cells map[Key]domain.MonthlyAggregate, unitID string) map[domain.YearMonth]domain.MonthlyAggregate {
	out := make(map[domain.YearMonth]domain.MonthlyAggregate)
	for k, cell := range cells {
		if k.UnitID == unitID {
			out[k.Month] = cell
		}
	}
	return out
}

// TrendPoint is one month in the property-wide revenue trend.
type TrendPoint struct {
	Month  domain.YearMonth
	Net    decimal.Decimal
	Change decimal.Decimal
	// ChangePct is the fractional month-over-month change; nil for the
	// first month or when the prior month's net is zero.
	ChangePct *decimal.Decimal
}

// RevenueTrend computes the month-over-month net revenue trend across all
// units in the window.
func RevenueTrend(cells map[Key]domain.MonthlyAggregate, window Window) []TrendPoint {
	totals := make(map[domain.YearMonth]decimal.Decimal)
	for k, cell := range cells {
		totals[k.Month] = totals[k.Month].Add(cell.NetRent)
	}

	months := make([]domain.YearMonth, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	trend := make([]TrendPoint, 0, len(months))
	for i, m := range months {
		point := TrendPoint{Month: m, Net: totals[m]}
		if i > 0 {
			prev := totals[months[i-1]]
			point.Change = point.Net.Sub(prev)
			if !prev.IsZero() {
				pct := point.Change.Div(prev)
				point.ChangePct = &pct
			}
		}
		trend = append(trend, point)
	}
	return trend
}
