package domain

import (
	"fmt"
	"time"
)

// YearMonth identifies a calendar month. The zero value is not a valid month.
type YearMonth struct {
	Year  int
	Month time.Month
}

func NewYearMonth(year int, month time.Month) YearMonth {
	return YearMonth{Year: year, Month: month}
}

// YearMonthOf truncates a date to its calendar month.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth parses the "2006-01" form.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return YearMonthOf(t), nil
}

func (m YearMonth) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Display renders the "Jan 2024" form used in narratives.
func (m YearMonth) Display() string {
	return fmt.Sprintf("%s %d", m.Month.String()[:3], m.Year)
}

func (m YearMonth) Prev() YearMonth {
	if m.Month == time.January {
		return YearMonth{Year: m.Year - 1, Month: time.December}
	}
	return YearMonth{Year: m.Year, Month: m.Month - 1}
}

func (m YearMonth) Next() YearMonth {
	if m.Month == time.December {
		return YearMonth{Year: m.Year + 1, Month: time.January}
	}
	return YearMonth{Year: m.Year, Month: m.Month + 1}
}

// Compare returns -1, 0 or 1 ordering m against other chronologically.
func (m YearMonth) Compare(other YearMonth) int {
	a := m.Year*12 + int(m.Month)
	b := other.Year*12 + int(other.Month)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (m YearMonth) Before(other YearMonth) bool { return m.Compare(other) < 0 }
func (m YearMonth) After(other YearMonth) bool  { return m.Compare(other) > 0 }

// MonthsTo returns the signed number of months from m to other.
func (m YearMonth) MonthsTo(other YearMonth) int {
	return (other.Year-m.Year)*12 + int(other.Month) - int(m.Month)
}

// First returns the first day of the month.
func (m YearMonth) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Last returns the last day of the month.
func (m YearMonth) Last() time.Time {
	return m.Next().First().AddDate(0, 0, -1)
}
