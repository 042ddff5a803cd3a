package service

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of booking dates.
const DateLayout = "2006-01-02"

const dayDuration = 24 * time.Hour

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD booking date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Days returns the number of whole days between start and end.
func Days(start, end time.Time) int64 {
	if !start.Before(end) {
		return 0
	}
	return int64(end.Sub(start) / dayDuration)
}

// Price is whole days times dailyRate.  A range shorter than one day costs
// zero; an empty or inverted range is ErrInvalidDateRange.
func Price(start, end time.Time, dailyRate decimal.Decimal) (decimal.Decimal, error) {
	if !start.Before(end) {
		return decimal.Zero, ErrInvalidDateRange
	}
	return dailyRate.Mul(decimal.NewFromInt(Days(start, end))), nil
}
