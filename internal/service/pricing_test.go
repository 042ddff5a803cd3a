package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice(t *testing.T) {
	d := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	rate := decimal.NewFromInt(50)

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  string
	}{
		{"three days", d, d.AddDate(0, 0, 3), "150"},
		{"one day", d, d.AddDate(0, 0, 1), "50"},
		{"shorter than a day", d, d.Add(20 * time.Hour), "0"},
		{"partial day is floored", d, d.Add(50 * time.Hour), "100"},
		{"across month end", time.Date(2030, 2, 27, 0, 0, 0, 0, time.UTC), time.Date(2030, 3, 2, 0, 0, 0, 0, time.UTC), "150"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Price(tc.start, tc.end, rate)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestPrice_FractionalRate(t *testing.T) {
	d := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := Price(d, d.AddDate(0, 0, 3), decimal.RequireFromString("33.33"))
	require.NoError(t, err)
	assert.Equal(t, "99.99", got.StringFixed(2))
}

func TestPrice_InvalidRange(t *testing.T) {
	d := time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC)
	rate := decimal.NewFromInt(50)

	_, err := Price(d, d, rate)
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = Price(d.AddDate(0, 0, 2), d, rate)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
	assert.Equal(t, KindInvalidDateRange, KindOf(err))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2030-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseDate("03/01/2030")
	assert.Error(t, err)
}

func TestDateOnly(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	got := DateOnly(time.Date(2030, 3, 1, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC), got)
}
