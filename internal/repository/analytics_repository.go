package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
)

// AnalyticsRepo runs the read-only aggregate queries behind the admin
// dashboard.
type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db: db} }

// MonthCount is the number of bookings starting in one calendar month.
type MonthCount struct {
	Month string // YYYY-MM
	Count int
}

// VehiclePopularity ranks a vehicle by how many bookings it received.
type VehiclePopularity struct {
	VehicleID uint64
	Make      string
	Model     string
	Year      int
	Bookings  int
}

// Totals are the headline numbers of the dashboard.
type Totals struct {
	Users          int
	Vehicles       int
	ActiveBookings int
	NetRevenue     decimal.Decimal
}

// BookingsPerMonth counts non-cancelled bookings by the month their rental
// starts, oldest first.
func (r *AnalyticsRepo) BookingsPerMonth(ctx context.Context) ([]MonthCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DATE_FORMAT(start_date, '%Y-%m') AS month, COUNT(*)
		   FROM bookings WHERE status <> ?
		  GROUP BY month ORDER BY month ASC`, model.BookingCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MonthCount{}
	for rows.Next() {
		var m MonthCount
		if err := rows.Scan(&m.Month, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PopularVehicles returns the vehicles with the most non-cancelled bookings.
func (r *AnalyticsRepo) PopularVehicles(ctx context.Context, limit int) ([]VehiclePopularity, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT v.id, v.make, v.model, v.year, COUNT(b.id) AS n
		   FROM vehicles v JOIN bookings b ON b.vehicle_id = v.id AND b.status <> ?
		  GROUP BY v.id, v.make, v.model, v.year
		  ORDER BY n DESC, v.id ASC
		  LIMIT ?`, model.BookingCancelled, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []VehiclePopularity{}
	for rows.Next() {
		var p VehiclePopularity
		if err := rows.Scan(&p.VehicleID, &p.Make, &p.Model, &p.Year, &p.Bookings); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Totals gathers the dashboard counters in one round trip.
func (r *AnalyticsRepo) Totals(ctx context.Context) (Totals, error) {
	var (
		t   Totals
		rev decimal.NullDecimal
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM users),
		   (SELECT COUNT(*) FROM vehicles),
		   (SELECT COUNT(*) FROM bookings WHERE status = ?),
		   (SELECT SUM(amount) FROM payment_records)`, model.BookingActive).
		Scan(&t.Users, &t.Vehicles, &t.ActiveBookings, &rev)
	if err != nil {
		return Totals{}, err
	}
	t.NetRevenue = decimal.Zero
	if rev.Valid {
		t.NetRevenue = rev.Decimal
	}
	return t, nil
}
