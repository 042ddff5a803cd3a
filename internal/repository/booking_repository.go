package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/alanwtom/carmodel/internal/model"
)

// BookingRepo provides access to the bookings table.  Writes that take part
// in the booking lifecycle come in Tx variants so the caller owns the
// transaction; plain variants serve read-only listings.  Dates are stored
// as DATE columns and scanned back as UTC midnight.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `b.id, b.user_id, b.vehicle_id, b.start_date, b.end_date, b.total_cost, b.payment_method, b.status, b.created_at, b.updated_at, b.cancelled_at`

func scanBooking(s rowScanner, extra ...any) (*model.Booking, error) {
	var (
		b           model.Booking
		cancelledAt sql.NullTime
	)
	dest := []any{&b.ID, &b.UserID, &b.VehicleID, &b.StartDate, &b.EndDate, &b.TotalCost,
		&b.PaymentMethod, &b.Status, &b.CreatedAt, &b.UpdatedAt, &cancelledAt}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return &b, nil
}

// CreateTx inserts a new active booking inside tx and populates its ID and
// timestamps.  The caller must have checked availability under the vehicle
// row lock.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	const q = `INSERT INTO bookings (user_id, vehicle_id, start_date, end_date, total_cost, payment_method, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	if b.Status == "" {
		b.Status = model.BookingActive
	}
	res, err := tx.ExecContext(ctx, q, b.UserID, b.VehicleID, b.StartDate, b.EndDate, b.TotalCost, b.PaymentMethod, b.Status)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return classify(tx.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt))
}

// GetByIDForUpdateTx loads a booking and locks its row until tx ends.
func (r *BookingRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, classify(err)
}

// GetByIDTx loads a booking inside tx without locking it.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, classify(err)
}

// CountOverlappingTx counts active bookings of vehicleID whose inclusive
// [start_date, end_date] range intersects [start, end].  excludeID skips one
// booking (pass 0 to skip none).
func (r *BookingRepo) CountOverlappingTx(ctx context.Context, tx *sql.Tx, vehicleID uint64, start, end time.Time, excludeID uint64) (int, error) {
	const q = `SELECT COUNT(*) FROM bookings
	            WHERE vehicle_id = ? AND status = ? AND id <> ?
	              AND end_date >= ? AND start_date <= ?`
	var n int
	err := tx.QueryRowContext(ctx, q, vehicleID, model.BookingActive, excludeID, start, end).Scan(&n)
	return n, classify(err)
}

// UpdateDatesTx stores new dates and cost for a booking.
func (r *BookingRepo) UpdateDatesTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET start_date = ?, end_date = ?, total_cost = ? WHERE id = ? AND status = ?`,
		b.StartDate, b.EndDate, b.TotalCost, b.ID, model.BookingActive)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// zero rows also happens when the values are unchanged; re-read to tell apart
		cur, err := r.GetByIDTx(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if !cur.Active() {
			return ErrConflict
		}
	}
	return classify(tx.QueryRowContext(ctx,
		`SELECT updated_at FROM bookings WHERE id = ?`, b.ID).Scan(&b.UpdatedAt))
}

// CancelTx moves an active booking to the cancelled state.
func (r *BookingRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ? AND status = ?`,
		model.BookingCancelled, at, id, model.BookingActive)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrConflict
	}
	return nil
}

const bookingDetailSelect = `SELECT ` + bookingColumns + `, v.make, v.model, v.year, u.name, u.email
	FROM bookings b
	JOIN vehicles v ON v.id = b.vehicle_id
	JOIN users u    ON u.id = b.user_id`

func scanBookingDetail(s rowScanner) (*model.BookingDetail, error) {
	var d model.BookingDetail
	b, err := scanBooking(s, &d.VehicleMake, &d.VehicleModel, &d.VehicleYear, &d.UserName, &d.UserEmail)
	if err != nil {
		return nil, err
	}
	d.Booking = *b
	return &d, nil
}

func (r *BookingRepo) listDetails(ctx context.Context, q string, args ...any) ([]model.BookingDetail, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.BookingDetail{}
	for rows.Next() {
		d, err := scanBookingDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// GetDetail loads a booking with vehicle and renter fields.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error) {
	d, err := scanBookingDetail(r.db.QueryRowContext(ctx, bookingDetailSelect+` WHERE b.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return d, err
}

// ListByUser returns a user's bookings, newest first, cancelled included.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error) {
	return r.listDetails(ctx, bookingDetailSelect+` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`, userID)
}

// ListAll returns every booking, optionally filtered by status.
func (r *BookingRepo) ListAll(ctx context.Context, status string) ([]model.BookingDetail, error) {
	if status != "" {
		return r.listDetails(ctx, bookingDetailSelect+` WHERE b.status = ? ORDER BY b.created_at DESC, b.id DESC`, status)
	}
	return r.listDetails(ctx, bookingDetailSelect+` ORDER BY b.created_at DESC, b.id DESC`)
}

