package repository

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
)

// PaymentRepo appends to and reads the payment_records audit log.  There is
// deliberately no update or delete method.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a new PaymentRepo bound to the given database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// CreateTx appends a record inside tx and populates its ID and created_at.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.PaymentRecord) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO payment_records (booking_id, user_id, amount, method, status, reference)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.BookingID, p.UserID, p.Amount, p.Method, p.Status, p.Reference)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return classify(tx.QueryRowContext(ctx,
		`SELECT created_at FROM payment_records WHERE id = ?`, p.ID).Scan(&p.CreatedAt))
}

// ListByUser returns a user's payment history, newest first.
func (r *PaymentRepo) ListByUser(ctx context.Context, userID uint64) ([]model.PaymentRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, booking_id, user_id, amount, method, status, reference, created_at
		   FROM payment_records WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.PaymentRecord{}
	for rows.Next() {
		var p model.PaymentRecord
		if err := rows.Scan(&p.ID, &p.BookingID, &p.UserID, &p.Amount, &p.Method, &p.Status, &p.Reference, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SumByUser returns the signed total of a user's records (net spend).
func (r *PaymentRepo) SumByUser(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	if err := r.db.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM payment_records WHERE user_id = ?`, userID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// SumPerUser returns the signed total for every user that has records.
func (r *PaymentRepo) SumPerUser(ctx context.Context) (map[uint64]decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, SUM(amount) FROM payment_records GROUP BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[uint64]decimal.Decimal{}
	for rows.Next() {
		var (
			uid uint64
			sum decimal.Decimal
		)
		if err := rows.Scan(&uid, &sum); err != nil {
			return nil, err
		}
		out[uid] = sum
	}
	return out, rows.Err()
}
