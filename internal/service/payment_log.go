package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
)

// PaymentReader is the read side of the payment log.
type PaymentReader interface {
	ListByUser(ctx context.Context, userID uint64) ([]model.PaymentRecord, error)
	SumByUser(ctx context.Context, userID uint64) (decimal.Decimal, error)
}

// PaymentLog appends immutable money-movement records and answers history
// queries over them.
type PaymentLog struct {
	reader PaymentReader
	newRef func() string
}

// NewPaymentLog returns a log backed by reader for history queries.
func NewPaymentLog(reader PaymentReader) *PaymentLog {
	return &PaymentLog{reader: reader, newRef: uuid.NewString}
}

// Append records a signed amount against a booking.
func (l *PaymentLog) Append(ctx context.Context, tx Tx, bookingID, userID uint64, amount decimal.Decimal, method, status string) (*model.PaymentRecord, error) {
	p := &model.PaymentRecord{
		BookingID: bookingID,
		UserID:    userID,
		Amount:    amount,
		Method:    method,
		Status:    status,
		Reference: l.newRef(),
	}
	if err := tx.InsertPayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// History lists a user's records, newest first.
func (l *PaymentLog) History(ctx context.Context, userID uint64) ([]model.PaymentRecord, error) {
	return l.reader.ListByUser(ctx, userID)
}

// NetSpend is the signed sum of a user's records: charges minus refunds.
func (l *PaymentLog) NetSpend(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	return l.reader.SumByUser(ctx, userID)
}
