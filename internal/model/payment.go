package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment method tags written to payment_records.method.
const (
	MethodWallet       = "wallet"
	MethodWalletRefund = "wallet_refund"
)

// PaymentSucceeded is the only status a payment record is created with.
const PaymentSucceeded = "succeeded"

// PaymentRecord is an immutable entry of the `payment_records` audit log.
// Amount is signed: positive for a charge, negative for a refund.  Records
// are never updated or deleted and outlive the booking they reference.
type PaymentRecord struct {
	ID        uint64          // payment_records.id
	BookingID uint64          // payment_records.booking_id
	UserID    uint64          // payment_records.user_id
	Amount    decimal.Decimal // payment_records.amount
	Method    string          // payment_records.method
	Status    string          // payment_records.status
	Reference string          // payment_records.reference (uuid)
	CreatedAt time.Time       // payment_records.created_at
}
