package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
)

// DefaultOpeningBalance seeds every new wallet.
var DefaultOpeningBalance = decimal.NewFromInt(500)

// Ledger moves test credit in and out of wallets.  Amounts are always
// non-negative; the caller decides direction.  Every method expects the
// wallet row to be locked in tx (GetOrCreate does that).
type Ledger struct {
	opening decimal.Decimal
}

// NewLedger returns a Ledger that opens wallets with the given balance.
func NewLedger(opening decimal.Decimal) *Ledger {
	if opening.IsNegative() {
		opening = decimal.Zero
	}
	return &Ledger{opening: opening}
}

// Opening is the balance new wallets start with.
func (l *Ledger) Opening() decimal.Decimal { return l.opening }

// GetOrCreate returns the user's wallet, creating it on first use, and holds
// its row lock for the rest of tx.
func (l *Ledger) GetOrCreate(ctx context.Context, tx Tx, userID uint64) (*model.Wallet, error) {
	if err := tx.EnsureWallet(ctx, userID, l.opening); err != nil {
		return nil, err
	}
	return tx.LockWallet(ctx, userID)
}

// Debit takes amount out of w or fails with ErrInsufficientFunds leaving
// the balance untouched.
func (l *Ledger) Debit(ctx context.Context, tx Tx, w *model.Wallet, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if amount.GreaterThan(w.Balance) {
		return ErrInsufficientFunds
	}
	ok, err := tx.DebitWallet(ctx, w.ID, amount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}
	w.Balance = w.Balance.Sub(amount)
	return nil
}

// Credit adds amount to w.
func (l *Ledger) Credit(ctx context.Context, tx Tx, w *model.Wallet, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrNegativeAmount
	}
	if err := tx.CreditWallet(ctx, w.ID, amount); err != nil {
		return err
	}
	w.Balance = w.Balance.Add(amount)
	return nil
}
