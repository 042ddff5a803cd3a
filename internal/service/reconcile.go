package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
)

// WalletLister lists every wallet.
type WalletLister interface {
	ListAll(ctx context.Context) ([]model.Wallet, error)
}

// PaymentTotals sums payment records per user.
type PaymentTotals interface {
	SumPerUser(ctx context.Context) (map[uint64]decimal.Decimal, error)
}

// Mismatch is a wallet whose balance does not match its payment history.
type Mismatch struct {
	UserID   uint64
	WalletID uint64
	Balance  decimal.Decimal
	Expected decimal.Decimal
}

// Reconcile checks every wallet against the payment log: a wallet only
// moves through booking charges and refunds, so its balance must equal its
// own opening balance minus the signed sum of its owner's records.
func Reconcile(ctx context.Context, wallets WalletLister, payments PaymentTotals) ([]Mismatch, error) {
	ws, err := wallets.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sums, err := payments.SumPerUser(ctx)
	if err != nil {
		return nil, err
	}
	out := []Mismatch{}
	for _, w := range ws {
		expected := w.OpeningBalance.Sub(sums[w.UserID])
		if !w.Balance.Equal(expected) {
			out = append(out, Mismatch{UserID: w.UserID, WalletID: w.ID, Balance: w.Balance, Expected: expected})
		}
	}
	return out, nil
}
