package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a user's test-credit balance (`wallets` table).  There is
// at most one wallet per user and the balance never goes below zero.
type Wallet struct {
	ID        uint64          // wallets.id
	UserID    uint64          // wallets.user_id (unique)
	Balance   decimal.Decimal // wallets.balance
	CreatedAt time.Time       // wallets.created_at
	UpdatedAt time.Time       // wallets.updated_at

	// OpeningBalance is the credit the wallet was created with
	// (wallets.opening_balance).  It never changes.
	OpeningBalance decimal.Decimal
}
