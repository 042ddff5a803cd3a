package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
)

// WalletRepo persists per-user test-credit wallets.  user_id is unique, so
// concurrent creation for the same user collapses onto one row.
type WalletRepo struct {
	db *sql.DB
}

// NewWalletRepo returns a new WalletRepo bound to the given database.
func NewWalletRepo(db *sql.DB) *WalletRepo { return &WalletRepo{db: db} }

const ensureWalletSQL = `INSERT INTO wallets (user_id, balance, opening_balance) VALUES (?, ?, ?)
	ON DUPLICATE KEY UPDATE user_id = user_id`

const walletColumns = `id, user_id, balance, opening_balance, created_at, updated_at`

// EnsureTx creates the user's wallet with the given opening balance unless
// it already exists.  Concurrent callers collapse onto one row.
func (r *WalletRepo) EnsureTx(ctx context.Context, tx *sql.Tx, userID uint64, opening decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, ensureWalletSQL, userID, opening, opening)
	return classify(err)
}

func scanWallet(s rowScanner) (*model.Wallet, error) {
	var w model.Wallet
	if err := s.Scan(&w.ID, &w.UserID, &w.Balance, &w.OpeningBalance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, err
	}
	return &w, nil
}

// GetByUser reads a wallet without locking it.
func (r *WalletRepo) GetByUser(ctx context.Context, userID uint64) (*model.Wallet, error) {
	w, err := scanWallet(r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = ?`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	return w, err
}

// GetForUpdateTx reads a wallet and holds an exclusive row lock until tx
// ends, so the balance cannot change between the read and the write.
func (r *WalletRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID uint64) (*model.Wallet, error) {
	w, err := scanWallet(tx.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE user_id = ? FOR UPDATE`, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	return w, classify(err)
}

// DebitTx subtracts amount from the wallet when the balance covers it.  It
// reports false, without error, when funds are insufficient.
func (r *WalletRepo) DebitTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance - ? WHERE id = ? AND balance >= ?`,
		amount, walletID, amount)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// CreditTx adds amount to the wallet.
func (r *WalletRepo) CreditTx(ctx context.Context, tx *sql.Tx, walletID uint64, amount decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance + ? WHERE id = ?`, amount, walletID)
	if err != nil {
		return classify(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// ListAll returns every wallet ordered by user.
func (r *WalletRepo) ListAll(ctx context.Context) ([]model.Wallet, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+walletColumns+` FROM wallets ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Wallet{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}
