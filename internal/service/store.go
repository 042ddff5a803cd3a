package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
	"github.com/alanwtom/carmodel/internal/repository"
)

// Store runs units of work.  fn either returns nil and everything it wrote
// is committed, or returns an error and nothing it wrote survives.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and writes a booking operation performs inside
// one unit of work.  Lock* methods hold an exclusive row lock until the unit
// of work ends.
type Tx interface {
	LockVehicle(ctx context.Context, id uint64) (*model.Vehicle, error)
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
	CountOverlapping(ctx context.Context, vehicleID uint64, start, end time.Time, excludeBookingID uint64) (int, error)
	InsertBooking(ctx context.Context, b *model.Booking) error
	UpdateBooking(ctx context.Context, b *model.Booking) error
	CancelBooking(ctx context.Context, id uint64, at time.Time) error

	EnsureWallet(ctx context.Context, userID uint64, opening decimal.Decimal) error
	LockWallet(ctx context.Context, userID uint64) (*model.Wallet, error)
	DebitWallet(ctx context.Context, walletID uint64, amount decimal.Decimal) (bool, error)
	CreditWallet(ctx context.Context, walletID uint64, amount decimal.Decimal) error

	InsertPayment(ctx context.Context, p *model.PaymentRecord) error
}

// SQLStore is the MySQL-backed Store.  Transactions run at READ COMMITTED
// so that the overlap count, taken after the vehicle lock, always sees
// bookings committed by the previous lock holder.
type SQLStore struct {
	db       *sql.DB
	vehicles *repository.VehicleRepo
	bookings *repository.BookingRepo
	wallets  *repository.WalletRepo
	payments *repository.PaymentRepo
}

// NewSQLStore wires the repositories that take part in booking operations.
func NewSQLStore(db *sql.DB, vehicles *repository.VehicleRepo, bookings *repository.BookingRepo,
	wallets *repository.WalletRepo, payments *repository.PaymentRepo) *SQLStore {
	if db == nil || vehicles == nil || bookings == nil || wallets == nil || payments == nil {
		panic("nil dependency passed to NewSQLStore")
	}
	return &SQLStore{db: db, vehicles: vehicles, bookings: bookings, wallets: wallets, payments: payments}
}

// InTx implements Store.
func (s *SQLStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(ctx, &sqlTx{tx: tx, s: s}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		if repository.IsLockConflict(err) {
			return fmt.Errorf("%w: %v", repository.ErrLockConflict, err)
		}
		return err
	}
	committed = true
	return nil
}

type sqlTx struct {
	tx *sql.Tx
	s  *SQLStore
}

func (t *sqlTx) LockVehicle(ctx context.Context, id uint64) (*model.Vehicle, error) {
	return t.s.vehicles.GetByIDForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.s.bookings.GetByIDTx(ctx, t.tx, id)
}

func (t *sqlTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.s.bookings.GetByIDForUpdateTx(ctx, t.tx, id)
}

func (t *sqlTx) CountOverlapping(ctx context.Context, vehicleID uint64, start, end time.Time, excludeBookingID uint64) (int, error) {
	return t.s.bookings.CountOverlappingTx(ctx, t.tx, vehicleID, start, end, excludeBookingID)
}

func (t *sqlTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.CreateTx(ctx, t.tx, b)
}

func (t *sqlTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	return t.s.bookings.UpdateDatesTx(ctx, t.tx, b)
}

func (t *sqlTx) CancelBooking(ctx context.Context, id uint64, at time.Time) error {
	return t.s.bookings.CancelTx(ctx, t.tx, id, at)
}

func (t *sqlTx) EnsureWallet(ctx context.Context, userID uint64, opening decimal.Decimal) error {
	return t.s.wallets.EnsureTx(ctx, t.tx, userID, opening)
}

func (t *sqlTx) LockWallet(ctx context.Context, userID uint64) (*model.Wallet, error) {
	return t.s.wallets.GetForUpdateTx(ctx, t.tx, userID)
}

func (t *sqlTx) DebitWallet(ctx context.Context, walletID uint64, amount decimal.Decimal) (bool, error) {
	return t.s.wallets.DebitTx(ctx, t.tx, walletID, amount)
}

func (t *sqlTx) CreditWallet(ctx context.Context, walletID uint64, amount decimal.Decimal) error {
	return t.s.wallets.CreditTx(ctx, t.tx, walletID, amount)
}

func (t *sqlTx) InsertPayment(ctx context.Context, p *model.PaymentRecord) error {
	return t.s.payments.CreateTx(ctx, t.tx, p)
}
