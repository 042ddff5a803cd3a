package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
	"github.com/alanwtom/carmodel/internal/repository"
)

// memStore is an in-memory Store.  One mutex is held for the whole unit of
// work, so units of work are serial, and a failed unit of work restores the
// state it started from.
type memStore struct {
	mu       sync.Mutex
	vehicles map[uint64]model.Vehicle
	bookings map[uint64]model.Booking
	wallets  map[uint64]model.Wallet // keyed by user
	payments []model.PaymentRecord
	nextID   uint64

	// failures makes the next n units of work fail with a lock conflict.
	failures int
	attempts int
}

func newMemStore() *memStore {
	return &memStore{
		vehicles: map[uint64]model.Vehicle{},
		bookings: map[uint64]model.Booking{},
		wallets:  map[uint64]model.Wallet{},
	}
}

func (s *memStore) addVehicle(id uint64, rate int64, available bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vehicles[id] = model.Vehicle{
		ID: id, Make: "Toyota", Model: "Corolla", Year: 2022,
		Category: model.CategorySedan, DailyRate: decimal.NewFromInt(rate), IsAvailable: available,
	}
}

func (s *memStore) failNext(n int) {
	s.mu.Lock()
	s.failures = n
	s.mu.Unlock()
}

func (s *memStore) wallet(userID uint64) (model.Wallet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[userID]
	return w, ok
}

func (s *memStore) booking(id uint64) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *memStore) allBookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *memStore) paymentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.payments)
}

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.failures > 0 {
		s.failures--
		return fmt.Errorf("%w: Error 1213: Deadlock found when trying to get lock", repository.ErrLockConflict)
	}

	vehicles := make(map[uint64]model.Vehicle, len(s.vehicles))
	for k, v := range s.vehicles {
		vehicles[k] = v
	}
	bookings := make(map[uint64]model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		bookings[k] = v
	}
	wallets := make(map[uint64]model.Wallet, len(s.wallets))
	for k, v := range s.wallets {
		wallets[k] = v
	}
	payments := append([]model.PaymentRecord(nil), s.payments...)
	nextID := s.nextID

	if err := fn(ctx, &memTx{s: s}); err != nil {
		s.vehicles, s.bookings, s.wallets, s.payments, s.nextID = vehicles, bookings, wallets, payments, nextID
		return err
	}
	return nil
}

// ListAll, SumPerUser, ListByUser and SumByUser serve the read side.

func (s *memStore) ListAll(ctx context.Context) ([]model.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Wallet, 0, len(s.wallets))
	for _, w := range s.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memStore) SumPerUser(ctx context.Context) (map[uint64]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uint64]decimal.Decimal{}
	for _, p := range s.payments {
		out[p.UserID] = out[p.UserID].Add(p.Amount)
	}
	return out, nil
}

func (s *memStore) ListByUser(ctx context.Context, userID uint64) ([]model.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PaymentRecord
	for i := len(s.payments) - 1; i >= 0; i-- {
		if s.payments[i].UserID == userID {
			out = append(out, s.payments[i])
		}
	}
	return out, nil
}

func (s *memStore) SumByUser(ctx context.Context, userID uint64) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for _, p := range s.payments {
		if p.UserID == userID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

type memTx struct {
	s *memStore
}

func (t *memTx) id() uint64 {
	t.s.nextID++
	return t.s.nextID
}

func (t *memTx) LockVehicle(ctx context.Context, id uint64) (*model.Vehicle, error) {
	v, ok := t.s.vehicles[id]
	if !ok {
		return nil, repository.ErrVehicleNotFound
	}
	return &v, nil
}

func (t *memTx) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	b, ok := t.s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	return &b, nil
}

func (t *memTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.GetBooking(ctx, id)
}

func (t *memTx) CountOverlapping(ctx context.Context, vehicleID uint64, start, end time.Time, excludeBookingID uint64) (int, error) {
	n := 0
	for _, b := range t.s.bookings {
		if b.VehicleID != vehicleID || !b.Active() || b.ID == excludeBookingID {
			continue
		}
		if !b.EndDate.Before(start) && !b.StartDate.After(end) {
			n++
		}
	}
	return n, nil
}

func (t *memTx) InsertBooking(ctx context.Context, b *model.Booking) error {
	b.ID = t.id()
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	t.s.bookings[b.ID] = *b
	return nil
}

func (t *memTx) UpdateBooking(ctx context.Context, b *model.Booking) error {
	cur, ok := t.s.bookings[b.ID]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if !cur.Active() {
		return repository.ErrConflict
	}
	cur.StartDate, cur.EndDate, cur.TotalCost = b.StartDate, b.EndDate, b.TotalCost
	t.s.bookings[b.ID] = cur
	return nil
}

func (t *memTx) CancelBooking(ctx context.Context, id uint64, at time.Time) error {
	cur, ok := t.s.bookings[id]
	if !ok {
		return repository.ErrBookingNotFound
	}
	if !cur.Active() {
		return repository.ErrConflict
	}
	cur.Status, cur.CancelledAt = model.BookingCancelled, &at
	t.s.bookings[id] = cur
	return nil
}

func (t *memTx) EnsureWallet(ctx context.Context, userID uint64, opening decimal.Decimal) error {
	if _, ok := t.s.wallets[userID]; !ok {
		t.s.wallets[userID] = model.Wallet{ID: t.id(), UserID: userID, Balance: opening, OpeningBalance: opening}
	}
	return nil
}

func (t *memTx) LockWallet(ctx context.Context, userID uint64) (*model.Wallet, error) {
	w, ok := t.s.wallets[userID]
	if !ok {
		return nil, repository.ErrWalletNotFound
	}
	return &w, nil
}

func (t *memTx) walletByID(id uint64) (model.Wallet, bool) {
	for _, w := range t.s.wallets {
		if w.ID == id {
			return w, true
		}
	}
	return model.Wallet{}, false
}

func (t *memTx) DebitWallet(ctx context.Context, walletID uint64, amount decimal.Decimal) (bool, error) {
	w, ok := t.walletByID(walletID)
	if !ok {
		return false, repository.ErrWalletNotFound
	}
	if w.Balance.LessThan(amount) {
		return false, nil
	}
	w.Balance = w.Balance.Sub(amount)
	t.s.wallets[w.UserID] = w
	return true, nil
}

func (t *memTx) CreditWallet(ctx context.Context, walletID uint64, amount decimal.Decimal) error {
	w, ok := t.walletByID(walletID)
	if !ok {
		return repository.ErrWalletNotFound
	}
	w.Balance = w.Balance.Add(amount)
	t.s.wallets[w.UserID] = w
	return nil
}

func (t *memTx) InsertPayment(ctx context.Context, p *model.PaymentRecord) error {
	p.ID = t.id()
	p.CreatedAt = time.Now().UTC()
	t.s.payments = append(t.s.payments, *p)
	return nil
}
