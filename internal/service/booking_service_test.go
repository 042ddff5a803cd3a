package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanwtom/carmodel/internal/model"
	"github.com/alanwtom/carmodel/internal/queue"
	"github.com/alanwtom/carmodel/internal/repository"
)

var testNow = time.Date(2030, 1, 10, 12, 0, 0, 0, time.UTC)

// day returns today (per testNow) plus n days.
func day(n int) time.Time {
	return DateOnly(testNow).AddDate(0, 0, n)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) all() []queue.BookingEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.BookingEvent(nil), p.events...)
}

type fixture struct {
	store    *memStore
	mgr      *Manager
	payments *PaymentLog
	events   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	store.addVehicle(1, 50, true)
	store.addVehicle(2, 80, false)
	store.addVehicle(3, 200, true)
	events := &recordingPublisher{}
	payments := NewPaymentLog(store)
	mgr := NewManager(store, NewLedger(DefaultOpeningBalance), payments, events,
		ManagerConfig{MaxAttempts: 3, RetryBackoff: time.Millisecond})
	mgr.now = func() time.Time { return testNow }
	return &fixture{store: store, mgr: mgr, payments: payments, events: events}
}

func (f *fixture) balance(t *testing.T, userID uint64) decimal.Decimal {
	t.Helper()
	w, ok := f.store.wallet(userID)
	require.True(t, ok, "wallet for user %d", userID)
	return w.Balance
}

func (f *fixture) create(t *testing.T, userID, vehicleID uint64, from, to int) *model.Booking {
	t.Helper()
	res, err := f.mgr.Create(context.Background(), CreateInput{
		UserID: userID, VehicleID: vehicleID, Start: day(from), End: day(to),
	})
	require.NoError(t, err)
	return res.Booking
}

func TestCreateThenCancel_RestoresWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.mgr.Create(ctx, CreateInput{UserID: 7, VehicleID: 1, Start: day(1), End: day(4), Method: model.MethodWallet})
	require.NoError(t, err)
	assert.True(t, res.Booking.TotalCost.Equal(dec("150")))
	assert.Equal(t, model.BookingActive, res.Booking.Status)
	assert.Equal(t, model.MethodWallet, res.Booking.PaymentMethod)
	require.NotNil(t, res.Payment)
	assert.True(t, res.Payment.Amount.Equal(dec("150")))
	assert.Equal(t, model.MethodWallet, res.Payment.Method)
	assert.Equal(t, model.PaymentSucceeded, res.Payment.Status)
	assert.NotEmpty(t, res.Payment.Reference)
	assert.True(t, res.Wallet.Balance.Equal(dec("350")))
	assert.True(t, f.balance(t, 7).Equal(dec("350")))

	res, err = f.mgr.Cancel(ctx, CancelInput{UserID: 7, BookingID: res.Booking.ID})
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, res.Booking.Status)
	require.NotNil(t, res.Booking.CancelledAt)
	assert.True(t, res.Payment.Amount.Equal(dec("-150")))
	assert.Equal(t, model.MethodWalletRefund, res.Payment.Method)
	assert.True(t, f.balance(t, 7).Equal(dec("500")))

	stored := f.store.booking(res.Booking.ID)
	assert.Equal(t, model.BookingCancelled, stored.Status)

	history, err := f.payments.History(ctx, 7)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Amount.Equal(dec("-150")), "newest first")
	assert.True(t, history[1].Amount.Equal(dec("150")))

	net, err := f.payments.NetSpend(ctx, 7)
	require.NoError(t, err)
	assert.True(t, net.IsZero())
}

func TestCreate_DefaultsToWalletMethod(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, 7, 1, 0, 2)
	assert.Equal(t, model.MethodWallet, b.PaymentMethod)
	assert.Equal(t, day(0), b.StartDate, "start today is allowed")
}

func TestCreate_TruncatesToDates(t *testing.T) {
	f := newFixture(t)
	res, err := f.mgr.Create(context.Background(), CreateInput{
		UserID: 7, VehicleID: 1, Start: day(1).Add(15 * time.Hour), End: day(3).Add(2 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, day(1), res.Booking.StartDate)
	assert.Equal(t, day(3), res.Booking.EndDate)
	assert.True(t, res.Booking.TotalCost.Equal(dec("100")))
}

func TestCreate_InsufficientFundsIsAtomic(t *testing.T) {
	f := newFixture(t)

	// 3 days at 200 = 600 > 500
	_, err := f.mgr.Create(context.Background(), CreateInput{UserID: 7, VehicleID: 3, Start: day(1), End: day(4)})
	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, KindInsufficientFunds, KindOf(err))

	assert.Empty(t, f.store.allBookings())
	assert.Zero(t, f.store.paymentCount())
	_, ok := f.store.wallet(7)
	assert.False(t, ok, "wallet creation rolled back with the failed booking")
	assert.Empty(t, f.events.all())

	// the exact balance is affordable
	b := f.create(t, 7, 1, 1, 11)
	assert.True(t, b.TotalCost.Equal(dec("500")))
	assert.True(t, f.balance(t, 7).IsZero())
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
		want error
		kind Kind
	}{
		{"end equals start", CreateInput{UserID: 7, VehicleID: 1, Start: day(2), End: day(2)}, ErrInvalidDateRange, KindInvalidDateRange},
		{"end before start", CreateInput{UserID: 7, VehicleID: 1, Start: day(4), End: day(2)}, ErrInvalidDateRange, KindInvalidDateRange},
		{"start in the past", CreateInput{UserID: 7, VehicleID: 1, Start: day(-1), End: day(2)}, ErrPastStartDate, KindPastStartDate},
		{"unsupported method", CreateInput{UserID: 7, VehicleID: 1, Start: day(1), End: day(2), Method: "card"}, ErrUnsupportedMethod, KindValidation},
		{"vehicle not bookable", CreateInput{UserID: 7, VehicleID: 2, Start: day(1), End: day(2)}, ErrVehicleUnavailable, KindVehicleUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.mgr.Create(ctx, tc.in)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.kind, KindOf(err))
		})
	}

	_, err := f.mgr.Create(ctx, CreateInput{UserID: 7, VehicleID: 99, Start: day(1), End: day(2)})
	require.ErrorIs(t, err, repository.ErrVehicleNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.Empty(t, f.store.allBookings())
}

func TestCreate_OverlapIsInclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.create(t, 7, 1, 1, 4)

	for _, r := range [][2]int{{4, 6}, {0, 1}, {2, 3}, {0, 10}} {
		_, err := f.mgr.Create(ctx, CreateInput{UserID: 8, VehicleID: 1, Start: day(r[0]), End: day(r[1])})
		assert.ErrorIs(t, err, ErrVehicleUnavailable, "range %v", r)
	}

	f.create(t, 8, 1, 5, 7)
	// a different vehicle is unaffected
	f.create(t, 8, 3, 1, 2)
}

func TestCreate_ConcurrentSameRange(t *testing.T) {
	f := newFixture(t)
	const n = 10

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := f.mgr.Create(context.Background(), CreateInput{UserID: user, VehicleID: 1, Start: day(1), End: day(3)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrVehicleUnavailable):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(100 + i))
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, conflicts)
	assert.Len(t, f.store.allBookings(), 1)
}

func TestCreate_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	for id := uint64(10); id < 15; id++ {
		f.store.addVehicle(id, 100, true)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for id := uint64(10); id < 15; id++ {
		wg.Add(1)
		go func(vehicleID uint64) {
			defer wg.Done()
			// 2 days at 100
			_, err := f.mgr.Create(context.Background(), CreateInput{UserID: 7, VehicleID: vehicleID, Start: day(1), End: day(3)})
			if err != nil && !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("unexpected error: %v", err)
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 2, successes)
	assert.True(t, f.balance(t, 7).Equal(dec("100")))
}

func TestModify_SettlesDifference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 4) // 150
	require.True(t, f.balance(t, 7).Equal(dec("350")))

	// extend to 5 days: charge 100 more
	res, err := f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(1), End: day(6)})
	require.NoError(t, err)
	assert.True(t, res.Booking.TotalCost.Equal(dec("250")))
	require.NotNil(t, res.Payment)
	assert.True(t, res.Payment.Amount.Equal(dec("100")))
	assert.Equal(t, model.MethodWallet, res.Payment.Method)
	assert.True(t, f.balance(t, 7).Equal(dec("250")))

	// shrink to 2 days: refund 150
	res, err = f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(2), End: day(4)})
	require.NoError(t, err)
	assert.True(t, res.Booking.TotalCost.Equal(dec("100")))
	require.NotNil(t, res.Payment)
	assert.True(t, res.Payment.Amount.Equal(dec("-150")))
	assert.Equal(t, model.MethodWalletRefund, res.Payment.Method)
	assert.True(t, f.balance(t, 7).Equal(dec("400")))

	// same length, shifted: no money moves
	before := f.store.paymentCount()
	res, err = f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(5), End: day(7)})
	require.NoError(t, err)
	assert.Nil(t, res.Payment)
	assert.Equal(t, before, f.store.paymentCount())
	assert.True(t, f.balance(t, 7).Equal(dec("400")))

	stored := f.store.booking(b.ID)
	assert.Equal(t, day(5), stored.StartDate)
	assert.Equal(t, day(7), stored.EndDate)
	assert.True(t, stored.TotalCost.Equal(dec("100")))
}

func TestModify_ExcludesItselfFromOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 4)
	f.create(t, 8, 1, 6, 8)

	_, err := f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(2), End: day(5)})
	require.NoError(t, err)

	_, err = f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(2), End: day(6)})
	require.ErrorIs(t, err, ErrVehicleUnavailable)
	assert.Equal(t, day(5), f.store.booking(b.ID).EndDate, "failed modify leaves the booking unchanged")
}

func TestModify_InsufficientFundsLeavesBookingUnchanged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 9) // 400, balance 100

	_, err := f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(1), End: day(12)})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	stored := f.store.booking(b.ID)
	assert.Equal(t, day(9), stored.EndDate)
	assert.True(t, stored.TotalCost.Equal(dec("400")))
	assert.True(t, f.balance(t, 7).Equal(dec("100")))
	assert.Equal(t, 1, f.store.paymentCount())
}

func TestModify_Authorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 4)

	_, err := f.mgr.Modify(ctx, ModifyInput{UserID: 8, BookingID: b.ID, Start: day(1), End: day(5)})
	require.ErrorIs(t, err, repository.ErrForbidden)
	assert.Equal(t, KindForbidden, KindOf(err))

	// an administrator acting through the customer path settles with the owner
	res, err := f.mgr.Modify(ctx, ModifyInput{UserID: 1, ActorIsAdmin: true, BookingID: b.ID, Start: day(1), End: day(5)})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.Payment.UserID)
	assert.True(t, f.balance(t, 7).Equal(dec("300")))
	_, ok := f.store.wallet(1)
	assert.False(t, ok)
}

func TestModify_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 4)

	_, err := f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(3), End: day(3)})
	assert.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(-2), End: day(3)})
	assert.ErrorIs(t, err, ErrPastStartDate)

	_, err = f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: 999, Start: day(1), End: day(3)})
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestModify_RentalUnderWayCanMoveItsEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 4) // 150 charged
	start := b.StartDate

	// three days later the rental started two days ago
	f.mgr.now = func() time.Time { return testNow.AddDate(0, 0, 3) }

	res, err := f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: start, End: day(6)})
	require.NoError(t, err)
	assert.True(t, res.Booking.StartDate.Equal(start))
	assert.True(t, res.Booking.TotalCost.Equal(dec("250")))
	assert.True(t, res.Payment.Amount.Equal(dec("100")))
	assert.True(t, f.balance(t, 7).Equal(dec("250")))

	// moving the start to another past day is still refused
	_, err = f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(2), End: day(6)})
	assert.ErrorIs(t, err, ErrPastStartDate)

	// ending the rental before today would refund days already driven
	_, err = f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: start, End: day(2)})
	assert.ErrorIs(t, err, ErrPastEndDate)
	assert.Equal(t, KindPastEndDate, KindOf(err))

	assert.True(t, f.store.booking(b.ID).EndDate.Equal(day(6)))
}

func TestReconcile_UsesEachWalletsOpeningBalance(t *testing.T) {
	f := newFixture(t)
	f.create(t, 7, 1, 1, 4)

	// the default credit changes between two sign-ups
	f.mgr.ledger = NewLedger(dec("250"))
	f.create(t, 8, 1, 5, 6)
	assert.True(t, f.balance(t, 8).Equal(dec("200")))

	mismatches, err := Reconcile(context.Background(), f.store, f.store)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func TestCancel_TerminalState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 4)

	_, err := f.mgr.Cancel(ctx, CancelInput{UserID: 8, BookingID: b.ID})
	require.ErrorIs(t, err, repository.ErrForbidden)

	_, err = f.mgr.Cancel(ctx, CancelInput{UserID: 7, BookingID: b.ID})
	require.NoError(t, err)

	_, err = f.mgr.Cancel(ctx, CancelInput{UserID: 7, BookingID: b.ID})
	require.ErrorIs(t, err, ErrBookingCancelled)
	assert.Equal(t, KindBookingCancelled, KindOf(err))

	_, err = f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(1), End: day(3)})
	require.ErrorIs(t, err, ErrBookingCancelled)

	_, err = f.mgr.AdminCancel(ctx, b.ID)
	require.ErrorIs(t, err, ErrBookingCancelled)

	assert.True(t, f.balance(t, 7).Equal(dec("500")), "refunded exactly once")
	assert.Equal(t, 2, f.store.paymentCount())

	// the dates are free again
	f.create(t, 8, 1, 1, 4)
}

func TestCancel_ByAdminRefundsOwner(t *testing.T) {
	f := newFixture(t)
	b := f.create(t, 7, 1, 1, 4)

	res, err := f.mgr.Cancel(context.Background(), CancelInput{UserID: 1, ActorIsAdmin: true, BookingID: b.ID})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), res.Wallet.UserID)
	assert.True(t, f.balance(t, 7).Equal(dec("500")))
}

func TestAdminModify_NoMoneyMoves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 4) // 150
	other := f.create(t, 8, 1, 10, 12)

	// past start dates are accepted on the administrative path
	res, err := f.mgr.AdminModify(ctx, AdminModifyInput{BookingID: b.ID, Start: day(-2), End: day(3)})
	require.NoError(t, err)
	assert.Nil(t, res.Payment)
	assert.Nil(t, res.Wallet)
	assert.True(t, res.Booking.TotalCost.Equal(dec("250")))
	assert.True(t, f.balance(t, 7).Equal(dec("350")))
	assert.Equal(t, 2, f.store.paymentCount())

	_, err = f.mgr.AdminModify(ctx, AdminModifyInput{BookingID: b.ID, Start: day(3), End: day(10)})
	require.ErrorIs(t, err, ErrVehicleUnavailable)

	_, err = f.mgr.AdminModify(ctx, AdminModifyInput{BookingID: b.ID, Start: day(3), End: day(3)})
	require.ErrorIs(t, err, ErrInvalidDateRange)

	_, err = f.mgr.AdminCancel(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, f.balance(t, 8).Equal(dec("400")), "administrative cancel does not refund")
	assert.Equal(t, 2, f.store.paymentCount())
	assert.Equal(t, model.BookingCancelled, f.store.booking(other.ID).Status)
}

func TestRun_RetriesLockConflicts(t *testing.T) {
	f := newFixture(t)

	f.store.failNext(2)
	_, err := f.mgr.Create(context.Background(), CreateInput{UserID: 7, VehicleID: 1, Start: day(1), End: day(2)})
	require.NoError(t, err)
	assert.Equal(t, 3, f.store.attempts)

	f.store.failNext(3)
	_, err = f.mgr.Create(context.Background(), CreateInput{UserID: 7, VehicleID: 1, Start: day(5), End: day(6)})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindUnavailable, KindOf(err))
	assert.Len(t, f.store.allBookings(), 1)
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	f := newFixture(t)
	f.mgr.backoff = time.Hour
	f.store.failNext(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.mgr.Create(ctx, CreateInput{UserID: 7, VehicleID: 1, Start: day(1), End: day(2)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.create(t, 7, 1, 1, 4)
	_, err := f.mgr.Modify(ctx, ModifyInput{UserID: 7, BookingID: b.ID, Start: day(1), End: day(2)})
	require.NoError(t, err)
	_, err = f.mgr.AdminCancel(ctx, b.ID)
	require.NoError(t, err)

	_, err = f.mgr.Create(ctx, CreateInput{UserID: 7, VehicleID: 1, Start: day(2), End: day(1)})
	require.Error(t, err)

	evs := f.events.all()
	require.Len(t, evs, 3)

	assert.Equal(t, queue.EventBookingCreated, evs[0].Type)
	assert.Equal(t, "150.00", evs[0].Amount)
	assert.Equal(t, "customer", evs[0].Actor)
	assert.Equal(t, day(1).Format(DateLayout), evs[0].StartDate)
	assert.NotEmpty(t, evs[0].EventID)

	assert.Equal(t, queue.EventBookingModified, evs[1].Type)
	assert.Equal(t, "-100.00", evs[1].Amount)
	assert.Equal(t, "50.00", evs[1].TotalCost)

	assert.Equal(t, queue.EventBookingCancelled, evs[2].Type)
	assert.Equal(t, "admin", evs[2].Actor)
	assert.Equal(t, "0.00", evs[2].Amount)
}

func TestEvents_PublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	b := f.create(t, 7, 1, 1, 2)
	assert.Equal(t, model.BookingActive, f.store.booking(b.ID).Status)
}

func TestEnsureWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w1, err := f.mgr.EnsureWallet(ctx, 7)
	require.NoError(t, err)
	assert.True(t, w1.Balance.Equal(DefaultOpeningBalance))

	f.create(t, 7, 1, 1, 2)

	w2, err := f.mgr.EnsureWallet(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, w1.ID, w2.ID)
	assert.True(t, w2.Balance.Equal(dec("450")))
}

func TestLedger_RejectsNegativeAmounts(t *testing.T) {
	store := newMemStore()
	l := NewLedger(DefaultOpeningBalance)
	err := store.InTx(context.Background(), func(ctx context.Context, tx Tx) error {
		w, err := l.GetOrCreate(ctx, tx, 7)
		require.NoError(t, err)
		assert.ErrorIs(t, l.Debit(ctx, tx, w, dec("-1")), ErrNegativeAmount)
		assert.ErrorIs(t, l.Credit(ctx, tx, w, dec("-1")), ErrNegativeAmount)
		assert.ErrorIs(t, l.Debit(ctx, tx, w, dec("500.01")), ErrInsufficientFunds)
		assert.True(t, w.Balance.Equal(dec("500")))
		return nil
	})
	require.NoError(t, err)
}

func TestReconcile_FindsTamperedWallet(t *testing.T) {
	f := newFixture(t)
	f.create(t, 7, 1, 1, 4)
	f.create(t, 8, 1, 5, 6)

	mismatches, err := Reconcile(context.Background(), f.store, f.store)
	require.NoError(t, err)
	assert.Empty(t, mismatches)

	f.store.mu.Lock()
	w := f.store.wallets[8]
	w.Balance = w.Balance.Add(dec("10"))
	f.store.wallets[8] = w
	f.store.mu.Unlock()

	mismatches, err = Reconcile(context.Background(), f.store, f.store)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, uint64(8), mismatches[0].UserID)
	assert.True(t, mismatches[0].Expected.Equal(dec("450")))
	assert.True(t, mismatches[0].Balance.Equal(dec("460")))
}

// TestRandomOperations drives random lifecycle calls and checks after every
// step that no vehicle is double booked, no wallet is negative, and every
// wallet agrees with the payment log.
func TestRandomOperations(t *testing.T) {
	f := newFixture(t)
	f.store.addVehicle(4, 35, true)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))
	users := []uint64{7, 8, 9}
	vehicles := []uint64{1, 3, 4}

	var ids []uint64
	for step := 0; step < 400; step++ {
		user := users[rng.Intn(len(users))]
		from := rng.Intn(30) - 2
		to := from + rng.Intn(6)

		var err error
		switch op := rng.Intn(10); {
		case op < 5 || len(ids) == 0:
			var res *Result
			res, err = f.mgr.Create(ctx, CreateInput{UserID: user, VehicleID: vehicles[rng.Intn(len(vehicles))], Start: day(from), End: day(to)})
			if err == nil {
				ids = append(ids, res.Booking.ID)
			}
		case op < 7:
			_, err = f.mgr.Modify(ctx, ModifyInput{UserID: user, BookingID: ids[rng.Intn(len(ids))], Start: day(from), End: day(to)})
		case op < 9:
			_, err = f.mgr.Cancel(ctx, CancelInput{UserID: user, BookingID: ids[rng.Intn(len(ids))]})
		default:
			_, err = f.mgr.AdminCancel(ctx, ids[rng.Intn(len(ids))])
		}
		if err != nil {
			require.NotEqual(t, Kind(""), KindOf(err), "step %d: unclassified error %v", step, err)
		}

		assertNoOverlap(t, f.store.allBookings())
		wallets, _ := f.store.ListAll(ctx)
		for _, w := range wallets {
			require.False(t, w.Balance.IsNegative(), "step %d: wallet %d negative", step, w.UserID)
		}
	}

	// administrative cancels keep the money, so only customer paths are
	// checked against the log
	adminless := newFixture(t)
	for step := 0; step < 200; step++ {
		user := users[rng.Intn(len(users))]
		from := rng.Intn(20)
		to := from + 1 + rng.Intn(5)
		res, err := adminless.mgr.Create(ctx, CreateInput{UserID: user, VehicleID: 1, Start: day(from), End: day(to)})
		if err == nil && rng.Intn(2) == 0 {
			_, err = adminless.mgr.Cancel(ctx, CancelInput{UserID: user, BookingID: res.Booking.ID})
			require.NoError(t, err)
		}
	}
	mismatches, err := Reconcile(ctx, adminless.store, adminless.store)
	require.NoError(t, err)
	assert.Empty(t, mismatches)
}

func assertNoOverlap(t *testing.T, bookings []model.Booking) {
	t.Helper()
	for i, a := range bookings {
		if !a.Active() {
			continue
		}
		for _, b := range bookings[i+1:] {
			if !b.Active() || a.VehicleID != b.VehicleID {
				continue
			}
			overlap := !a.EndDate.Before(b.StartDate) && !a.StartDate.After(b.EndDate)
			require.False(t, overlap, "bookings %d and %d overlap on vehicle %d", a.ID, b.ID, a.VehicleID)
		}
	}
}
