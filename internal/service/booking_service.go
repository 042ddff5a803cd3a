package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/model"
	"github.com/alanwtom/carmodel/internal/queue"
	"github.com/alanwtom/carmodel/internal/repository"
)

// EventPublisher receives lifecycle events after their unit of work commits.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// ManagerConfig tunes retry behaviour for lock conflicts.
type ManagerConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// Manager is the booking lifecycle manager.  Customer operations move money
// through the wallet ledger and the payment log; the Admin* operations are a
// separate capability that edits bookings without touching either.
type Manager struct {
	store    Store
	ledger   *Ledger
	payments *PaymentLog
	events   EventPublisher

	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

// NewManager builds a Manager.  events may be nil.
func NewManager(store Store, ledger *Ledger, payments *PaymentLog, events EventPublisher, cfg ManagerConfig) *Manager {
	if store == nil || ledger == nil || payments == nil {
		panic("nil dependency passed to NewManager")
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 50 * time.Millisecond
	}
	return &Manager{
		store:       store,
		ledger:      ledger,
		payments:    payments,
		events:      events,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.RetryBackoff,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Result is the outcome of a lifecycle operation.  Payment is nil when no
// money moved; Wallet is the renter's wallet after the operation and nil for
// administrative overrides.
type Result struct {
	Booking *model.Booking
	Payment *model.PaymentRecord
	Wallet  *model.Wallet
}

// CreateInput is a new booking request on behalf of UserID.
type CreateInput struct {
	UserID    uint64
	VehicleID uint64
	Start     time.Time
	End       time.Time
	Method    string
}

// ModifyInput changes the dates of a booking.  ActorIsAdmin lets an
// administrator act on someone else's booking through the customer path,
// in which case the owner's wallet settles the difference.
type ModifyInput struct {
	UserID       uint64
	ActorIsAdmin bool
	BookingID    uint64
	Start        time.Time
	End          time.Time
	Method       string
}

// CancelInput cancels a booking with a full refund.
type CancelInput struct {
	UserID       uint64
	ActorIsAdmin bool
	BookingID    uint64
}

// AdminModifyInput re-dates a booking without any money movement.
type AdminModifyInput struct {
	BookingID uint64
	Start     time.Time
	End       time.Time
}

func checkMethod(method string) error {
	if method == "" || method == model.MethodWallet {
		return nil
	}
	return ErrUnsupportedMethod
}

func (m *Manager) validateRange(start, end time.Time, allowPast bool) error {
	if !start.Before(end) {
		return ErrInvalidDateRange
	}
	if !allowPast && start.Before(DateOnly(m.now())) {
		return ErrPastStartDate
	}
	return nil
}

// EnsureWallet returns the user's wallet, creating it with the opening
// balance when missing.
func (m *Manager) EnsureWallet(ctx context.Context, userID uint64) (*model.Wallet, error) {
	var w *model.Wallet
	err := m.run(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		w, err = m.ledger.GetOrCreate(ctx, tx, userID)
		return err
	})
	return w, err
}

// Create books a vehicle and charges the renter's wallet in one unit of work.
func (m *Manager) Create(ctx context.Context, in CreateInput) (*Result, error) {
	start, end := DateOnly(in.Start), DateOnly(in.End)
	if err := m.validateRange(start, end, false); err != nil {
		return nil, err
	}
	if err := checkMethod(in.Method); err != nil {
		return nil, err
	}

	var res *Result
	err := m.run(ctx, func(ctx context.Context, tx Tx) error {
		v, err := tx.LockVehicle(ctx, in.VehicleID)
		if err != nil {
			return err
		}
		if !v.IsAvailable {
			return ErrVehicleUnavailable
		}
		ok, err := IsAvailable(ctx, tx, v.ID, start, end, 0)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVehicleUnavailable
		}
		cost, err := Price(start, end, v.DailyRate)
		if err != nil {
			return err
		}
		w, err := m.ledger.GetOrCreate(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if err := m.ledger.Debit(ctx, tx, w, cost); err != nil {
			return err
		}
		b := &model.Booking{
			UserID:        in.UserID,
			VehicleID:     v.ID,
			StartDate:     start,
			EndDate:       end,
			TotalCost:     cost,
			PaymentMethod: model.MethodWallet,
			Status:        model.BookingActive,
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return err
		}
		p, err := m.payments.Append(ctx, tx, b.ID, in.UserID, cost, model.MethodWallet, model.PaymentSucceeded)
		if err != nil {
			return err
		}
		res = &Result{Booking: b, Payment: p, Wallet: w}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publish(ctx, queue.EventBookingCreated, "customer", res)
	return res, nil
}

// lockForUpdate takes the vehicle then the booking row lock, in that order.
func lockForUpdate(ctx context.Context, tx Tx, bookingID uint64) (*model.Vehicle, *model.Booking, error) {
	cur, err := tx.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	v, err := tx.LockVehicle(ctx, cur.VehicleID)
	if err != nil {
		return nil, nil, err
	}
	b, err := tx.LockBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	if !b.Active() {
		return nil, nil, ErrBookingCancelled
	}
	return v, b, nil
}

// Modify re-dates a booking and settles the price difference with the
// owner's wallet: a higher price is debited, a lower one refunded.  A rental
// already under way keeps its past start date and may only move its end.
func (m *Manager) Modify(ctx context.Context, in ModifyInput) (*Result, error) {
	start, end := DateOnly(in.Start), DateOnly(in.End)
	if err := m.validateRange(start, end, true); err != nil {
		return nil, err
	}
	if err := checkMethod(in.Method); err != nil {
		return nil, err
	}

	var res *Result
	err := m.run(ctx, func(ctx context.Context, tx Tx) error {
		v, b, err := lockForUpdate(ctx, tx, in.BookingID)
		if err != nil {
			return err
		}
		if b.UserID != in.UserID && !in.ActorIsAdmin {
			return repository.ErrForbidden
		}
		today := DateOnly(m.now())
		if start.Before(today) {
			if !start.Equal(b.StartDate) {
				return ErrPastStartDate
			}
			if end.Before(today) {
				return ErrPastEndDate
			}
		}
		ok, err := IsAvailable(ctx, tx, v.ID, start, end, b.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVehicleUnavailable
		}
		total, err := Price(start, end, v.DailyRate)
		if err != nil {
			return err
		}
		w, err := m.ledger.GetOrCreate(ctx, tx, b.UserID)
		if err != nil {
			return err
		}
		var p *model.PaymentRecord
		delta := total.Sub(b.TotalCost)
		switch delta.Sign() {
		case 1:
			if err := m.ledger.Debit(ctx, tx, w, delta); err != nil {
				return err
			}
			if p, err = m.payments.Append(ctx, tx, b.ID, b.UserID, delta, model.MethodWallet, model.PaymentSucceeded); err != nil {
				return err
			}
		case -1:
			if err := m.ledger.Credit(ctx, tx, w, delta.Neg()); err != nil {
				return err
			}
			if p, err = m.payments.Append(ctx, tx, b.ID, b.UserID, delta, model.MethodWalletRefund, model.PaymentSucceeded); err != nil {
				return err
			}
		}
		b.StartDate, b.EndDate, b.TotalCost = start, end, total
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		res = &Result{Booking: b, Payment: p, Wallet: w}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publish(ctx, queue.EventBookingModified, "customer", res)
	return res, nil
}

// Cancel refunds the full booking cost to the owner's wallet and moves the
// booking to the terminal cancelled state.
func (m *Manager) Cancel(ctx context.Context, in CancelInput) (*Result, error) {
	var res *Result
	err := m.run(ctx, func(ctx context.Context, tx Tx) error {
		_, b, err := lockForUpdate(ctx, tx, in.BookingID)
		if err != nil {
			return err
		}
		if b.UserID != in.UserID && !in.ActorIsAdmin {
			return repository.ErrForbidden
		}
		w, err := m.ledger.GetOrCreate(ctx, tx, b.UserID)
		if err != nil {
			return err
		}
		if err := m.ledger.Credit(ctx, tx, w, b.TotalCost); err != nil {
			return err
		}
		p, err := m.payments.Append(ctx, tx, b.ID, b.UserID, b.TotalCost.Neg(), model.MethodWalletRefund, model.PaymentSucceeded)
		if err != nil {
			return err
		}
		at := m.now()
		if err := tx.CancelBooking(ctx, b.ID, at); err != nil {
			return err
		}
		b.Status, b.CancelledAt = model.BookingCancelled, &at
		res = &Result{Booking: b, Payment: p, Wallet: w}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publish(ctx, queue.EventBookingCancelled, "customer", res)
	return res, nil
}

// AdminModify re-dates a booking and recomputes its cost at the vehicle's
// current rate.  Start dates in the past are accepted and no money moves.
func (m *Manager) AdminModify(ctx context.Context, in AdminModifyInput) (*Result, error) {
	start, end := DateOnly(in.Start), DateOnly(in.End)
	if err := m.validateRange(start, end, true); err != nil {
		return nil, err
	}

	var res *Result
	err := m.run(ctx, func(ctx context.Context, tx Tx) error {
		v, b, err := lockForUpdate(ctx, tx, in.BookingID)
		if err != nil {
			return err
		}
		ok, err := IsAvailable(ctx, tx, v.ID, start, end, b.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVehicleUnavailable
		}
		total, err := Price(start, end, v.DailyRate)
		if err != nil {
			return err
		}
		b.StartDate, b.EndDate, b.TotalCost = start, end, total
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return err
		}
		res = &Result{Booking: b}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publish(ctx, queue.EventBookingModified, "admin", res)
	return res, nil
}

// AdminCancel cancels a booking without refunding it.
func (m *Manager) AdminCancel(ctx context.Context, bookingID uint64) (*Result, error) {
	var res *Result
	err := m.run(ctx, func(ctx context.Context, tx Tx) error {
		_, b, err := lockForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		at := m.now()
		if err := tx.CancelBooking(ctx, b.ID, at); err != nil {
			return err
		}
		b.Status, b.CancelledAt = model.BookingCancelled, &at
		res = &Result{Booking: b}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.publish(ctx, queue.EventBookingCancelled, "admin", res)
	return res, nil
}

// run executes fn in a unit of work, retrying lock conflicts with a linear
// backoff.  Other failures are returned as-is on the first attempt.
func (m *Manager) run(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		err = m.store.InTx(ctx, fn)
		if err == nil || !repository.IsLockConflict(err) {
			return err
		}
		log.Printf("booking: lock conflict (attempt %d/%d): %v", attempt, m.maxAttempts, err)
		if attempt == m.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * m.backoff):
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func (m *Manager) publish(ctx context.Context, typ, actor string, res *Result) {
	if m.events == nil || res == nil || res.Booking == nil {
		return
	}
	b := res.Booking
	amount := decimal.Zero
	if res.Payment != nil {
		amount = res.Payment.Amount
	}
	ev := queue.BookingEvent{
		EventID:    uuid.NewString(),
		Type:       typ,
		BookingID:  b.ID,
		UserID:     b.UserID,
		VehicleID:  b.VehicleID,
		StartDate:  b.StartDate.Format(DateLayout),
		EndDate:    b.EndDate.Format(DateLayout),
		TotalCost:  b.TotalCost.StringFixed(2),
		Amount:     amount.StringFixed(2),
		Actor:      actor,
		OccurredAt: m.now().Format(time.RFC3339),
	}
	// the request context may already be cancelled once the response is written
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := m.events.Publish(pubCtx, ev); err != nil {
		log.Printf("booking: publish %s for booking %d failed: %v", typ, b.ID, err)
	}
}
