package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking statuses.  A cancelled booking is terminal and kept for audit.
const (
	BookingActive    = "active"
	BookingCancelled = "cancelled"
)

// Booking reserves one vehicle for an inclusive range of calendar days.
// StartDate and EndDate carry date-only values at UTC midnight.
//
// Fields:
//
//	ID            – primary key identifier.
//	UserID        – renter who owns the booking.
//	VehicleID     – vehicle being rented.
//	StartDate     – first rental day.
//	EndDate       – last rental day; always after StartDate.
//	TotalCost     – whole days x daily rate at the time of the last price.
//	PaymentMethod – how the booking was paid (wallet).
//	Status        – active or cancelled.
//	CreatedAt     – timestamp of creation.
//	UpdatedAt     – timestamp of last modification.
//	CancelledAt   – set when the booking was cancelled.
type Booking struct {
	ID            uint64          // bookings.id
	UserID        uint64          // bookings.user_id
	VehicleID     uint64          // bookings.vehicle_id
	StartDate     time.Time       // bookings.start_date
	EndDate       time.Time       // bookings.end_date
	TotalCost     decimal.Decimal // bookings.total_cost
	PaymentMethod string          // bookings.payment_method
	Status        string          // bookings.status
	CreatedAt     time.Time       // bookings.created_at
	UpdatedAt     time.Time       // bookings.updated_at
	CancelledAt   *time.Time      // bookings.cancelled_at (nullable)
}

// Active reports whether the booking still holds its dates.
func (b Booking) Active() bool { return b.Status == BookingActive }

// BookingDetail joins a booking with the vehicle and renter fields shown in
// listings and on the confirmation page.
type BookingDetail struct {
	Booking
	VehicleMake  string
	VehicleModel string
	VehicleYear  int
	UserName     string
	UserEmail    string
}
