// Package queue defines message payloads exchanged over the message broker.
package queue

// Booking lifecycle event types.
const (
	EventBookingCreated   = "booking.created"
	EventBookingModified  = "booking.modified"
	EventBookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking lifecycle change commits.  It
// carries enough information for downstream consumers to log, notify, or
// feed analytics without querying the primary database.  Money fields are
// decimal strings; Amount is the signed wallet movement of this change
// ("0" when none, e.g. administrative overrides).
type BookingEvent struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	BookingID  uint64 `json:"booking_id"`
	UserID     uint64 `json:"user_id"`
	VehicleID  uint64 `json:"vehicle_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	TotalCost  string `json:"total_cost"`
	Amount     string `json:"amount"`
	Actor      string `json:"actor"` // customer | admin
	OccurredAt string `json:"occurred_at"`
}
