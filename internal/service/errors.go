package service

import (
	"errors"

	"github.com/alanwtom/carmodel/internal/repository"
)

// Kind tags a booking failure so the request layer can render it without
// matching on messages.
type Kind string

const (
	KindInvalidDateRange   Kind = "invalid_date_range"
	KindPastStartDate      Kind = "past_start_date"
	KindPastEndDate        Kind = "past_end_date"
	KindVehicleUnavailable Kind = "vehicle_unavailable"
	KindInsufficientFunds  Kind = "insufficient_funds"
	KindNotFound           Kind = "not_found"
	KindForbidden          Kind = "forbidden"
	KindBookingCancelled   Kind = "booking_cancelled"
	KindValidation         Kind = "validation"
	KindUnavailable        Kind = "unavailable"
)

// Error is a tagged, user-presentable failure.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Kind() Kind    { return e.kind }

var (
	ErrInvalidDateRange   = &Error{KindInvalidDateRange, "end date must be after start date"}
	ErrPastStartDate      = &Error{KindPastStartDate, "start date cannot be in the past"}
	ErrPastEndDate        = &Error{KindPastEndDate, "end date cannot be in the past"}
	ErrVehicleUnavailable = &Error{KindVehicleUnavailable, "vehicle is not available for the selected dates"}
	ErrInsufficientFunds  = &Error{KindInsufficientFunds, "insufficient wallet balance"}
	ErrBookingCancelled   = &Error{KindBookingCancelled, "booking has been cancelled"}
	ErrUnsupportedMethod  = &Error{KindValidation, "unsupported payment method"}
	ErrNegativeAmount     = &Error{KindValidation, "amount must not be negative"}
	ErrUnavailable        = &Error{KindUnavailable, "booking service is busy, please retry"}
)

// KindOf classifies err.  Repository sentinels are folded into the matching
// kinds; anything unrecognised yields "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return KindNotFound
	case errors.Is(err, repository.ErrForbidden):
		return KindForbidden
	case errors.Is(err, repository.ErrLockConflict):
		return KindUnavailable
	}
	return ""
}
