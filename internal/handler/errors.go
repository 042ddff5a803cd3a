package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/repository"
	"github.com/alanwtom/carmodel/internal/service"
)

// retryAfterSeconds is advertised with 503 responses.
const retryAfterSeconds = 1

var kindStatus = map[service.Kind]int{
	service.KindInvalidDateRange:   http.StatusBadRequest,
	service.KindPastStartDate:      http.StatusBadRequest,
	service.KindPastEndDate:        http.StatusBadRequest,
	service.KindValidation:         http.StatusBadRequest,
	service.KindInsufficientFunds:  http.StatusPaymentRequired,
	service.KindForbidden:          http.StatusForbidden,
	service.KindNotFound:           http.StatusNotFound,
	service.KindVehicleUnavailable: http.StatusConflict,
	service.KindBookingCancelled:   http.StatusConflict,
	service.KindUnavailable:        http.StatusServiceUnavailable,
}

// writeError renders err as JSON.  Booking failures carry their kind in
// "code"; anything unrecognised is logged and answered with a bare 500.
func writeError(c echo.Context, err error) error {
	if kind := service.KindOf(err); kind != "" {
		status := kindStatus[kind]
		msg := err.Error()
		var se *service.Error
		if errors.As(err, &se) {
			msg = se.Error()
		}
		switch kind {
		case service.KindNotFound:
			msg = notFoundMessage(err)
		case service.KindForbidden:
			msg = "forbidden"
		case service.KindUnavailable:
			msg = service.ErrUnavailable.Error()
			c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
		}
		return c.JSON(status, echo.Map{"error": msg, "code": string(kind)})
	}
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "resource still has active bookings"})
	}
	log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, repository.ErrVehicleNotFound):
		return "vehicle not found"
	case errors.Is(err, repository.ErrBookingNotFound):
		return "booking not found"
	case errors.Is(err, repository.ErrUserNotFound):
		return "user not found"
	case errors.Is(err, repository.ErrImageNotFound):
		return "image not found"
	case errors.Is(err, repository.ErrWalletNotFound):
		return "wallet not found"
	}
	return "not found"
}
