package router

import (
	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/handler"
	"github.com/alanwtom/carmodel/internal/model"
)

// RegisterCustomer registers the booking and wallet endpoints under /v1.
// Administrators may use them too; ownership is checked per booking.
// bookingLimit throttles the booking writes.
func RegisterCustomer(e *echo.Echo, b *handler.BookingHandler, w *handler.WalletHandler, guard Guard, bookingLimit echo.MiddlewareFunc) {
	g := e.Group("/v1", guard.chain(model.RoleCustomer, model.RoleAdmin)...)

	g.POST("/bookings", b.Create, bookingLimit)
	g.GET("/my-bookings", b.MyBookings)
	g.GET("/bookings/:id", b.GetBooking)
	g.PUT("/bookings/:id", b.Modify, bookingLimit)
	g.DELETE("/bookings/:id", b.Cancel, bookingLimit)

	g.GET("/wallet", w.GetWallet)
	g.GET("/wallet/payments", w.ListPayments)
}
