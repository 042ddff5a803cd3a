package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/model"
	"github.com/alanwtom/carmodel/internal/service"
)

// AdminBookings is the administrative side of the lifecycle manager.  It
// never touches wallets or payment records.
type AdminBookings interface {
	AdminModify(ctx context.Context, in service.AdminModifyInput) (*service.Result, error)
	AdminCancel(ctx context.Context, bookingID uint64) (*service.Result, error)
}

// AdminBookingHandler serves booking oversight for administrators.
type AdminBookingHandler struct {
	Manager  AdminBookings
	Bookings BookingReader
}

func NewAdminBookingHandler(m AdminBookings, r BookingReader) *AdminBookingHandler {
	if m == nil || r == nil {
		panic("nil dependency passed to NewAdminBookingHandler")
	}
	return &AdminBookingHandler{Manager: m, Bookings: r}
}

// List GET /v1/admin/bookings?status=active|cancelled
func (h *AdminBookingHandler) List(c echo.Context) error {
	status := strings.ToLower(strings.TrimSpace(c.QueryParam("status")))
	if status != "" && status != model.BookingActive && status != model.BookingCancelled {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be active or cancelled"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Bookings.ListAll(ctx, status)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toBookingList(list)})
}

// Modify PUT /v1/admin/bookings/:id re-dates a booking at the current rate
// without charging or refunding anyone.
func (h *AdminBookingHandler) Modify(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	var req modifyBookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be in YYYY-MM-DD format"})
	}
	res, err := h.Manager.AdminModify(c.Request().Context(), service.AdminModifyInput{
		BookingID: id,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toLifecycleResp(res))
}

// Cancel DELETE /v1/admin/bookings/:id cancels without a refund.
func (h *AdminBookingHandler) Cancel(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	res, err := h.Manager.AdminCancel(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toLifecycleResp(res))
}
