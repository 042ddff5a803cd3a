package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/middleware"
	"github.com/alanwtom/carmodel/internal/model"
	"github.com/alanwtom/carmodel/internal/repository"
	"github.com/alanwtom/carmodel/internal/service"
)

// Bookings is the customer side of the booking lifecycle manager.
type Bookings interface {
	Create(ctx context.Context, in service.CreateInput) (*service.Result, error)
	Modify(ctx context.Context, in service.ModifyInput) (*service.Result, error)
	Cancel(ctx context.Context, in service.CancelInput) (*service.Result, error)
}

// BookingReader loads bookings for display.
type BookingReader interface {
	GetDetail(ctx context.Context, id uint64) (*model.BookingDetail, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.BookingDetail, error)
	ListAll(ctx context.Context, status string) ([]model.BookingDetail, error)
}

// BookingHandler serves the customer booking endpoints.
type BookingHandler struct {
	Manager  Bookings
	Bookings BookingReader
}

func NewBookingHandler(m Bookings, r BookingReader) *BookingHandler {
	if m == nil || r == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Manager: m, Bookings: r}
}

// ----- DTOs -----

type createBookingReq struct {
	VehicleID     uint64 `json:"vehicle_id" validate:"required"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	PaymentMethod string `json:"payment_method"`
}

type modifyBookingReq struct {
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	PaymentMethod string `json:"payment_method"`
}

type bookingResp struct {
	ID            uint64     `json:"id"`
	UserID        uint64     `json:"user_id"`
	VehicleID     uint64     `json:"vehicle_id"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	Days          int64      `json:"days"`
	TotalCost     string     `json:"total_cost"`
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`

	Vehicle *bookingVehicle `json:"vehicle,omitempty"`
	User    *bookingUser    `json:"user,omitempty"`
}

type bookingVehicle struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Year  int    `json:"year"`
}

type bookingUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type paymentResp struct {
	ID        uint64    `json:"id"`
	BookingID uint64    `json:"booking_id"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method"`
	Status    string    `json:"status"`
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

type lifecycleResp struct {
	Booking       bookingResp  `json:"booking"`
	Payment       *paymentResp `json:"payment,omitempty"`
	WalletBalance string       `json:"wallet_balance,omitempty"`
}

func toBookingResp(b model.Booking) bookingResp {
	return bookingResp{
		ID:            b.ID,
		UserID:        b.UserID,
		VehicleID:     b.VehicleID,
		StartDate:     b.StartDate.Format(time.DateOnly),
		EndDate:       b.EndDate.Format(time.DateOnly),
		Days:          service.Days(b.StartDate, b.EndDate),
		TotalCost:     b.TotalCost.StringFixed(2),
		PaymentMethod: b.PaymentMethod,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
		CancelledAt:   b.CancelledAt,
	}
}

func toBookingDetailResp(d model.BookingDetail) bookingResp {
	r := toBookingResp(d.Booking)
	r.Vehicle = &bookingVehicle{Make: d.VehicleMake, Model: d.VehicleModel, Year: d.VehicleYear}
	r.User = &bookingUser{Name: d.UserName, Email: d.UserEmail}
	return r
}

func toPaymentResp(p model.PaymentRecord) paymentResp {
	return paymentResp{
		ID:        p.ID,
		BookingID: p.BookingID,
		Amount:    p.Amount.StringFixed(2),
		Method:    p.Method,
		Status:    p.Status,
		Reference: p.Reference,
		CreatedAt: p.CreatedAt,
	}
}

func toLifecycleResp(res *service.Result) lifecycleResp {
	out := lifecycleResp{Booking: toBookingResp(*res.Booking)}
	if res.Payment != nil {
		p := toPaymentResp(*res.Payment)
		out.Payment = &p
	}
	if res.Wallet != nil {
		out.WalletBalance = res.Wallet.Balance.StringFixed(2)
	}
	return out
}

func toBookingList(list []model.BookingDetail) []bookingResp {
	out := make([]bookingResp, 0, len(list))
	for _, d := range list {
		out = append(out, toBookingDetailResp(d))
	}
	return out
}

// parseRange parses the start and end dates of a request.
func parseRange(start, end string) (time.Time, time.Time, error) {
	s, err := service.ParseDate(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	e, err := service.ParseDate(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return s, e, nil
}

// Create POST /v1/bookings books a vehicle and charges the wallet.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	var req createBookingReq
	if ok, err := bindValid(c, &req); !ok {
		return err
	}
	start, end, err := parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "dates must be in YYYY-MM-DD format"})
	}

	res, err := h.Manager.Create(c.Request().Context(), service.CreateInput{
		UserID:    uid,
		VehicleID: req.VehicleID,
		Start:     start,
		End:       end,
		Method:    req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, toLifecycleResp(res))
}

// MyBookings GET /v1/my-bookings lists the caller's bookings, newest first.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Bookings.ListByUser(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toBookingList(list)})
}

// GetBooking GET /v1/bookings/:id is the confirmation view, visible to the
// renter and to administrators.
func (h *BookingHandler) GetBooking(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Bookings.GetDetail(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if d.UserID != uid && !middleware.IsAdmin(c) {
		return writeError(c, repository.ErrForbidden)
	}
	return c.JSON(http.StatusOK, toBookingDetailResp(*d))
}

// Modify PUT /v1/bookings/:id re-dates a booking and settles the price
// difference against the renter's wallet.
func (h *BookingHandler) Modify(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
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

	res, err := h.Manager.Modify(c.Request().Context(), service.ModifyInput{
		UserID:       uid,
		ActorIsAdmin: middleware.IsAdmin(c),
		BookingID:    id,
		Start:        start,
		End:          end,
		Method:       req.PaymentMethod,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toLifecycleResp(res))
}

// Cancel DELETE /v1/bookings/:id cancels a booking and refunds its cost.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}

	res, err := h.Manager.Cancel(c.Request().Context(), service.CancelInput{
		UserID:       uid,
		ActorIsAdmin: middleware.IsAdmin(c),
		BookingID:    id,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, toLifecycleResp(res))
}
