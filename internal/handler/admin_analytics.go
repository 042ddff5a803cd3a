package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/repository"
)

// topVehicles is the length of the popularity ranking on the dashboard.
const topVehicles = 5

// Analytics runs the dashboard aggregates.
type Analytics interface {
	BookingsPerMonth(ctx context.Context) ([]repository.MonthCount, error)
	PopularVehicles(ctx context.Context, limit int) ([]repository.VehiclePopularity, error)
	Totals(ctx context.Context) (repository.Totals, error)
}

// AnalyticsHandler serves the admin dashboard.
type AnalyticsHandler struct {
	Analytics Analytics
}

func NewAnalyticsHandler(a Analytics) *AnalyticsHandler {
	if a == nil {
		panic("nil dependency passed to NewAnalyticsHandler")
	}
	return &AnalyticsHandler{Analytics: a}
}

type monthResp struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type popularResp struct {
	VehicleID uint64 `json:"vehicle_id"`
	Name      string `json:"name"`
	Bookings  int    `json:"bookings"`
}

// Dashboard GET /v1/admin/analytics
func (h *AnalyticsHandler) Dashboard(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	totals, err := h.Analytics.Totals(ctx)
	if err != nil {
		return writeError(c, err)
	}
	months, err := h.Analytics.BookingsPerMonth(ctx)
	if err != nil {
		return writeError(c, err)
	}
	popular, err := h.Analytics.PopularVehicles(ctx, topVehicles)
	if err != nil {
		return writeError(c, err)
	}

	perMonth := make([]monthResp, 0, len(months))
	for _, m := range months {
		perMonth = append(perMonth, monthResp{Month: m.Month, Count: m.Count})
	}
	top := make([]popularResp, 0, len(popular))
	for _, p := range popular {
		top = append(top, popularResp{
			VehicleID: p.VehicleID,
			Name:      fmt.Sprintf("%s %s (%d)", p.Make, p.Model, p.Year),
			Bookings:  p.Bookings,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"totals": echo.Map{
			"users":           totals.Users,
			"vehicles":        totals.Vehicles,
			"active_bookings": totals.ActiveBookings,
			"net_revenue":     totals.NetRevenue.StringFixed(2),
		},
		"bookings_per_month": perMonth,
		"popular_vehicles":   top,
	})
}
