package router

import (
	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/handler"
	"github.com/alanwtom/carmodel/internal/model"
)

// AdminHandlers groups the handlers mounted under /v1/admin.
type AdminHandlers struct {
	Vehicles  *handler.AdminVehicleHandler
	Bookings  *handler.AdminBookingHandler
	Users     *handler.AdminUserHandler
	Analytics *handler.AnalyticsHandler
}

// RegisterAdmin registers ADMIN-scoped endpoints under /v1/admin.
// invalidate purges the catalog cache after successful vehicle writes.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, guard Guard, invalidate echo.MiddlewareFunc) {
	g := e.Group("/v1/admin", guard.chain(model.RoleAdmin)...)

	// ---- Vehicles ----
	v := g.Group("/vehicles", invalidate)
	v.GET("", h.Vehicles.List)
	v.POST("", h.Vehicles.Create)
	v.PUT("/:id", h.Vehicles.Update)
	v.DELETE("/:id", h.Vehicles.Delete)
	v.POST("/:id/images", h.Vehicles.AddImage)
	v.POST("/:id/images/upload", h.Vehicles.UploadImage)
	v.PUT("/:id/images/:image_id/primary", h.Vehicles.SetPrimaryImage)
	v.DELETE("/:id/images/:image_id", h.Vehicles.DeleteImage)

	// ---- Bookings ----
	g.GET("/bookings", h.Bookings.List)
	g.PUT("/bookings/:id", h.Bookings.Modify)
	g.DELETE("/bookings/:id", h.Bookings.Cancel)

	// ---- Users ----
	g.GET("/users", h.Users.List)
	g.POST("/users/:id/toggle", h.Users.ToggleActive)
	g.PUT("/users/:id", h.Users.Update)
	g.DELETE("/users/:id", h.Users.Delete)

	g.GET("/analytics", h.Analytics.Dashboard)
}
