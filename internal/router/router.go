// Package router registers the HTTP routes of each audience: public
// catalog, authentication, customers and administrators.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/alanwtom/carmodel/internal/handler"
	"github.com/alanwtom/carmodel/internal/middleware"
	"github.com/alanwtom/carmodel/internal/model"
)

// Guard carries what the protected groups need to authenticate a request.
type Guard struct {
	JWTSecret string
	Users     middleware.UserGetter
}

// chain authenticates the bearer, rejects disabled accounts and then checks
// the role loaded from the database.
func (g Guard) chain(roles ...string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.JWTAuth(g.JWTSecret),
		middleware.RequireActive(g.Users),
		middleware.RequireRole(roles...),
	}
}

// RegisterRoutes registers the health endpoints used by load balancers.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the token endpoints under /v1/auth and the
// profile endpoint under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, guard Guard, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", limit)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// refresh rotates the refresh token, refresh-access keeps it
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", guard.chain(model.RoleCustomer, model.RoleAdmin)...)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the unauthenticated catalog.  cache serves
// repeated reads from Redis.
func RegisterPublic(e *echo.Echo, p *handler.CatalogHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1/vehicles", cache)
	g.GET("", p.ListVehicles)
	g.GET("/:id", p.GetVehicle)
}
