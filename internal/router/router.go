// Package router wires HTTP routes to handlers and applies the
// authentication and role middleware. Catalog writes and reservation
// administration require the admin role; booking creation requires the
// user role — admins may browse reservations but never create them.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/davitm/cinehub/internal/handler"
	"github.com/davitm/cinehub/internal/middleware"
	"github.com/davitm/cinehub/internal/model"
)

// Handlers groups everything the router needs to register.
type Handlers struct {
	Auth      *handler.AuthHandler
	Movies    *handler.MovieHandler
	Showtimes *handler.ShowtimeHandler
	Bookings  *handler.BookingHandler
}

// Register wires all routes on the provided Echo instance.
func Register(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/healthz", handler.Health)

	// unauthenticated auth endpoints
	auth := e.Group("/api/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// every other endpoint requires a valid access token
	api := e.Group("/api")
	api.Use(middleware.JWTAuth(jwtSecret))
	api.Use(middleware.RequireRole(string(model.RoleAdmin), string(model.RoleUser)))

	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/auth/me", h.Auth.Me)

	adminOnly := middleware.RequireRole(string(model.RoleAdmin))
	userOnly := middleware.RequireRole(string(model.RoleUser))

	// movies: browse for everyone, writes for admins
	api.GET("/movies", h.Movies.List)
	api.POST("/movies", h.Movies.Create, adminOnly)
	api.PUT("/movies/:id", h.Movies.Update, adminOnly)
	api.DELETE("/movies/:id", h.Movies.Delete, adminOnly)

	// showtimes: browse for everyone, writes for admins
	api.GET("/showtimes/movie/:movieId", h.Showtimes.ListByMovie)
	api.POST("/showtimes", h.Showtimes.Create, adminOnly)
	api.PUT("/showtimes/:id", h.Showtimes.Update, adminOnly)
	api.DELETE("/showtimes/:id", h.Showtimes.Delete, adminOnly)

	// bookings: listing is role-scoped in the handler, creation is for
	// users only, deletion is admin cleanup
	api.GET("/bookings", h.Bookings.List)
	api.POST("/bookings", h.Bookings.Create, userOnly)
	api.DELETE("/bookings/:id", h.Bookings.Delete, adminOnly)
}
