// Package router registers the HTTP routes of the marketplace API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/testdrive-marketplace/internal/handler"
	"github.com/iliyamo/testdrive-marketplace/internal/metrics"
	"github.com/iliyamo/testdrive-marketplace/internal/middleware"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

// Auth bundles what the bearer-token middlewares need.
type Auth struct {
	Secret   string
	Accounts middleware.AccountLookup
}

func (a Auth) required() echo.MiddlewareFunc {
	return middleware.JWTAuth(a.Secret, a.Accounts)
}

func (a Auth) optional() echo.MiddlewareFunc {
	return middleware.OptionalJWTAuth(a.Secret, a.Accounts)
}

// Cache groups of the public listings.
const (
	carsCache         = "cars"
	testimonialsCache = "testimonials"
)

// RegisterRoutes registers the operational endpoints and the static handler
// serving uploaded images.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, uploadDir string) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.Static("/uploads", uploadDir)
}

// RegisterUsers registers account endpoints under /users.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, auth Auth, cache *middleware.ResponseCache) {
	g := e.Group("/users")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/firebase-auth", h.FirebaseAuth)
	g.POST("/refresh", h.Refresh)
	// Logout works with a refresh token alone; a bearer token additionally
	// allows revoking every session of the account.
	g.POST("/logout", h.Logout, auth.optional())

	g.GET("/profile", h.GetProfile, auth.required())
	// The public car listing shows owner names.
	g.PUT("/profile", h.UpdateProfile, auth.required(), cache.Invalidate(carsCache))
	g.GET("/:id", h.GetPublicProfile)
}

// RegisterCars registers listing endpoints under /cars. Only the public
// listing is cached; every successful write invalidates it.
func RegisterCars(e *echo.Echo, h *handler.CarHandler, auth Auth, cache *middleware.ResponseCache) {
	g := e.Group("/cars")
	owner := []echo.MiddlewareFunc{auth.required(), middleware.RequireRole(model.RoleCarOwner)}
	write := append(owner, cache.Invalidate(carsCache))

	g.GET("", h.List, cache.Cached(carsCache))
	g.POST("", h.Create, write...)
	g.GET("/my-listings", h.MyListings, owner...)
	g.GET("/:id", h.Get)
	// Ownership of the listing itself is checked by the service.
	g.PUT("/:id", h.Update, write...)
	g.DELETE("/:id", h.Delete, write...)
	g.PATCH("/:id/toggle-availability", h.ToggleAvailability, write...)
}

// RegisterRequests registers test-drive request endpoints under /requests.
// Every route needs a bearer token.
func RegisterRequests(e *echo.Echo, h *handler.RequestHandler, auth Auth) {
	g := e.Group("/requests", auth.required())
	journalist := middleware.RequireRole(model.RoleJournalist)
	owner := middleware.RequireRole(model.RoleCarOwner)

	g.POST("", h.Create, journalist)
	g.GET("/incoming", h.Incoming, owner)
	g.GET("/outgoing", h.Outgoing, journalist)
	g.GET("/check/:carId", h.Check, journalist)
	g.GET("/:id", h.Get)
	g.PUT("/:id/status", h.UpdateStatus, owner)
	g.DELETE("/:id", h.Withdraw, journalist)
}

// RegisterTestimonials registers testimonial endpoints. Reads are public;
// writes and the unfiltered listing need an Admin token.
func RegisterTestimonials(e *echo.Echo, h *handler.TestimonialHandler, auth Auth, cache *middleware.ResponseCache) {
	g := e.Group("/testimonials")
	admin := []echo.MiddlewareFunc{auth.required(), middleware.RequireRole(model.RoleAdmin)}
	write := append(admin, cache.Invalidate(testimonialsCache))

	g.GET("", h.List, cache.Cached(testimonialsCache))
	g.GET("/all", h.ListAll, admin...)
	g.GET("/:id", h.Get, auth.optional())
	g.POST("", h.Create, write...)
	g.PUT("/:id", h.Update, write...)
	g.DELETE("/:id", h.Delete, write...)
}
