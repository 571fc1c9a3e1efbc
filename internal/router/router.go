package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/mantasj/ticket-marketplace/internal/handler"
	"github.com/mantasj/ticket-marketplace/internal/middleware"
)

// Handlers bundles every handler the API mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Events    *handler.EventHandler
	Tickets   *handler.TicketHandler
	Orders    *handler.OrderHandler
	Cart      *handler.CartHandler
	Analytics *handler.AnalyticsHandler
	Activity  *handler.ActivityHandler
}

// Register mounts all routes on the Echo instance.  Browse endpoints
// (events, venues, availability) are public; everything that writes or
// is user-scoped sits behind JWT auth, and event creation additionally
// requires the ORGANIZER role.
func Register(e *echo.Echo, h Handlers, jwtSecret string) {
	e.GET("/healthz", handler.Health)

	// Unauthenticated session endpoints.
	authGroup := e.Group("/v1/auth")
	authGroup.POST("/register", h.Auth.Register)
	authGroup.POST("/login", h.Auth.Login)

	// Public browse surface.
	e.GET("/v1/events", h.Events.List)
	e.GET("/v1/venues", h.Events.ListVenues)
	e.GET("/v1/tickets", h.Tickets.List)
	e.GET("/v1/analytics/top-events", h.Analytics.TopEvents)
	e.GET("/v1/analytics/availability", h.Analytics.EventsAvailability)

	// Event detail is public too, but runs JWT parsing when a token is
	// present so the page view can be attributed; the handler treats a
	// missing identity as an anonymous view.
	e.GET("/v1/events/:id", h.Events.Get, optionalAuth(jwtSecret))

	protected := e.Group("/v1")
	protected.Use(middleware.JWTAuth(jwtSecret))

	protected.POST("/events", h.Events.Create, middleware.RequireRole("ORGANIZER"))

	protected.POST("/users", h.Users.Create)
	protected.GET("/users", h.Users.List)
	protected.GET("/users/:id", h.Users.Get)

	protected.POST("/orders", h.Orders.Create)
	protected.GET("/orders/:id", h.Orders.Get)
	protected.PATCH("/orders/:id/pay", h.Orders.Pay)
	protected.PATCH("/orders/:id/cancel", h.Orders.Cancel)

	protected.GET("/cart", h.Cart.Get)
	protected.POST("/cart/items", h.Cart.AddItem)
	protected.DELETE("/cart/items/:id", h.Cart.RemoveItem)
	protected.POST("/cart/clear", h.Cart.Clear)
	protected.POST("/cart/checkout", h.Cart.Checkout)

	protected.GET("/activity/cart", h.Activity.CartFeed)
	protected.GET("/activity/views", h.Activity.ViewsFeed)
}

// optionalAuth runs JWTAuth only when an Authorization header is present,
// so anonymous requests pass through untouched.
func optionalAuth(secret string) echo.MiddlewareFunc {
	authed := middleware.JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		withAuth := authed(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") == "" {
				return next(c)
			}
			return withAuth(c)
		}
	}
}
