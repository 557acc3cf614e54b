package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/contacts-api/internal/config"
	"github.com/iliyamo/contacts-api/internal/handler"
	"github.com/iliyamo/contacts-api/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the account endpoints under /api/auth.  None of
// them sit behind JWTAuth: refresh_token reads the refresh token from the
// Authorization header itself.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler) {
	g := e.Group("/api/auth")
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.GET("/refresh_token", a.RefreshToken)
	g.GET("/confirmed_email/:token", a.ConfirmedEmail)
	g.POST("/request_email", a.RequestEmail)
}

// RegisterUsers registers the profile endpoints for the authenticated user.
func RegisterUsers(e *echo.Echo, a *handler.AuthHandler, resolver middleware.TokenResolver) {
	g := e.Group("/api/users", middleware.JWTAuth(resolver))
	g.GET("/me", a.Me)
	g.PATCH("/avatar", a.UpdateAvatar)
}

// RegisterContacts registers the contact book.  Every route needs an access
// token.  The list endpoint is additionally rate limited; rdb may be nil, in
// which case the limiter lets every request through.
func RegisterContacts(e *echo.Echo, h *handler.ContactHandler, resolver middleware.TokenResolver,
	rl config.RateLimitConfig, rdb *redis.Client, log logrus.FieldLogger) {
	g := e.Group("/api/contacts", middleware.JWTAuth(resolver))

	// A nil *redis.Client must not reach RateLimit as a non-nil interface.
	var scripter redis.Scripter
	if rdb != nil {
		scripter = rdb
	}
	g.GET("", h.List, middleware.RateLimit(rl, scripter, log))
	g.POST("", h.Create)
	// Static segments are registered before /:id; echo prefers them anyway.
	g.GET("/birthday", h.Birthdays)
	g.GET("/find/:name", h.Find)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
