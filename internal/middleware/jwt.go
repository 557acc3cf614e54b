package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contacts-api/internal/auth"
	"github.com/iliyamo/contacts-api/internal/model"
)

// TokenResolver maps an access token to its user.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (*model.User, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(c echo.Context) (string, bool) {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Unauthorized writes the 401 response shared by every protected route.
func Unauthorized(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrUnauthorized.Error()})
}

// JWTAuth resolves the bearer access token into the current user and
// stores it on the context. Any token problem yields the same 401; storage
// failures yield 500.
func JWTAuth(resolver TokenResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := BearerToken(c)
			if !ok {
				return Unauthorized(c)
			}
			u, err := resolver.Resolve(c.Request().Context(), token)
			if errors.Is(err, auth.ErrUnauthorized) {
				return Unauthorized(c)
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}
			SetCurrentUser(c, u)
			return next(c)
		}
	}
}
