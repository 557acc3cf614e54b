package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/contacts-api/internal/model"
)

const userKey = "user"

// SetCurrentUser stores the authenticated user on the request context.
func SetCurrentUser(c echo.Context, u *model.User) { c.Set(userKey, u) }

// CurrentUser returns the user resolved by JWTAuth, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// principalID identifies the caller for rate limiting: the user id when
// authenticated, "anon" otherwise.
func principalID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return strconv.FormatUint(u.ID, 10)
	}
	return "anon"
}
