package middleware

// identity.go holds the context helpers shared by the auth middleware, the
// rate limiter and the handlers. JWTAuth stores the resolved account under
// userKey; everything else reads it back through CurrentUser.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

const userKey = "user"

// SetUser attaches the authenticated account to the request context.
func SetUser(c echo.Context, u *model.User) { c.Set(userKey, u) }

// CurrentUser returns the authenticated account or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(userKey).(*model.User)
	return u
}

// currentUserID returns the authenticated account id, or "anon" for
// unauthenticated requests.
func currentUserID(c echo.Context) string {
	if u := CurrentUser(c); u != nil && u.ID != "" {
		return u.ID
	}
	return "anon"
}
