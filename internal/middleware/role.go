package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

// RequireRole returns a middleware that lets the request through only when
// the authenticated account has one of roles. It must run after JWTAuth; a
// request without an account is answered with 401, a wrong role with 403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return unauthorized(c, "authentication required")
			}
			if !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "your role is not allowed to perform this action"})
			}
			return next(c)
		}
	}
}
