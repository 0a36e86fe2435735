package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/utils"
)

// AccountLookup resolves the subject of an access token to an account. It is
// implemented by *service.AccountService.
type AccountLookup interface {
	GetProfile(ctx context.Context, id string) (*model.User, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token,
// loads the account named by its subject and stores it in the context (see
// CurrentUser). A missing, malformed or expired token, or a token whose
// account no longer exists, is answered with 401.
func JWTAuth(secret string, accounts AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return unauthorized(c, "missing bearer token")
			}
			u, err := resolve(c, secret, accounts, raw)
			if err != nil {
				if apperr.KindOf(err) == apperr.Internal {
					return err
				}
				return unauthorized(c, "invalid or expired token")
			}
			SetUser(c, u)
			return next(c)
		}
	}
}

// OptionalJWTAuth is like JWTAuth but lets requests without a valid token
// through anonymously.
func OptionalJWTAuth(secret string, accounts AccountLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if u, err := resolve(c, secret, accounts, raw); err == nil {
					SetUser(c, u)
				}
			}
			return next(c)
		}
	}
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

func resolve(c echo.Context, secret string, accounts AccountLookup, raw string) (*model.User, error) {
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return nil, apperr.Unauthorizedf("invalid token")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	u, err := accounts.GetProfile(ctx, claims.Subject)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.Unauthorizedf("account no longer exists")
		}
		return nil, err
	}
	return u, nil
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": msg})
}
