// Package handler exposes the HTTP handlers of the marketplace API. Handlers
// bind and validate request DTOs, call a service and render its result.
// Errors are returned to Echo and rendered by ErrorHandler as
// {"message": "..."} with a status derived from the error kind.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/middleware"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
)

// requestTimeout bounds every storage round-trip made on behalf of a request.
const requestTimeout = 5 * time.Second

// Validator adapts go-playground/validator to echo.Validator. Field names in
// messages are the JSON names of the DTO fields.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return apperr.InvalidInputf("%s", validationMessage(verrs[0]))
	}
	if err != nil {
		return apperr.InvalidInputf("invalid request body")
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "email":
		return f + " must be a valid email address"
	case "uuid", "uuid4":
		return f + " must be a valid id"
	case "url":
		return f + " must be a valid URL"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", f, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	default:
		return f + " is invalid"
	}
}

// ErrorHandler renders every error returned by a handler or middleware. In
// dev mode the cause of internal errors is included in the message.
func ErrorHandler(dev bool, log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.Error(err))
			if dev {
				msg = err.Error()
			}
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"message": msg})
		}
		if err != nil {
			log.Warn("writing error response failed", zap.Error(err))
		}
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, msg
	}
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError, "internal server error"
	}
	switch ae.Kind {
	case apperr.InvalidInput, apperr.InvalidState:
		return http.StatusBadRequest, ae.Message
	case apperr.Unauthorized:
		return http.StatusUnauthorized, ae.Message
	case apperr.Forbidden:
		return http.StatusForbidden, ae.Message
	case apperr.NotFound:
		return http.StatusNotFound, ae.Message
	case apperr.Conflict:
		return http.StatusConflict, ae.Message
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// withTimeout derives the storage context for a request.
func withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the body into dst and validates it.
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.InvalidInputf("invalid request body")
	}
	return c.Validate(dst)
}

// pathID returns the named path parameter after checking it is a UUID.
func pathID(c echo.Context, name string) (string, error) {
	raw := c.Param(name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", apperr.InvalidInputf("invalid %s", name)
	}
	return raw, nil
}

// currentUser returns the account resolved by JWTAuth.
func currentUser(c echo.Context) (*model.User, error) {
	u := middleware.CurrentUser(c)
	if u == nil {
		return nil, apperr.Unauthorizedf("authentication required")
	}
	return u, nil
}
