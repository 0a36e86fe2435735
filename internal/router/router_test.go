package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/testdrive-marketplace/internal/apperr"
	"github.com/iliyamo/testdrive-marketplace/internal/handler"
	"github.com/iliyamo/testdrive-marketplace/internal/model"
	"github.com/iliyamo/testdrive-marketplace/internal/utils"
)

const secret = "router-secret"

type accounts map[string]*model.User

func (a accounts) GetProfile(_ context.Context, id string) (*model.User, error) {
	if u, ok := a[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFoundf("user not found")
}

type pinger struct{}

func (pinger) PingContext(context.Context) error { return nil }

// newTestServer wires the real route table. Handlers get nil services, so
// only requests rejected by a guard may be sent.
func newTestServer(t *testing.T) (*echo.Echo, map[model.Role]string) {
	t.Helper()
	users := accounts{
		"owner-1":      {ID: "owner-1", Role: model.RoleCarOwner},
		"journalist-1": {ID: "journalist-1", Role: model.RoleJournalist},
		"admin-1":      {ID: "admin-1", Role: model.RoleAdmin},
	}
	tokens := map[model.Role]string{}
	for id, u := range users {
		tok, err := utils.NewAccessToken(secret, id, string(u.Role), 5)
		require.NoError(t, err)
		tokens[u.Role] = tok.Token
	}

	e := echo.New()
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(false, zap.NewNop())
	auth := Auth{Secret: secret, Accounts: users}

	RegisterRoutes(e, pinger{}, t.TempDir())
	RegisterUsers(e, handler.NewUserHandler(nil), auth, nil)
	RegisterCars(e, handler.NewCarHandler(nil, nil, nil), auth, nil)
	RegisterRequests(e, handler.NewRequestHandler(nil), auth)
	RegisterTestimonials(e, handler.NewTestimonialHandler(nil), auth, nil)
	return e, tokens
}

func TestRouteGuards(t *testing.T) {
	e, tokens := newTestServer(t)

	cases := []struct {
		method, path string
		as           model.Role
		want         int
	}{
		{http.MethodGet, "/users/profile", "", http.StatusUnauthorized},
		{http.MethodPost, "/cars", "", http.StatusUnauthorized},
		{http.MethodPost, "/cars", model.RoleJournalist, http.StatusForbidden},
		{http.MethodGet, "/cars/my-listings", model.RoleJournalist, http.StatusForbidden},
		{http.MethodPut, "/cars/0b0c3d5e-0000-4000-8000-000000000001", model.RoleJournalist, http.StatusForbidden},
		{http.MethodPatch, "/cars/0b0c3d5e-0000-4000-8000-000000000001/toggle-availability", model.RoleAdmin, http.StatusForbidden},
		{http.MethodPost, "/requests", model.RoleCarOwner, http.StatusForbidden},
		{http.MethodGet, "/requests/incoming", model.RoleJournalist, http.StatusForbidden},
		{http.MethodGet, "/requests/outgoing", model.RoleCarOwner, http.StatusForbidden},
		{http.MethodGet, "/requests/check/0b0c3d5e-0000-4000-8000-000000000001", model.RoleCarOwner, http.StatusForbidden},
		{http.MethodPut, "/requests/0b0c3d5e-0000-4000-8000-000000000001/status", model.RoleJournalist, http.StatusForbidden},
		{http.MethodDelete, "/requests/0b0c3d5e-0000-4000-8000-000000000001", model.RoleCarOwner, http.StatusForbidden},
		{http.MethodGet, "/requests/0b0c3d5e-0000-4000-8000-000000000001", "", http.StatusUnauthorized},
		{http.MethodGet, "/testimonials/all", model.RoleCarOwner, http.StatusForbidden},
		{http.MethodPost, "/testimonials", "", http.StatusUnauthorized},
		{http.MethodDelete, "/testimonials/0b0c3d5e-0000-4000-8000-000000000001", model.RoleJournalist, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path+" as "+string(tc.as), func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{}"))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			if tc.as != "" {
				req.Header.Set(echo.HeaderAuthorization, "Bearer "+tokens[tc.as])
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestOperationalRoutes(t *testing.T) {
	e, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMalformedIDRejectedBeforeService(t *testing.T) {
	e, tokens := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/requests/not-a-uuid", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tokens[model.RoleJournalist])
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
