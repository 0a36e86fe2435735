package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequestTransition(t *testing.T) {
	before := testutil.ToFloat64(requestTransitions.WithLabelValues("Approved"))
	RecordRequestTransition("Approved")
	RecordRequestTransition("Approved")
	assert.Equal(t, before+2, testutil.ToFloat64(requestTransitions.WithLabelValues("Approved")))
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/cars/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/metrics", echo.WrapHandler(Handler()))

	counter := httpRequests.WithLabelValues(http.MethodGet, "/cars/:id", "204")
	before := testutil.ToFloat64(counter)
	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cars/"+id, nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "testdrive_http_requests_total"))
}
