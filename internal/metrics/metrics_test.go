package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsRequests(t *testing.T) {
	e := echo.New()
	e.Use(Middleware())
	e.GET("/api/budgets/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/budgets/:id", "204"))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budgets/42", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/budgets/:id", "204"))
	assert.Equal(t, before+1, after)
}

func TestMustRegisterOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg, "fintrack-test")
	MustRegister(reg, "fintrack-test")

	LoginsTotal.WithLabelValues("admin", Result(nil)).Inc()
	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "auth_logins_total" {
			found = true
			var names []string
			for _, l := range f.GetMetric()[0].GetLabel() {
				names = append(names, l.GetName())
			}
			assert.Contains(t, names, "service")
		}
	}
	assert.True(t, found)
	assert.Equal(t, "error", Result(errors.New("x")))
}
