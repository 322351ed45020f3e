package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAvailabilityCheck(true)
	m.ObserveReservation(OutcomeConfirmed)
	m.ObserveCacheLookup(false)
}

func TestObserveReservation(t *testing.T) {
	m := New()
	m.ObserveReservation(OutcomeConfirmed)
	m.ObserveReservation(OutcomeConfirmed)
	m.ObserveReservation(OutcomeRejected)

	if got := testutil.ToFloat64(m.reservations.WithLabelValues(OutcomeConfirmed)); got != 2 {
		t.Errorf("expected 2 confirmed, got %v", got)
	}
	if got := testutil.ToFloat64(m.reservations.WithLabelValues(OutcomeRejected)); got != 1 {
		t.Errorf("expected 1 rejected, got %v", got)
	}
}

func TestObserveAvailabilityCheck(t *testing.T) {
	m := New()
	m.ObserveAvailabilityCheck(true)
	m.ObserveAvailabilityCheck(false)
	m.ObserveAvailabilityCheck(false)

	if got := testutil.ToFloat64(m.availabilityChecks.WithLabelValues("unavailable")); got != 2 {
		t.Errorf("expected 2 unavailable, got %v", got)
	}
}

func TestMiddleware_RecordsRoute(t *testing.T) {
	m := New()
	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/practitioners/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/boom", func(c echo.Context) error {
		return errors.New("boom")
	})

	for _, path := range []string{"/practitioners/a", "/practitioners/b", "/boom"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/practitioners/:id", "200")); got != 2 {
		t.Errorf("expected 2 requests on route template, got %v", got)
	}
	if got := testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Errorf("expected 1 failed request, got %v", got)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveCacheLookup(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `clinic_cache_lookups_total{result="hit"} 1`) {
		t.Errorf("expected cache hit counter in exposition, got:\n%s", rec.Body.String())
	}
}
