package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-fees-api/internal/service"
)

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestReadyProbe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		db     Pinger
		cache  Pinger
		status int
		body   string
	}{
		{name: "ready", db: pingerStub{}, cache: pingerStub{}, status: http.StatusOK, body: `"ready"`},
		{name: "database down", db: pingerStub{err: errors.New("refused")}, status: http.StatusServiceUnavailable, body: "database unreachable"},
		{name: "cache down", db: pingerStub{}, cache: pingerStub{err: errors.New("refused")}, status: http.StatusOK, body: "degraded"},
		{name: "no probes", status: http.StatusOK, body: `"ready"`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewMetricsHandler(service.NewMetricsService(), tc.db, tc.cache)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

			h.Ready(c)

			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestPrometheusEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.PaymentRecorded("CASH", 500)

	h := NewMetricsHandler(metrics, nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)

	h.Prometheus(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fees_payments_recorded_total")
}
