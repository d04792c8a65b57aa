package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avegress/internal/circuitbreaker"
	"github.com/vyrodovalexey/avegress/internal/config"
	"github.com/vyrodovalexey/avegress/internal/gateway"
	"github.com/vyrodovalexey/avegress/internal/observability"
	"github.com/vyrodovalexey/avegress/internal/transport"
)

func newTestAdmin(t *testing.T) (*adminServer, *gateway.Gateway) {
	t.Helper()

	gw := gateway.New(config.Default(), transport.Func(
		func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			return &transport.Response{Status: 200}, nil
		}),
		gateway.WithLogger(observability.NopLogger()),
	)

	return newAdminServer(":0", gw, observability.NopLogger()), gw
}

func TestAdminServer_Healthz(t *testing.T) {
	t.Parallel()

	s, _ := newTestAdmin(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestAdminServer_Breakers(t *testing.T) {
	t.Parallel()

	s, gw := newTestAdmin(t)
	gw.Breakers().GetOrCreate("api.example.com")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/breakers", nil)
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "api.example.com")
	assert.Contains(t, rec.Body.String(), "closed")
}

func TestAdminServer_BreakersReset(t *testing.T) {
	t.Parallel()

	s, gw := newTestAdmin(t)

	cb := gw.Breakers().GetOrCreate("down.example.com")
	for i := 0; i < circuitbreaker.DefaultMinRequests; i++ {
		permit, err := cb.Allow()
		require.NoError(t, err)
		cb.RecordOutcome(permit, circuitbreaker.OutcomeFailure)
	}
	require.Equal(t, circuitbreaker.StateOpen, cb.State())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/breakers/reset", nil)
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, circuitbreaker.StateClosed, cb.State())
}

func TestAdminServer_Metrics(t *testing.T) {
	t.Parallel()

	s, _ := newTestAdmin(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")
}
