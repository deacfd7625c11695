package routes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/bematende/bematende-backend/pkg/metrics"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newTestServer(checks map[string]Pinger) *echo.Echo {
	e := echo.New()
	Init(e, Deps{
		Logger:    zerolog.Nop(),
		JWTSecret: "secret",
		Metrics:   metrics.New().Handler(),
		Checks:    checks,
	})
	return e
}

func TestHealth(t *testing.T) {
	e := newTestServer(map[string]Pinger{
		"db": pingerFunc(func(context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"db":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
}

func TestHealthReportsFailingDependency(t *testing.T) {
	e := newTestServer(map[string]Pinger{
		"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newTestServer(nil)
	for _, path := range []string{"/api/queue/pre_consultation", "/api/users", "/api/auth/me"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	e := newTestServer(nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
