package middlewares

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bematende/bematende-backend/pkg/utils"
)

const testSecret = "test-secret"

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.GenerateJWTToken(testSecret, utils.Claims{UserID: "u1", Username: "ana", Role: role}, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return tok
}

func run(mw []echo.MiddlewareFunc, authHeader string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := func(c echo.Context) error {
		claims, _ := ClaimsFrom(c)
		return c.String(http.StatusOK, claims.Username)
	}
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	h(c)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTMiddleware(testSecret)}

	assert.Equal(t, http.StatusUnauthorized, run(mw, "").Code)
	assert.Equal(t, http.StatusUnauthorized, run(mw, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, run(mw, "Bearer garbage").Code)

	rec := run(mw, "Bearer "+token(t, "staff"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana", rec.Body.String())
}

func TestRequireAdmin(t *testing.T) {
	mw := []echo.MiddlewareFunc{JWTMiddleware(testSecret), RequireAdmin()}

	assert.Equal(t, http.StatusForbidden, run(mw, "Bearer "+token(t, "nurse")).Code)
	assert.Equal(t, http.StatusOK, run(mw, "Bearer "+token(t, "admin")).Code)
	assert.Equal(t, http.StatusUnauthorized, run([]echo.MiddlewareFunc{RequireAdmin()}, "").Code)
}

func TestLoggerAndRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestID()(Logger(logger)(Recovery(logger)(func(echo.Context) error {
		panic("kaboom")
	})))
	err := h(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), `"path":"/boom"`)
}
