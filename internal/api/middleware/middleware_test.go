package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/missing", func(c echo.Context) error { return echo.ErrNotFound })
	e.GET("/broken", func(c echo.Context) error { return echo.ErrInternalServerError })
	e.POST("/echo", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	return e
}

func TestRequestLoggerLevels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := newEcho(NewRequestLogger(logger))

	tests := []struct {
		path  string
		level string
	}{
		{"/ok", "level=INFO"},
		{"/missing", "level=WARN"},
		{"/broken", "level=ERROR"},
	}
	for _, tt := range tests {
		buf.Reset()
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Contains(t, buf.String(), tt.level, tt.path)
		assert.Contains(t, buf.String(), "uri="+tt.path)
	}
}

func TestRequestLoggerSkipper(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := newEcho(NewRequestLoggerWithSkipper(logger, func(c echo.Context) bool {
		return c.Request().URL.Path == "/ok"
	}))

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Empty(t, buf.String())
}

func TestCORSCredentials(t *testing.T) {
	t.Parallel()

	preflight := func(cfg SecurityConfig, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
		req.Header.Set(echo.HeaderOrigin, origin)
		req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPut)
		rec := httptest.NewRecorder()
		newEcho(NewCORS(cfg)).ServeHTTP(rec, req)
		return rec
	}

	rec := preflight(DefaultSecurityConfig(), "http://anywhere.example")
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowCredentials))

	cfg := DefaultSecurityConfig()
	cfg.AllowedOrigins = []string{"http://tracker.local"}
	rec = preflight(cfg, "http://tracker.local")
	assert.Equal(t, "http://tracker.local", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "true", rec.Header().Get(echo.HeaderAccessControlAllowCredentials))
}

func TestSecureHeaders(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	newEcho(NewSecureHeaders(DefaultSecurityConfig())).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	assert.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
	assert.Equal(t, "no-referrer", rec.Header().Get(echo.HeaderReferrerPolicy))
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	e := newEcho(NewBodyLimit("1K"))
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 2048)))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
