package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// SecurityConfig holds configuration for the CORS and header middleware.
type SecurityConfig struct {
	// AllowedOrigins lists browser origins allowed to call the API. An
	// explicit list also lets those origins send the session cookie.
	AllowedOrigins []string

	ContentSecurityPolicy string
}

// DefaultSecurityConfig allows any origin without credentials.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins:        []string{"*"},
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
	}
}

// allowCredentials reports whether the goal cookie may cross origins. The
// wildcard origin never carries credentials.
func (c SecurityConfig) allowCredentials() bool {
	return len(c.AllowedOrigins) > 0 && !slices.Contains(c.AllowedOrigins, "*")
}

// NewCORS creates a CORS middleware for the JSON API. Content-Disposition is
// exposed so browsers can name the CSV export.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPut,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
		},
		ExposeHeaders:    []string{echo.HeaderContentDisposition},
		AllowCredentials: config.allowCredentials(),
	})
}

// NewSecureHeaders sets the response headers an API without HTML needs.
func NewSecureHeaders(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: config.ContentSecurityPolicy,
	})
}

// NewBodyLimit rejects request bodies above limit, e.g. "1M".
func NewBodyLimit(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}
