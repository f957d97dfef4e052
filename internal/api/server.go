package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/JesusOliveto/CalCalculator/internal/api/middleware"
	v1 "github.com/JesusOliveto/CalCalculator/internal/api/v1"
	"github.com/JesusOliveto/CalCalculator/internal/buildinfo"
	"github.com/JesusOliveto/CalCalculator/internal/conf"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
	"github.com/JesusOliveto/CalCalculator/internal/observability"
)

// Server is the HTTP server for NutriApp.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   *slog.Logger

	store     *nutrition.Store
	lookup    v1.FoodLookup
	publisher v1.EntryPublisher
	notifier  v1.GoalNotifier
	metrics   *observability.Metrics
	build     *buildinfo.Context

	apiController *v1.Controller

	startTime time.Time
	logCloser func() error
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithStore sets the domain store. It is required.
func WithStore(store *nutrition.Store) ServerOption {
	return func(s *Server) { s.store = store }
}

// WithLookup enables barcode lookups.
func WithLookup(l v1.FoodLookup) ServerOption {
	return func(s *Server) { s.lookup = l }
}

// WithPublisher publishes recorded entries.
func WithPublisher(p v1.EntryPublisher) ServerOption {
	return func(s *Server) { s.publisher = p }
}

// WithNotifier sends goal alerts.
func WithNotifier(n v1.GoalNotifier) ServerOption {
	return func(s *Server) { s.notifier = n }
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// WithBuildInfo sets the version reported by /health.
func WithBuildInfo(b *buildinfo.Context) ServerOption {
	return func(s *Server) { s.build = b }
}

// WithConfig overrides the configuration derived from settings.
func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) { s.config = cfg }
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	s := &Server{
		config:    ConfigFromSettings(settings),
		settings:  settings,
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if s.store == nil {
		return nil, fmt.Errorf("server requires a nutrition store")
	}

	s.initLogger()

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Server.ReadTimeout = s.config.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	s.logger.Info("HTTP server initialized",
		"address", s.config.Listen,
		"metrics", s.config.Metrics && s.metrics != nil,
		"debug", s.config.Debug,
	)
	return s, nil
}

// initLogger tees the api service logger into the server log file. A file
// that cannot be opened only costs the file copy.
func (s *Server) initLogger() {
	base := logging.ForService("api")
	s.logCloser = func() error { return nil }
	if s.config.LogPath == "" {
		s.logger = base
		return
	}

	fileLogger, closer, err := logging.NewFileLogger(s.config.LogPath, "api", s.config.LogLevel, logging.RotationConfig{
		Rotation: s.settings.Main.Log.Rotation,
		MaxSize:  s.settings.Main.Log.MaxSize,
	})
	if err != nil {
		base.Warn("failed to open server log file", "path", s.config.LogPath, "error", err)
		s.logger = base
		return
	}
	s.logger = logging.Tee(base, fileLogger)
	s.logCloser = closer
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestLogger(s.logger))

	security := mw.DefaultSecurityConfig()
	security.AllowedOrigins = s.config.AllowedOrigins
	s.echo.Use(mw.NewCORS(security))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(security))
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)

	if s.config.Metrics && s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	s.apiController = v1.New(s.echo, s.store, s.config.SessionSecret,
		v1.WithLogger(s.logger),
		v1.WithLocale(nutrition.MatchLocale(s.settings.Nutrition.Locale)),
		v1.WithDefaultGoal(s.settings.Nutrition.DailyGoal),
		v1.WithLookup(s.lookup),
		v1.WithPublisher(s.publisher),
		v1.WithNotifier(s.notifier),
	)
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.build.GetVersion(),
		"build_date":     s.build.GetBuildDate(),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Start serves HTTP requests until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", "address", s.config.Listen)
	if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown starts the server and shuts it down on
// SIGINT/SIGTERM or when ctx is done.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Shutdown signal received, initiating graceful shutdown")
	}
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("Error during server shutdown", "error", err)
		return fmt.Errorf("shutdown error: %w", err)
	}
	s.logger.Info("Server shutdown complete")

	if s.logCloser != nil {
		return s.logCloser()
	}
	return nil
}

// Echo returns the underlying Echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// APIController returns the v1 API controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}

