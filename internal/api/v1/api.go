// Package api implements the NutriApp JSON API served under /api/v1.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/mqtt"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
)

// FoodLookup finds a product by barcode.
type FoodLookup interface {
	Lookup(ctx context.Context, barcode string) (*nutrition.Food, error)
}

// EntryPublisher receives every recorded entry.
type EntryPublisher interface {
	PublishEntry(ctx context.Context, event mqtt.EntryEventDTO) error
}

// GoalNotifier alerts when an entry pushes the day over its goal.
type GoalNotifier interface {
	GoalCheck(ctx context.Context, summary nutrition.DailySummary, addedKcal float64) (bool, error)
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	store     *nutrition.Store
	lookup    FoodLookup
	publisher EntryPublisher
	notifier  GoalNotifier
	sessions  sessions.Store
	locale    language.Tag
	goal      int // goal of sessions that never set one
	logger    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLookup enables GET /lookup/:barcode.
func WithLookup(l FoodLookup) Option {
	return func(c *Controller) { c.lookup = l }
}

// WithPublisher publishes recorded entries.
func WithPublisher(p EntryPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithNotifier sends goal alerts after recorded entries.
func WithNotifier(n GoalNotifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithSessionStore replaces the cookie store holding the daily goal.
func WithSessionStore(s sessions.Store) Option {
	return func(c *Controller) { c.sessions = s }
}

// WithLocale sets the language of CSV headers.
func WithLocale(tag language.Tag) Option {
	return func(c *Controller) { c.locale = tag }
}

// WithDefaultGoal sets the goal of sessions that have not chosen one.
func WithDefaultGoal(goal int) Option {
	return func(c *Controller) { c.goal = goal }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates the controller and registers its routes on e. sessionSecret
// signs the session cookie when no store is supplied.
func New(e *echo.Echo, store *nutrition.Store, sessionSecret string, opts ...Option) *Controller {
	c := &Controller{
		Echo:   e,
		store:  store,
		locale: language.Spanish,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.ForService("api")
	}
	if c.sessions == nil {
		c.sessions = newCookieStore(sessionSecret)
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/goal", c.GetGoal)
	c.Group.PUT("/goal", c.SetGoal)

	c.Group.GET("/lookup/:barcode", c.LookupBarcode)

	c.Group.GET("/foods", c.ListFoods)
	c.Group.POST("/foods", c.CreateFood)

	c.Group.POST("/entries", c.CreateEntry)

	c.Group.GET("/today", c.GetToday)
	c.Group.GET("/today.csv", c.ExportToday)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // matches the server log line
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: newCorrelationID(),
	}
}

// newCorrelationID returns the first 8 hex digits of a random UUID.
func newCorrelationID() string {
	id := uuid.NewString()
	return strings.ReplaceAll(id, "-", "")[:8]
}

// HandleError logs err and writes it as an ErrorResponse.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	level := slog.LevelWarn
	if code >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	c.logger.Log(ctx.Request().Context(), level, "API error",
		"correlation_id", resp.CorrelationID,
		"message", message,
		"error", resp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP())

	return ctx.JSON(code, resp)
}

// handleDomainError maps an error from the domain, gateway or lookup layers
// to its HTTP status.
func (c *Controller) handleDomainError(ctx echo.Context, err error, message string) error {
	switch {
	case errors.IsValidation(err) && errors.ContextString(err, "reason") == "calculation":
		return c.HandleError(ctx, err, message, http.StatusUnprocessableEntity)
	case errors.IsValidation(err):
		return c.HandleError(ctx, err, message, http.StatusBadRequest)
	case errors.IsNotFound(err):
		return c.HandleError(ctx, err, message, http.StatusNotFound)
	case errors.IsCategory(err, errors.CategoryStorage), errors.IsCategory(err, errors.CategorySchemaDrift):
		return c.HandleError(ctx, err, "spreadsheet unavailable", http.StatusBadGateway)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return c.HandleError(ctx, err, message, http.StatusGatewayTimeout)
	default:
		return c.HandleError(ctx, err, message, http.StatusInternalServerError)
	}
}
