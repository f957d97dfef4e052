// Package app assembles the NutriApp components from settings. Every
// command builds one App and closes it when done.
package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/JesusOliveto/CalCalculator/internal/buildinfo"
	"github.com/JesusOliveto/CalCalculator/internal/conf"
	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/httpclient"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/mqtt"
	"github.com/JesusOliveto/CalCalculator/internal/notification"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
	"github.com/JesusOliveto/CalCalculator/internal/observability"
	"github.com/JesusOliveto/CalCalculator/internal/openfoodfacts"
	"github.com/JesusOliveto/CalCalculator/internal/sheets"
)

// sheetsRequestTimeout bounds each call to the spreadsheet API.
const sheetsRequestTimeout = 30 * time.Second

// Options overrides parts of the assembly, mostly for tests.
type Options struct {
	Backend sheets.Backend   // nil connects to Google Sheets
	Clock   func() time.Time // nil means time.Now
	Build   *buildinfo.Context
	Metrics *observability.Metrics // nil creates a fresh registry
}

// App holds the wired components.
type App struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Locale   language.Tag

	Metrics   *observability.Metrics
	Store     *nutrition.Store
	Lookup    *openfoodfacts.Client
	Publisher *mqtt.Publisher      // nil when MQTT is disabled
	Notifier  *notification.Service // nil when notifications are disabled

	logger  *slog.Logger
	closers []func()
}

// Factory builds an App on demand, so commands that never touch the
// spreadsheet do not connect to it.
type Factory func(ctx context.Context) (*App, error)

// NewFactory returns a Factory for settings and opts.
func NewFactory(settings *conf.Settings, opts Options) Factory {
	return func(ctx context.Context) (*App, error) {
		return New(ctx, settings, opts)
	}
}

// New connects the spreadsheet, opens both collections and builds the
// optional integrations enabled in settings.
func New(ctx context.Context, settings *conf.Settings, opts Options) (_ *App, err error) {
	a := &App{
		Settings: settings,
		Build:    opts.Build,
		Locale:   nutrition.MatchLocale(settings.Nutrition.Locale),
		Metrics:  opts.Metrics,
		logger:   logging.ForService("app"),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	if a.Metrics == nil {
		m, err := observability.NewMetrics()
		if err != nil {
			return nil, errors.New(err).
				Component("app").
				Category(errors.CategoryConfiguration).
				Context("operation", "metrics").
				Build()
		}
		a.Metrics = m
	}

	var backend sheets.Backend = opts.Backend
	if backend == nil {
		if backend, err = a.googleBackend(ctx); err != nil {
			return nil, err
		}
	}

	loc, err := settings.Nutrition.Location()
	if err != nil {
		return nil, err
	}

	gw := sheets.NewGateway(backend, sheets.Options{
		CacheTTL:     settings.Sheets.CacheTTL,
		ResetOnDrift: settings.Sheets.ResetOnDrift,
		Logger:       logging.ForService("sheets"),
		Metrics:      a.Metrics.Sheets,
	})
	a.Store, err = nutrition.NewStore(ctx, gw, nutrition.StoreOptions{
		Location: loc,
		Clock:    opts.Clock,
		Logger:   logging.ForService("nutrition"),
		Metrics:  a.Metrics.Nutrition,
	})
	if err != nil {
		return nil, err
	}

	a.Lookup = openfoodfacts.New(openfoodfacts.Config{
		BaseURL:   settings.Lookup.BaseURL,
		Timeout:   settings.Lookup.Timeout,
		RateLimit: settings.Lookup.RateLimit,
		UserAgent: a.userAgent(),
		Locale:    a.Locale,
		Logger:    logging.ForService("openfoodfacts"),
		Metrics:   a.Metrics.Lookup,
	})
	a.closers = append(a.closers, a.Lookup.Close)

	if settings.MQTT.Enabled {
		a.Publisher = a.newPublisher()
		a.closers = append(a.closers, a.Publisher.Close)
	}

	if settings.Notification.Enabled {
		if a.Notifier, err = a.newNotifier(); err != nil {
			return nil, err
		}
	}

	return a, nil
}

func (a *App) googleBackend(ctx context.Context) (*sheets.GoogleBackend, error) {
	s := a.Settings.Sheets
	client := httpclient.New(&httpclient.Config{
		DefaultTimeout: sheetsRequestTimeout,
		UserAgent:      a.userAgent(),
	})
	a.closers = append(a.closers, client.Close)

	return sheets.NewGoogleBackend(ctx, sheets.GoogleConfig{
		SpreadsheetID:   s.SpreadsheetID,
		Title:           s.Title,
		CredentialsFile: s.CredentialsFile,
		CredentialsJSON: []byte(s.CredentialsJSON),
		HTTPClient:      client.StandardClient(),
		Logger:          logging.ForService("sheets"),
	})
}

func (a *App) newPublisher() *mqtt.Publisher {
	s := a.Settings.MQTT
	cfg := mqtt.DefaultConfig()
	cfg.Broker = s.Broker
	cfg.ClientID = s.ClientID
	cfg.Username = s.Username
	cfg.Password = s.Password
	cfg.Topic = s.Topic
	cfg.Retain = s.Retain

	logger := logging.ForService("mqtt")
	client := mqtt.NewClient(cfg, a.Metrics.MQTT, logger)
	return mqtt.NewPublisher(client, cfg.Topic, a.Metrics.MQTT, logger)
}

func (a *App) newNotifier() (*notification.Service, error) {
	s := a.Settings.Notification
	provider := notification.NewShoutrrrProvider("shoutrrr", len(s.URLs) > 0, s.URLs,
		[]notification.Type{notification.TypeGoalExceeded, notification.TypeInfo, notification.TypeError},
		s.Timeout)
	return notification.NewService(notification.ServiceConfig{
		Timeout: s.Timeout,
		Locale:  a.Locale,
		Logger:  logging.ForService("notification"),
		Metrics: a.Metrics.Nutrition,
	}, provider)
}

func (a *App) userAgent() string {
	if ua := a.Settings.Lookup.UserAgent; ua != "" {
		return ua
	}
	return a.Build.UserAgent()
}

// Session returns a session carrying the configured daily goal.
func (a *App) Session() nutrition.Session {
	return nutrition.NewSession(a.Settings.Nutrition.DailyGoal)
}

// Close releases every component in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	a.logger.Debug("components closed")
}
