package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/nutrition"
	"github.com/JesusOliveto/CalCalculator/internal/observability/metrics"
)

const defaultSendTimeout = 10 * time.Second

// Service fans notifications out to its providers. A nil *Service is valid
// and sends nothing.
type Service struct {
	providers []Provider
	timeout   time.Duration
	locale    language.Tag
	logger    *slog.Logger
	metrics   *metrics.NutritionMetrics
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Timeout time.Duration // per provider send
	Locale  language.Tag
	Logger  *slog.Logger
	Metrics *metrics.NutritionMetrics
}

// NewService validates every enabled provider and keeps them.
func NewService(cfg ServiceConfig, providers ...Provider) (*Service, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.ForService("notification")
	}

	kept := make([]Provider, 0, len(providers))
	for _, p := range providers {
		if !p.IsEnabled() {
			continue
		}
		if err := p.ValidateConfig(); err != nil {
			return nil, errors.New(fmt.Errorf("provider %s: %w", p.GetName(), err)).
				Component("notification").
				Category(errors.CategoryConfiguration).
				Context("provider", p.GetName()).
				Build()
		}
		kept = append(kept, p)
	}

	return &Service{
		providers: kept,
		timeout:   cfg.Timeout,
		locale:    cfg.Locale,
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}, nil
}

// Notify sends n to every provider that accepts its type. All providers
// are tried; their failures are joined.
func (s *Service) Notify(ctx context.Context, n *Notification) error {
	if s == nil {
		return nil
	}

	var errs []error
	for _, p := range s.providers {
		if !p.SupportsType(n.Type) {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := p.Send(sendCtx, n)
		cancel()
		if err != nil {
			s.logger.Warn("notification delivery failed", "provider", p.GetName(), "type", n.Type, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.GetName(), err))
			continue
		}
		s.logger.Debug("notification delivered", "provider", p.GetName(), "type", n.Type, "id", n.ID)
	}

	if len(errs) > 0 {
		return errors.New(errors.Join(errs...)).
			Component("notification").
			Category(errors.CategoryNotification).
			Context("type", string(n.Type)).
			Build()
	}
	return nil
}

// GoalCheck sends a goal exceeded alert when the portion of addedKcal that
// produced summary pushed the day over its goal. It reports whether an alert
// was sent.
func (s *Service) GoalCheck(ctx context.Context, summary nutrition.DailySummary, addedKcal float64) (bool, error) {
	if s == nil || !nutrition.GoalCrossed(summary.Consumed-addedKcal, summary.Consumed, summary.Goal) {
		return false, nil
	}
	if err := s.Notify(ctx, GoalExceeded(summary, s.locale)); err != nil {
		return false, err
	}
	s.metrics.RecordGoalAlert()
	return true, nil
}
