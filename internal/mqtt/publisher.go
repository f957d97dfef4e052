package mqtt

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/observability/metrics"
)

// Publisher sends entry events to the configured topic. A nil *Publisher
// is valid and publishes nothing.
type Publisher struct {
	client  Client
	topic   string
	metrics *metrics.MQTTMetrics
	logger  *slog.Logger
}

// NewPublisher wraps client.
func NewPublisher(client Client, topic string, m *metrics.MQTTMetrics, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = logging.ForService("mqtt")
	}
	if topic == "" {
		topic = DefaultConfig().Topic
	}
	return &Publisher{client: client, topic: topic, metrics: m, logger: logger}
}

// PublishEntry publishes event. When the client is disconnected it tries
// to connect once.
func (p *Publisher) PublishEntry(ctx context.Context, event EntryEventDTO) error {
	if p == nil {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordError("marshal")
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("operation", "marshal_entry_event").
			Build()
	}

	if !p.client.IsConnected() {
		if err := p.client.Connect(ctx); err != nil {
			return err
		}
	}

	if err := p.client.Publish(ctx, p.topic, payload); err != nil {
		p.logger.Warn("failed to publish entry event", "entry_id", event.EntryID, "error", err)
		return err
	}
	p.logger.Debug("published entry event", "entry_id", event.EntryID, "topic", p.topic)
	return nil
}

// Close disconnects the underlying client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Disconnect()
}
