package mqtt

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/JesusOliveto/CalCalculator/internal/errors"
	"github.com/JesusOliveto/CalCalculator/internal/logging"
	"github.com/JesusOliveto/CalCalculator/internal/observability/metrics"
)

// client implements Client on top of paho. Reconnection after a lost
// connection is left to paho's auto-reconnect.
type client struct {
	config   Config
	metrics  *metrics.MQTTMetrics
	logger   *slog.Logger
	newPaho  func(*paho.ClientOptions) paho.Client
	resolver func(ctx context.Context, host string) ([]string, error)

	mu             sync.Mutex
	internalClient paho.Client
}

// NewClient creates a client. Nothing is dialled until Connect.
func NewClient(cfg Config, m *metrics.MQTTMetrics, logger *slog.Logger) Client {
	if logger == nil {
		logger = logging.ForService("mqtt")
	}
	return &client{
		config:   cfg.withDefaults(),
		metrics:  m,
		logger:   logger,
		newPaho:  paho.NewClient,
		resolver: net.DefaultResolver.LookupHost,
	}
}

// Connect resolves the broker host first so DNS problems surface as such,
// then connects.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, err := url.Parse(c.config.Broker)
	if err != nil || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("missing host")
		}
		return c.connectError(fmt.Errorf("invalid broker URL %q: %w", c.config.Broker, err))
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := c.resolver(ctx, host); err != nil {
			return c.connectError(fmt.Errorf("failed to resolve hostname %s: %w", host, err))
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	// Two live clients with one client id would keep evicting each other.
	c.closeInternal()
	c.internalClient = c.newPaho(opts)

	token := c.internalClient.Connect()
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		// The attempt keeps running inside paho until disconnected.
		c.closeInternal()
		return c.connectError(err)
	}

	c.metrics.UpdateConnectionStatus(true)
	return nil
}

// Publish sends payload at QoS 0.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient == nil || !c.internalClient.IsConnected() {
		c.metrics.RecordError("publish")
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("topic", topic).
			Build()
	}

	start := time.Now()
	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	if err := waitToken(ctx, token, c.config.PublishTimeout); err != nil {
		c.metrics.RecordError("publish")
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Context("payload_size", len(payload)).
			Build()
	}

	c.metrics.RecordPublish(len(payload), start)
	c.logger.Debug("published message", "topic", topic, "size", len(payload))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeInternal()
}

// closeInternal disconnects and drops the paho client, including one that
// is still connecting. Callers hold c.mu.
func (c *client) closeInternal() {
	if c.internalClient == nil {
		return
	}
	c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.internalClient = nil
	c.metrics.UpdateConnectionStatus(false)
}

func (c *client) onConnect(paho.Client) {
	c.logger.Info("connected to MQTT broker", "broker", c.config.Broker)
	c.metrics.UpdateConnectionStatus(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("connection to MQTT broker lost", "broker", c.config.Broker, "error", err)
	c.metrics.UpdateConnectionStatus(false)
	c.metrics.RecordError("connection_lost")
}

func (c *client) connectError(err error) error {
	c.metrics.RecordError("connect")
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTConnection).
		Context("broker", c.config.Broker).
		Build()
}

// waitToken waits for token to complete, giving up at timeout or when ctx
// is done.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timed out after %v", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}
