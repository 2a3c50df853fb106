// Package mqtt publishes readings and station status to a broker. The
// broker is optional equipment: when no broker is configured the collector
// runs without a publisher at all.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/purplexionist/gardenmon/internal/config"
	"github.com/purplexionist/gardenmon/internal/telemetry"
)

type Client struct {
	client    mqtt.Client
	cfg       config.Config
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

// readingMessage is the wire form of one published reading.
type readingMessage struct {
	StationID string `json:"station_id"`
	telemetry.Reading
}

// StationStatus is published retained so dashboards see the last known
// state even between cycles.
type StationStatus struct {
	StationID  string    `json:"station_id"`
	LastSeen   time.Time `json:"last_seen"`
	Healthy    bool      `json:"healthy"`
	SpoolDepth int       `json:"spool_depth"`
}

func NewClient(cfg config.Config, logger *slog.Logger) (*Client, error) {
	c := &Client{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	// Random suffix keeps restarted agents from kicking each other off the
	// broker when a fleet shares a client id prefix.
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.MQTTClientID, uuid.NewString()[:8]))

	// Session settings
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	// Keepalive / timeouts
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Callbacks keep internal state accurate
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})

	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c, nil
}

// Connect establishes the broker connection. It waits for the initial
// connection and respects ctx and Disconnect().
func (c *Client) Connect(ctx context.Context) error {
	// Fail fast if already stopped.
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}

	// Fast path.
	if c.IsConnected() {
		return nil
	}

	// Start connect attempt. With ConnectRetry(true), it may keep retrying internally.
	token := c.client.Connect()

	// Wait in a ctx/stop-aware loop.
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			// OnConnectHandler sets connected=true.
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// PublishReading publishes one reading to the station topic.
func (c *Client) PublishReading(r telemetry.Reading) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := readingTopic(c.cfg.MQTTTopicPrefix, c.cfg.StationID)

	msg := readingMessage{StationID: c.cfg.StationID, Reading: r}
	if msg.CollectedAt.IsZero() {
		msg.CollectedAt = time.Now().UTC()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}

	token := c.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		c.logger.Error("failed to publish reading", "topic", topic, "error", token.Error())
		return fmt.Errorf("publish reading: %w", token.Error())
	}

	c.logger.Debug("published reading", "topic", topic, "station_id", c.cfg.StationID)
	return nil
}

// PublishStatus publishes station liveness, retained.
func (c *Client) PublishStatus(healthy bool, spoolDepth int) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}

	topic := statusTopic(c.cfg.MQTTTopicPrefix, c.cfg.StationID)

	status := StationStatus{
		StationID:  c.cfg.StationID,
		LastSeen:   time.Now().UTC(),
		Healthy:    healthy,
		SpoolDepth: spoolDepth,
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}

	token := c.client.Publish(topic, 1, true, data) // retained
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if token.Error() != nil {
		c.logger.Error("failed to publish status", "topic", topic, "error", token.Error())
		return fmt.Errorf("publish status: %w", token.Error())
	}

	c.logger.Debug("published status",
		"topic", topic,
		"station_id", c.cfg.StationID,
		"healthy", healthy,
		"spool_depth", spoolDepth,
	)
	return nil
}

// IsConnected returns whether the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect stops the client and closes the broker connection.
// Idempotent and safe to call multiple times.
// After Disconnect, Connect() will return "client stopped".
func (c *Client) Disconnect() {
	// Signal shutdown once (unblocks any Connect loops).
	c.stopOnce.Do(func() { close(c.stopCh) })

	// Disconnect without holding c.mu to avoid lock contention/deadlocks.
	// Paho Disconnect quiesces in-flight work for the given ms.
	if c.client != nil {
		// Even if already disconnected, this is safe.
		c.client.Disconnect(250)
	}

	// Update our internal state.
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func readingTopic(prefix, stationID string) string {
	return fmt.Sprintf("%s/%s/reading", prefix, stationID)
}

func statusTopic(prefix, stationID string) string {
	return fmt.Sprintf("%s/%s/status", prefix, stationID)
}
