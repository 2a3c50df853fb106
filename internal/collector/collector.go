// Package collector runs the fixed-interval measurement loop: read every
// sensor, persist one environmental_data row, drain the spool, publish.
package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/purplexionist/gardenmon/internal/spool"
	"github.com/purplexionist/gardenmon/internal/storage"
	"github.com/purplexionist/gardenmon/internal/telemetry"
)

// drainBatchSize bounds how many spooled readings are re-inserted per cycle
// so a long outage backlog cannot starve fresh readings.
const drainBatchSize = 25

// Sensor is one measurement source. Collect fills the fields it owns on r
// and leaves the rest alone.
type Sensor interface {
	Name() string
	Collect(ctx context.Context, r *telemetry.Reading) error
}

// Publisher pushes readings and station status to the broker. nil disables
// publishing entirely.
type Publisher interface {
	PublishReading(r telemetry.Reading) error
	PublishStatus(healthy bool, spoolDepth int) error
	IsConnected() bool
}

// Status is the last-cycle state exposed on /healthz.
type Status struct {
	LastCycle   time.Time `json:"last_cycle,omitzero"`
	LastSuccess time.Time `json:"last_success,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Cycles      uint64    `json:"cycles"`
	SpoolDepth  int       `json:"spool_depth"`
}

type Collector struct {
	interval time.Duration
	sensors  []Sensor
	repo     storage.Repository
	queue    *spool.Queue
	pub      Publisher
	logger   *slog.Logger

	mu     sync.RWMutex
	status Status
}

// New assembles a collector. queue may be nil to disable spooling, pub may
// be nil to disable publishing.
func New(interval time.Duration, sensors []Sensor, repo storage.Repository, queue *spool.Queue, pub Publisher, logger *slog.Logger) *Collector {
	return &Collector{
		interval: interval,
		sensors:  sensors,
		repo:     repo,
		queue:    queue,
		pub:      pub,
		logger:   logger,
	}
}

// Run executes one cycle immediately, then one per interval tick until ctx
// is cancelled. Cycle errors are logged, never fatal.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("collector started",
		"interval", c.interval,
		"sensors", len(c.sensors),
	)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	if err := c.Cycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("collection cycle failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("collector stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := c.Cycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("collection cycle failed", "error", err)
			}
		}
	}
}

// Cycle reads every sensor once and persists the result. A per-sensor
// failure leaves its column NULL; the cycle only fails when no sensor
// produced a value or the reading could neither be inserted nor spooled.
func (c *Collector) Cycle(ctx context.Context) error {
	start := time.Now()
	reading := c.Collect(ctx)

	var err error
	if reading.Empty() {
		err = errors.New("all sensors failed, nothing to persist")
	} else {
		err = c.persist(ctx, reading)
	}

	c.recordCycle(ctx, err)
	c.publish(reading, err == nil)

	if err != nil {
		return err
	}
	c.logger.Debug("cycle complete",
		"duration_ms", time.Since(start).Milliseconds(),
		"reading", reading.String(),
	)
	return nil
}

// Collect reads the sensors in their configured order and returns the
// assembled snapshot. Failed sensors log a warning and stay nil.
func (c *Collector) Collect(ctx context.Context) telemetry.Reading {
	reading := telemetry.Reading{CollectedAt: time.Now().UTC()}
	for _, s := range c.sensors {
		if ctx.Err() != nil {
			break
		}
		if err := s.Collect(ctx, &reading); err != nil {
			c.logger.Warn("sensor read failed", "sensor", s.Name(), "error", err)
		}
	}
	return reading
}

// Status returns a copy of the last-cycle state.
func (c *Collector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// persist inserts the reading, falling back to the spool on transient
// database errors. Invalid readings are dropped, not spooled; they would
// fail again on every drain.
func (c *Collector) persist(ctx context.Context, reading telemetry.Reading) error {
	err := c.repo.InsertReading(ctx, reading)
	if err == nil {
		c.drain(ctx)
		return nil
	}
	if errors.Is(err, storage.ErrInvalidReading) {
		return err
	}

	c.logger.Warn("insert failed, spooling reading", "error", err)
	if c.queue == nil {
		return err
	}
	if spoolErr := c.queue.Enqueue(ctx, reading); spoolErr != nil {
		return fmt.Errorf("insert failed (%w) and spool failed: %w", err, spoolErr)
	}
	return nil
}

// drain re-inserts a bounded batch of spooled readings after a successful
// insert proved the database reachable. Stops at the first transient error;
// the rest stay queued for the next cycle.
func (c *Collector) drain(ctx context.Context) {
	if c.queue == nil {
		return
	}
	entries, err := c.queue.Peek(ctx, drainBatchSize)
	if err != nil {
		c.logger.Error("spool peek failed", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	var done []int64
	for _, e := range entries {
		err := c.repo.InsertReading(ctx, e.Reading)
		if err == nil {
			done = append(done, e.ID)
			continue
		}
		if errors.Is(err, storage.ErrInvalidReading) {
			c.logger.Warn("dropping invalid spooled reading", "id", e.ID, "error", err)
			done = append(done, e.ID)
			continue
		}
		c.logger.Warn("spool drain interrupted", "error", err)
		break
	}
	if len(done) == 0 {
		return
	}
	if err := c.queue.Remove(ctx, done); err != nil {
		c.logger.Error("spool remove failed", "error", err)
		return
	}
	c.logger.Info("spool drained", "count", len(done), "batch", len(entries))
}

func (c *Collector) recordCycle(ctx context.Context, err error) {
	now := time.Now().UTC()

	depth := 0
	if c.queue != nil {
		if n, lenErr := c.queue.Len(ctx); lenErr == nil {
			depth = n
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.LastCycle = now
	c.status.Cycles++
	c.status.SpoolDepth = depth
	if err != nil {
		c.status.LastError = err.Error()
		return
	}
	c.status.LastError = ""
	c.status.LastSuccess = now
}

// publish pushes the reading and the retained station status. Broker
// trouble never affects persistence.
func (c *Collector) publish(reading telemetry.Reading, healthy bool) {
	if c.pub == nil || !c.pub.IsConnected() {
		return
	}
	if !reading.Empty() {
		if err := c.pub.PublishReading(reading); err != nil {
			c.logger.Warn("publish reading failed", "error", err)
		}
	}
	if err := c.pub.PublishStatus(healthy, c.Status().SpoolDepth); err != nil {
		c.logger.Warn("publish status failed", "error", err)
	}
}
