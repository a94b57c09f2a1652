package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IntervalTriggerConfig holds configuration for the interval trigger
type IntervalTriggerConfig struct {
	Kind     JobKind
	Interval time.Duration

	// RunOnStart submits a job immediately instead of waiting one interval
	RunOnStart bool
}

// IntervalTrigger submits a job of one kind to the scheduler on a fixed period.
// A tick is skipped while an earlier job of the same kind is still queued
type IntervalTrigger struct {
	config    IntervalTriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastFired time.Time
}

// NewIntervalTrigger creates a new interval trigger
func NewIntervalTrigger(config IntervalTriggerConfig, scheduler *Scheduler, logger *zap.Logger) *IntervalTrigger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntervalTrigger{
		config:    config,
		scheduler: scheduler,
		logger:    logger,
	}
}

// Start starts the trigger loop
func (c *IntervalTrigger) Start(ctx context.Context) error {
	if c.config.Interval <= 0 {
		return ErrInvalidConfig
	}

	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = true
	c.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if c.config.RunOnStart {
		c.fire()
	}

	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Interval trigger started",
		zap.String("job_kind", string(c.config.Kind)),
		zap.Duration("interval", c.config.Interval),
	)

	return nil
}

// Stop stops the trigger loop
func (c *IntervalTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("Interval trigger stopped", zap.String("job_kind", string(c.config.Kind)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LastFired returns when a job was last accepted by the scheduler
func (c *IntervalTrigger) LastFired() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastFired
}

// TriggerNow submits a job outside the regular period
func (c *IntervalTrigger) TriggerNow() error {
	job := NewJob(c.config.Kind, c.scheduler.config.RetryAttempts)
	if err := c.scheduler.SubmitIfIdle(job); err != nil {
		return err
	}
	c.mu.Lock()
	c.lastFired = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *IntervalTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.fire()
		}
	}
}

func (c *IntervalTrigger) fire() {
	err := c.TriggerNow()
	switch {
	case err == nil:
	case errors.Is(err, ErrJobAlreadyQueued):
		c.logger.Debug("Previous job still queued, skipping tick",
			zap.String("job_kind", string(c.config.Kind)),
		)
	default:
		c.logger.Warn("Failed to submit scheduled job",
			zap.String("job_kind", string(c.config.Kind)),
			zap.Error(err),
		)
	}
}
