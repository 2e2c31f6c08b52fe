package botctl

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// stopTimeout bounds how long Stop waits for the worker to observe
// cancellation. Stop is a cooperative signal, not a guaranteed join.
const stopTimeout = time.Second

// WorkFunc is the worker body. It must return promptly once ctx is cancelled.
type WorkFunc func(ctx context.Context)

// Controller is the process-wide start/stop gate for the trading worker.
// Constructed once and shared by reference; all state lives behind a single
// mutex since start/stop traffic is rare.
type Controller struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	logger  zerolog.Logger
}

func New(logger zerolog.Logger) *Controller {
	return &Controller{
		logger: logger.With().Str("component", "botctl").Logger(),
	}
}

// Start spawns work as a background goroutine and marks the bot running.
// Returns false without side effects if the bot is already running or work is
// nil.
func (c *Controller) Start(work WorkFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		c.logger.Warn().Msg("bot is already running")
		return false
	}
	if work == nil {
		c.logger.Error().Msg("cannot start bot: no worker function")
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.cancel = cancel
	c.done = done
	c.running = true

	go func() {
		defer close(done)
		work(ctx)
	}()

	c.logger.Info().Msg("trading bot started")
	return true
}

// Stop cancels the worker and waits up to stopTimeout for it to exit. Returns
// false if the bot is not running; returns true once the flag is flipped even
// if the worker is still draining its current step.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		c.logger.Warn().Msg("bot is not running")
		return false
	}

	c.running = false
	c.cancel()

	select {
	case <-c.done:
		c.logger.Info().Msg("trading bot stopped")
	case <-time.After(stopTimeout):
		c.logger.Info().Msg("trading bot stopping, worker still finishing its current step")
	}

	return true
}

// IsRunning reports the current state
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
