package services

import (
	"context"
	"errors"
	"time"

	"washbay/internal/clock"
	"washbay/internal/ports"
	"washbay/logging"
)

// ErrSweeperRunning is returned when another process already sweeps this home
var ErrSweeperRunning = errors.New("another sweeper is already running")

// Sweeper periodically expires overdue sessions and runs the scheduler.
// Expiry is also applied on every tick and poll, so the sweeper only keeps
// state tidy between client requests.
type Sweeper struct {
	clock     clock.Clock
	interval  time.Duration
	lock      ports.SweepLock
	scheduler *Scheduler
}

// NewSweeper creates a new Sweeper
func NewSweeper(scheduler *Scheduler, lock ports.SweepLock, clk clock.Clock, interval time.Duration) *Sweeper {
	if clk == nil {
		clk = clock.Real()
	}
	return &Sweeper{
		clock:     clk,
		interval:  interval,
		lock:      lock,
		scheduler: scheduler,
	}
}

// Run sweeps every interval until ctx is canceled. It fails fast with
// ErrSweeperRunning if the sweep lock is held elsewhere.
func (w *Sweeper) Run(ctx context.Context) error {
	acquired, err := w.lock.TryLock()
	if err != nil {
		return err
	}
	if !acquired {
		return ErrSweeperRunning
	}
	defer func() {
		if err := w.lock.Unlock(); err != nil {
			logging.Logger.Warn("Failed to release sweep lock", "error", err)
		}
	}()

	logging.Logger.Info("Sweeper started", "interval", w.interval)
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	w.SweepOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logging.Logger.Info("Sweeper stopped")
			return nil
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single pass. Failures are logged and left for the next pass.
func (w *Sweeper) SweepOnce(ctx context.Context) TickResult {
	result, err := w.scheduler.Tick(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logging.Logger.Warn("Sweep failed", "error", err)
		}
		return result
	}
	if len(result.Expired) > 0 || len(result.Assigned) > 0 {
		logging.Logger.Info("Sweep applied changes",
			"expired", len(result.Expired),
			"assigned", len(result.Assigned))
	}
	return result
}
