package cmd

import (
	"context"
	"fmt"
	"time"

	"washbay/internal/adapters/lock"
	"washbay/internal/adapters/storage"
	"washbay/internal/clock"
	"washbay/internal/config"
	"washbay/internal/services"
	"washbay/logging"
	"washbay/paths"
)

// Container holds all dependencies for the application
type Container struct {
	// Services
	BoxRegistry     *services.BoxRegistry
	CleaningGuard   *services.CleaningGuard
	EventService    *services.EventService
	PollingService  *services.PollingService
	Reassignment    *services.ReassignmentCoordinator
	Scheduler       *services.Scheduler
	SessionRegistry *services.SessionRegistry
	Sweeper         *services.Sweeper

	Settings *config.Settings

	// Internal
	clock clock.Clock
	store *storage.Repository
}

// NewContainer opens the configured store, wires every service and
// synchronises the fleet. A nil clock means wall-clock UTC.
func NewContainer(settings *config.Settings, clk clock.Clock) (*Container, error) {
	if clk == nil {
		clk = clock.Real()
	}
	maxOpen := 0
	if settings.Database.MaxOpenConns != nil {
		maxOpen = *settings.Database.MaxOpenConns
	}

	store, err := storage.NewRepository(storage.Options{
		Debug:        settings.IsDebug(),
		DSN:          settings.Database.DSN,
		Driver:       settings.Database.Driver,
		MaxOpenConns: maxOpen,
		Path:         settings.DatabasePath(),
	})
	if err != nil {
		return nil, err
	}

	runner := services.NewRunner(store, clk)
	scheduler := services.NewScheduler(runner, settings.AssignTimeout())

	c := &Container{
		BoxRegistry:   services.NewBoxRegistry(runner, scheduler, store),
		CleaningGuard: services.NewCleaningGuard(runner, scheduler),
		EventService:  services.NewEventService(store),
		PollingService: services.NewPollingService(
			runner,
			scheduler,
			settings.AssignTimeout(),
			settings.CleaningTimeout(),
			settings.ShouldExpireOnPoll(),
		),
		Reassignment:    services.NewReassignmentCoordinator(runner, scheduler, store),
		Scheduler:       scheduler,
		SessionRegistry: services.NewSessionRegistry(runner, scheduler, store, settings.ChemistryMinutes(), settings.AssignTimeout()),
		Settings:        settings,
		clock:           clk,
		store:           store,
	}
	c.Sweeper = c.NewSweeper(settings.SweepInterval())

	if _, err := c.BoxRegistry.SyncFleet(context.Background(), settings.Fleet(clk.Now())); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to synchronise fleet: %w", err)
	}
	logging.Logger.Debug("Container ready", "driver", settings.Database.Driver)
	return c, nil
}

// NewSweeper returns a sweeper guarded by the per-home lock file
func (c *Container) NewSweeper(interval time.Duration) *services.Sweeper {
	return services.NewSweeper(c.Scheduler, lock.NewFileLock(paths.GetSweepLockPath()), c.clock, interval)
}

// Now returns the container's current time
func (c *Container) Now() time.Time {
	return c.clock.Now()
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}
