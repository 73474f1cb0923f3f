package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"washbay/internal/services"
	"washbay/logging"
)

// ServeCmd runs the expiry sweeper in the foreground
type ServeCmd struct {
	Interval time.Duration `help:"Sweep interval (overrides sweep_interval_seconds)"`
}

// Run executes the serve command until SIGINT or SIGTERM
func (s *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweeper := cli.Container.Sweeper
	if s.Interval > 0 {
		sweeper = cli.Container.NewSweeper(s.Interval)
	}

	err := sweeper.Run(ctx)
	if errors.Is(err, services.ErrSweeperRunning) {
		logging.Logger.Warn("Sweeper already running for this home")
	}
	return err
}
