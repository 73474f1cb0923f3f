package cmd

import (
	"context"
	"fmt"
	"os"

	"washbay/internal/domain"
	"washbay/internal/theme"
)

// CleaningCmd drives the single facility-wide cleaning slot
type CleaningCmd struct {
	Cancel   CleaningCancelCmd   `cmd:"cancel" help:"Drop a cleaning reservation that has not started"`
	Complete CleaningCompleteCmd `cmd:"complete" help:"Finish cleaning and return the box to service"`
	Reserve  CleaningReserveCmd  `cmd:"reserve" help:"Claim the cleaning slot for a box"`
	Start    CleaningStartCmd    `cmd:"start" help:"Start cleaning a vacant box"`
	Status   CleaningStatusCmd   `cmd:"status" help:"Show which box holds the cleaning slot"`
}

// CleaningReserveCmd claims the cleaning slot
type CleaningReserveCmd struct {
	BoxTarget `embed:""`
}

// Run executes the reserve command
func (r *CleaningReserveCmd) Run(cli *CLI) error {
	return runBoxOp(cli, r.BoxTarget, func(ctx context.Context, c *Container, actor domain.Actor, id string) (*domain.Box, error) {
		return c.CleaningGuard.ReserveCleaning(ctx, actor, id)
	})
}

// CleaningStartCmd starts cleaning
type CleaningStartCmd struct {
	BoxTarget `embed:""`
}

// Run executes the start command
func (r *CleaningStartCmd) Run(cli *CLI) error {
	return runBoxOp(cli, r.BoxTarget, func(ctx context.Context, c *Container, actor domain.Actor, id string) (*domain.Box, error) {
		return c.CleaningGuard.StartCleaning(ctx, actor, id)
	})
}

// CleaningCancelCmd drops a reservation
type CleaningCancelCmd struct {
	BoxTarget `embed:""`
}

// Run executes the cancel command
func (r *CleaningCancelCmd) Run(cli *CLI) error {
	return runBoxOp(cli, r.BoxTarget, func(ctx context.Context, c *Container, actor domain.Actor, id string) (*domain.Box, error) {
		return c.CleaningGuard.CancelCleaning(ctx, actor, id)
	})
}

// CleaningCompleteCmd finishes cleaning
type CleaningCompleteCmd struct {
	BoxTarget `embed:""`
}

// Run executes the complete command
func (r *CleaningCompleteCmd) Run(cli *CLI) error {
	return runBoxOp(cli, r.BoxTarget, func(ctx context.Context, c *Container, actor domain.Actor, id string) (*domain.Box, error) {
		return c.CleaningGuard.CompleteCleaning(ctx, actor, id)
	})
}

// CleaningStatusCmd shows the slot holder
type CleaningStatusCmd struct {
	Format string `help:"Output format" enum:"table,json,yaml" default:"table"`
}

// Run executes the status command
func (r *CleaningStatusCmd) Run(cli *CLI) error {
	ctx := context.Background()
	holder, err := cli.Container.CleaningGuard.Holder(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cleaning slot: %w", err)
	}
	if holder == nil {
		if r.Format == formatTable {
			fmt.Println(theme.MutedStyle.Render("Cleaning slot is free"))
			return nil
		}
		return writeStructured(os.Stdout, r.Format, map[string]any{"holder": nil})
	}

	views := cli.Container.PollingService.BoxViews([]domain.Box{*holder})
	if r.Format == formatTable {
		renderBoxDetail(os.Stdout, views[0])
		return nil
	}
	return writeStructured(os.Stdout, r.Format, map[string]any{"holder": views[0]})
}
