package cmd

import (
	"context"
	"fmt"
	"os"

	"washbay/internal/domain"
)

// BoxesCmd inspects boxes and manages operator holds
type BoxesCmd struct {
	Compatible  BoxesCompatibleCmd  `cmd:"compatible" help:"List free boxes able to serve a request"`
	List        BoxesListCmd        `cmd:"list" help:"List boxes" default:"1"`
	Maintenance BoxesMaintenanceCmd `cmd:"maintenance" help:"Take a box out of service or return it (operator)"`
	Reserve     BoxesReserveCmd     `cmd:"reserve" help:"Hold a free box so the scheduler skips it (operator)"`
	Unreserve   BoxesUnreserveCmd   `cmd:"unreserve" help:"Release an operator hold (operator)"`
	View        BoxesViewCmd        `cmd:"view" help:"View a box"`
}

// BoxTarget is shared by commands that act on one box
type BoxTarget struct {
	Format string `help:"Output format" enum:"table,json,yaml" default:"table"`
	Number int    `arg:"" help:"Box number"`
}

type boxOp func(ctx context.Context, c *Container, actor domain.Actor, boxID string) (*domain.Box, error)

// runBoxOp resolves the box number, executes op as the caller and prints the box
func runBoxOp(cli *CLI, target BoxTarget, op boxOp) error {
	actor, err := cli.Caller()
	if err != nil {
		return err
	}
	ctx := context.Background()
	box, err := cli.Container.BoxRegistry.GetByNumber(ctx, target.Number)
	if err != nil {
		return err
	}
	if op != nil {
		if box, err = op(ctx, cli.Container, actor, box.ID); err != nil {
			return err
		}
	}
	view, err := cli.Container.PollingService.GetBox(ctx, box.ID)
	if err != nil {
		return fmt.Errorf("failed to read box: %w", err)
	}
	if target.Format == formatTable {
		renderBoxDetail(os.Stdout, *view)
		return nil
	}
	return writeStructured(os.Stdout, target.Format, view)
}

// BoxesViewCmd views a box
type BoxesViewCmd struct {
	BoxTarget `embed:""`
}

// Run executes the view command
func (b *BoxesViewCmd) Run(cli *CLI) error {
	return runBoxOp(cli, b.BoxTarget, nil)
}

// BoxesReserveCmd places an operator hold
type BoxesReserveCmd struct {
	BoxTarget `embed:""`
}

// Run executes the reserve command
func (b *BoxesReserveCmd) Run(cli *CLI) error {
	return runBoxOp(cli, b.BoxTarget, func(ctx context.Context, c *Container, actor domain.Actor, id string) (*domain.Box, error) {
		return c.BoxRegistry.Reserve(ctx, actor, id)
	})
}

// BoxesUnreserveCmd lifts an operator hold
type BoxesUnreserveCmd struct {
	BoxTarget `embed:""`
}

// Run executes the unreserve command
func (b *BoxesUnreserveCmd) Run(cli *CLI) error {
	return runBoxOp(cli, b.BoxTarget, func(ctx context.Context, c *Container, actor domain.Actor, id string) (*domain.Box, error) {
		return c.BoxRegistry.Unreserve(ctx, actor, id)
	})
}

// BoxesMaintenanceCmd sets or clears maintenance
type BoxesMaintenanceCmd struct {
	BoxTarget `embed:""`
	Clear     bool   `help:"Return the box to service"`
	Reason    string `help:"Why the box is out of service"`
}

// Run executes the maintenance command
func (b *BoxesMaintenanceCmd) Run(cli *CLI) error {
	return runBoxOp(cli, b.BoxTarget, func(ctx context.Context, c *Container, actor domain.Actor, id string) (*domain.Box, error) {
		if b.Clear {
			return c.BoxRegistry.ClearMaintenance(ctx, actor, id)
		}
		return c.BoxRegistry.SetMaintenance(ctx, actor, id, b.Reason)
	})
}

// BoxesListCmd lists boxes
type BoxesListCmd struct {
	Format  string   `help:"Output format" enum:"table,json,yaml" default:"table"`
	Service string   `help:"Filter by service type (wash, air_dry, vacuum)"`
	Status  []string `help:"Filter by status (repeatable)" short:"s"`
}

// Run executes the list command
func (b *BoxesListCmd) Run(cli *CLI) error {
	var filter domain.BoxFilter
	if b.Service != "" {
		serviceType, err := domain.ParseServiceType(b.Service)
		if err != nil {
			return err
		}
		filter.ServiceType = serviceType
	}
	for _, name := range b.Status {
		st, err := domain.ParseBoxStatus(name)
		if err != nil {
			return err
		}
		filter.Statuses = append(filter.Statuses, st)
	}
	boxes, err := cli.Container.BoxRegistry.List(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("failed to list boxes: %w", err)
	}
	return printBoxes(cli, b.Format, boxes)
}

// BoxesCompatibleCmd lists free boxes that can take a request
type BoxesCompatibleCmd struct {
	Chemistry bool   `help:"Require chemistry capability"`
	Format    string `help:"Output format" enum:"table,json,yaml" default:"table"`
	Service   string `help:"Service type" enum:"wash,air_dry,vacuum" required:""`
}

// Run executes the compatible command
func (b *BoxesCompatibleCmd) Run(cli *CLI) error {
	serviceType, err := domain.ParseServiceType(b.Service)
	if err != nil {
		return err
	}
	boxes, err := cli.Container.BoxRegistry.FindCompatible(context.Background(), serviceType, b.Chemistry)
	if err != nil {
		return fmt.Errorf("failed to find boxes: %w", err)
	}
	return printBoxes(cli, b.Format, boxes)
}

func printBoxes(cli *CLI, format string, boxes []domain.Box) error {
	views := cli.Container.PollingService.BoxViews(boxes)
	if format == formatTable {
		renderBoxes(os.Stdout, views)
		return nil
	}
	return writeStructured(os.Stdout, format, views)
}
