package cmd

import (
	"context"
	"fmt"
	"os"
)

// TickCmd runs one scheduler pass
type TickCmd struct {
	Format string `help:"Output format" enum:"table,json,yaml" default:"table"`
}

// Run executes the tick command
func (t *TickCmd) Run(cli *CLI) error {
	result, err := cli.Container.Scheduler.Tick(context.Background())
	if err != nil {
		return fmt.Errorf("tick failed: %w", err)
	}
	if t.Format != formatTable {
		return writeStructured(os.Stdout, t.Format, result)
	}
	for _, id := range result.Expired {
		fmt.Printf("expired  %s\n", id)
	}
	for _, a := range result.Assigned {
		fmt.Printf("assigned %s -> box %d\n", a.SessionID, a.BoxNumber)
	}
	fmt.Printf("%d expired, %d assigned\n", len(result.Expired), len(result.Assigned))
	return nil
}
