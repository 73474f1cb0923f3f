package cmd

import (
	"context"
	"fmt"
	"os"

	"washbay/internal/services"
	"washbay/internal/theme"
)

// PollCmd prints one consistent snapshot, as a polling client sees it
type PollCmd struct {
	All    bool   `help:"Include finished sessions"`
	Format string `help:"Output format" enum:"table,json,yaml" default:"json"`
	Since  string `help:"With --all, only sessions finished at or after this time (RFC3339 or relative, e.g. 30m)"`
}

// Run executes the poll command
func (p *PollCmd) Run(cli *CLI) error {
	since, err := parseTimeFlag(p.Since, cli.Container.Now())
	if err != nil {
		return err
	}
	snap, err := cli.Container.PollingService.Snapshot(context.Background(), services.SnapshotQuery{
		IncludeTerminal: p.All,
		Since:           since,
	})
	if err != nil {
		return fmt.Errorf("poll failed: %w", err)
	}
	if p.Format != formatTable {
		return writeStructured(os.Stdout, p.Format, snap)
	}

	fmt.Println(theme.TitleStyle.Render("Boxes"))
	renderBoxes(os.Stdout, snap.Boxes)
	fmt.Println(theme.TitleStyle.Render("Sessions"))
	renderSessions(os.Stdout, snap.Sessions)
	fmt.Println(theme.MutedStyle.Render(fmt.Sprintf("revision %s at %s", snap.Revision, snap.At.Local().Format(timeLayout))))
	return nil
}
