package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"washbay/internal/cmd"
	"washbay/internal/config"
	"washbay/version"
)

func main() {
	// Load settings from $WASHBAY_HOME/settings.json
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load settings: %v\n", err)
		settings = &config.Settings{}
		settings.ApplyEnv()
	}

	// Container is created in CLI.AfterApply() after logging is initialized
	var cli cmd.CLI
	cli.SetSettings(settings)
	ctx := kong.Parse(&cli,
		kong.Name("washbay"),
		kong.Description(version.Tagline),
		kong.Vars{
			"version": version.Info(),
		},
		kong.UsageOnError(),
		kong.Bind(&cli),
	)

	err = ctx.Run()
	cli.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
