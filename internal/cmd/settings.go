package cmd

import (
	"fmt"
	"os"

	"washbay/internal/config"
	"washbay/internal/domain"
	"washbay/paths"
)

// SettingsCmd manages $WASHBAY_HOME/settings.json
type SettingsCmd struct {
	Init SettingsInitCmd `cmd:"init" help:"Write a settings file with every default spelled out"`
	Show SettingsShowCmd `cmd:"show" help:"Show the settings file location and loaded values" default:"1"`
}

// SettingsInitCmd writes the default settings file
type SettingsInitCmd struct {
	Force bool `help:"Overwrite an existing settings file"`
}

// Run executes the init command
func (s *SettingsInitCmd) Run(cli *CLI) error {
	path := paths.GetSettingsPath()
	if _, err := os.Stat(path); err == nil && !s.Force {
		return fmt.Errorf("%w: %s already exists, use --force to overwrite", domain.ErrInvalidInput, path)
	}
	if err := config.SaveSettings(path, config.DefaultSettings()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

// SettingsShowCmd prints the loaded settings
type SettingsShowCmd struct {
	Format string `help:"Output format" enum:"json,yaml" default:"json"`
}

// Run executes the show command
func (s *SettingsShowCmd) Run(cli *CLI) error {
	return writeStructured(os.Stdout, s.Format, map[string]any{
		"settings":      cli.settings,
		"settings_file": paths.GetSettingsPath(),
	})
}
