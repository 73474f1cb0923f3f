package cmd

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"washbay/internal/config"
	"washbay/internal/domain"
	"washbay/logging"
	"washbay/paths"
)

// CLI represents the command-line interface structure
type CLI struct {
	Version     kong.VersionFlag `help:"Show version information"`
	Actor       string           `help:"Identifier of the person issuing the command" env:"WASHBAY_ACTOR"`
	Debug       bool             `help:"Enable debug logging to file" short:"d" env:"WASHBAY_DEBUG"`
	DebugFile   string           `help:"Custom path for debug log file (disables automatic cleanup)" env:"WASHBAY_DEBUG_FILE"`
	MaxLogFiles int              `help:"Maximum number of log files to keep (0 = unlimited)" default:"1000" env:"WASHBAY_MAX_LOG_FILES"`
	Role        string           `help:"Role of the caller" enum:"cashier,cleaner,customer,system" default:"customer" env:"WASHBAY_ROLE"`

	Boxes    BoxesCmd    `cmd:"boxes" help:"Inspect boxes and manage holds and maintenance"`
	Cleaning CleaningCmd `cmd:"cleaning" help:"Reserve, start and finish box cleaning"`
	Events   EventsCmd   `cmd:"events" help:"Inspect the audit trail"`
	Poll     PollCmd     `cmd:"poll" help:"Print a consistent snapshot of the facility"`
	Serve    ServeCmd    `cmd:"serve" help:"Run the expiry sweeper until interrupted"`
	Sessions SessionsCmd `cmd:"sessions" help:"Manage wash sessions"`
	Settings SettingsCmd `cmd:"settings" help:"Inspect or initialize settings.json"`
	Tick     TickCmd     `cmd:"tick" help:"Expire overdue sessions and assign queued ones"`

	// Internal fields (not flags)
	Container *Container       `kong:"-"`
	settings  *config.Settings `kong:"-"`
}

// SetSettings sets the settings on the CLI struct
func (c *CLI) SetSettings(settings *config.Settings) {
	c.settings = settings
}

// AfterApply initializes logging after CLI parsing and applies settings
func (c *CLI) AfterApply() error {
	if c.settings == nil {
		c.settings = &config.Settings{}
	}

	// CLI flags > env vars > settings.json > defaults
	if c.MaxLogFiles == config.DefaultMaxLogFiles {
		if _, hasEnv := os.LookupEnv("WASHBAY_MAX_LOG_FILES"); !hasEnv {
			c.MaxLogFiles = c.settings.GetMaxLogFiles()
		}
	}
	if !c.Debug {
		if _, hasEnv := os.LookupEnv("WASHBAY_DEBUG"); !hasEnv {
			c.Debug = c.settings.IsDebug()
		}
	}

	if _, err := logging.Initialize(logging.Options{
		Debug:       c.Debug,
		Dir:         paths.GetLogDir(),
		File:        c.DebugFile,
		MaxLogFiles: c.MaxLogFiles,
	}); err != nil {
		return err
	}

	// Container is created after logging so the GORM logger has a handler
	container, err := NewContainer(c.settings, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	c.Container = container
	return nil
}

// Caller returns the actor on whose behalf commands run
func (c *CLI) Caller() (domain.Actor, error) {
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{ID: c.Actor, Role: role}, nil
}

// Close closes all resources held by the CLI
func (c *CLI) Close() error {
	if c.Container != nil {
		return c.Container.Close()
	}
	return nil
}
