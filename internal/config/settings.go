package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/tidwall/jsonc"

	"washbay/internal/domain"
	"washbay/paths"
)

const (
	DefaultAssignTimeoutMinutes   = 10
	DefaultChemistryTimeMinutes   = 5
	DefaultCleaningTimeoutMinutes = 3
	DefaultMaxLogFiles            = 1000
	DefaultSweepIntervalSeconds   = 3
)

// DatabaseSettings selects and configures the storage backend
type DatabaseSettings struct {
	DSN          string `json:"dsn,omitempty"`
	Driver       string `json:"driver,omitempty"`
	MaxOpenConns *int   `json:"max_open_conns,omitempty"`
	Path         string `json:"path,omitempty"`
}

// BoxConfig declares one bay of the fleet
type BoxConfig struct {
	Chemistry bool   `json:"chemistry,omitempty"`
	Number    int    `json:"number"`
	Service   string `json:"service"`
}

// Settings represents the structure of $WASHBAY_HOME/settings.json.
// Unset fields fall back to the defaults above.
type Settings struct {
	AssignTimeoutMinutes   *int             `json:"assign_timeout_minutes,omitempty"`
	Boxes                  []BoxConfig      `json:"boxes,omitempty"`
	ChemistryTimeMinutes   *int             `json:"chemistry_time_minutes,omitempty"`
	CleaningTimeoutMinutes *int             `json:"cleaning_timeout_minutes,omitempty"`
	Database               DatabaseSettings `json:"database,omitempty"`
	Debug                  *bool            `json:"debug,omitempty"`
	ExpireOnPoll           *bool            `json:"expire_on_poll,omitempty"`
	MaxLogFiles            *int             `json:"max_log_files,omitempty"`
	SweepIntervalSeconds   *int             `json:"sweep_interval_seconds,omitempty"`
}

// DefaultFleet is used when settings declare no boxes
var DefaultFleet = []BoxConfig{
	{Number: 1, Service: string(domain.ServiceWash), Chemistry: true},
	{Number: 2, Service: string(domain.ServiceWash), Chemistry: true},
	{Number: 3, Service: string(domain.ServiceWash), Chemistry: true},
	{Number: 4, Service: string(domain.ServiceWash), Chemistry: true},
	{Number: 5, Service: string(domain.ServiceWash)},
	{Number: 6, Service: string(domain.ServiceWash)},
	{Number: 7, Service: string(domain.ServiceAirDry)},
	{Number: 8, Service: string(domain.ServiceVacuum)},
}

// LoadSettings loads settings from $WASHBAY_HOME/settings.json and applies
// environment overrides. A missing file is not an error.
func LoadSettings() (*Settings, error) {
	settings, err := LoadSettingsFrom(paths.GetSettingsPath())
	if err != nil {
		return nil, err
	}
	settings.ApplyEnv()
	return settings, nil
}

// LoadSettingsFrom parses a settings file. Comments and trailing commas are allowed.
func LoadSettingsFrom(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(jsonc.ToJSON(data), &settings); err != nil {
		return nil, fmt.Errorf("invalid settings.json: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	if settings.Database.Path != "" {
		settings.Database.Path = paths.ExpandPath(settings.Database.Path)
	}
	return &settings, nil
}

// DefaultSettings spells out every default, including the fleet
func DefaultSettings() *Settings {
	assign := DefaultAssignTimeoutMinutes
	chemistry := DefaultChemistryTimeMinutes
	cleaning := DefaultCleaningTimeoutMinutes
	maxLogFiles := DefaultMaxLogFiles
	sweep := DefaultSweepIntervalSeconds
	debug, expireOnPoll := false, true
	return &Settings{
		AssignTimeoutMinutes:   &assign,
		Boxes:                  slices.Clone(DefaultFleet),
		ChemistryTimeMinutes:   &chemistry,
		CleaningTimeoutMinutes: &cleaning,
		Database:               DatabaseSettings{Driver: "sqlite"},
		Debug:                  &debug,
		ExpireOnPoll:           &expireOnPoll,
		MaxLogFiles:            &maxLogFiles,
		SweepIntervalSeconds:   &sweep,
	}
}

// SaveSettings writes settings to path as indented JSON
func SaveSettings(path string, settings *Settings) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// ApplyEnv overlays WASHBAY_* environment variables
func (s *Settings) ApplyEnv() {
	if os.Getenv("WASHBAY_DEBUG") == "1" {
		debug := true
		s.Debug = &debug
	}
	if driver := os.Getenv("WASHBAY_DB_DRIVER"); driver != "" {
		s.Database.Driver = driver
	}
	if dsn := os.Getenv("WASHBAY_DB_DSN"); dsn != "" {
		s.Database.DSN = dsn
	}
	if v := os.Getenv("WASHBAY_MAX_LOG_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.MaxLogFiles = &n
		}
	}
}

// Validate checks value ranges and the fleet definition
func (s *Settings) Validate() error {
	positive := map[string]*int{
		"chemistry_time_minutes":   s.ChemistryTimeMinutes,
		"cleaning_timeout_minutes": s.CleaningTimeoutMinutes,
		"sweep_interval_seconds":   s.SweepIntervalSeconds,
	}
	for key, v := range positive {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", domain.ErrInvalidInput, key, *v)
		}
	}
	if s.AssignTimeoutMinutes != nil && *s.AssignTimeoutMinutes < 0 {
		return fmt.Errorf("%w: assign_timeout_minutes must not be negative", domain.ErrInvalidInput)
	}

	seen := make(map[int]bool, len(s.Boxes))
	for _, b := range s.Boxes {
		if b.Number <= 0 {
			return fmt.Errorf("%w: box number must be positive, got %d", domain.ErrInvalidInput, b.Number)
		}
		if seen[b.Number] {
			return fmt.Errorf("%w: box %d declared twice", domain.ErrInvalidInput, b.Number)
		}
		seen[b.Number] = true
		st, err := domain.ParseServiceType(b.Service)
		if err != nil {
			return fmt.Errorf("box %d: %w", b.Number, err)
		}
		if b.Chemistry && !st.OffersChemistry() {
			return fmt.Errorf("%w: box %d offers %s, which has no chemistry", domain.ErrInvalidInput, b.Number, st)
		}
	}
	return nil
}

// Fleet returns the configured boxes, or DefaultFleet when none are declared
func (s *Settings) Fleet(now time.Time) []domain.Box {
	declared := s.Boxes
	if len(declared) == 0 {
		declared = DefaultFleet
	}
	boxes := make([]domain.Box, len(declared))
	for i, b := range declared {
		boxes[i] = domain.Box{
			ChemistryEnabled: b.Chemistry,
			Number:           b.Number,
			ServiceType:      domain.ServiceType(b.Service),
			Status:           domain.BoxFree,
			UpdatedAt:        now,
		}
	}
	return boxes
}

// IsDebug reports whether debug logging is enabled
func (s *Settings) IsDebug() bool {
	return s.Debug != nil && *s.Debug
}

// GetMaxLogFiles returns the log rotation limit
func (s *Settings) GetMaxLogFiles() int {
	return intOr(s.MaxLogFiles, DefaultMaxLogFiles)
}

// AssignTimeout is how long an assigned session may wait to start. Zero disables it.
func (s *Settings) AssignTimeout() time.Duration {
	return time.Duration(intOr(s.AssignTimeoutMinutes, DefaultAssignTimeoutMinutes)) * time.Minute
}

// ChemistryMinutes returns the chemistry window booked with each session
func (s *Settings) ChemistryMinutes() int {
	return intOr(s.ChemistryTimeMinutes, DefaultChemistryTimeMinutes)
}

// CleaningTimeout is the facility-wide cleaning window
func (s *Settings) CleaningTimeout() time.Duration {
	return time.Duration(intOr(s.CleaningTimeoutMinutes, DefaultCleaningTimeoutMinutes)) * time.Minute
}

// SweepInterval is the expiry sweeper period
func (s *Settings) SweepInterval() time.Duration {
	return time.Duration(intOr(s.SweepIntervalSeconds, DefaultSweepIntervalSeconds)) * time.Second
}

// ShouldExpireOnPoll reports whether polls expire overdue sessions first
func (s *Settings) ShouldExpireOnPoll() bool {
	return s.ExpireOnPoll == nil || *s.ExpireOnPoll
}

// DatabasePath returns the SQLite file path
func (s *Settings) DatabasePath() string {
	if s.Database.Path != "" {
		return s.Database.Path
	}
	return paths.GetDBPath()
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
