package paths

import (
	"os"
	"path/filepath"
)

// GetWashbayHome returns WASHBAY_HOME or the ~/.washbay default
func GetWashbayHome() string {
	home := os.Getenv("WASHBAY_HOME")
	if home == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return ".washbay"
		}
		return filepath.Join(homeDir, ".washbay")
	}
	return ExpandPath(home)
}

// GetDBPath returns $WASHBAY_HOME/washbay.db
func GetDBPath() string {
	return filepath.Join(GetWashbayHome(), "washbay.db")
}

// GetSettingsPath returns $WASHBAY_HOME/settings.json
func GetSettingsPath() string {
	return filepath.Join(GetWashbayHome(), "settings.json")
}

// GetSweepLockPath returns $WASHBAY_HOME/sweeper.lock
func GetSweepLockPath() string {
	return filepath.Join(GetWashbayHome(), "sweeper.lock")
}

// GetLogDir returns $WASHBAY_HOME/logs
func GetLogDir() string {
	return filepath.Join(GetWashbayHome(), "logs")
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			if len(path) == 1 {
				return homeDir
			}
			return filepath.Join(homeDir, path[1:])
		}
	}
	return path
}
