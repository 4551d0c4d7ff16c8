package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns ~/.config/dotkv/ on all platforms.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "dotkv"), nil
}

// EnsureConfigDir creates the config directory and default config.yaml if missing.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	configFile := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return os.WriteFile(configFile, []byte(defaultConfig), 0600)
	}
	return nil
}

const defaultConfig = `# dotkv configuration
# Run: dotkv --help

# Optional: override the store file location.
# Can also be set via DOTKV_FILE or --file.
# file_path: ~/.config/dotkv/dotkv.json

# Snapshot directory for backup/restore (DOTKV_BACKUP_DIR, --backup-dir).
# backup_path: ~/.config/dotkv/backups

# Storage driver: json or sqlite (DOTKV_DRIVER, --driver).
# driver: json

# Set to false to keep changes in memory only (DOTKV_AUTO_SAVE).
# auto_save: true

# Debounce window for disk writes (DOTKV_WRITE_DELAY_MS).
# write_delay_ms: 100

# Expired-key sweep period; 0 disables it (DOTKV_AUTO_CLEAN_INTERVAL_MS).
# auto_clean_interval_ms: 60000
`
