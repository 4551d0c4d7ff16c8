package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings represents configuration loaded from config.yaml.
// Field names match snake_case YAML keys. Pointer fields distinguish "unset"
// from an explicit zero.
type Settings struct {
	FilePath            string `yaml:"file_path"`
	BackupPath          string `yaml:"backup_path"`
	Driver              string `yaml:"driver"`
	AutoSave            *bool  `yaml:"auto_save"`
	WriteDelayMs        *int64 `yaml:"write_delay_ms"`
	AutoCleanIntervalMs *int64 `yaml:"auto_clean_interval_ms"`
}

// Overrides carries CLI flag values. Empty fields are ignored.
type Overrides struct {
	ConfigPath string
	FilePath   string
	BackupPath string
	Driver     string
}

// settingsOnce, settings, settingsErr implement the sync.Once lazy-load singleton for config.
// overridesMu and overrides implement a mutex-protected process-wide override for CLI flags.
//
//nolint:gochecknoglobals // sync.Once singleton + RWMutex override are intentional process-wide state
var (
	settingsOnce sync.Once
	settings     Settings
	settingsErr  error

	overridesMu sync.RWMutex
	overrides   Overrides
)

// SetOverrides sets process-wide CLI overrides (--config, --file,
// --backup-dir, --driver).
func SetOverrides(o Overrides) {
	overridesMu.Lock()
	overrides = o
	overridesMu.Unlock()
}

func getOverrides() Overrides {
	overridesMu.RLock()
	o := overrides
	overridesMu.RUnlock()
	return o
}

// configPaths lists config.yaml candidates in lookup order.
func configPaths() ([]string, error) {
	if p := getOverrides().ConfigPath; p != "" {
		return []string{p}, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	return []string{
		filepath.Join(dir, "config.yaml"),
		filepath.Join(string(os.PathSeparator), "etc", "dotkv", "config.yaml"),
		"config.yaml",
	}, nil
}

// LoadSettings loads configuration once using the documented lookup order.
// An explicit --config path replaces the lookup and must exist.
// Lookup order (first found wins):
// 1) ~/.config/dotkv/config.yaml
// 2) /etc/dotkv/config.yaml
// 3) ./config.yaml (lowest priority; allows repo-local overrides if desired)
// Environment variables are handled separately.
func LoadSettings() (Settings, error) {
	settingsOnce.Do(func() {
		settings = Settings{}

		paths, err := configPaths()
		if err != nil {
			settingsErr = err
			return
		}
		explicit := getOverrides().ConfigPath != ""

		for _, p := range paths {
			s, err := loadSettingsFile(p)
			if err == nil {
				settings = s
				return
			}
			if errors.Is(err, os.ErrNotExist) && !explicit {
				continue
			}
			settingsErr = fmt.Errorf("load config %s: %w", p, err)
			return
		}
	})

	return settings, settingsErr
}

func loadSettingsFile(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, err
	}
	return s, nil
}
