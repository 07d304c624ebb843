package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigDir   = "CINESTUDIO_CONFIG_DIR"
	EnvBackendURL  = "CINESTUDIO_BACKEND_URL"
	EnvTimeoutSec  = "CINESTUDIO_TIMEOUT_SEC"
	EnvLogLevel    = "CINESTUDIO_LOG_LEVEL"
	EnvLogFormat   = "CINESTUDIO_LOG_FORMAT"
	EnvLogFile     = "CINESTUDIO_LOG_FILE"
	EnvDownloadDir = "CINESTUDIO_DOWNLOAD_DIR"

	DefaultBackendURL = "http://127.0.0.1:8000"
	fileName          = "config.yaml"
)

type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	TimeoutSec int    `yaml:"timeout_sec"`
	Verbose    bool   `yaml:"verbose"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

type StudioConfig struct {
	DownloadDir string `yaml:"download_dir"`
	JournalPath string `yaml:"journal_path"`
	// Inline disables kitty graphics when false.
	Inline bool `yaml:"inline"`
}

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
	Studio  StudioConfig  `yaml:"studio"`
}

func Defaults() Config {
	return Config{
		Backend: BackendConfig{BaseURL: DefaultBackendURL, TimeoutSec: 300},
		Logging: LoggingConfig{Level: "warn", Format: "console"},
		Studio:  StudioConfig{DownloadDir: ".", Inline: true},
	}
}

func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSec <= 0 {
		return 0
	}
	return time.Duration(b.TimeoutSec) * time.Second
}

// Dir returns the platform config directory for cinestudio.
func Dir(getenv func(string) string) (string, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if dir := getenv(EnvConfigDir); dir != "" {
		return dir, nil
	}

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "cinestudio"), nil
	case "windows":
		appData := getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "cinestudio"), nil
	default:
		configHome := getenv("XDG_CONFIG_HOME")
		if configHome == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configHome = filepath.Join(home, ".config")
		}
		return filepath.Join(configHome, "cinestudio"), nil
	}
}

// Load reads config.yaml from dir (a missing file yields defaults) and then
// applies environment overrides.
func Load(dir string, getenv func(string) string) (Config, error) {
	cfg := Defaults()
	if getenv == nil {
		getenv = os.Getenv
	}

	data, err := os.ReadFile(filepath.Join(dir, fileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", fileName, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return cfg, fmt.Errorf("failed to read %s: %w", fileName, err)
	}

	if cfg.Studio.JournalPath == "" {
		cfg.Studio.JournalPath = filepath.Join(dir, "journal.db")
	}

	applyEnv(&cfg, getenv)
	return cfg, nil
}

// Save writes cfg to dir/config.yaml.
func Save(dir string, cfg Config) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, fileName), data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", fileName, err)
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(getenv(EnvTimeoutSec)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Backend.TimeoutSec = n
		}
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = v
	}
	if v := strings.TrimSpace(getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
	if v := strings.TrimSpace(getenv(EnvDownloadDir)); v != "" {
		cfg.Studio.DownloadDir = v
	}
}
