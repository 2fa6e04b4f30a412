package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultConfigFile is where settings are written when no config file was found.
const DefaultConfigFile = "config.yaml"

// envBindings maps configuration keys to the environment variables that
// override them.
var envBindings = map[string]string{
	"sonarr.url":          "SONARR_URL",
	"sonarr.api_key":      "SONARR_API_KEY",
	"search.interval":     "SEARCH_INTERVAL",
	"search.delay":        "SEARCH_DELAY",
	"search.granularity":  "SEARCH_GRANULARITY",
	"scan.strategy":       "SCAN_STRATEGY",
	"scan.max_pages":      "SCAN_MAX_PAGES",
	"scan.filter":         "SCAN_FILTER",
	"server.enabled":      "SERVER_ENABLED",
	"server.address":      "SERVER_ADDRESS",
	"logging.level":       "LOG_LEVEL",
	"logging.format":      "LOG_FORMAT",
	"logging.color":       "LOG_COLOR",
	"logging.file":        "LOG_FILE",
	"logging.max_size":    "LOG_MAX_SIZE",
	"logging.max_backups": "LOG_MAX_BACKUPS",
	"logging.max_age":     "LOG_MAX_AGE",
	"logging.compress":    "LOG_COMPRESS",
}

// Load loads the configuration from file and environment
func Load(configPath string) (*Config, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// newViper builds a viper instance with defaults, environment bindings and
// the config file (if any) read in.
func newViper(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".sonarr-hunter"))
		}

		// Check /etc
		v.AddConfigPath("/etc/sonarr-hunter/")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	return v, nil
}

// readConfig reads the config file. The file is optional: environment
// variables alone are a complete configuration.
func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config: %w", err)
		}
	}
	return nil
}

// decode unmarshals and validates the current state of v
func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("sonarr.url", "")
	v.SetDefault("sonarr.api_key", "")

	v.SetDefault("search.interval", 60)
	v.SetDefault("search.delay", "2s")
	v.SetDefault("search.granularity", GranularityEpisode)

	v.SetDefault("scan.strategy", StrategySeries)
	v.SetDefault("scan.max_pages", 1)
	v.SetDefault("scan.filter", "")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.address", ":8585")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", "auto")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", false)
}

// validate checks if the configuration is valid. Missing Sonarr settings are
// not an error here: the daemon can start unconfigured and receive them
// through the settings endpoint.
func validate(cfg *Config) error {
	if cfg.Search.Interval < 1 {
		return fmt.Errorf("invalid search.interval: %d (must be at least 1 minute)", cfg.Search.Interval)
	}
	if cfg.Search.Delay < 0 {
		return fmt.Errorf("invalid search.delay: %s", cfg.Search.Delay)
	}

	switch cfg.Search.Granularity {
	case GranularityEpisode, GranularitySeries:
	default:
		return fmt.Errorf("invalid search.granularity: %s (must be '%s' or '%s')",
			cfg.Search.Granularity, GranularityEpisode, GranularitySeries)
	}

	switch cfg.Scan.Strategy {
	case StrategySeries, StrategyMissing:
	default:
		return fmt.Errorf("invalid scan.strategy: %s (must be '%s' or '%s')",
			cfg.Scan.Strategy, StrategySeries, StrategyMissing)
	}
	if cfg.Scan.MaxPages < 1 {
		return fmt.Errorf("invalid scan.max_pages: %d", cfg.Scan.MaxPages)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	validColors := map[string]bool{
		"auto":   true,
		"always": true,
		"never":  true,
	}
	if !validColors[cfg.Logging.Color] {
		return fmt.Errorf("invalid logging color: %s (must be auto, always or never)", cfg.Logging.Color)
	}

	return nil
}
