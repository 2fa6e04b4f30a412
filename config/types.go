package config

import (
	"fmt"
	"time"
)

// Search granularities
const (
	GranularityEpisode = "episode"
	GranularitySeries  = "series"
)

// Scan strategies
const (
	StrategySeries  = "series"
	StrategyMissing = "missing"
)

// Config represents the complete configuration structure
type Config struct {
	Sonarr  Settings      `mapstructure:"sonarr"`
	Search  SearchConfig  `mapstructure:"search"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Settings holds the Sonarr connection details. They can change at runtime
// through the settings endpoint.
type Settings struct {
	URL    string `mapstructure:"url" json:"url"`
	APIKey string `mapstructure:"api_key" json:"api_key"`
}

// Configured reports whether both the URL and the API key are set.
func (s Settings) Configured() bool {
	return s.URL != "" && s.APIKey != "" && s.APIKey != placeholderAPIKey
}

// Validate returns an error naming the first missing required value.
func (s Settings) Validate() error {
	if s.URL == "" {
		return fmt.Errorf("sonarr.url is required (or set SONARR_URL)")
	}
	if s.APIKey == "" || s.APIKey == placeholderAPIKey {
		return fmt.Errorf("sonarr.api_key must be set to a valid API key (or set SONARR_API_KEY)")
	}
	return nil
}

// SearchConfig controls how often the library is checked and how searches are sent
type SearchConfig struct {
	Interval    int           `mapstructure:"interval"` // minutes
	Delay       time.Duration `mapstructure:"delay"`
	Granularity string        `mapstructure:"granularity"`
}

// ScanConfig controls how missing episodes are collected
type ScanConfig struct {
	Strategy string `mapstructure:"strategy"`
	MaxPages int    `mapstructure:"max_pages"`
	Filter   string `mapstructure:"filter"`
}

// ServerConfig contains the status/settings web server settings
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Color      string `mapstructure:"color"` // auto, always or never
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
}

const placeholderAPIKey = "your-api-key-here"
