package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Provider owns the live configuration. Settings may be replaced at runtime;
// readers get copies and never hold the lock across I/O.
type Provider struct {
	mu   sync.RWMutex
	v    *viper.Viper
	cfg  *Config
	path string
}

// NewProvider loads the configuration and returns a provider for it
func NewProvider(configPath string) (*Provider, error) {
	v, err := newViper(configPath)
	if err != nil {
		return nil, err
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	path := v.ConfigFileUsed()
	if path == "" {
		path = DefaultConfigFile
	}

	return &Provider{v: v, cfg: cfg, path: path}, nil
}

// Config returns a copy of the current configuration
func (p *Provider) Config() Config {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return *p.cfg
}

// Settings returns the current Sonarr connection settings
func (p *Provider) Settings() Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg.Sonarr
}

// Interval returns the time between two scheduled cycles
func (p *Provider) Interval() time.Duration {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return time.Duration(p.cfg.Search.Interval) * time.Minute
}

// Path returns the file settings are persisted to
func (p *Provider) Path() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.path
}

// Update persists new Sonarr settings and reloads the configuration.
// Cycles already running keep the settings they started with.
func (p *Provider) Update(settings Settings) error {
	settings.URL = strings.TrimRight(strings.TrimSpace(settings.URL), "/")
	settings.APIKey = strings.TrimSpace(settings.APIKey)
	if err := settings.Validate(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	previous := p.cfg.Sonarr
	p.v.Set("sonarr.url", settings.URL)
	p.v.Set("sonarr.api_key", settings.APIKey)

	if err := p.v.WriteConfigAs(p.path); err != nil {
		// a later Reload must not pick up settings that were never saved
		p.v.Set("sonarr.url", previous.URL)
		p.v.Set("sonarr.api_key", previous.APIKey)
		return fmt.Errorf("failed to write config %s: %w", p.path, err)
	}
	p.v.SetConfigFile(p.path)

	return p.reloadLocked()
}

// Reload re-reads the configuration
func (p *Provider) Reload() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := readConfig(p.v); err != nil {
		return err
	}
	return p.reloadLocked()
}

func (p *Provider) reloadLocked() error {
	cfg, err := decode(p.v)
	if err != nil {
		return err
	}
	p.cfg = cfg
	return nil
}
