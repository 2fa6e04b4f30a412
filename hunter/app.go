package hunter

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/s0up4200/sonarr-hunter/config"
	"github.com/s0up4200/sonarr-hunter/filter"
	"github.com/s0up4200/sonarr-hunter/sonarr"
	"github.com/s0up4200/sonarr-hunter/status"
)

// App owns the shared state of one hunter process: the live settings, the
// status record and the worker. Front-ends receive it explicitly.
type App struct {
	Provider  *config.Provider
	Status    *status.Broadcaster
	Monitor   *sonarr.Monitor
	Scheduler *Scheduler
	Registry  *prometheus.Registry
	Filters   filter.CachingCompiler

	logger zerolog.Logger
}

// filterCacheSize bounds how many distinct scan filters stay compiled
const filterCacheSize = 16

// NewApp wires the hunter components from the provider's configuration.
// Extra scheduler options are applied after the defaults.
func NewApp(provider *config.Provider, logger zerolog.Logger, opts ...Option) (*App, error) {
	cfg := provider.Config()

	broadcaster := status.NewBroadcaster(logger)
	monitor := sonarr.NewMonitor(broadcaster, logger)

	compiler := filter.NewExprCompiler(filter.WithCache(filterCacheSize))
	if cfg.Scan.Filter != "" {
		if _, err := compiler.Compile(cfg.Scan.Filter); err != nil {
			return nil, fmt.Errorf("invalid scan filter: %w", err)
		}
	}

	// the filter is read again on every scan so a reloaded config applies
	scanner := sonarr.NewScanner(monitor, broadcaster, logger,
		sonarr.WithStrategy(cfg.Scan.Strategy),
		sonarr.WithMaxPages(cfg.Scan.MaxPages),
		sonarr.WithFilterSource(func() (sonarr.EpisodeFilter, error) {
			expression := provider.Config().Scan.Filter
			if expression == "" {
				return nil, nil
			}
			f, err := compiler.Compile(expression)
			if err != nil {
				return nil, err
			}
			return f, nil
		}),
	)

	dispatcher := sonarr.NewDispatcher(broadcaster, logger,
		sonarr.WithGranularity(cfg.Search.Granularity),
		sonarr.WithDelay(cfg.Search.Delay),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	schedOpts := append([]Option{WithMetrics(NewMetrics(registry))}, opts...)
	scheduler := NewScheduler(provider, broadcaster, monitor, scanner, dispatcher, logger, schedOpts...)

	return &App{
		Provider:  provider,
		Status:    broadcaster,
		Monitor:   monitor,
		Scheduler: scheduler,
		Registry:  registry,
		Filters:   compiler,
		logger:    logger.With().Str("component", "app").Logger(),
	}, nil
}

// Settings returns the current Sonarr settings
func (a *App) Settings() config.Settings {
	return a.Provider.Settings()
}

// UpdateSettings persists new settings and asks the worker to re-probe.
// A cycle already in progress keeps using the previous settings.
func (a *App) UpdateSettings(settings config.Settings) error {
	if err := a.Provider.Update(settings); err != nil {
		return err
	}

	a.logger.Info().Str("url", a.Provider.Settings().URL).Msg("Settings updated")
	a.Status.Record("Settings updated")
	a.Scheduler.RequestProbe()
	return nil
}

// Close releases subscribers of the status record
func (a *App) Close() {
	a.Status.Close()
}
