package hunter

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	starr "golift.io/starr/sonarr"

	"github.com/s0up4200/sonarr-hunter/config"
	"github.com/s0up4200/sonarr-hunter/sonarr"
	"github.com/s0up4200/sonarr-hunter/status"
)

// stubSettings is a mutable SettingsSource
type stubSettings struct {
	mu       sync.Mutex
	settings config.Settings
	interval time.Duration
}

func (s *stubSettings) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *stubSettings) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *stubSettings) set(settings config.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// stubLibrary is the shared state behind every stubAPI
type stubLibrary struct {
	mu       sync.Mutex
	apiKey   string
	series   []*starr.Series
	episodes map[int64][]*starr.Episode
	commands []string // api key used for each command
	calls    int

	// onCommand runs before each command is answered
	onCommand func(n int)
}

func newStubLibrary(apiKey string) *stubLibrary {
	return &stubLibrary{apiKey: apiKey, episodes: make(map[int64][]*starr.Episode)}
}

func (l *stubLibrary) addSeries(id int64, title string, eps ...*starr.Episode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.series = append(l.series, &starr.Series{ID: id, Title: title})
	for _, ep := range eps {
		ep.SeriesID = id
	}
	l.episodes[id] = eps
}

func (l *stubLibrary) setAPIKey(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.apiKey = key
}

func (l *stubLibrary) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *stubLibrary) commandKeys() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.commands...)
}

func (l *stubLibrary) factory() ClientFactory {
	return func(settings config.Settings) sonarr.API {
		return &stubAPI{lib: l, settings: settings}
	}
}

// stubAPI answers like Sonarr would for one settings snapshot
type stubAPI struct {
	lib      *stubLibrary
	settings config.Settings
}

func (a *stubAPI) Configured() bool {
	return a.settings.Configured()
}

func (a *stubAPI) auth(endpoint string) error {
	a.lib.mu.Lock()
	defer a.lib.mu.Unlock()
	a.lib.calls++
	if a.settings.APIKey != a.lib.apiKey {
		return &sonarr.APIError{Kind: sonarr.KindUnauthorized, Method: "GET", Endpoint: endpoint, StatusCode: 401}
	}
	return nil
}

func (a *stubAPI) SystemStatus(ctx context.Context) (*starr.SystemStatus, error) {
	if err := a.auth("system/status"); err != nil {
		return nil, err
	}
	return &starr.SystemStatus{Version: "4.0.0"}, nil
}

func (a *stubAPI) AllSeries(ctx context.Context) ([]*starr.Series, error) {
	if err := a.auth("series"); err != nil {
		return nil, err
	}
	a.lib.mu.Lock()
	defer a.lib.mu.Unlock()
	return a.lib.series, nil
}

func (a *stubAPI) SeriesEpisodes(ctx context.Context, seriesID int64) ([]*starr.Episode, error) {
	if err := a.auth("episode"); err != nil {
		return nil, err
	}
	a.lib.mu.Lock()
	defer a.lib.mu.Unlock()
	return a.lib.episodes[seriesID], nil
}

func (a *stubAPI) WantedMissing(ctx context.Context, page int) (*sonarr.MissingPage, error) {
	if err := a.auth("wanted/missing"); err != nil {
		return nil, err
	}
	return &sonarr.MissingPage{Page: page}, nil
}

func (a *stubAPI) SendCommand(ctx context.Context, cmd *starr.CommandRequest) (*starr.CommandResponse, error) {
	if err := a.auth("command"); err != nil {
		return nil, err
	}

	a.lib.mu.Lock()
	a.lib.commands = append(a.lib.commands, a.settings.APIKey)
	n := len(a.lib.commands)
	hook := a.lib.onCommand
	a.lib.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return &starr.CommandResponse{ID: int64(n)}, nil
}

func missingEpisode(id int64, season, number int, title string) *starr.Episode {
	return &starr.Episode{ID: id, SeasonNumber: int64(season), EpisodeNumber: int64(number), Title: title, Monitored: true}
}

// newTestScheduler wires a scheduler around a stub library
func newTestScheduler(settings SettingsSource, lib *stubLibrary, opts ...Option) (*Scheduler, *status.Broadcaster) {
	logger := zerolog.Nop()
	b := status.NewBroadcaster(logger)
	monitor := sonarr.NewMonitor(b, logger)
	scanner := sonarr.NewScanner(monitor, b, logger)
	dispatcher := sonarr.NewDispatcher(b, logger, sonarr.WithDelay(0))

	opts = append([]Option{WithClientFactory(lib.factory())}, opts...)
	return NewScheduler(settings, b, monitor, scanner, dispatcher, logger, opts...), b
}
