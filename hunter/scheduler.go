package hunter

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/sonarr-hunter/config"
	"github.com/s0up4200/sonarr-hunter/sonarr"
	"github.com/s0up4200/sonarr-hunter/status"
)

// State is the lifecycle state of the scheduler
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

// DefaultTick is how often the scheduler checks for due work
const DefaultTick = time.Second

// SettingsSource provides the live settings
type SettingsSource interface {
	Settings() config.Settings
	Interval() time.Duration
}

// StatusRecorder is the status record the scheduler writes to
type StatusRecorder interface {
	sonarr.Recorder
	Set(opts ...status.RecordOption)
}

// ClientFactory builds a Sonarr client for one settings snapshot
type ClientFactory func(settings config.Settings) sonarr.API

// Scheduler runs cycles on a fixed interval from a single worker goroutine
type Scheduler struct {
	settings   SettingsSource
	recorder   StatusRecorder
	monitor    *sonarr.Monitor
	scanner    *sonarr.Scanner
	dispatcher *sonarr.Dispatcher
	newClient  ClientFactory
	metrics    *Metrics
	tick       time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	probeCh chan struct{}
	state   atomic.Int32

	// mu serializes cycles and probe passes between Run and RunOnce
	mu        sync.Mutex
	lastStart time.Time
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithClientFactory replaces the default HTTP client factory
func WithClientFactory(f ClientFactory) Option {
	return func(s *Scheduler) {
		if f != nil {
			s.newClient = f
		}
	}
}

// WithMetrics enables Prometheus metrics
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithTick sets how often Run checks for due work
func WithTick(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tick = d
		}
	}
}

// NewScheduler creates a scheduler. The monitor, scanner and dispatcher are
// shared across cycles; the client is rebuilt every cycle.
func NewScheduler(
	settings SettingsSource,
	recorder StatusRecorder,
	monitor *sonarr.Monitor,
	scanner *sonarr.Scanner,
	dispatcher *sonarr.Dispatcher,
	logger zerolog.Logger,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		settings:   settings,
		recorder:   recorder,
		monitor:    monitor,
		scanner:    scanner,
		dispatcher: dispatcher,
		tick:       DefaultTick,
		now:        time.Now,
		probeCh:    make(chan struct{}, 1),
		logger:     logger.With().Str("component", "scheduler").Logger(),
	}
	s.newClient = func(settings config.Settings) sonarr.API {
		return sonarr.NewClient(settings, logger)
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns the current lifecycle state
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(state State) {
	s.state.Store(int32(state))
}

// Interval returns the configured time between cycles
func (s *Scheduler) Interval() time.Duration {
	return s.settings.Interval()
}

// RequestProbe asks the running scheduler to re-check the connection on its
// next tick. Requests made while one is pending are coalesced.
func (s *Scheduler) RequestProbe() {
	select {
	case s.probeCh <- struct{}{}:
	default:
	}
}

// Run runs one cycle immediately and then every interval until ctx is
// cancelled. Cancellation is observed between ticks; a cycle in progress
// always completes.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().Msgf("Sonarr Hunter started. Running every %d minutes", int(s.Interval().Minutes()))

	if ctx.Err() == nil {
		s.runCycle(ctx)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.setState(StateShuttingDown)
			s.logger.Info().Msg("Shutdown signal received, exiting gracefully...")
			return nil

		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}

			select {
			case <-s.probeCh:
				s.runProbe(ctx)
			default:
			}

			if s.due() {
				s.runCycle(ctx)
			}
		}
	}
}

// RunOnce runs a single cycle and returns its outcome
func (s *Scheduler) RunOnce(ctx context.Context) CycleResult {
	return s.runCycle(ctx)
}

func (s *Scheduler) due() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.lastStart) >= s.Interval()
}
