package sonarr

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/s0up4200/sonarr-hunter/status"
)

// Monitor tracks the connection state of the Sonarr instance
type Monitor struct {
	mu       sync.RWMutex
	state    status.ConnectionStatus
	version  string
	recorder Recorder
	logger   zerolog.Logger
}

// NewMonitor creates a monitor in the unknown state
func NewMonitor(recorder Recorder, logger zerolog.Logger) *Monitor {
	return &Monitor{
		state:    status.ConnectionUnknown,
		recorder: recorder,
		logger:   logger.With().Str("component", "monitor").Logger(),
	}
}

// Probe checks connectivity and authentication, records the outcome and
// reports whether Sonarr is connected.
func (m *Monitor) Probe(ctx context.Context, api API) bool {
	if !api.Configured() {
		m.set(status.ConnectionNotConfigured, "", "Sonarr not configured")
		return false
	}

	st, err := api.SystemStatus(ctx)
	if err == nil {
		m.set(status.ConnectionConnected, st.Version, "Connected to Sonarr v"+st.Version)
		return true
	}

	m.logger.Debug().Err(err).Msg("Sonarr probe failed")

	switch KindOf(err) {
	case KindUnauthorized:
		m.set(status.ConnectionInvalidAPIKey, "", "Invalid API key")
	case KindTransport:
		m.set(status.ConnectionFailed, "", "Cannot connect to Sonarr")
	case KindTimeout:
		m.set(status.ConnectionTimeout, "", "Connection timeout")
	default:
		m.set(status.ConnectionError, "", "Error: "+err.Error())
	}

	return false
}

func (m *Monitor) set(state status.ConnectionStatus, version, message string) {
	m.mu.Lock()
	m.state = state
	m.version = version
	m.mu.Unlock()

	if state == status.ConnectionConnected {
		m.logger.Info().Str("version", version).Msg(message)
	} else {
		m.logger.Warn().Str("state", state.String()).Msg(message)
	}

	m.recorder.Record(message, status.WithConnection(state))
}

// Status returns the state of the last probe
func (m *Monitor) Status() status.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Version returns the Sonarr version reported by the last successful probe
func (m *Monitor) Version() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}
