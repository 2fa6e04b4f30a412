package status

import (
	"fmt"
	"time"
)

// MaxLogEntries bounds the number of log lines kept in a Snapshot
const MaxLogEntries = 100

// ConnectionStatus describes the last known reachability of Sonarr
type ConnectionStatus int

const (
	ConnectionUnknown ConnectionStatus = iota
	ConnectionNotConfigured
	ConnectionConnected
	ConnectionInvalidAPIKey
	ConnectionFailed
	ConnectionTimeout
	ConnectionError
)

var connectionNames = map[ConnectionStatus]string{
	ConnectionUnknown:       "unknown",
	ConnectionNotConfigured: "not_configured",
	ConnectionConnected:     "connected",
	ConnectionInvalidAPIKey: "invalid_api_key",
	ConnectionFailed:        "connection_failed",
	ConnectionTimeout:       "timeout",
	ConnectionError:         "error",
}

// AllConnectionStatuses returns every status in declaration order
func AllConnectionStatuses() []ConnectionStatus {
	return []ConnectionStatus{
		ConnectionUnknown,
		ConnectionNotConfigured,
		ConnectionConnected,
		ConnectionInvalidAPIKey,
		ConnectionFailed,
		ConnectionTimeout,
		ConnectionError,
	}
}

func (s ConnectionStatus) String() string {
	if name, ok := connectionNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler
func (s ConnectionStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *ConnectionStatus) UnmarshalText(text []byte) error {
	for status, name := range connectionNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown connection status %q", text)
}

// Snapshot is a copy of the shared status record
type Snapshot struct {
	LastCheck    time.Time        `json:"last_check"`
	MissingCount int              `json:"missing_count"`
	Connection   ConnectionStatus `json:"connection_status"`
	// Log holds timestamped messages, newest first
	Log []string `json:"log"`
}

// Event is pushed to subscribers after every Record or Set call
type Event struct {
	LastCheck    time.Time        `json:"last_check"`
	MissingCount int              `json:"missing_count"`
	Connection   ConnectionStatus `json:"connection_status"`
	Message      string           `json:"message,omitempty"`
}
