package sonarr

import (
	"context"

	"golift.io/starr/sonarr"

	"github.com/s0up4200/sonarr-hunter/status"
)

// API defines the Sonarr operations the hunter needs
type API interface {
	// Configured reports whether a URL and an API key are set
	Configured() bool

	// Health check
	SystemStatus(ctx context.Context) (*sonarr.SystemStatus, error)

	// Catalog operations
	AllSeries(ctx context.Context) ([]*sonarr.Series, error)
	SeriesEpisodes(ctx context.Context, seriesID int64) ([]*sonarr.Episode, error)
	WantedMissing(ctx context.Context, page int) (*MissingPage, error)

	// Command operations
	SendCommand(ctx context.Context, cmd *sonarr.CommandRequest) (*sonarr.CommandResponse, error)
}

// Recorder receives human readable progress messages
type Recorder interface {
	Record(message string, opts ...status.RecordOption)
}

// ConnectionState exposes the result of the last probe
type ConnectionState interface {
	Status() status.ConnectionStatus
}

// EpisodeFilter narrows the scan result
type EpisodeFilter interface {
	Evaluate(episode Episode) bool
}
