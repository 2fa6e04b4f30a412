package sonarr

import (
	"net/http"
	"time"
)

// Default request deadlines
const (
	DefaultDataTimeout  = 30 * time.Second
	DefaultProbeTimeout = 10 * time.Second
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	httpClient   *http.Client
	dataTimeout  time.Duration
	probeTimeout time.Duration
}

func defaultOptions() clientOptions {
	return clientOptions{
		httpClient:   &http.Client{},
		dataTimeout:  DefaultDataTimeout,
		probeTimeout: DefaultProbeTimeout,
	}
}

// WithHTTPClient sets the HTTP client handed to starr. Deadlines are
// applied per request, so the client should not set its own Timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithDataTimeout sets the deadline for data endpoints.
func WithDataTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.dataTimeout = timeout
		}
	}
}

// WithProbeTimeout sets the deadline for the health check.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		if timeout > 0 {
			o.probeTimeout = timeout
		}
	}
}
