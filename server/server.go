package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/s0up4200/sonarr-hunter/config"
	"github.com/s0up4200/sonarr-hunter/status"
)

// Defaults for Config
const (
	DefaultKeepAlive       = 30 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
)

// StatusSource exposes the shared status record
type StatusSource interface {
	Snapshot() status.Snapshot
	Subscribe() (string, status.Snapshot, <-chan status.Event)
	Unsubscribe(id string)
}

// SettingsStore reads and replaces the Sonarr settings
type SettingsStore interface {
	Settings() config.Settings
	UpdateSettings(settings config.Settings) error
}

// Config holds server options
type Config struct {
	Address         string
	KeepAlive       time.Duration
	ShutdownTimeout time.Duration
}

// Server is the web front-end: status, live updates, settings and metrics
type Server struct {
	cfg      Config
	app      *fiber.App
	status   StatusSource
	settings SettingsStore
	logger   zerolog.Logger

	// done is closed on shutdown to end open event streams
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a server and registers its routes
func New(cfg Config, statusSrc StatusSource, settings SettingsStore, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	s := &Server{
		cfg:      cfg,
		status:   statusSrc,
		settings: settings,
		logger:   logger.With().Str("component", "server").Logger(),
		done:     make(chan struct{}),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(requestLogger(s.logger))

	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/status/stream", s.handleStatusStream)
	api.Get("/settings", s.handleGetSettings)
	api.Post("/settings", s.handleUpdateSettings)

	if gatherer != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// App returns the underlying fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured address and serves until ctx is done
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info().Str("address", ln.Addr().String()).Msg("Web server started")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- s.app.Listener(ln)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info().Msg("Web server received shutdown signal")
		if err := s.Shutdown(); err != nil {
			s.logger.Error().Err(err).Msg("Error during web server shutdown")
			return err
		}
		s.logger.Info().Msg("Web server stopped gracefully")
		return nil
	case err := <-serverErr:
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error().Err(err).Msg("Web server failed")
			return err
		}
		return nil
	}
}

// Shutdown ends open event streams and stops the server
func (s *Server) Shutdown() error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.app.ShutdownWithTimeout(s.cfg.ShutdownTimeout)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Path()).Str("method", c.Method()).Msg("Request failed")
	}
	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
