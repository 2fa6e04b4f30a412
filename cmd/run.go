package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/sonarr-hunter/config"
	"github.com/s0up4200/sonarr-hunter/hunter"
	"github.com/s0up4200/sonarr-hunter/server"
)

var noServer bool

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the hunter daemon",
	Long: `Run a cycle immediately and then every search.interval minutes until
interrupted. Unless --no-server is given, the web server with the live status
page, settings endpoint and metrics runs alongside.`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the web server")
}

// checkStartup reports whether the web server runs. Missing settings are
// fatal only when there is no server to receive them.
func checkStartup(cfg config.Config, noServer bool, log zerolog.Logger) (bool, error) {
	serverEnabled := cfg.Server.Enabled && !noServer

	if err := cfg.Sonarr.Validate(); err != nil {
		if !serverEnabled {
			log.Error().Err(err).Msg("Required settings are missing")
			return false, err
		}
		log.Warn().
			Str("address", cfg.Server.Address).
			Msg("Sonarr is not configured, waiting for settings via POST /api/settings")
	}

	return serverEnabled, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := provider.Config()

	serverEnabled, err := checkStartup(cfg, noServer, logger)
	if err != nil {
		return err
	}

	app, err := hunter.NewApp(provider, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return app.Scheduler.Run(gctx)
	})

	if serverEnabled {
		srv := server.New(server.Config{Address: cfg.Server.Address}, app.Status, app, app.Registry, logger)
		g.Go(func() error {
			return srv.Start(gctx)
		})
	}

	return g.Wait()
}
