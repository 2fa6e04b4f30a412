package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/s0up4200/sonarr-hunter/config"
)

var (
	cfgFile  string
	logLevel string
	provider *config.Provider
	logger   zerolog.Logger
	logFile  *lumberjack.Logger

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sonarr-hunter",
	Short: "Periodically search Sonarr for missing episodes",
	Long: `sonarr-hunter checks your Sonarr library on a fixed interval, finds
monitored episodes that have no file yet and asks Sonarr to search for them,
one command at a time.

Running without a subcommand starts the daemon (same as "run").`,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: closeLogFile,
	RunE:               runDaemon,
	SilenceUsage:       true,
}

// SetVersion sets the version information
func SetVersion(v, bt string) {
	version = v
	buildTime = bt
	rootCmd.Version = fmt.Sprintf("%s (built %s)", version, buildTime)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&noServer, "no-server", false, "do not start the web server")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(settingsCmd)
}

// initializeApp loads the configuration and sets up logging
func initializeApp(cmd *cobra.Command, args []string) error {
	var err error
	provider, err = config.NewProvider(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := provider.Config().Logging
	if logLevel != "" {
		logCfg.Level = logLevel
	}

	logger, logFile = setupLogger(logCfg, os.Stderr)
	logger.Debug().Str("config", provider.Path()).Str("version", version).Msg("Configuration loaded")

	return nil
}

func closeLogFile(cmd *cobra.Command, args []string) error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

// setupLogger configures the zerolog logger. When a log file is configured
// the output is also written there, rotated by size.
func setupLogger(cfg config.LoggingConfig, stderr *os.File) (zerolog.Logger, *lumberjack.Logger) {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	var out io.Writer
	if cfg.Format == "json" {
		out = stderr
	} else {
		out = zerolog.ConsoleWriter{
			Out:        stderr,
			TimeFormat: time.RFC3339,
			NoColor:    !useColor(cfg.Color, stderr),
		}
	}

	if cfg.File == "" {
		return zerolog.New(out).With().Timestamp().Logger(), nil
	}

	file := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	writer := zerolog.MultiLevelWriter(out, file)
	return zerolog.New(writer).With().Timestamp().Logger(), file
}

func useColor(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		fd := f.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
}
