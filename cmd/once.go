package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/sonarr-hunter/hunter"
)

// onceCmd represents the once command
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single cycle and exit",
	Long:  `Probe Sonarr, scan for missing episodes, send the searches and exit.`,
	RunE:  runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	if err := provider.Settings().Validate(); err != nil {
		return err
	}

	app, err := hunter.NewApp(provider, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	result := app.Scheduler.RunOnce(context.Background())
	if !result.Connected {
		return fmt.Errorf("sonarr is not reachable: %s", app.Monitor.Status())
	}

	fmt.Printf("\nFound %d missing episodes\n", result.Missing)
	fmt.Printf("- Searches sent: %d\n", result.Dispatch.Sent)
	fmt.Printf("- Searches failed: %d\n", result.Dispatch.Failed)
	fmt.Printf("- Duration: %s\n", result.Duration.Round(time.Millisecond))

	return nil
}
