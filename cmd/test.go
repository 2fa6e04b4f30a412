package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/sonarr-hunter/sonarr"
	"github.com/s0up4200/sonarr-hunter/status"
)

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to Sonarr",
	Long:  `Test the connection to your Sonarr instance and display basic information.`,
	RunE:  runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	settings := provider.Settings()
	if err := settings.Validate(); err != nil {
		return err
	}

	fmt.Printf("Testing connection to Sonarr at %s...\n", settings.URL)

	ctx := context.Background()
	client := sonarr.NewClient(settings, logger)
	monitor := sonarr.NewMonitor(status.NewBroadcaster(logger), logger)

	if !monitor.Probe(ctx, client) {
		return fmt.Errorf("connection failed: %s", monitor.Status())
	}
	fmt.Printf("✓ Connection successful! (Sonarr v%s)\n", monitor.Version())

	series, err := client.AllSeries(ctx)
	if err != nil {
		return fmt.Errorf("failed to get series: %w", err)
	}

	var monitored int
	for _, s := range series {
		if s.Monitored {
			monitored++
		}
	}

	fmt.Printf("\nSonarr Statistics:\n")
	fmt.Printf("- Total series: %d\n", len(series))
	fmt.Printf("- Monitored series: %d\n", monitored)

	return nil
}
