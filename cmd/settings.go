package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/sonarr-hunter/config"
)

var (
	settingsURL    string
	settingsAPIKey string
)

// settingsCmd represents the settings command
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the Sonarr connection settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current Sonarr connection settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := provider.Settings()
		fmt.Fprint(cmd.OutOrStdout(), renderTable(
			[]string{"Setting", "Value"},
			[][]string{
				{"Config file", provider.Path()},
				{"URL", valueOrUnset(s.URL)},
				{"API key", maskKey(s.APIKey)},
			},
			nil,
		))
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist new Sonarr connection settings",
	Long: `Write the Sonarr URL and API key to the config file. Flags that are not
given keep their current value. A running daemon picks up the change through
POST /api/settings, not through this command.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := provider.Settings()
		if cmd.Flags().Changed("url") {
			s.URL = settingsURL
		}
		if cmd.Flags().Changed("api-key") {
			s.APIKey = settingsAPIKey
		}

		if err := provider.Update(s); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}

		logger.Info().Str("path", provider.Path()).Msg("Settings updated")
		return nil
	},
}

func init() {
	settingsSetCmd.Flags().StringVar(&settingsURL, "url", "", "Sonarr base URL")
	settingsSetCmd.Flags().StringVar(&settingsAPIKey, "api-key", "", "Sonarr API key")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func valueOrUnset(v string) string {
	if v == "" {
		return "(not set)"
	}
	return v
}

// maskKey keeps the last four characters of an API key
func maskKey(key string) string {
	settings := config.Settings{URL: "x", APIKey: key}
	if !settings.Configured() {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}
