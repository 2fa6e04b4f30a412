package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/s0up4200/sonarr-hunter/status"
)

var (
	statusURL   string
	statusLines int
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running daemon",
	Long: `Fetch the status record from a running daemon and print the connection
state, the missing episode count and the most recent log entries.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusURL, "url", "", "daemon base URL (default derived from server.address)")
	statusCmd.Flags().IntVarP(&statusLines, "lines", "n", 20, "number of log entries to show (0 for all)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	base := statusURL
	if base == "" {
		base = daemonURL(provider.Config().Server.Address)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	snap, err := fetchStatus(ctx, http.DefaultClient, base)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), formatStatus(snap, statusLines))
	return nil
}

// daemonURL turns a listen address into a URL a local client can reach
func daemonURL(address string) string {
	if strings.HasPrefix(address, ":") {
		return "http://localhost" + address
	}
	if strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return address
	}
	return "http://" + address
}

func fetchStatus(ctx context.Context, client *http.Client, base string) (status.Snapshot, error) {
	var snap status.Snapshot

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(base, "/")+"/api/status", nil)
	if err != nil {
		return snap, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return snap, fmt.Errorf("daemon not reachable at %s: %w", base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return snap, fmt.Errorf("daemon returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return snap, fmt.Errorf("failed to decode status: %w", err)
	}
	return snap, nil
}

func formatStatus(snap status.Snapshot, lines int) string {
	var b strings.Builder

	lastCheck := "never"
	if !snap.LastCheck.IsZero() {
		lastCheck = snap.LastCheck.Local().Format(time.DateTime)
	}

	b.WriteString(renderTable(
		[]string{"Connection", "Missing", "Last check"},
		[][]string{{snap.Connection.String(), strconv.Itoa(snap.MissingCount), lastCheck}},
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))
	b.WriteString("\n")

	entries := snap.Log
	if lines > 0 && len(entries) > lines {
		entries = entries[:lines]
	}
	if len(entries) == 0 {
		b.WriteString("No log entries\n")
		return b.String()
	}

	rows := make([][]string, 0, len(entries))
	for _, line := range entries {
		ts, msg := splitLogLine(line)
		rows = append(rows, []string{ts, msg})
	}
	b.WriteString(renderTable([]string{"Time", "Message"}, rows, nil))
	b.WriteString("\n")

	return b.String()
}

// splitLogLine separates the "[timestamp] " prefix from a log entry
func splitLogLine(line string) (string, string) {
	if !strings.HasPrefix(line, "[") {
		return "", line
	}
	end := strings.Index(line, "] ")
	if end < 0 {
		return "", line
	}
	return line[1:end], line[end+2:]
}
