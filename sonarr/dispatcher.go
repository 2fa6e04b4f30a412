package sonarr

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golift.io/starr/sonarr"

	"github.com/s0up4200/sonarr-hunter/config"
)

// Sonarr command names
const (
	CommandEpisodeSearch = "EpisodeSearch"
	CommandSeriesSearch  = "SeriesSearch"
)

// DefaultSearchDelay is the minimum spacing between two search commands
const DefaultSearchDelay = 2 * time.Second

// Dispatcher sends search commands one at a time with a fixed spacing
type Dispatcher struct {
	recorder    Recorder
	logger      zerolog.Logger
	granularity string
	delay       time.Duration
	wait        func(ctx context.Context, d time.Duration)
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithGranularity selects config.GranularityEpisode or config.GranularitySeries
func WithGranularity(granularity string) DispatcherOption {
	return func(d *Dispatcher) {
		if granularity != "" {
			d.granularity = granularity
		}
	}
}

// WithDelay sets the spacing between commands
func WithDelay(delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if delay >= 0 {
			d.delay = delay
		}
	}
}

// NewDispatcher creates a dispatcher
func NewDispatcher(recorder Recorder, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		recorder:    recorder,
		logger:      logger.With().Str("component", "dispatcher").Logger(),
		granularity: config.GranularityEpisode,
		delay:       DefaultSearchDelay,
		wait:        sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Granularity returns the command granularity in use
func (d *Dispatcher) Granularity() string {
	return d.granularity
}

// searchTarget is one command to send
type searchTarget struct {
	label string
	cmd   *sonarr.CommandRequest
}

// Dispatch sends one search command per target in input order. A failed
// command is logged and recorded; the remaining targets are still sent.
func (d *Dispatcher) Dispatch(ctx context.Context, api API, items []Episode) DispatchResult {
	var result DispatchResult

	targets := d.targets(items)
	for i, t := range targets {
		if i > 0 {
			d.wait(ctx, d.delay)
		}

		d.logger.Info().Msg("Triggering search for " + t.label)

		resp, err := api.SendCommand(ctx, t.cmd)
		if err != nil {
			result.Failed++
			d.logger.Error().Err(err).Str("command", t.cmd.Name).Msg("Failed to send search command")
			d.recorder.Record("Failed to search " + t.label + ": " + err.Error())
			continue
		}

		result.Sent++
		d.logger.Info().Int64("command_id", int64(resp.ID)).Msg("Search command sent successfully")
		d.recorder.Record("Searching " + t.label)
	}

	return result
}

func (d *Dispatcher) targets(items []Episode) []searchTarget {
	targets := make([]searchTarget, 0, len(items))

	if d.granularity == config.GranularitySeries {
		seen := make(map[int64]struct{}, len(items))
		for _, e := range items {
			if _, ok := seen[e.SeriesID]; ok {
				continue
			}
			seen[e.SeriesID] = struct{}{}
			targets = append(targets, searchTarget{
				label: e.SeriesTitle,
				cmd:   &sonarr.CommandRequest{Name: CommandSeriesSearch, SeriesID: e.SeriesID},
			})
		}
		return targets
	}

	for _, e := range items {
		targets = append(targets, searchTarget{
			label: e.Label(),
			cmd:   &sonarr.CommandRequest{Name: CommandEpisodeSearch, EpisodeIDs: []int64{e.ID}},
		})
	}
	return targets
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
