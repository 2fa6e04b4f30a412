package sonarr

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/s0up4200/sonarr-hunter/config"
	"github.com/s0up4200/sonarr-hunter/status"
)

// Scanner enumerates the episodes Sonarr monitors but has no file for
type Scanner struct {
	state    ConnectionState
	recorder Recorder
	logger   zerolog.Logger

	strategy string
	maxPages int
	filter   FilterSource
}

// FilterSource resolves the episode filter at the start of a scan. A nil
// filter keeps every episode.
type FilterSource func() (EpisodeFilter, error)

// ScannerOption configures a Scanner
type ScannerOption func(*Scanner)

// WithStrategy selects config.StrategySeries or config.StrategyMissing
func WithStrategy(strategy string) ScannerOption {
	return func(s *Scanner) {
		if strategy != "" {
			s.strategy = strategy
		}
	}
}

// WithMaxPages bounds how many wanted/missing pages are fetched
func WithMaxPages(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithFilter narrows the result with a fixed predicate
func WithFilter(f EpisodeFilter) ScannerOption {
	return WithFilterSource(func() (EpisodeFilter, error) {
		return f, nil
	})
}

// WithFilterSource narrows the result with a predicate resolved per scan
func WithFilterSource(src FilterSource) ScannerOption {
	return func(s *Scanner) {
		s.filter = src
	}
}

// NewScanner creates a scanner gated on the given connection state
func NewScanner(state ConnectionState, recorder Recorder, logger zerolog.Logger, opts ...ScannerOption) *Scanner {
	s := &Scanner{
		state:    state,
		recorder: recorder,
		logger:   logger.With().Str("component", "scanner").Logger(),
		strategy: config.StrategySeries,
		maxPages: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan returns the missing episodes in series order, then episode order
// within a series. Failures yield an empty or partial result and are logged.
func (s *Scanner) Scan(ctx context.Context, api API) []Episode {
	if s.state.Status() != status.ConnectionConnected {
		s.logger.Debug().Msg("Skipping scan, Sonarr is not connected")
		return nil
	}

	filter, err := s.resolveFilter()
	if err != nil {
		s.logger.Error().Err(err).Msg("Invalid scan filter")
		s.recorder.Record("Invalid scan filter: " + err.Error())
		return nil
	}

	var episodes []Episode
	switch s.strategy {
	case config.StrategyMissing:
		episodes = s.scanMissing(ctx, api)
	default:
		episodes = s.scanSeries(ctx, api)
	}

	return s.apply(episodes, filter)
}

func (s *Scanner) resolveFilter() (EpisodeFilter, error) {
	if s.filter == nil {
		return nil, nil
	}
	return s.filter()
}

func (s *Scanner) scanSeries(ctx context.Context, api API) []Episode {
	series, err := api.AllSeries(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to get series")
		s.recorder.Record("Error getting series: " + err.Error())
		return nil
	}

	var episodes []Episode
	for _, show := range series {
		eps, err := api.SeriesEpisodes(ctx, int64(show.ID))
		if err != nil {
			s.logger.Warn().
				Err(err).
				Int64("series_id", int64(show.ID)).
				Str("series", show.Title).
				Msg("Failed to get episodes, skipping series")
			continue
		}

		for _, ep := range eps {
			e := newEpisode(show, ep)
			if e.Missing() {
				episodes = append(episodes, e)
			}
		}
	}

	return episodes
}

func (s *Scanner) scanMissing(ctx context.Context, api API) []Episode {
	var episodes []Episode
	for page := 1; page <= s.maxPages; page++ {
		result, err := api.WantedMissing(ctx, page)
		if err != nil {
			s.logger.Error().Err(err).Int("page", page).Msg("Failed to get missing episodes")
			s.recorder.Record("Error getting missing episodes: " + err.Error())
			return nil
		}

		for _, r := range result.Records {
			e := r.Episode()
			if e.Missing() {
				episodes = append(episodes, e)
			}
		}

		if len(result.Records) == 0 || page*MissingPageSize >= result.TotalRecords {
			break
		}
	}

	return episodes
}

func (s *Scanner) apply(episodes []Episode, filter EpisodeFilter) []Episode {
	if filter == nil {
		return episodes
	}

	kept := episodes[:0]
	for _, e := range episodes {
		if filter.Evaluate(e) {
			kept = append(kept, e)
		}
	}

	if skipped := len(episodes) - len(kept); skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Msg("Episodes excluded by filter")
	}

	return kept
}
