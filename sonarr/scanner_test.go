package sonarr

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/sonarr-hunter/config"
	"github.com/s0up4200/sonarr-hunter/status"
)

type seasonFilter struct{ skip int }

func (f seasonFilter) Evaluate(e Episode) bool {
	return e.SeasonNumber != f.skip
}

func seedLibrary(fake *fakeSonarr) {
	fake.addSeries(1, "Alpha",
		episode(11, 1, 1, "Pilot", true, false),
		episode(12, 1, 2, "Second", true, true),
		episode(13, 1, 3, "Third", false, false),
		episode(14, 0, 1, "Special", true, false),
	)
	fake.addSeries(2, "Beta",
		episode(21, 1, 1, "Start", true, true),
	)
	fake.addSeries(3, "Gamma",
		episode(31, 2, 5, "Middle", true, false),
	)
}

func labels(episodes []Episode) []string {
	out := make([]string, 0, len(episodes))
	for _, e := range episodes {
		out = append(out, e.Label())
	}
	return out
}

func TestScanStrategies(t *testing.T) {
	want := []string{
		"Alpha - S01E01 - Pilot",
		"Alpha - S00E01 - Special",
		"Gamma - S02E05 - Middle",
	}

	for _, strategy := range []string{config.StrategySeries, config.StrategyMissing} {
		t.Run(strategy, func(t *testing.T) {
			fake := newFakeSonarr(t)
			seedLibrary(fake)

			scanner := NewScanner(fixedState(status.ConnectionConnected), &memRecorder{}, zerolog.Nop(),
				WithStrategy(strategy))
			episodes := scanner.Scan(context.Background(), fake.client())

			assert.Equal(t, want, labels(episodes))
			for _, e := range episodes {
				assert.True(t, e.Monitored)
				assert.False(t, e.HasFile)
			}
		})
	}
}

func TestScanNotConnectedMakesNoRequests(t *testing.T) {
	states := []status.ConnectionStatus{
		status.ConnectionUnknown,
		status.ConnectionNotConfigured,
		status.ConnectionInvalidAPIKey,
		status.ConnectionFailed,
		status.ConnectionTimeout,
		status.ConnectionError,
	}

	for _, st := range states {
		t.Run(st.String(), func(t *testing.T) {
			fake := newFakeSonarr(t)
			seedLibrary(fake)

			scanner := NewScanner(fixedState(st), &memRecorder{}, zerolog.Nop())
			assert.Empty(t, scanner.Scan(context.Background(), fake.client()))
			assert.Zero(t, fake.requestCount())
		})
	}
}

func TestScanSkipsMalformedSeries(t *testing.T) {
	fake := newFakeSonarr(t)
	seedLibrary(fake)
	fake.breakSeries(1)

	scanner := NewScanner(fixedState(status.ConnectionConnected), &memRecorder{}, zerolog.Nop())

	var episodes []Episode
	require.NotPanics(t, func() {
		episodes = scanner.Scan(context.Background(), fake.client())
	})
	assert.Equal(t, []string{"Gamma - S02E05 - Middle"}, labels(episodes))
}

func TestScanSeriesListingFailure(t *testing.T) {
	fake := newFakeSonarr(t)
	seedLibrary(fake)

	rec := &memRecorder{}
	scanner := NewScanner(fixedState(status.ConnectionConnected), rec, zerolog.Nop())
	client := NewClient(config.Settings{URL: fake.server.URL, APIKey: "revoked"}, zerolog.Nop())

	assert.Empty(t, scanner.Scan(context.Background(), client))
	require.Len(t, rec.all(), 1)
	assert.Contains(t, rec.all()[0], "Error getting series")
}

func TestScanMissingPagination(t *testing.T) {
	fake := newFakeSonarr(t)
	eps := make([]map[string]any, 0, 150)
	for i := 0; i < 150; i++ {
		eps = append(eps, episode(int64(1000+i), 1, i+1, fmt.Sprintf("Episode %d", i+1), true, false))
	}
	fake.addSeries(1, "Long", eps...)

	tests := []struct {
		name     string
		maxPages int
		want     int
	}{
		{name: "first page only", maxPages: 1, want: MissingPageSize},
		{name: "all pages", maxPages: 5, want: 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scanner := NewScanner(fixedState(status.ConnectionConnected), &memRecorder{}, zerolog.Nop(),
				WithStrategy(config.StrategyMissing), WithMaxPages(tt.maxPages))
			episodes := scanner.Scan(context.Background(), fake.client())
			assert.Len(t, episodes, tt.want)
			assert.Equal(t, "Long - S01E01 - Episode 1", episodes[0].Label())
		})
	}
}

func TestScanFilter(t *testing.T) {
	fake := newFakeSonarr(t)
	seedLibrary(fake)

	scanner := NewScanner(fixedState(status.ConnectionConnected), &memRecorder{}, zerolog.Nop(),
		WithFilter(seasonFilter{skip: 0}))
	episodes := scanner.Scan(context.Background(), fake.client())

	assert.Equal(t, []string{"Alpha - S01E01 - Pilot", "Gamma - S02E05 - Middle"}, labels(episodes))
}

func TestScanFilterSourceResolvedEachScan(t *testing.T) {
	fake := newFakeSonarr(t)
	seedLibrary(fake)

	skip := 0
	calls := 0
	scanner := NewScanner(fixedState(status.ConnectionConnected), &memRecorder{}, zerolog.Nop(),
		WithFilterSource(func() (EpisodeFilter, error) {
			calls++
			return seasonFilter{skip: skip}, nil
		}))

	first := scanner.Scan(context.Background(), fake.client())
	assert.Equal(t, []string{"Alpha - S01E01 - Pilot", "Gamma - S02E05 - Middle"}, labels(first))

	skip = 1
	second := scanner.Scan(context.Background(), fake.client())
	assert.Equal(t, []string{"Alpha - S00E01 - Special", "Gamma - S02E05 - Middle"}, labels(second))
	assert.Equal(t, 2, calls)
}

func TestScanInvalidFilterSkipsFetch(t *testing.T) {
	fake := newFakeSonarr(t)
	seedLibrary(fake)
	rec := &memRecorder{}

	scanner := NewScanner(fixedState(status.ConnectionConnected), rec, zerolog.Nop(),
		WithFilterSource(func() (EpisodeFilter, error) {
			return nil, fmt.Errorf("unexpected token")
		}))

	episodes := scanner.Scan(context.Background(), fake.client())
	assert.Empty(t, episodes)
	assert.Zero(t, fake.requestCount())
	require.Len(t, rec.all(), 1)
	assert.Equal(t, "Invalid scan filter: unexpected token", rec.all()[0])
}
