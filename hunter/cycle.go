package hunter

import (
	"context"
	"time"

	"github.com/s0up4200/sonarr-hunter/sonarr"
	"github.com/s0up4200/sonarr-hunter/status"
)

// CycleResult describes one probe, scan and dispatch pass
type CycleResult struct {
	Connected bool
	Missing   int
	Dispatch  sonarr.DispatchResult
	Duration  time.Duration
}

// Cycle outcomes used as metric labels
const (
	outcomeCompleted    = "completed"
	outcomeNotConnected = "not_connected"
)

// runCycle performs one cycle against a client built from the settings in
// effect when the cycle started. It runs detached from ctx cancellation so
// shutdown waits for it instead of cutting requests short.
func (s *Scheduler) runCycle(ctx context.Context) (result CycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	s.setState(StateRunning)
	defer s.setState(StateIdle)

	start := s.now()
	s.lastStart = start

	api := s.newClient(s.settings.Settings())

	defer func() {
		result.Duration = s.now().Sub(start)
		s.observe(result)
	}()

	s.logger.Info().Msg("Checking for missing episodes...")

	if !s.monitor.Probe(ctx, api) {
		s.logger.Warn().
			Str("connection", s.monitor.Status().String()).
			Msg("Skipping cycle, Sonarr is not reachable")
		return result
	}
	result.Connected = true

	items := s.scanner.Scan(ctx, api)
	result.Missing = len(items)

	if len(items) == 0 {
		s.logger.Info().Msg("No missing episodes found")
		s.recorder.Record("No missing episodes found", status.WithMissingCount(0))
		return result
	}

	s.logger.Info().Msgf("Found %d missing episodes", len(items))
	s.recorder.Set(status.WithMissingCount(len(items)))

	result.Dispatch = s.dispatcher.Dispatch(ctx, api, items)

	s.logger.Info().
		Int("sent", result.Dispatch.Sent).
		Int("failed", result.Dispatch.Failed).
		Str("granularity", s.dispatcher.Granularity()).
		Msg("Cycle complete")

	return result
}

// runProbe re-checks the connection without scanning, typically right
// after the settings changed.
func (s *Scheduler) runProbe(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	api := s.newClient(s.settings.Settings())

	s.logger.Debug().Msg("Probing Sonarr after settings change")
	s.monitor.Probe(ctx, api)

	if s.metrics != nil {
		s.metrics.setConnection(s.monitor.Status())
	}
}

func (s *Scheduler) observe(result CycleResult) {
	if s.metrics == nil {
		return
	}

	s.metrics.setConnection(s.monitor.Status())
	s.metrics.CycleDuration.Observe(result.Duration.Seconds())

	if !result.Connected {
		s.metrics.Cycles.WithLabelValues(outcomeNotConnected).Inc()
		return
	}

	s.metrics.Cycles.WithLabelValues(outcomeCompleted).Inc()
	s.metrics.MissingEpisodes.Set(float64(result.Missing))
	s.metrics.Searches.WithLabelValues("sent").Add(float64(result.Dispatch.Sent))
	s.metrics.Searches.WithLabelValues("failed").Add(float64(result.Dispatch.Failed))
}
