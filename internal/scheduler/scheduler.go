package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/atlastrack/atlastrack/internal/compute"
	"github.com/atlastrack/atlastrack/internal/metrics"
	"github.com/atlastrack/atlastrack/internal/scraper"
	"github.com/atlastrack/atlastrack/internal/store"
	"github.com/atlastrack/atlastrack/pkg/types"
)

// DistanceInterval is the fixed distance-only cadence.
const DistanceInterval = 10 * time.Second

// Cycle names used in logs and metrics.
const (
	CycleFull     = "full"
	CycleDistance = "distance"
)

// Cycle outcomes used in metrics.
const (
	outcomeOK      = "ok"
	outcomePartial = "partial" // one source failed, the merge still ran
	outcomeSkipped = "skipped" // nothing written: no distance, or a cycle already running
	outcomeError   = "error"
)

// Scheduler owns the cron runner and both cycle bodies.
type Scheduler struct {
	primary   scraper.Fetcher
	secondary scraper.Fetcher
	writer    store.Writer

	cron     *cron.Cron
	distance time.Duration

	mu       sync.Mutex
	ctx      context.Context
	interval time.Duration
	fullID   cron.EntryID
	started  bool

	// fullBusy outlives Reschedule, which replaces the cron entry together
	// with its SkipIfStillRunning wrapper.
	fullBusy atomic.Bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithDistanceInterval overrides DistanceInterval. cron rounds schedules down
// to whole seconds with a one second minimum.
func WithDistanceInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.distance = d }
}

// New returns a Scheduler. interval is the full-refresh cadence; callers clamp
// it (config.TrackerConfig.RefreshInterval does).
func New(primary, secondary scraper.Fetcher, w store.Writer, interval time.Duration, opts ...Option) *Scheduler {
	logger := cronLogger{slog.Default()}
	s := &Scheduler{
		primary:   primary,
		secondary: secondary,
		writer:    w,
		interval:  interval,
		distance:  DistanceInterval,
		cron: cron.New(
			cron.WithLogger(logger),
			// Recover must sit inside SkipIfStillRunning: a panic that
			// escapes the skip wrapper never returns its token.
			cron.WithChain(cron.SkipIfStillRunning(logger), cron.Recover(logger)),
		),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start runs one full refresh synchronously, then schedules both cycles and
// starts the cron runner. Jobs use ctx for fetches and store submissions; it
// should live as long as the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler: already started")
	}
	s.started = true
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.RefreshAll(ctx); err != nil {
		slog.Error("scheduler: initial refresh failed", "err", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullID = s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.fullJob))
	s.cron.Schedule(cron.Every(s.distance), cron.FuncJob(s.distanceJob))
	s.cron.Start()

	slog.Info("scheduler: started",
		"refresh_interval", s.interval.String(),
		"distance_interval", s.distance.String(),
	)
	return nil
}

// Stop halts scheduling and returns a context that is done once running jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Reschedule replaces the full-refresh entry with one firing every interval.
// Before Start it only records the interval.
func (s *Scheduler) Reschedule(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if interval == s.interval {
		return
	}
	s.interval = interval
	if !s.started || s.fullID == 0 {
		return
	}
	s.cron.Remove(s.fullID)
	s.fullID = s.cron.Schedule(cron.Every(interval), cron.FuncJob(s.fullJob))
	slog.Info("scheduler: full refresh rescheduled", "refresh_interval", interval.String())
}

// Interval returns the current full-refresh cadence.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) fullJob() {
	if !s.fullBusy.CompareAndSwap(false, true) {
		metrics.ObserveCycle(CycleFull, outcomeSkipped)
		slog.Info("scheduler: full refresh still running, skipped")
		return
	}
	defer s.fullBusy.Store(false)

	if err := s.RefreshAll(s.jobContext()); err != nil {
		slog.Error("scheduler: full refresh failed", "err", err)
	}
}

func (s *Scheduler) distanceJob() {
	if err := s.RefreshDistance(s.jobContext()); err != nil {
		slog.Error("scheduler: distance refresh failed", "err", err)
	}
}

// RefreshAll is the full-refresh cycle body. Fetch failures are not errors:
// they leave nil fields in the merge. Only a failed store submission is
// returned.
func (s *Scheduler) RefreshAll(ctx context.Context) error {
	start := time.Now()
	var primary, secondary *types.SourceReading

	var g errgroup.Group
	g.Go(func() error {
		primary = s.primary.Fetch(ctx)
		return nil
	})
	g.Go(func() error {
		secondary = s.secondary.Fetch(ctx)
		return nil
	})
	_ = g.Wait()

	m := compute.Merge(primary, secondary)
	if err := s.writer.Replace(ctx, m); err != nil {
		metrics.ObserveCycle(CycleFull, outcomeError)
		return fmt.Errorf("scheduler: replace: %w", err)
	}

	outcome := outcomeOK
	if !primary.OK() || !secondary.OK() {
		outcome = outcomePartial
	}
	metrics.ObserveCycle(CycleFull, outcome)

	slog.Info("scheduler: full refresh complete",
		"latest", types.LogValue(m.LatestMag),
		"source", string(m.Source),
		"observed", types.LogValue(m.ObservedMag),
		"predicted", types.LogValue(m.PredictedMag),
		"distance_km", types.LogValue(m.DistanceKm),
		"outcome", outcome,
		"took", time.Since(start).String(),
	)
	return nil
}

// RefreshDistance is the distance-only cycle body. A failed fetch or a
// missing or invalid distance leaves the cache untouched.
func (s *Scheduler) RefreshDistance(ctx context.Context) error {
	r := s.primary.Fetch(ctx)
	km := compute.ValidDistance(r.DistanceKm)
	if km == nil {
		metrics.ObserveCycle(CycleDistance, outcomeSkipped)
		slog.Debug("scheduler: no distance to write", "source", r.SourceID, "err", r.Error)
		return nil
	}

	if err := s.writer.SetDistance(ctx, *km, r.FetchedAt); err != nil {
		metrics.ObserveCycle(CycleDistance, outcomeError)
		return fmt.Errorf("scheduler: set distance: %w", err)
	}
	metrics.ObserveCycle(CycleDistance, outcomeOK)
	slog.Debug("scheduler: distance updated", "distance_km", *km)
	return nil
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("scheduler: cron "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("scheduler: cron "+msg, append(keysAndValues, "err", err)...)
}
