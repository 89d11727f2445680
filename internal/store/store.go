package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/atlastrack/atlastrack/internal/compute"
	"github.com/atlastrack/atlastrack/pkg/types"
)

// ErrStopped is returned by submissions after Run has returned.
var ErrStopped = errors.New("store: writer stopped")

// queueSize is the command channel buffer.
const queueSize = 16

// Reader is the read side used by the API, the WebSocket hub and alerting.
type Reader interface {
	Snapshot() types.Snapshot
}

// Writer is the write side used by the scheduler.
type Writer interface {
	Replace(ctx context.Context, m compute.Merged) error
	SetDistance(ctx context.Context, km float64, at time.Time) error
}

// Option configures a Store.
type Option func(*Store)

// WithNotify registers fn to be called, on the writer goroutine, with every
// newly published snapshot. Callbacks run in publication order and must not
// block for long.
func WithNotify(fn func(types.Snapshot)) Option {
	return func(s *Store) { s.notify = append(s.notify, fn) }
}

// WithClock overrides the clock used for Snapshot.Updated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type command struct {
	name  string
	apply func(*types.Snapshot) bool // reports whether the snapshot changed
	done  chan struct{}
}

// Store is the cache. Construct with New and start the writer with Run.
type Store struct {
	mu        sync.RWMutex
	published types.Snapshot

	cmds    chan command
	stopped chan struct{}
	once    sync.Once
	notify  []func(types.Snapshot)
	now     func() time.Time // injectable for deterministic tests
}

// New returns a Store holding the initial snapshot.
func New(opts ...Option) *Store {
	s := &Store{
		published: types.NewSnapshot(),
		cmds:      make(chan command, queueSize),
		stopped:   make(chan struct{}),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Snapshot returns a copy of the last published snapshot.
func (s *Store) Snapshot() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.published.Clone()
}

// Replace submits a full-refresh result and waits until it is applied.
//
// Magnitudes, Source and Raw are replaced unconditionally. MagStatus is
// classified against the PreviousMag held at apply time, and PreviousMag then
// advances to the new LatestMag. The distance is applied only if m.DistanceAt
// is not older than the distance currently held.
func (s *Store) Replace(ctx context.Context, m compute.Merged) error {
	return s.submit(ctx, command{
		name: "replace",
		apply: func(snap *types.Snapshot) bool {
			updated := s.now().UTC()
			snap.Updated = &updated
			snap.MagStatus = compute.Classify(snap.PreviousMag, m.LatestMag)
			snap.LatestMag = types.Float(m.LatestMag)
			snap.PreviousMag = types.Float(m.LatestMag)
			snap.ObservedMag = types.Float(m.ObservedMag)
			snap.PredictedMag = types.Float(m.PredictedMag)
			snap.Source = m.Source
			snap.Raw = make(map[string]*types.SourceReading, len(m.Raw))
			for id, r := range m.Raw {
				snap.Raw[id] = r
			}
			if !acceptDistance(snap, m.DistanceKm, m.DistanceAt) {
				slog.Debug("store: stale distance in full refresh ignored",
					"fetched_at", m.DistanceAt, "held", *snap.DistanceUpdated)
			}
			return true
		},
	})
}

// SetDistance submits a distance-only update and waits until it is applied.
// Only DistanceKm and DistanceUpdated can change; a value fetched before the
// one already held is dropped.
func (s *Store) SetDistance(ctx context.Context, km float64, at time.Time) error {
	return s.submit(ctx, command{
		name: "distance",
		apply: func(snap *types.Snapshot) bool {
			return acceptDistance(snap, &km, at)
		},
	})
}

// acceptDistance writes km unless at predates the held distance.
func acceptDistance(snap *types.Snapshot, km *float64, at time.Time) bool {
	if snap.DistanceUpdated != nil && at.Before(*snap.DistanceUpdated) {
		return false
	}
	snap.DistanceKm = types.Float(km)
	if !at.IsZero() {
		t := at.UTC()
		snap.DistanceUpdated = &t
	}
	return true
}

func (s *Store) submit(ctx context.Context, c command) error {
	c.done = make(chan struct{})
	select {
	case s.cmds <- c:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("store: submit %s: %w", c.name, ctx.Err())
	}
	select {
	case <-c.done:
		return nil
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return fmt.Errorf("store: await %s: %w", c.name, ctx.Err())
	}
}

// Run is the single writer. It applies commands in the order they were
// submitted and blocks until ctx is cancelled. Run must be called once.
func (s *Store) Run(ctx context.Context) {
	defer s.once.Do(func() { close(s.stopped) })

	working := s.Snapshot()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-s.cmds:
			if c.apply(&working) {
				s.publish(working)
			}
			close(c.done)
		}
	}
}

func (s *Store) publish(snap types.Snapshot) {
	s.mu.Lock()
	s.published = snap.Clone()
	s.mu.Unlock()

	for _, fn := range s.notify {
		fn(snap.Clone())
	}
}
