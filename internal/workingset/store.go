package workingset

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/aegisshield/case-dashboard/internal/cache"
	"github.com/aegisshield/case-dashboard/internal/models"
	"github.com/aegisshield/case-dashboard/internal/source"
)

// Refresh origins, used for logs and metrics
const (
	OriginStartup  = "startup"
	OriginSchedule = "schedule"
	OriginEvent    = "event"
	OriginManual   = "manual"
)

// Fetcher reads the raw case-report payload from the backend
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Recorder receives refresh metrics
type Recorder interface {
	RecordRefresh(origin string, duration time.Duration, err error)
	RecordCacheLookup(hit bool)
	SetWorkingSet(records int, fetchedAt time.Time)
}

// Snapshot is an immutable view of the working set. Callers must not modify
// Records; the engine functions always return new slices.
type Snapshot struct {
	Records   []models.CaseRecord
	FetchedAt time.Time
	FromCache bool
}

// Listener is called after every successful refresh
type Listener func(snapshot Snapshot)

// Store holds the case records every dashboard query runs against
type Store struct {
	fetcher  Fetcher
	cache    cache.PayloadCache
	recorder Recorder
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.RWMutex
	snapshot Snapshot
	loaded   bool

	refreshMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []Listener
}

// NewStore creates a new working set store. A nil cache disables caching and
// a nil recorder disables metrics.
func NewStore(fetcher Fetcher, payloadCache cache.PayloadCache, recorder Recorder, loc *time.Location, logger *zap.Logger) *Store {
	if payloadCache == nil {
		payloadCache = cache.Noop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		fetcher:  fetcher,
		cache:    payloadCache,
		recorder: recorder,
		loc:      loc,
		logger:   logger.Named("working_set"),
		now:      time.Now,
	}
}

// Snapshot returns the current working set
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Loaded reports whether at least one refresh has succeeded
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// OnRefresh registers a listener for successful refreshes
func (s *Store) OnRefresh(listener Listener) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, listener)
}

// Refresh reloads the working set. Unless force is set a cached payload is
// used when present. On failure the previous snapshot is kept.
func (s *Store) Refresh(ctx context.Context, origin string, force bool) (Snapshot, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := s.now()
	snapshot, err := s.load(ctx, force)
	if s.recorder != nil {
		s.recorder.RecordRefresh(origin, s.now().Sub(start), err)
	}
	if err != nil {
		s.logger.Error("Working set refresh failed",
			zap.String("origin", origin),
			zap.Bool("force", force),
			zap.Error(err))
		return s.Snapshot(), err
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.loaded = true
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.SetWorkingSet(len(snapshot.Records), snapshot.FetchedAt)
	}

	s.logger.Info("Working set refreshed",
		zap.String("origin", origin),
		zap.Int("records", len(snapshot.Records)),
		zap.Bool("from_cache", snapshot.FromCache),
		zap.Duration("duration", s.now().Sub(start)))

	s.notify(snapshot)
	return snapshot, nil
}

// Invalidate drops the cached payload so the next refresh hits the backend
func (s *Store) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

func (s *Store) load(ctx context.Context, force bool) (Snapshot, error) {
	if !force {
		payload, hit, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("Payload cache read failed", zap.Error(err))
		}
		if s.recorder != nil && err == nil {
			s.recorder.RecordCacheLookup(hit)
		}
		if hit {
			records, err := source.DecodeRecords(payload, s.loc)
			if err == nil {
				return Snapshot{Records: records, FetchedAt: s.now(), FromCache: true}, nil
			}
			s.logger.Warn("Discarding undecodable cached payload", zap.Error(err))
		}
	}

	payload, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to fetch working set")
	}

	records, err := source.DecodeRecords(payload, s.loc)
	if err != nil {
		return Snapshot{}, errors.Wrap(err, "failed to decode working set")
	}

	if err := s.cache.Set(ctx, payload); err != nil {
		s.logger.Warn("Payload cache write failed", zap.Error(err))
	}

	return Snapshot{Records: records, FetchedAt: s.now()}, nil
}

func (s *Store) notify(snapshot Snapshot) {
	s.listenersMu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l(snapshot)
	}
}
