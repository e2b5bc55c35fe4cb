package controller

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"instrupro-backend/internal/cache"
)

// Phase is the load state of a screen.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
)

// View is a snapshot of a screen. Notice is a one-shot message: it is
// returned by the first View call after it was raised.
type View[T any] struct {
	Phase      Phase      `json:"phase"`
	Data       T          `json:"data"`
	LastSynced *time.Time `json:"lastSynced,omitempty"`
	FromCache  bool       `json:"fromCache"`
	Notice     string     `json:"notice,omitempty"`
}

// screen is the shared cache-or-fetch state machine of the list screens.
type screen[T any] struct {
	mu     sync.Mutex
	name   string
	cache  *cache.LocalCache[T]
	fetch  func(ctx context.Context) (T, error)
	empty  func() T
	log    *zap.Logger
	notice string

	phase     Phase
	data      T
	synced    *time.Time
	fromCache bool
	closed    bool
}

func newScreen[T any](name string, c *cache.LocalCache[T], fetch func(context.Context) (T, error), empty func() T, log *zap.Logger) *screen[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &screen[T]{
		name:  name,
		cache: c,
		fetch: fetch,
		empty: empty,
		log:   log.With(zap.String("screen", name)),
		phase: PhaseIdle,
		data:  empty(),
	}
}

// mount serves the cached snapshot when there is one and fetches otherwise.
func (s *screen[T]) mount(ctx context.Context) error {
	if entry, ok := s.cache.Get(); ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return nil
		}
		s.apply(entry, true)
		return nil
	}
	return s.load(ctx)
}

// refresh fetches unconditionally and replaces the cached snapshot.
func (s *screen[T]) refresh(ctx context.Context) error {
	return s.load(ctx)
}

func (s *screen[T]) load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.phase = PhaseLoading
	s.mu.Unlock()

	data, err := s.fetch(ctx)
	if err != nil {
		s.log.Warn("Fetch failed", zap.Error(err))
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.closed {
			// Data already on screen stays; a failed first load shows the
			// empty state.
			s.phase = PhaseReady
			s.notice = "Failed to load " + s.name + ". Please try again."
		}
		return wrapRemote(err)
	}

	// Set and apply share the lock so overlapping loads leave the view on
	// the same snapshot as the cache. The cache is written even when the
	// screen was closed meanwhile.
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.cache.Set(data)
	if s.closed {
		return nil
	}
	s.apply(entry, false)
	return nil
}

func (s *screen[T]) apply(entry *cache.Entry[T], fromCache bool) {
	ts := entry.Timestamp
	s.data = entry.Data
	s.synced = &ts
	s.fromCache = fromCache
	s.phase = PhaseReady
}

// reload replaces the view with the current cache content, if any.
func (s *screen[T]) reload() {
	entry, ok := s.cache.Get()
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.phase == PhaseLoading {
		return
	}
	s.apply(entry, true)
}

// view copies the current state and consumes the pending notice.
func (s *screen[T]) view() View[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View[T]{
		Phase:     s.phase,
		Data:      s.data,
		FromCache: s.fromCache,
		Notice:    s.notice,
	}
	if s.synced != nil {
		ts := *s.synced
		v.LastSynced = &ts
	}
	s.notice = ""
	return v
}

func (s *screen[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
