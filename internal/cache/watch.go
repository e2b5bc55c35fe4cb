package cache

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Change reports that a key of a FileStore directory was written or removed,
// by this process or another one.
type Change struct {
	Key     string
	Removed bool
}

const defaultDebounce = 50 * time.Millisecond

// Watcher turns filesystem events of a FileStore directory into Change
// notifications. Rapid writes to one key are coalesced.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	log      *zap.Logger
	debounce time.Duration
	pending  map[string]pendingChange
	subs     map[int]subscription
	nextID   int
	running  bool
	closed   bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type pendingChange struct {
	at      time.Time
	removed bool
}

type subscription struct {
	key string
	ch  chan Change
}

// NewWatcher creates a Watcher for dir. Start begins delivering events.
func NewWatcher(dir string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fs watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		watcher:  fw,
		dir:      dir,
		log:      logger.With(zap.String("cache_dir", dir)),
		debounce: defaultDebounce,
		pending:  make(map[string]pendingChange),
		subs:     make(map[int]subscription),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Subscribe returns a channel of changes for key; an empty key receives
// every change. Slow subscribers miss events rather than block the watcher.
// The returned func unsubscribes and closes the channel.
func (w *Watcher) Subscribe(key string) (<-chan Change, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan Change, 8)
	w.subs[id] = subscription{key: key, ch: ch}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if _, ok := w.subs[id]; ok {
				delete(w.subs, id)
				close(ch)
			}
		})
	}
}

// Start watches the directory in a background goroutine until ctx is done or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	if w.closed {
		return fmt.Errorf("failed to watch %s: watcher closed", w.dir)
	}

	if err := w.watcher.Add(w.dir); err != nil {
		w.closeWatcher()
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.running = true
	w.log.Info("Watching cache directory")

	go w.run(ctx)
	return nil
}

// closeWatcher releases the fsnotify watcher once. Callers hold w.mu.
func (w *Watcher) closeWatcher() {
	if w.closed {
		return
	}
	w.closed = true
	if err := w.watcher.Close(); err != nil {
		w.log.Warn("Failed to close fs watcher", zap.Error(err))
	}
}

// Stop ends the event loop, closes every subscription and releases the
// underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	w.mu.Lock()
	w.closeWatcher()
	for id, s := range w.subs {
		close(s.ch)
		delete(w.subs, id)
	}
	w.mu.Unlock()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("Cache watcher error", zap.Error(err))
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	key, ok := keyFromFile(filepath.Base(event.Name))
	if !ok {
		return
	}

	var removed bool
	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		removed = true
	default:
		return
	}

	w.mu.Lock()
	w.pending[key] = pendingChange{at: time.Now(), removed: removed}
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()
	for key, p := range w.pending {
		if now.Sub(p.at) < w.debounce {
			continue
		}
		delete(w.pending, key)
		change := Change{Key: key, Removed: p.removed}
		for _, s := range w.subs {
			if s.key != "" && s.key != key {
				continue
			}
			select {
			case s.ch <- change:
			default:
				w.log.Debug("Dropping cache change for slow subscriber", zap.String("key", key))
			}
		}
	}
}
