package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher tracks a set of files using fsnotify.
type Watcher struct {
	mu sync.Mutex

	watcher *fsnotify.Watcher
	config  Config

	// files is the tracked set; dirs counts tracked files per directory.
	files map[string]bool
	dirs  map[string]int

	pending map[string]*pendingEvent

	events chan Event
	errors chan error

	totalEvents int64
	totalErrors int64
	lastError   error

	closed   bool
	closeCh  chan struct{}
	closedWg sync.WaitGroup
}

type pendingEvent struct {
	event Event
	timer *time.Timer
}

// New creates a watcher tracking no files.
func New(opts ...Option) (*Watcher, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultConfig().Debounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		config:  config,
		files:   make(map[string]bool),
		dirs:    make(map[string]int),
		pending: make(map[string]*pendingEvent),
		events:  make(chan Event, bufferSize),
		errors:  make(chan error, bufferSize),
		closeCh: make(chan struct{}),
	}

	w.closedWg.Add(1)
	go w.processLoop()

	return w, nil
}

// Sync makes the tracked set equal to paths. Files whose directory cannot
// be watched are skipped; the first such error is returned after the rest
// of the set has been applied.
func (w *Watcher) Sync(paths []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWatcherClosed
	}

	want := make(map[string]bool, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		want[abs] = true
	}

	for f := range w.files {
		if !want[f] {
			w.untrack(f)
		}
	}

	var firstErr error
	for f := range want {
		if w.files[f] {
			continue
		}
		if err := w.track(f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// track adds f. Must be called with w.mu held.
func (w *Watcher) track(f string) error {
	dir := filepath.Dir(f)
	if w.dirs[dir] == 0 {
		if _, err := os.Stat(dir); err != nil {
			if os.IsNotExist(err) {
				return ErrPathNotExist
			}
			return err
		}
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[f] = true
	return nil
}

// untrack removes f. Must be called with w.mu held.
func (w *Watcher) untrack(f string) {
	delete(w.files, f)
	if p, ok := w.pending[f]; ok {
		p.timer.Stop()
		delete(w.pending, f)
	}

	dir := filepath.Dir(f)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		// The directory may already be gone; fsnotify drops it itself then.
		_ = w.watcher.Remove(dir)
	}
}

// Tracked returns the tracked files in sorted order.
func (w *Watcher) Tracked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Events returns the channel of debounced change events.
// The channel is closed when the watcher is closed.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watcher errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Drain returns the paths of every event delivered so far without blocking.
// Each path appears once.
func (w *Watcher) Drain() []string {
	var out []string
	seen := make(map[string]bool)
	for {
		select {
		case ev, ok := <-w.events:
			if !ok {
				return out
			}
			if !seen[ev.Path] {
				seen[ev.Path] = true
				out = append(out, ev.Path)
			}
		default:
			return out
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	for f, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, f)
	}
	w.mu.Unlock()

	w.closedWg.Wait()

	// Timers that already fired check closed before sending.
	w.mu.Lock()
	close(w.events)
	close(w.errors)
	w.mu.Unlock()

	return w.watcher.Close()
}

// Stats returns watcher statistics.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Stats{
		TrackedFiles:  len(w.files),
		WatchedDirs:   len(w.dirs),
		PendingEvents: len(w.pending) + len(w.events),
		TotalEvents:   atomic.LoadInt64(&w.totalEvents),
		Errors:        atomic.LoadInt64(&w.totalErrors),
		LastError:     w.lastError,
	}
}

func (w *Watcher) processLoop() {
	defer w.closedWg.Done()

	for {
		select {
		case <-w.closeCh:
			return

		case fsEvent, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(fsEvent)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.recordError(err)
			w.sendError(err)
		}
	}
}

func (w *Watcher) handleFSEvent(fsEvent fsnotify.Event) {
	op := convertOp(fsEvent.Op)
	if op == 0 {
		return
	}
	path := filepath.Clean(fsEvent.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.files[path] {
		return
	}

	if p, ok := w.pending[path]; ok {
		p.event.Op |= op
		p.timer.Reset(w.config.Debounce)
		return
	}

	p := &pendingEvent{event: Event{Path: path, Op: op, Timestamp: time.Now()}}
	p.timer = time.AfterFunc(w.config.Debounce, func() { w.flush(path) })
	w.pending[path] = p
}

// flush delivers the pending event for path once its window has elapsed.
func (w *Watcher) flush(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if !ok || w.closed {
		return
	}
	delete(w.pending, path)

	select {
	case w.events <- p.event:
		atomic.AddInt64(&w.totalEvents, 1)
	default:
		w.lastError = errors.New("event channel full, dropping event")
		atomic.AddInt64(&w.totalErrors, 1)
	}
}

func convertOp(fsOp fsnotify.Op) Op {
	var op Op
	if fsOp.Has(fsnotify.Create) {
		op |= OpCreate
	}
	if fsOp.Has(fsnotify.Write) {
		op |= OpWrite
	}
	if fsOp.Has(fsnotify.Remove) {
		op |= OpRemove
	}
	if fsOp.Has(fsnotify.Rename) {
		op |= OpRename
	}
	return op
}

func (w *Watcher) sendError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

func (w *Watcher) recordError(err error) {
	atomic.AddInt64(&w.totalErrors, 1)
	w.mu.Lock()
	w.lastError = err
	w.mu.Unlock()
}
