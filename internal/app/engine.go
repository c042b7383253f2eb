// Package app ties the document registry, drawer and output backend into
// the engine that serves host operations.
package app

import (
	"io"
	"path/filepath"
	"time"

	"github.com/dshills/inlay/internal/content"
	"github.com/dshills/inlay/internal/document"
	"github.com/dshills/inlay/internal/node"
	"github.com/dshills/inlay/internal/renderer/backend"
	"github.com/dshills/inlay/internal/renderer/draw"
	"github.com/dshills/inlay/internal/renderer/viewport"
	"github.com/dshills/inlay/internal/watcher"
)

// FallbackCharHeight is the row height in pixels used when neither the
// host, the configuration nor the terminal reports one.
const FallbackCharHeight = 28

// Engine is the rendering context of one host window.
//
// Engine is not safe for concurrent use. The host calls every operation
// from one control goroutine; only node stages run in the background.
type Engine struct {
	registry *document.Registry
	drawer   *draw.Drawer
	out      backend.Backend
	watcher  *watcher.Watcher
	logger   *Logger
	metrics  *Metrics

	meta viewport.Metadata

	// charHeight is the configured row height, 0 to detect.
	charHeight int
	// lastHeight is the row height the previous draw used.
	lastHeight int

	// watched maps absolute paths to the body that referenced them.
	watched map[string]string

	closers []io.Closer
	closed  bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithWatcher reloads referenced files when they change on disk.
func WithWatcher(w *watcher.Watcher) EngineOption {
	return func(e *Engine) {
		e.watcher = w
	}
}

// WithCharHeight fixes the row height in pixels. Metadata that carries a
// row height still takes precedence.
func WithCharHeight(px int) EngineOption {
	return func(e *Engine) {
		e.charHeight = px
	}
}

// WithMetrics sets the metrics tracker.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithCloser registers c to be closed by Close, after the engine's own
// components. Closers run in reverse registration order.
func WithCloser(c io.Closer) EngineOption {
	return func(e *Engine) {
		e.closers = append(e.closers, c)
	}
}

// NewEngine creates an engine rendering through p to out.
func NewEngine(p node.Pipeline, out backend.Backend, opts ...EngineOption) *Engine {
	e := &Engine{
		registry: document.NewRegistry(p),
		drawer:   draw.New(out),
		out:      out,
		logger:   NullLogger,
		metrics:  NewMetrics(),
		meta:     viewport.Default(),
		watched:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// UpdateContent rescans text and reconciles the registry with it.
func (e *Engine) UpdateContent(text string) (document.Result, error) {
	if e.closed {
		return document.Result{}, ErrClosed
	}

	entries := content.Scan(text)
	res := e.registry.Update(entries)
	e.metrics.RecordUpdate(res.Changed)
	e.logger.WithComponent("registry").Debug("scanned %d entries into %d nodes (changed=%t)",
		len(entries), e.registry.Len(), res.Changed)

	e.syncWatcher()
	return res, nil
}

// UpdateMetadata replaces the viewport metadata. A window size change
// hides every view so the next draw re-emits what is visible.
func (e *Engine) UpdateMetadata(raw string) error {
	if e.closed {
		return ErrClosed
	}

	m, err := viewport.Parse(raw)
	if err != nil {
		return NewOperationError("update_metadata", err)
	}
	if m.SizeChanged(e.meta) {
		e.registry.HideAll()
	}
	e.meta = m
	return nil
}

// SetFolds applies the host's fold list. It reports whether any fold
// changed.
func (e *Engine) SetFolds(raw string) (bool, error) {
	if e.closed {
		return false, ErrClosed
	}

	cmds, err := document.ParseFolds(raw)
	if err != nil {
		return false, NewOperationError("set_folds", err)
	}
	changed, err := e.registry.ApplyFolds(cmds)
	if err != nil {
		return false, NewOperationError("set_folds", err)
	}
	return changed, nil
}

// ClearAll forgets what is on screen so the next draw emits every visible
// node again.
func (e *Engine) ClearAll() {
	e.registry.HideAll()
}

// Draw emits what the current viewport needs. Per-node failures are in the
// report; the error is reserved for the engine itself being unusable.
func (e *Engine) Draw() (draw.Report, error) {
	if e.closed {
		return draw.Report{}, ErrClosed
	}

	e.drainInvalidations()

	h := e.CharHeight()
	if e.lastHeight != 0 && h != e.lastHeight {
		e.registry.HideAll()
	}
	e.lastHeight = h

	timer := StartTimer()
	rep := e.drawer.Draw(e.registry.Index(), e.registry, e.meta, h)
	e.metrics.RecordDraw(timer.Elapsed(), rep.Pending, rep.Emitted, len(rep.Errors))

	log := e.logger.WithComponent("drawer")
	for _, err := range rep.Errors {
		log.Warn("%v", err)
	}
	return rep, nil
}

// CharHeight returns the row height in pixels the next draw will use.
func (e *Engine) CharHeight() int {
	if e.meta.CharHeight > 0 {
		return e.meta.CharHeight
	}
	if e.charHeight > 0 {
		return e.charHeight
	}
	if h, ok := e.out.CellPixelHeight(); ok {
		return h
	}
	return FallbackCharHeight
}

// Metadata returns the current viewport metadata.
func (e *Engine) Metadata() viewport.Metadata {
	return e.meta
}

// Registry returns the node registry.
func (e *Engine) Registry() *document.Registry {
	return e.registry
}

// Metrics returns the engine metrics.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Close releases the watcher, the backend and every registered closer.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.logSummary()

	errs := NewErrorList()
	if e.watcher != nil {
		if err := e.watcher.Close(); err != nil {
			errs.Add(NewComponentError("watcher", "close", err))
		}
	}
	if err := e.out.Close(); err != nil {
		errs.Add(NewComponentError("backend", "close", err))
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs.Add(e.closers[i].Close())
	}
	return errs.AsError()
}

// logSummary reports the session's draw and document activity.
func (e *Engine) logSummary() {
	s := e.metrics.Snapshot()
	e.logger.WithComponent("engine").Info(
		"session %s: %d draws (avg %s, max %s, %.0f%% pending), %d emitted, %d node errors, %d updates (%d changed), %d reloads",
		s.Uptime.Round(time.Millisecond), s.DrawCount,
		time.Duration(s.AvgDrawNs), time.Duration(s.MaxDrawNs), s.PendingRate(),
		s.Emitted, s.NodeErrors, s.Updates, s.Changes, s.Invalidations)
}

// syncWatcher points the watcher at the files the document references.
func (e *Engine) syncWatcher() {
	if e.watcher == nil {
		return
	}

	watched := make(map[string]string)
	var paths []string
	for _, body := range e.registry.FilePaths() {
		abs, err := filepath.Abs(body)
		if err != nil {
			continue
		}
		watched[abs] = body
		paths = append(paths, abs)
	}
	e.watched = watched

	log := e.logger.WithComponent("watcher")
	if err := e.watcher.Sync(paths); err != nil {
		log.Warn("sync: %v", err)
	}
	if log.Enabled(LogLevelDebug) {
		st := e.watcher.Stats()
		log.Debug("tracking %d files in %d dirs (%d events, %d errors)",
			st.TrackedFiles, st.WatchedDirs, st.TotalEvents, st.Errors)
	}
}

// drainInvalidations resets the nodes of files that changed on disk.
func (e *Engine) drainInvalidations() {
	if e.watcher == nil {
		return
	}

	log := e.logger.WithComponent("watcher")
	for drained := false; !drained; {
		select {
		case err, ok := <-e.watcher.Errors():
			if ok {
				log.Warn("%v", err)
				continue
			}
			drained = true
		default:
			drained = true
		}
	}

	for _, path := range e.watcher.Drain() {
		body, ok := e.watched[path]
		if !ok {
			continue
		}
		if e.registry.Invalidate(body) {
			e.metrics.RecordInvalidation()
			log.Debug("invalidated %s", path)
		}
	}
}
