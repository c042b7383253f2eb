package app

import (
	"io"
	"time"

	"github.com/dshills/inlay/internal/config"
	"github.com/dshills/inlay/internal/raster"
	"github.com/dshills/inlay/internal/renderer/backend"
	"github.com/dshills/inlay/internal/toolchain"
	"github.com/dshills/inlay/internal/watcher"
)

// shutdownGrace is how long running tools get to exit when the engine closes.
const shutdownGrace = 2 * time.Second

// BuildOptions are the inputs of Build besides settings.
type BuildOptions struct {
	// Backend receives the images. Nil opens the controlling terminal.
	Backend backend.Backend

	// Logger defaults to NullLogger.
	Logger *Logger

	// Closers are released by Engine.Close after everything Build created.
	Closers []io.Closer
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// bootstrapper assembles engine components with cleanup on failure.
type bootstrapper struct {
	settings *config.Settings
	opts     BuildOptions
	log      *Logger

	supervisor *toolchain.Supervisor
	pipeline   *raster.Pipeline
	out        backend.Backend
	ownsOut    bool
	watcher    *watcher.Watcher
}

// Build assembles an engine from settings: the process supervisor and
// toolchain, the raster pipeline, the output backend and the file watcher.
func Build(s *config.Settings, opts BuildOptions) (*Engine, error) {
	b := &bootstrapper{settings: s, opts: opts, log: opts.Logger}
	if b.log == nil {
		b.log = NullLogger
	}

	steps := []func() error{
		b.initToolchain,
		b.initBackend,
		b.initWatcher,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			b.cleanup()
			return nil, err
		}
	}

	engineOpts := []EngineOption{
		WithLogger(b.log),
		WithCharHeight(s.Render.CharHeight),
		WithCloser(closerFunc(func() error {
			b.supervisor.Shutdown(shutdownGrace)
			return nil
		})),
	}
	if b.watcher != nil {
		engineOpts = append(engineOpts, WithWatcher(b.watcher))
	}
	for _, c := range opts.Closers {
		engineOpts = append(engineOpts, WithCloser(c))
	}

	b.log.Info("engine ready (protocol=%s, scratch=%s)", s.Render.Protocol, s.Render.ScratchDir)
	return NewEngine(b.pipeline, b.out, engineOpts...), nil
}

func (b *bootstrapper) initToolchain() error {
	s := b.settings

	proto, err := raster.ParseProtocol(s.Render.Protocol)
	if err != nil {
		return &InitError{Component: "raster", Err: err}
	}
	bg, err := raster.ParseBackground(s.Render.Background)
	if err != nil {
		return &InitError{Component: "raster", Err: err}
	}

	log := b.log.WithComponent("toolchain")
	b.supervisor = toolchain.NewSupervisor(
		toolchain.WithMaxProcesses(s.Toolchain.MaxProcesses),
		toolchain.WithTimeout(s.Toolchain.TimeoutDuration()),
		toolchain.WithProcessExitCallback(func(p *toolchain.Process) {
			log.Debug("%s exited with %d after %s", p.Tool, p.ExitCode(), p.Runtime())
		}),
	)

	tc, err := toolchain.New(toolchain.Config{
		ScratchDir: s.Render.ScratchDir,
		Latex:      s.Toolchain.Latex,
		Dvisvgm:    s.Toolchain.Dvisvgm,
		Gnuplot:    s.Toolchain.Gnuplot,
		Zoom:       s.Render.Zoom,
	}, b.supervisor)
	if err != nil {
		return &InitError{Component: "toolchain", Err: err}
	}

	b.pipeline = raster.NewPipeline(tc, raster.NewEncoder(proto), raster.WithBackground(bg))
	return nil
}

func (b *bootstrapper) initBackend() error {
	if b.opts.Backend != nil {
		b.out = b.opts.Backend
		return nil
	}

	term, err := backend.NewTerminal()
	if err != nil {
		return &InitError{Component: "backend", Err: err}
	}
	b.out = term
	b.ownsOut = true
	return nil
}

func (b *bootstrapper) initWatcher() error {
	if !b.settings.Watch.Enabled {
		return nil
	}

	w, err := watcher.New(watcher.WithDebounce(b.settings.Watch.DebounceDuration()))
	if err != nil {
		// Rendering works without reloads.
		b.log.WithComponent("watcher").Warn("disabled: %v", err)
		return nil
	}
	b.watcher = w
	return nil
}

// cleanup releases what was created before a failed step.
func (b *bootstrapper) cleanup() {
	if b.watcher != nil {
		_ = b.watcher.Close()
	}
	if b.ownsOut && b.out != nil {
		_ = b.out.Close()
	}
	if b.supervisor != nil {
		b.supervisor.Shutdown(shutdownGrace)
	}
}

// InitError represents an error during engine assembly.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "failed to initialize " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Is matches ErrInitialization as well as the wrapped error.
func (e *InitError) Is(target error) bool {
	return target == ErrInitialization
}
