package app

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/dshills/inlay/internal/config"
	"github.com/dshills/inlay/internal/renderer/backend"
)

type noEnv struct{}

func (noEnv) Load() (map[string]any, error) { return nil, nil }

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s, err := config.Load(config.WithUserConfigDir(t.TempDir()), config.WithEnv(noEnv{}))
	if err != nil {
		t.Fatalf("config.Load failed: %v", err)
	}
	s.Render.ScratchDir = t.TempDir()
	return s
}

func TestBuild(t *testing.T) {
	s := testSettings(t)
	s.Render.CharHeight = 19
	rec := backend.NewRecorder(0)

	closed := false
	e, err := Build(s, BuildOptions{
		Backend: rec,
		Closers: []io.Closer{closerFunc(func() error { closed = true; return nil })},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if e.watcher == nil {
		t.Error("expected the watcher to be enabled by default")
	}
	if e.CharHeight() != 19 {
		t.Errorf("expected configured row height 19, got %d", e.CharHeight())
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !closed || !rec.Closed() {
		t.Error("expected Close to release the backend and extra closers")
	}
}

func TestBuildWithoutWatcher(t *testing.T) {
	s := testSettings(t)
	s.Watch.Enabled = false

	e, err := Build(s, BuildOptions{Backend: backend.NewRecorder(0)})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	if e.watcher != nil {
		t.Error("expected no watcher when disabled")
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.Settings)
		component string
	}{
		{"protocol", func(s *config.Settings) { s.Render.Protocol = "iterm" }, "raster"},
		{"background", func(s *config.Settings) { s.Render.Background = "not-a-color" }, "raster"},
		{"scratch", func(s *config.Settings) { s.Render.ScratchDir = "/dev/null/inlay" }, "toolchain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings(t)
			tt.mutate(s)

			_, err := Build(s, BuildOptions{Backend: backend.NewRecorder(0)})
			if !errors.Is(err, ErrInitialization) {
				t.Fatalf("expected ErrInitialization, got %v", err)
			}
			var ie *InitError
			if !errors.As(err, &ie) || ie.Component != tt.component {
				t.Errorf("expected component %q, got %v", tt.component, err)
			}
		})
	}
}

func TestBuildCreatesScratchDir(t *testing.T) {
	s := testSettings(t)
	s.Render.ScratchDir = t.TempDir() + "/nested/arts"

	e, err := Build(s, BuildOptions{Backend: backend.NewRecorder(0)})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer e.Close()

	if info, err := os.Stat(s.Render.ScratchDir); err != nil || !info.IsDir() {
		t.Errorf("expected scratch dir to exist, got %v", err)
	}
}
