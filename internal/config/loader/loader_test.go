package loader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

// mapFS adapts fstest.MapFS to FileSystem.
type mapFS struct{ fstest.MapFS }

func (m mapFS) ReadFile(path string) ([]byte, error) {
	return m.MapFS.ReadFile(path)
}

func (m mapFS) Stat(path string) (fs.FileInfo, error) {
	return m.MapFS.Stat(path)
}

func TestTOMLLoader(t *testing.T) {
	fsys := mapFS{fstest.MapFS{
		"config.toml": {Data: []byte("[render]\nprotocol = \"kitty\"\nchar_height = 20\n")},
	}}

	got, err := NewTOMLLoaderWithFS(fsys, "config.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := map[string]any{
		"render": map[string]any{"protocol": "kitty", "char_height": int64(20)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTOMLLoaderMissingFile(t *testing.T) {
	got, err := NewTOMLLoaderWithFS(mapFS{fstest.MapFS{}}, "nope.toml").Load()
	if err != nil || got != nil {
		t.Errorf("expected nil, nil for missing file, got %v, %v", got, err)
	}
}

func TestTOMLLoaderParseError(t *testing.T) {
	_, err := NewTOMLLoader("").LoadFromReader(strings.NewReader("[render\nx = 1"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
	if perr.Line == 0 {
		t.Error("expected a line number")
	}
}

func TestYAMLLoader(t *testing.T) {
	fsys := mapFS{fstest.MapFS{
		"config.yaml": {Data: []byte("render:\n  protocol: kitty\n  char_height: 20\n")},
	}}

	got, err := ForPath(fsys, "config.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := map[string]any{
		"render": map[string]any{"protocol": "kitty", "char_height": int64(20)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLLoaderParseError(t *testing.T) {
	_, err := NewYAMLLoader("").LoadFromReader(strings.NewReader("render: [unclosed"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Errorf("expected ParseError, got %v", err)
	}
}

func TestForPath(t *testing.T) {
	if _, ok := ForPath(DefaultFS(), "a.yml").(*YAMLLoader); !ok {
		t.Error("expected YAML loader for .yml")
	}
	if _, ok := ForPath(DefaultFS(), "a.toml").(*TOMLLoader); !ok {
		t.Error("expected TOML loader for .toml")
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"render": map[string]any{"protocol": "sixel", "zoom": 1.0},
		"watch":  map[string]any{"enabled": true},
	}
	src := map[string]any{
		"render":  map[string]any{"protocol": "kitty"},
		"logging": map[string]any{"level": "debug"},
	}

	got := DeepMerge(dst, src)
	want := map[string]any{
		"render":  map[string]any{"protocol": "kitty", "zoom": 1.0},
		"watch":   map[string]any{"enabled": true},
		"logging": map[string]any{"level": "debug"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvLoader(t *testing.T) {
	l := NewEnvLoader("INLAY_")
	l.environ = func() []string {
		return []string{
			"INLAY_RENDER_CHAR_HEIGHT=24",
			"INLAY_WATCH_ENABLED=off",
			"INLAY_PROTOCOL=kitty",
			"INLAY_LONE=1",
			"HOME=/root",
		}
	}

	got, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := map[string]any{
		"render": map[string]any{"char_height": int64(24), "protocol": "kitty"},
		"watch":  map[string]any{"enabled": false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"42", int64(42)},
		{"0", int64(0)},
		{"yes", true},
		{"Off", false},
		{"1.5", 1.5},
		{"[1,2]", []any{1.0, 2.0}},
		{"#fff", "#fff"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseValue(tt.in)); diff != "" {
			t.Errorf("ParseValue(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
