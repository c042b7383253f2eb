// Package config loads inlay settings from defaults, configuration files and
// the environment.
//
// Sources are layered, later ones winning:
//
//  1. built-in defaults
//  2. the user file: $XDG_CONFIG_HOME/inlay/config.toml (or config.yaml)
//  3. an explicit file passed with WithFile
//  4. INLAY_* environment variables
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/inlay/internal/config/loader"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "INLAY_"

// ErrInvalid indicates a setting with an unusable value.
var ErrInvalid = errors.New("invalid configuration")

// Settings is the complete configuration.
type Settings struct {
	Render    Render    `toml:"render"`
	Toolchain Toolchain `toml:"toolchain"`
	Watch     Watch     `toml:"watch"`
	Logging   Logging   `toml:"logging"`
}

// Render configures image output.
type Render struct {
	// Protocol is "sixel" or "kitty".
	Protocol   string `toml:"protocol"`
	ScratchDir string `toml:"scratch_dir"`

	// CharHeight overrides the pixel height of a text row. Zero asks the
	// terminal.
	CharHeight int `toml:"char_height"`

	// Background fills transparent pixels, "" or "none" to keep them.
	Background string  `toml:"background"`
	Zoom       float64 `toml:"zoom"`
}

// Toolchain configures the external compilers.
type Toolchain struct {
	Latex        string `toml:"latex"`
	Dvisvgm      string `toml:"dvisvgm"`
	Gnuplot      string `toml:"gnuplot"`
	MaxProcesses int    `toml:"max_processes"`
	Timeout      string `toml:"timeout"`
}

// Watch configures reloading of referenced files.
type Watch struct {
	Enabled  bool   `toml:"enabled"`
	Debounce string `toml:"debounce"`
}

// Logging configures the logger.
type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// TimeoutDuration returns the parsed tool timeout.
func (t Toolchain) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(t.Timeout)
	return d
}

// DebounceDuration returns the parsed watch debounce.
func (w Watch) DebounceDuration() time.Duration {
	d, _ := time.ParseDuration(w.Debounce)
	return d
}

// Defaults returns the built-in configuration as a map.
func Defaults() map[string]any {
	return map[string]any{
		"render": map[string]any{
			"protocol":    "sixel",
			"scratch_dir": filepath.Join(os.TempDir(), "nvim_arts"),
			"char_height": int64(0),
			"background":  "",
			"zoom":        1.0,
		},
		"toolchain": map[string]any{
			"latex":         "latex",
			"dvisvgm":       "dvisvgm",
			"gnuplot":       "gnuplot",
			"max_processes": int64(4),
			"timeout":       "0s",
		},
		"watch": map[string]any{
			"enabled":  true,
			"debounce": "100ms",
		},
		"logging": map[string]any{
			"level": "warn",
			"file":  "",
		},
	}
}

type options struct {
	fs      loader.FileSystem
	userDir string
	file    string
	env     loader.Loader
}

// Option configures Load.
type Option func(*options)

// WithFile adds an explicit configuration file above the user file.
func WithFile(path string) Option {
	return func(o *options) {
		o.file = path
	}
}

// WithUserConfigDir overrides the directory searched for the user file.
func WithUserConfigDir(dir string) Option {
	return func(o *options) {
		o.userDir = dir
	}
}

// WithFileSystem sets the file system files are read from.
func WithFileSystem(fs loader.FileSystem) Option {
	return func(o *options) {
		o.fs = fs
	}
}

// WithEnv replaces the environment loader.
func WithEnv(env loader.Loader) Option {
	return func(o *options) {
		o.env = env
	}
}

// Load builds the settings from all sources.
func Load(opts ...Option) (*Settings, error) {
	o := options{
		fs:      loader.DefaultFS(),
		userDir: defaultUserConfigDir(),
		env:     loader.NewEnvLoader(EnvPrefix),
	}
	for _, opt := range opts {
		opt(&o)
	}

	merged := Defaults()

	if o.userDir != "" {
		for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
			path := filepath.Join(o.userDir, name)
			if _, err := o.fs.Stat(path); err != nil {
				continue
			}
			m, err := loader.ForPath(o.fs, path).Load()
			if err != nil {
				return nil, err
			}
			merged = loader.DeepMerge(merged, m)
			break
		}
	}

	if o.file != "" {
		if _, err := o.fs.Stat(o.file); err != nil {
			return nil, fmt.Errorf("config file %s: %w", o.file, err)
		}
		m, err := loader.ForPath(o.fs, o.file).Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}

	if o.env != nil {
		m, err := o.env.Load()
		if err != nil {
			return nil, fmt.Errorf("environment: %w", err)
		}
		merged = loader.DeepMerge(merged, knownOnly(m, Defaults()))
	}

	s, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// decode converts the merged map into Settings by round-tripping through
// TOML, so the struct tags are the single source of key names.
func decode(m map[string]any) (*Settings, error) {
	if render, ok := m["render"].(map[string]any); ok {
		if z, ok := render["zoom"].(int64); ok {
			render["zoom"] = float64(z)
		}
	}

	data, err := toml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}

	var s Settings
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, fmt.Errorf("%w: %s", ErrInvalid, serr.String())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &s, nil
}

// knownOnly drops entries of m that have no counterpart in ref. The
// environment is shared with other programs, so unknown INLAY_* variables
// are ignored rather than rejected.
func knownOnly(m, ref map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		r, ok := ref[k]
		if !ok {
			continue
		}
		sub, isMap := v.(map[string]any)
		refSub, refIsMap := r.(map[string]any)
		switch {
		case isMap && refIsMap:
			out[k] = knownOnly(sub, refSub)
		case !isMap && !refIsMap:
			out[k] = v
		}
	}
	return out
}

// Validate checks value ranges and enumerations.
func (s *Settings) Validate() error {
	var problems []string

	switch strings.ToLower(s.Render.Protocol) {
	case "sixel", "kitty":
	default:
		problems = append(problems, fmt.Sprintf("render.protocol: unknown protocol %q", s.Render.Protocol))
	}
	if s.Render.CharHeight < 0 {
		problems = append(problems, "render.char_height: must not be negative")
	}
	if s.Render.Zoom <= 0 {
		problems = append(problems, "render.zoom: must be positive")
	}
	if s.Render.ScratchDir == "" {
		problems = append(problems, "render.scratch_dir: must not be empty")
	}
	if s.Toolchain.MaxProcesses < 0 {
		problems = append(problems, "toolchain.max_processes: must not be negative")
	}
	if d, err := time.ParseDuration(s.Toolchain.Timeout); err != nil || d < 0 {
		problems = append(problems, fmt.Sprintf("toolchain.timeout: invalid duration %q", s.Toolchain.Timeout))
	}
	if d, err := time.ParseDuration(s.Watch.Debounce); err != nil || d < 0 {
		problems = append(problems, fmt.Sprintf("watch.debounce: invalid duration %q", s.Watch.Debounce))
	}
	switch strings.ToLower(s.Logging.Level) {
	case "debug", "info", "warn", "error", "none":
	default:
		problems = append(problems, fmt.Sprintf("logging.level: unknown level %q", s.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// defaultUserConfigDir returns $XDG_CONFIG_HOME/inlay or its fallback.
func defaultUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "inlay")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "inlay")
}
