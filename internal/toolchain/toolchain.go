package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dshills/inlay/internal/content"
)

// Config holds the scratch location and tool commands.
type Config struct {
	// ScratchDir receives sources, intermediates and artifacts.
	ScratchDir string

	Latex   string
	Dvisvgm string
	Gnuplot string

	// Zoom is passed to dvisvgm.
	Zoom float64
}

// DefaultConfig returns the default toolchain configuration.
func DefaultConfig() Config {
	return Config{
		ScratchDir: filepath.Join(os.TempDir(), "nvim_arts"),
		Latex:      "latex",
		Dvisvgm:    "dvisvgm",
		Gnuplot:    "gnuplot",
		Zoom:       1.0,
	}
}

// Toolchain generates artifacts for node sources.
type Toolchain struct {
	cfg Config
	sup *Supervisor

	// locks serializes generation per identity.
	locks sync.Map
}

// New creates a toolchain and its scratch directory.
func New(cfg Config, sup *Supervisor) (*Toolchain, error) {
	def := DefaultConfig()
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = def.ScratchDir
	}
	if cfg.Latex == "" {
		cfg.Latex = def.Latex
	}
	if cfg.Dvisvgm == "" {
		cfg.Dvisvgm = def.Dvisvgm
	}
	if cfg.Gnuplot == "" {
		cfg.Gnuplot = def.Gnuplot
	}
	if cfg.Zoom <= 0 {
		cfg.Zoom = def.Zoom
	}

	dir, err := filepath.Abs(cfg.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("scratch dir: %w", err)
	}
	cfg.ScratchDir = dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}

	return &Toolchain{cfg: cfg, sup: sup}, nil
}

// Config returns the effective configuration.
func (t *Toolchain) Config() Config {
	return t.cfg
}

// SVGPath returns where the artifact for identity id is stored.
func (t *Toolchain) SVGPath(id string) string {
	return filepath.Join(t.cfg.ScratchDir, id+".svg")
}

// Persisted returns the artifact left by an earlier run for a generated
// kind. File references are never persisted.
func (t *Toolchain) Persisted(kind content.Kind, body string) (string, bool) {
	if kind == content.KindFile {
		return "", false
	}
	path := t.SVGPath(content.Identity(kind, body))
	return path, exists(path)
}

// Generate produces the artifact for a source and returns its path.
func (t *Toolchain) Generate(kind content.Kind, body string) (string, error) {
	id := content.Identity(kind, body)
	unlock := t.lock(id)
	defer unlock()

	switch kind {
	case content.KindMath:
		return t.generateLatex(id, MathDocument(body))
	case content.KindTypeset:
		return t.generateLatex(id, TypesetDocument(body))
	case content.KindPlot:
		return t.generatePlot(id, body)
	case content.KindFile:
		return t.resolveFile(id, body)
	default:
		return "", fmt.Errorf("generate: unsupported kind %v", kind)
	}
}

func (t *Toolchain) generateLatex(id, doc string) (string, error) {
	if svg := t.SVGPath(id); exists(svg) {
		return svg, nil
	}
	tex := filepath.Join(t.cfg.ScratchDir, id+".tex")
	if !exists(tex) {
		if err := os.WriteFile(tex, []byte(doc), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", tex, err)
		}
	}
	return t.compileLatex(t.cfg.ScratchDir, id+".tex", id, false)
}

func (t *Toolchain) generatePlot(id, body string) (string, error) {
	svg := t.SVGPath(id)
	if exists(svg) {
		return svg, nil
	}
	script := filepath.Join(t.cfg.ScratchDir, id+".plt")
	if err := os.WriteFile(script, []byte(PlotScript(body, id+".svg")), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", script, err)
	}
	return t.runGnuplot(t.cfg.ScratchDir, svg, plotHeaderLines, id+".plt")
}

// resolveFile checks a referenced file and compiles latex and gnuplot
// sources. Anything else is handed to the decoder as it is.
func (t *Toolchain) resolveFile(id, path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return "", &NotFoundError{Path: path}
	}

	dir := filepath.Dir(abs)
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".tex":
		return t.compileLatex(dir, abs, id, true)
	case ".plt", ".gp", ".gnuplot":
		svg := t.SVGPath(id)
		os.Remove(svg)
		setup := fmt.Sprintf("set terminal svg; set output '%s'", svg)
		return t.runGnuplot(dir, svg, 0, "-e", setup, abs)
	default:
		return abs, nil
	}
}

func (t *Toolchain) lock(id string) func() {
	v, _ := t.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
