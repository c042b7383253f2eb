// Package raster turns artifacts into terminal graphics blobs: vector and
// bitmap loading, fitting to a pixel height, cropping and protocol encoding.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	_ "golang.org/x/image/bmp" // Register BMP decoder
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder

	"github.com/dshills/inlay/internal/node"
)

// Image size limits to prevent memory exhaustion.
const (
	MaxImageWidth  = 4096             // Maximum width in pixels
	MaxImageHeight = 4096             // Maximum height in pixels
	MaxImageBytes  = 16 * 1024 * 1024 // 16MB uncompressed (RGBA at 4 bytes/pixel)
)

var (
	// ErrTooLarge is returned for images beyond the size limits.
	ErrTooLarge = errors.New("image too large")

	// ErrEmpty is returned for images without a drawable area.
	ErrEmpty = errors.New("image has no area")
)

// Artifact is a file on disk decoded on first use. SVG files stay vector
// and are rasterized at each requested height.
type Artifact struct {
	path string

	once sync.Once
	mu   sync.Mutex // guards icon targeting
	icon *oksvg.SvgIcon
	img  image.Image
	err  error
}

// NewArtifact creates an artifact for the file at path.
func NewArtifact(path string) *Artifact {
	return &Artifact{path: path}
}

// Path returns the file the artifact was loaded from.
func (a *Artifact) Path() string {
	return a.path
}

func (a *Artifact) load() error {
	a.once.Do(func() {
		f, err := os.Open(a.path)
		if err != nil {
			a.err = fmt.Errorf("open %s: %w", a.path, err)
			return
		}
		defer f.Close()

		if strings.EqualFold(filepath.Ext(a.path), ".svg") {
			icon, err := oksvg.ReadIconStream(f, oksvg.WarnErrorMode)
			if err != nil {
				a.err = fmt.Errorf("parse svg %s: %w", a.path, err)
				return
			}
			if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
				a.err = fmt.Errorf("svg %s: %w", a.path, ErrEmpty)
				return
			}
			a.icon = icon
			return
		}

		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			a.err = fmt.Errorf("decode %s: %w", a.path, err)
			return
		}
		if err := checkSize(cfg.Width, cfg.Height); err != nil {
			a.err = fmt.Errorf("%s: %w", a.path, err)
			return
		}
		if _, err := f.Seek(0, 0); err != nil {
			a.err = fmt.Errorf("rewind %s: %w", a.path, err)
			return
		}
		img, _, err := image.Decode(f)
		if err != nil {
			a.err = fmt.Errorf("decode %s: %w", a.path, err)
			return
		}
		a.img = img
	})
	return a.err
}

// Fit returns the image scaled to height pixels, preserving aspect ratio.
func (a *Artifact) Fit(height int) (image.Image, error) {
	if err := a.load(); err != nil {
		return nil, err
	}
	if height <= 0 {
		return nil, fmt.Errorf("fit to %d pixels: %w", height, ErrEmpty)
	}

	if a.icon != nil {
		vb := a.icon.ViewBox
		width := scaledWidth(vb.W, vb.H, height)
		if err := checkSize(width, height); err != nil {
			return nil, err
		}
		dst := image.NewRGBA(image.Rect(0, 0, width, height))
		a.mu.Lock()
		defer a.mu.Unlock()
		a.icon.SetTarget(0, 0, float64(width), float64(height))
		scanner := rasterx.NewScannerGV(width, height, dst, dst.Bounds())
		a.icon.Draw(rasterx.NewDasher(width, height, scanner), 1.0)
		return dst, nil
	}

	b := a.img.Bounds()
	if b.Dy() == height {
		return a.img, nil
	}
	width := scaledWidth(float64(b.Dx()), float64(b.Dy()), height)
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), a.img, b, xdraw.Src, nil)
	return dst, nil
}

// Render fits the artifact to key.Height, fills transparent areas with
// background when it is non-nil and applies the crop window.
func (a *Artifact) Render(key node.GeometryKey, background color.Color) (image.Image, error) {
	img, err := a.Fit(key.Height)
	if err != nil {
		return nil, err
	}
	if background != nil {
		img = Flatten(img, background)
	}
	return Crop(img, key.Crop)
}

// Flatten composes img over a solid background.
func Flatten(img image.Image, background color.Color) image.Image {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

// Crop returns the rows of img selected by w, clipped to the image. A zero
// window returns img unchanged.
func Crop(img image.Image, w node.Window) (image.Image, error) {
	if w.IsZero() {
		return img, nil
	}
	b := img.Bounds()
	r := image.Rect(b.Min.X, b.Min.Y+w.Offset, b.Max.X, b.Min.Y+w.Offset+w.Height).Intersect(b)
	if r.Empty() {
		return nil, fmt.Errorf("crop %d+%d of %d rows: %w", w.Height, w.Offset, b.Dy(), ErrEmpty)
	}

	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(r), nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

func scaledWidth(w, h float64, height int) int {
	width := int(math.Round(w * float64(height) / h))
	if width < 1 {
		width = 1
	}
	return width
}

func checkSize(width, height int) error {
	if width > MaxImageWidth || height > MaxImageHeight {
		return fmt.Errorf("%w: %dx%d (max %dx%d)", ErrTooLarge, width, height, MaxImageWidth, MaxImageHeight)
	}
	if size := width * height * 4; size > MaxImageBytes {
		return fmt.Errorf("%w: %d bytes uncompressed (max %d bytes)", ErrTooLarge, size, MaxImageBytes)
	}
	return nil
}
