package raster

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dshills/inlay/internal/node"
)

func writePNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(y), A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

const testSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 20 10" width="20" height="10">
<rect x="0" y="0" width="20" height="10" fill="#ff0000"/>
</svg>`

func writeSVG(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "art.svg")
	if err := os.WriteFile(path, []byte(testSVG), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestArtifactFitBitmap(t *testing.T) {
	a := NewArtifact(writePNG(t, 40, 20))

	img, err := a.Fit(10)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 10 {
		t.Errorf("expected 20x10, got %dx%d", b.Dx(), b.Dy())
	}

	same, err := a.Fit(20)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if b := same.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("expected native size, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestArtifactFitSVG(t *testing.T) {
	a := NewArtifact(writeSVG(t))

	img, err := a.Fit(30)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 60 || b.Dy() != 30 {
		t.Errorf("expected 60x30, got %dx%d", b.Dx(), b.Dy())
	}
	r, _, _, alpha := img.At(30, 15).RGBA()
	if r == 0 || alpha == 0 {
		t.Error("expected the rect to be painted")
	}
}

func TestArtifactMissingFile(t *testing.T) {
	a := NewArtifact(filepath.Join(t.TempDir(), "nope.png"))
	if _, err := a.Fit(10); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestArtifactTooLarge(t *testing.T) {
	a := NewArtifact(writePNG(t, MaxImageWidth+1, 1))
	if _, err := a.Fit(1); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}

	b := NewArtifact(writePNG(t, 10, 10))
	if _, err := b.Fit(MaxImageHeight + 1); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge for oversized fit, got %v", err)
	}
}

func TestArtifactUndecodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.png")
	os.WriteFile(path, []byte("not an image"), 0o644)

	if _, err := NewArtifact(path).Fit(10); err == nil {
		t.Error("expected decode error")
	}
}

func TestCrop(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 40))

	tests := []struct {
		name   string
		window node.Window
		height int
	}{
		{"uncropped", node.Window{}, 40},
		{"top", node.Window{Height: 10}, 10},
		{"middle", node.Window{Height: 10, Offset: 20}, 10},
		{"clipped", node.Window{Height: 30, Offset: 30}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Crop(img, tt.window)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			if got.Bounds().Dy() != tt.height {
				t.Errorf("expected %d rows, got %d", tt.height, got.Bounds().Dy())
			}
		})
	}

	if _, err := Crop(img, node.Window{Height: 5, Offset: 50}); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty for window past the image, got %v", err)
	}
}

func TestRenderCropsFromOffset(t *testing.T) {
	a := NewArtifact(writePNG(t, 10, 40))

	img, err := a.Render(node.GeometryKey{Height: 40, Crop: node.Window{Height: 10, Offset: 20}}, nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	b := img.Bounds()
	r, _, _, _ := img.At(b.Min.X, b.Min.Y).RGBA()
	if r>>8 != 20 {
		t.Errorf("expected first row to be source row 20, got %d", r>>8)
	}
}

func TestFlatten(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	out := Flatten(img, color.White)

	r, g, b, a := out.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Errorf("expected white background, got %d %d %d %d", r, g, b, a)
	}
}

func TestParseBackground(t *testing.T) {
	if c, err := ParseBackground(""); err != nil || c != nil {
		t.Errorf("expected nil for empty, got %v %v", c, err)
	}
	if c, err := ParseBackground("none"); err != nil || c != nil {
		t.Errorf("expected nil for none, got %v %v", c, err)
	}

	c, err := ParseBackground("#ff0000")
	if err != nil {
		t.Fatalf("ParseBackground failed: %v", err)
	}
	r, g, _, _ := c.RGBA()
	if r != 0xffff || g != 0 {
		t.Errorf("expected red, got r=%d g=%d", r, g)
	}

	if _, err := ParseBackground("red-ish"); err == nil {
		t.Error("expected error for invalid color")
	}
}
