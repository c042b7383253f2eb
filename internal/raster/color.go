package raster

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ParseBackground parses a hex color such as "#1e1e2e". An empty string or
// "none" means transparent and yields nil.
func ParseBackground(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return nil, fmt.Errorf("background %q: %w", s, err)
	}
	return c, nil
}
