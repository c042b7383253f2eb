// Package viewport classifies renderable nodes against the visible window.
package viewport

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// ErrInvalidMetadata is returned for metadata the host sent malformed.
var ErrInvalidMetadata = errors.New("invalid metadata")

// Metadata describes the host window. It is replaced wholesale on every
// update and drives all visibility math.
type Metadata struct {
	// Start and End are the first and last visible document lines.
	Start int
	End   int

	// Width and Height are the window size in text cells.
	Width  int
	Height int

	Cursor int

	// Row and Col are the 0-based screen position of the window's top-left cell.
	Row int
	Col int

	// CharHeight is the pixel height of one text row, 0 when the host does
	// not know it.
	CharHeight int
}

// Default returns the metadata used before the host sends any.
func Default() Metadata {
	return Metadata{Start: 1, End: 1, Width: 1, Height: 1, Cursor: 1}
}

// Parse decodes host metadata JSON.
//
//	{"start":1,"end":40,"width":80,"height":40,"cursor":3,"row":0,"col":4,"char_height":28}
//
// start, end and height are required.
func Parse(raw string) (Metadata, error) {
	if !gjson.Valid(raw) {
		return Metadata{}, fmt.Errorf("%w: not valid JSON", ErrInvalidMetadata)
	}

	fields := []string{"start", "end", "width", "height", "cursor", "row", "col", "char_height"}
	res := gjson.GetMany(raw, fields...)
	for _, i := range []int{0, 1, 3} {
		if !res[i].Exists() {
			return Metadata{}, fmt.Errorf("%w: missing %q", ErrInvalidMetadata, fields[i])
		}
	}

	m := Metadata{
		Start:      int(res[0].Int()),
		End:        int(res[1].Int()),
		Width:      int(res[2].Int()),
		Height:     int(res[3].Int()),
		Cursor:     int(res[4].Int()),
		Row:        int(res[5].Int()),
		Col:        int(res[6].Int()),
		CharHeight: int(res[7].Int()),
	}
	if m.End < m.Start {
		return Metadata{}, fmt.Errorf("%w: end %d before start %d", ErrInvalidMetadata, m.End, m.Start)
	}
	if m.Height < 1 {
		return Metadata{}, fmt.Errorf("%w: height %d", ErrInvalidMetadata, m.Height)
	}
	return m, nil
}

// VisibleLineRange returns the range of visible document lines.
func (m Metadata) VisibleLineRange() (start, end int) {
	return m.Start, m.End
}

// IsLineVisible returns true if the line is within the visible range.
func (m Metadata) IsLineVisible(line int) bool {
	return line >= m.Start && line <= m.End
}

// SizeChanged reports whether the window size differs from prev.
func (m Metadata) SizeChanged(prev Metadata) bool {
	return m.Width != prev.Width || m.Height != prev.Height
}
