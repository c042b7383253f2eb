package viewport

import (
	"fmt"

	"github.com/dshills/inlay/internal/node"
)

// Visibility is the discriminant of View.
type Visibility int

const (
	// Hidden means no row of the node is on screen.
	Hidden Visibility = iota
	// UpperBorder means the node is cut off by the top edge.
	UpperBorder
	// LowerBorder means the node is cut off by the bottom edge.
	LowerBorder
	// Visible means the whole node is on screen.
	Visible
)

// String returns the visibility name.
func (v Visibility) String() string {
	switch v {
	case Hidden:
		return "hidden"
	case UpperBorder:
		return "upper"
	case LowerBorder:
		return "lower"
	case Visible:
		return "visible"
	default:
		return fmt.Sprintf("unknown(%d)", int(v))
	}
}

// View is a node's visibility classification in text rows.
//
//	Hidden
//	UpperBorder: Skip rows cut off at the top, Height rows shown at screen row 0
//	LowerBorder: Height rows shown from screen row Row
//	Visible:     all Height rows shown from screen row Row
type View struct {
	Kind   Visibility
	Row    int
	Skip   int
	Height int
}

// String returns a compact description of the view.
func (v View) String() string {
	switch v.Kind {
	case UpperBorder:
		return fmt.Sprintf("upper(skip=%d, height=%d)", v.Skip, v.Height)
	case LowerBorder:
		return fmt.Sprintf("lower(row=%d, height=%d)", v.Row, v.Height)
	case Visible:
		return fmt.Sprintf("visible(row=%d, height=%d)", v.Row, v.Height)
	default:
		return v.Kind.String()
	}
}

// IsVisible returns true unless the view is hidden.
func (v View) IsVisible() bool {
	return v.Kind != Hidden
}

// Classify maps a node range, the window and the node's screen offset (rows
// from the top of the window, negative above it) to a view.
func Classify(r node.Range, m Metadata, offset int) View {
	height := r.Height()

	if offset <= -height {
		return View{Kind: Hidden}
	}
	if offset < 0 {
		return View{Kind: UpperBorder, Skip: -offset, Height: height + offset}
	}

	distance := m.Height - offset
	if distance <= 0 {
		return View{Kind: Hidden}
	}
	if distance < height {
		return View{Kind: LowerBorder, Row: m.Height - distance, Height: distance}
	}
	return View{Kind: Visible, Row: offset, Height: height}
}
