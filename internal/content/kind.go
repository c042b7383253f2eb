// Package content extracts renderable regions and fold anchors from document text.
package content

import "fmt"

// Kind identifies how a region's content is turned into an artifact.
type Kind int

const (
	// KindMath is a display equation compiled through LaTeX.
	KindMath Kind = iota
	// KindPlot is a gnuplot script.
	KindPlot
	// KindTypeset is a LaTeX fragment or document.
	KindTypeset
	// KindFile is a reference to an image or source file on disk.
	KindFile
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMath:
		return "math"
	case KindPlot:
		return "plot"
	case KindTypeset:
		return "typeset"
	case KindFile:
		return "file"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// KindFromFence maps a fence keyword to a kind.
// The second return value is false for ordinary code fences.
func KindFromFence(keyword string) (Kind, bool) {
	switch keyword {
	case "math":
		return KindMath, true
	case "gnuplot", "plot":
		return KindPlot, true
	case "latex", "tex":
		return KindTypeset, true
	default:
		return 0, false
	}
}
