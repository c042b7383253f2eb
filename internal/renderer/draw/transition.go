package draw

import (
	"github.com/dshills/inlay/internal/node"
	"github.com/dshills/inlay/internal/renderer/viewport"
)

// Transition decides whether moving from old to cur needs new pixels and,
// if so, which geometry to request. full is the node's height in rows and
// charHeight the pixel height of one row.
//
// Entering Visible always renders at full height. A border view renders
// when it appears from Hidden or when its visible part strictly grows;
// shrinking and unchanged views reuse what is already on screen.
func Transition(old, cur viewport.View, full, charHeight int) (node.GeometryKey, bool) {
	c := charHeight
	switch cur.Kind {
	case viewport.Visible:
		if old.Kind == viewport.Visible {
			return node.GeometryKey{}, false
		}
		return node.GeometryKey{Height: cur.Height * c}, true

	case viewport.UpperBorder:
		if old.Kind != viewport.Hidden && (old.Kind != viewport.UpperBorder || cur.Height <= old.Height) {
			return node.GeometryKey{}, false
		}
		return node.GeometryKey{
			Height: (cur.Skip + cur.Height) * c,
			Crop:   node.Window{Height: cur.Height * c, Offset: cur.Skip * c},
		}, true

	case viewport.LowerBorder:
		if old.Kind != viewport.Hidden && (old.Kind != viewport.LowerBorder || cur.Height <= old.Height) {
			return node.GeometryKey{}, false
		}
		return node.GeometryKey{
			Height: full * c,
			Crop:   node.Window{Height: cur.Height * c},
		}, true
	}
	return node.GeometryKey{}, false
}
