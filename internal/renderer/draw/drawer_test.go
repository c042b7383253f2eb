package draw

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dshills/inlay/internal/content"
	"github.com/dshills/inlay/internal/document"
	"github.com/dshills/inlay/internal/node"
	"github.com/dshills/inlay/internal/renderer/backend"
	"github.com/dshills/inlay/internal/renderer/viewport"
)

type stubArtifact string

func (a stubArtifact) Path() string { return string(a) }

// stubPipeline has a persisted artifact for every source, so nodes start
// Ready and only Stage B runs. Bodies starting with "bad" fail to render.
type stubPipeline struct{}

func (stubPipeline) Generate(src node.Source) (node.Artifact, error) {
	return stubArtifact(src.Body), nil
}

func (stubPipeline) Persisted(src node.Source) (node.Artifact, bool) {
	return stubArtifact(src.Body), true
}

func (stubPipeline) Render(a node.Artifact, key node.GeometryKey) ([]byte, error) {
	if strings.HasPrefix(a.Path(), "bad") {
		return nil, errors.New("render failed")
	}
	return []byte(fmt.Sprintf("%s@%d/%d+%d", a.Path(), key.Height, key.Crop.Height, key.Crop.Offset)), nil
}

func math(body string, line, height int) content.Entry {
	return content.Entry{Line: line, Region: &content.Region{Kind: content.KindMath, Body: body, Line: line, Height: height}}
}

func header(line int) content.Entry {
	return content.Entry{Line: line, Header: true}
}

func window(start, end, height int) viewport.Metadata {
	return viewport.Metadata{Start: start, End: end, Width: 80, Height: height, Cursor: start}
}

// settle draws until no blob is pending and returns the combined report.
func settle(t *testing.T, d *Drawer, reg *document.Registry, m viewport.Metadata, c int) Report {
	t.Helper()
	var total Report
	deadline := time.After(2 * time.Second)
	for {
		rep := d.Draw(reg.Index(), reg, m, c)
		total.Emitted += rep.Emitted
		total.Errors = append(total.Errors, rep.Errors...)
		if !rep.Pending {
			return total
		}
		select {
		case <-deadline:
			t.Fatal("draw still pending after deadline")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func refAt(t *testing.T, reg *document.Registry, line int) *document.NodeRef {
	t.Helper()
	for _, ref := range reg.Index().Refs() {
		if ref.Range.Start == line {
			return ref
		}
	}
	t.Fatalf("no ref at line %d", line)
	return nil
}

func TestDrawFoldSkip(t *testing.T) {
	reg := document.NewRegistry(stubPipeline{})
	reg.Update([]content.Entry{
		header(5),
		math("a", 6, 1),
		math("b", 8, 1),
		math("c", 15, 1),
	})
	if _, err := reg.ApplyFolds([]document.FoldCommand{{Line: 5, End: 12}}); err != nil {
		t.Fatalf("ApplyFolds failed: %v", err)
	}

	rec := backend.NewRecorder(0)
	rep := settle(t, New(rec), reg, window(1, 40, 30), 10)

	if rep.Emitted != 1 {
		t.Fatalf("expected 1 emission, got %d", rep.Emitted)
	}
	em := rec.Emissions()
	if em[0].Row != 7 {
		t.Errorf("expected node at line 15 on screen row 7, got %d", em[0].Row)
	}
	if string(em[0].Blob) != "c@20/0+0" {
		t.Errorf("unexpected blob %q", em[0].Blob)
	}

	for _, line := range []int{6, 8} {
		ref := refAt(t, reg, line)
		if ref.View.Kind != viewport.Hidden {
			t.Errorf("expected folded node at %d to stay hidden, got %v", line, ref.View)
		}
		if n := reg.Node(ref.ID); n.Spawns() != 0 {
			t.Errorf("expected folded node at %d never to render, got %d spawns", line, n.Spawns())
		}
	}
}

func TestDrawOpenFoldCountsHeader(t *testing.T) {
	reg := document.NewRegistry(stubPipeline{})
	reg.Update([]content.Entry{
		header(3),
		math("a", 6, 1),
	})

	rec := backend.NewRecorder(0)
	settle(t, New(rec), reg, window(1, 20, 20), 10)

	em := rec.Emissions()
	if len(em) != 1 || em[0].Row != 5 {
		t.Errorf("expected one emission on row 5, got %+v", em)
	}
}

func TestDrawPendingThenSteady(t *testing.T) {
	reg := document.NewRegistry(stubPipeline{})
	reg.Update([]content.Entry{math("a", 2, 2)})
	d := New(backend.NewRecorder(0))
	m := window(1, 20, 20)

	first := d.Draw(reg.Index(), reg, m, 10)
	if !first.Pending || first.Emitted != 0 {
		t.Errorf("expected first draw to be pending with no emission, got %+v", first)
	}
	if v := refAt(t, reg, 2).View; v.Kind != viewport.Hidden {
		t.Errorf("expected view to stay hidden while pending, got %v", v)
	}

	rep := settle(t, d, reg, m, 10)
	if rep.Emitted != 1 {
		t.Errorf("expected 1 emission, got %d", rep.Emitted)
	}

	again := d.Draw(reg.Index(), reg, m, 10)
	if again.Pending || again.Emitted != 0 {
		t.Errorf("expected unchanged viewport to emit nothing, got %+v", again)
	}
}

func TestDrawOutOfRangeHidden(t *testing.T) {
	reg := document.NewRegistry(stubPipeline{})
	reg.Update([]content.Entry{math("a", 2, 1), math("b", 50, 1)})

	far := refAt(t, reg, 50)
	far.View = viewport.View{Kind: viewport.Visible, Height: 2}

	rep := settle(t, New(backend.NewRecorder(0)), reg, window(1, 20, 20), 10)
	if rep.Emitted != 1 {
		t.Errorf("expected only the in-range node to emit, got %d", rep.Emitted)
	}
	if far.View.Kind != viewport.Hidden {
		t.Errorf("expected out-of-range node to be hidden, got %v", far.View)
	}
	if reg.Node(far.ID).Spawns() != 0 {
		t.Error("expected out-of-range node not to render")
	}
}

func TestDrawUpperBorderCrop(t *testing.T) {
	reg := document.NewRegistry(stubPipeline{})
	reg.Update([]content.Entry{math("a", 1, 3)})

	rec := backend.NewRecorder(0)
	m := window(3, 20, 20)
	m.Row, m.Col = 2, 4
	settle(t, New(rec), reg, m, 10)

	em := rec.Emissions()
	if len(em) != 1 {
		t.Fatalf("expected 1 emission, got %d", len(em))
	}
	if em[0].Row != 2 || em[0].Col != 4 {
		t.Errorf("expected emission at the window origin, got (%d, %d)", em[0].Row, em[0].Col)
	}
	if string(em[0].Blob) != "a@40/20+20" {
		t.Errorf("unexpected blob %q", em[0].Blob)
	}
	if v := refAt(t, reg, 1).View; v.Kind != viewport.UpperBorder || v.Skip != 2 {
		t.Errorf("unexpected view %v", v)
	}
}

func TestDrawLowerBorderCrop(t *testing.T) {
	reg := document.NewRegistry(stubPipeline{})
	reg.Update([]content.Entry{math("a", 9, 3)})

	rec := backend.NewRecorder(0)
	settle(t, New(rec), reg, window(1, 10, 10), 10)

	em := rec.Emissions()
	if len(em) != 1 {
		t.Fatalf("expected 1 emission, got %d", len(em))
	}
	if em[0].Row != 8 || string(em[0].Blob) != "a@40/20+0" {
		t.Errorf("unexpected emission row=%d blob=%q", em[0].Row, em[0].Blob)
	}
}

func TestDrawCollectsErrors(t *testing.T) {
	reg := document.NewRegistry(stubPipeline{})
	reg.Update([]content.Entry{math("bad", 2, 1), math("good", 6, 1)})

	rec := backend.NewRecorder(0)
	rep := settle(t, New(rec), reg, window(1, 20, 20), 10)

	if rep.Emitted != 1 {
		t.Errorf("expected the healthy node to emit, got %d", rep.Emitted)
	}
	if len(rep.Errors) != 1 {
		t.Fatalf("expected 1 error, got %v", rep.Errors)
	}
	var nerr *NodeError
	if !errors.As(rep.Errors[0], &nerr) || nerr.Line != 2 {
		t.Errorf("expected NodeError for line 2, got %v", rep.Errors[0])
	}
}

func TestDrawEmitFailureRetries(t *testing.T) {
	reg := document.NewRegistry(stubPipeline{})
	reg.Update([]content.Entry{math("a", 2, 1)})

	rec := backend.NewRecorder(0)
	rec.FailWith(errors.New("tty gone"))
	d := New(rec)
	m := window(1, 20, 20)

	rep := settle(t, d, reg, m, 10)
	if len(rep.Errors) == 0 {
		t.Fatal("expected emit failure to be reported")
	}
	if v := refAt(t, reg, 2).View; v.Kind != viewport.Hidden {
		t.Errorf("expected view to stay hidden after failed emit, got %v", v)
	}

	rec.FailWith(nil)
	rep = settle(t, d, reg, m, 10)
	if rep.Emitted != 1 {
		t.Errorf("expected retry to emit, got %d", rep.Emitted)
	}
}
