package viewport

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	m, err := Parse(`{"start":12,"end":51,"width":120,"height":40,"cursor":20,"row":1,"col":6,"char_height":30}`)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	want := Metadata{Start: 12, End: 51, Width: 120, Height: 40, Cursor: 20, Row: 1, Col: 6, CharHeight: 30}
	if m != want {
		t.Errorf("Parse() = %+v, expected %+v", m, want)
	}
	if start, end := m.VisibleLineRange(); start != 12 || end != 51 {
		t.Errorf("VisibleLineRange() = %d, %d", start, end)
	}
	if !m.IsLineVisible(51) || m.IsLineVisible(52) {
		t.Error("IsLineVisible should be inclusive of the end line")
	}
}

func TestParseOptionalFields(t *testing.T) {
	m, err := Parse(`{"start":1,"end":10,"height":10}`)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if m.CharHeight != 0 || m.Row != 0 || m.Col != 0 {
		t.Errorf("expected zero optional fields, got %+v", m)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"start":`},
		{"missing start", `{"end":10,"height":10}`},
		{"missing height", `{"start":1,"end":10}`},
		{"inverted range", `{"start":10,"end":1,"height":10}`},
		{"zero height", `{"start":1,"end":10,"height":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.raw)
			if !errors.Is(err, ErrInvalidMetadata) {
				t.Errorf("expected ErrInvalidMetadata, got %v", err)
			}
		})
	}
}

func TestSizeChanged(t *testing.T) {
	a := Metadata{Start: 1, End: 20, Width: 80, Height: 20}

	scrolled := a
	scrolled.Start, scrolled.End = 5, 24
	if scrolled.SizeChanged(a) {
		t.Error("scrolling should not count as a size change")
	}

	resized := a
	resized.Height = 30
	if !resized.SizeChanged(a) {
		t.Error("expected size change")
	}
}
