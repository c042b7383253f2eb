package toolchain

import (
	"strings"
	"testing"
)

func TestParseLatexLog(t *testing.T) {
	out := strings.Join([]string{
		"This is pdfTeX, Version 3.141592653",
		"(./abc.tex",
		"! Undefined control sequence.",
		"l.5 \\frac{1}{\\foo",
		"                  {2}",
		"! Emergency stop.",
		"No pages of output.",
	}, "\n")

	reason, element, line := ParseLatexLog(out)
	if reason != "Undefined control sequence." {
		t.Errorf("unexpected reason %q", reason)
	}
	if element != `\frac{1}{\foo` {
		t.Errorf("unexpected element %q", element)
	}
	if line != 5 {
		t.Errorf("expected line 5, got %d", line)
	}
}

func TestParseLatexLogNoError(t *testing.T) {
	reason, element, line := ParseLatexLog("Output written on x.dvi (1 page).\n")
	if reason != "" || element != "" || line != 0 {
		t.Errorf("expected empty result, got %q %q %d", reason, element, line)
	}
}

func TestMathDocument(t *testing.T) {
	doc := MathDocument("x^2\n")
	if !strings.HasPrefix(doc, `\documentclass[20pt, preview]{standalone}`) {
		t.Errorf("unexpected preamble: %q", doc)
	}
	if !strings.Contains(doc, "$$\nx^2\n$$\n\\end{document}") {
		t.Errorf("expected body in display math, got %q", doc)
	}
}

func TestTypesetDocument(t *testing.T) {
	full := "\\documentclass{article}\n\\begin{document}hi\\end{document}"
	if got := TypesetDocument(full); got != full {
		t.Errorf("expected complete document unchanged, got %q", got)
	}

	got := TypesetDocument(`\textbf{hi}`)
	if !strings.Contains(got, `\begin{document}`) || !strings.Contains(got, `\textbf{hi}`) {
		t.Errorf("expected fragment to be wrapped, got %q", got)
	}
}

func TestParseGnuplotError(t *testing.T) {
	reason, line := ParseGnuplotError(`"abc.plt" line 4: undefined variable: foo`+"\n", plotHeaderLines)
	if reason != "undefined variable: foo" {
		t.Errorf("unexpected reason %q", reason)
	}
	if line != 2 {
		t.Errorf("expected line 2, got %d", line)
	}

	reason, line = ParseGnuplotError("  something broke \n", 0)
	if reason != "something broke" || line != 0 {
		t.Errorf("unexpected fallback %q %d", reason, line)
	}
}
