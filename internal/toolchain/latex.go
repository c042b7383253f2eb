package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	mathPreamble = "\\documentclass[20pt, preview]{standalone}\n" +
		"\\usepackage{amsmath}\\usepackage{amsfonts}\n" +
		"\\begin{document}\n$$\n"
	mathTrailer = "$$\n\\end{document}"

	typesetPreamble = "\\documentclass[preview]{standalone}\n" +
		"\\usepackage{amsmath}\\usepackage{amsfonts}\n" +
		"\\begin{document}\n"
	typesetTrailer = "\n\\end{document}\n"
)

// MathDocument wraps an equation in a standalone display-math document.
func MathDocument(body string) string {
	return mathPreamble + body + mathTrailer
}

// TypesetDocument returns body unchanged when it is a complete document and
// wraps it in a standalone document otherwise.
func TypesetDocument(body string) string {
	if strings.Contains(body, `\documentclass`) {
		return body
	}
	return typesetPreamble + body + typesetTrailer
}

// ParseLatexLog extracts the first error from latex terminal output. The
// reason comes from the "! " line, the line number and offending element
// from the "l.N ..." context line.
func ParseLatexLog(out string) (reason, element string, line int) {
	for _, l := range strings.Split(out, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.Contains(l, "Emergency stop") {
			continue
		}
		switch {
		case strings.HasPrefix(l, "! ") && reason == "":
			reason = strings.TrimSpace(l[2:])
		case strings.HasPrefix(l, "l.") && line == 0:
			num, rest, _ := strings.Cut(l[2:], " ")
			if n, err := strconv.Atoi(num); err == nil {
				line = n
				element = strings.TrimSpace(rest)
			}
		}
	}
	return reason, element, line
}

// compileLatex runs latex on src (relative to or inside workDir) with the
// job output placed in the scratch directory as <job>.dvi, then converts
// it to <job>.svg. Existing intermediates are reused unless force is set.
func (t *Toolchain) compileLatex(workDir, src, job string, force bool) (string, error) {
	dvi := filepath.Join(t.cfg.ScratchDir, job+".dvi")
	svg := t.SVGPath(job)

	if force {
		os.Remove(dvi)
		os.Remove(svg)
	}
	if !force && exists(svg) {
		return svg, nil
	}

	if !exists(dvi) {
		proc, err := t.sup.Run(workDir, t.cfg.Latex,
			"-interaction=nonstopmode",
			"-output-directory="+t.cfg.ScratchDir,
			"-jobname="+job,
			src,
		)
		if err != nil {
			return "", err
		}
		if !proc.Success() {
			os.Remove(dvi)
			return "", latexError(proc)
		}
	}

	proc, err := t.sup.Run(t.cfg.ScratchDir, t.cfg.Dvisvgm,
		"-b", "1",
		"--no-fonts",
		"--zoom="+strconv.FormatFloat(t.cfg.Zoom, 'g', -1, 64),
		"--output="+job+".svg",
		job+".dvi",
	)
	if err != nil {
		return "", err
	}
	if stderr := proc.Stderr(); !proc.Success() || strings.Contains(stderr, "error:") {
		os.Remove(svg)
		return "", &GenerationError{Tool: "dvisvgm", Reason: firstLine(stderr, proc)}
	}
	return svg, nil
}

func latexError(proc *Process) error {
	out := proc.Stdout()
	if strings.TrimSpace(out) == "" {
		return &GenerationError{Tool: "latex", Reason: firstLine(proc.Stderr(), proc)}
	}
	reason, element, line := ParseLatexLog(out)
	if reason == "" {
		reason = fmt.Sprintf("exit status %d", proc.ExitCode())
	}
	return &GenerationError{Tool: "latex", Reason: reason, Element: element, Line: line}
}

func firstLine(s string, proc *Process) string {
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return fmt.Sprintf("exit status %d", proc.ExitCode())
}
