package toolchain

import (
	"os"
	"regexp"
	"strconv"
	"strings"
)

// plotHeaderLines is the number of lines PlotScript puts before the body.
const plotHeaderLines = 2

// gnuplotError matches the location part of a gnuplot error message, for
// example `"x.plt" line 3: undefined variable: foo`.
var gnuplotError = regexp.MustCompile(`line (\d+): (.*)`)

// PlotScript prefixes a gnuplot body with the svg terminal and output.
func PlotScript(body, output string) string {
	return "set terminal svg\n" +
		"set output '" + output + "'\n" +
		body
}

// ParseGnuplotError extracts the message and line from gnuplot stderr.
// offset is subtracted from the reported line.
func ParseGnuplotError(stderr string, offset int) (reason string, line int) {
	m := gnuplotError.FindStringSubmatch(stderr)
	if m == nil {
		return strings.TrimSpace(stderr), 0
	}
	n, _ := strconv.Atoi(m[1])
	if n -= offset; n < 0 {
		n = 0
	}
	return strings.TrimSpace(m[2]), n
}

// runGnuplot executes args in workDir and checks that svg was written.
func (t *Toolchain) runGnuplot(workDir, svg string, offset int, args ...string) (string, error) {
	proc, err := t.sup.Run(workDir, t.cfg.Gnuplot, args...)
	if err != nil {
		return "", err
	}
	if !proc.Success() || !exists(svg) {
		os.Remove(svg)
		stderr := proc.Stderr()
		if strings.TrimSpace(stderr) == "" {
			stderr = firstLine("", proc)
		}
		reason, line := ParseGnuplotError(stderr, offset)
		return "", &GenerationError{Tool: "gnuplot", Reason: reason, Line: line}
	}
	return svg, nil
}
