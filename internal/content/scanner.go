package content

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// fenceRegex matches every fenced block. Group 1 is the keyword, group 2
	// the optional height directive and group 3 the body.
	fenceRegex = regexp.MustCompile("(?m)^```([a-z]*)(?:,height=(\\d+))?[^\\n]*\\n([\\s\\S]*?)^```")

	// fileRegex matches an image reference at the start of a line followed by
	// its padding newlines.
	fileRegex = regexp.MustCompile(`(?m)^!\[[^\]\n]*\]\(([^)\n]*)\)[^\n]*(\n*)`)

	headerRegex = regexp.MustCompile(`(?m)^#{1,6}(?:[ \t][^\n]*)?$`)
)

// lineTable maps byte offsets to 1-based line numbers.
type lineTable []int

func newLineTable(text string) lineTable {
	var offsets lineTable
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, i)
		}
	}
	return offsets
}

// line returns the line containing the byte at offset.
func (t lineTable) line(offset int) int {
	return sort.SearchInts(t, offset) + 1
}

// span is a half-open byte range.
type span struct{ start, end int }

func inside(spans []span, offset int) bool {
	i := sort.Search(len(spans), func(i int) bool { return spans[i].end > offset })
	return i < len(spans) && spans[i].start <= offset
}

// Scan extracts the ordered regions and fold anchors of text.
//
// Entries are sorted by line with header markers first on a shared line.
// At most one entry is produced per line.
func Scan(text string) []Entry {
	lines := newLineTable(text)

	var (
		entries []Entry
		fenced  []span
	)

	for _, m := range fenceRegex.FindAllStringSubmatchIndex(text, -1) {
		fenced = append(fenced, span{m[0], m[1]})

		kind, ok := KindFromFence(text[m[2]:m[3]])
		if !ok {
			continue
		}
		body := text[m[6]:m[7]]
		if strings.TrimSpace(body) == "" {
			continue
		}

		height := strings.Count(body, "\n") + 1
		if m[4] >= 0 {
			if h, err := strconv.Atoi(text[m[4]:m[5]]); err == nil {
				height = h
			}
		}

		entries = append(entries, Entry{
			Line: lines.line(m[0]),
			Region: &Region{
				Kind:   kind,
				Body:   body,
				Line:   lines.line(m[0]),
				Height: height,
			},
		})
	}

	for _, m := range fileRegex.FindAllStringSubmatchIndex(text, -1) {
		if inside(fenced, m[0]) {
			continue
		}
		path := strings.TrimSpace(text[m[2]:m[3]])
		if path == "" {
			continue
		}
		height := m[5] - m[4] - 1
		if height < 0 {
			height = 0
		}

		line := lines.line(m[0])
		entries = append(entries, Entry{
			Line: line,
			Region: &Region{
				Kind:   KindFile,
				Body:   path,
				Line:   line,
				Height: height,
			},
		})
	}

	for _, m := range headerRegex.FindAllStringIndex(text, -1) {
		if inside(fenced, m[0]) {
			continue
		}
		entries = append(entries, Entry{Line: lines.line(m[0]), Header: true})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Line != entries[j].Line {
			return entries[i].Line < entries[j].Line
		}
		return entries[i].Header && !entries[j].Header
	})

	out := entries[:0]
	for i, e := range entries {
		if i > 0 && e.Line == out[len(out)-1].Line {
			continue
		}
		out = append(out, e)
	}
	return out
}

// FoldLines returns the lines of the header markers in entries.
func FoldLines(entries []Entry) []int {
	var lines []int
	for _, e := range entries {
		if e.Header {
			lines = append(lines, e.Line)
		}
	}
	return lines
}
