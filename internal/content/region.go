package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// idLength is the number of hex characters kept from the content digest.
const idLength = 24

// Region is a renderable block found by a scan.
type Region struct {
	Kind Kind

	// Body is the fenced content, or the referenced path for KindFile.
	Body string

	// Line is the 1-based line the region starts on.
	Line int

	// Height is the declared or inferred extent: the region covers the
	// inclusive line range [Line, Line+Height].
	Height int
}

// End returns the last line covered by the region.
func (r Region) End() int {
	return r.Line + r.Height
}

// ID returns the region's content identity.
func (r Region) ID() string {
	return Identity(r.Kind, r.Body)
}

// Identity hashes the path for file references and the kind and body for
// everything else, so equal bodies of different kinds stay distinct.
func Identity(kind Kind, body string) string {
	if kind == KindFile {
		return Hash(body)
	}
	return Hash(kind.String() + "\x00" + body)
}

// Hash returns the truncated SHA-256 hex digest of s.
func Hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:idLength]
}

// Entry is one element of a scan: either a region or a section header.
type Entry struct {
	Line int

	// Header is set for fold anchors; Region is nil in that case.
	Header bool
	Region *Region
}
