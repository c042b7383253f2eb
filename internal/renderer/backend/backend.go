// Package backend provides the output surface images are written to.
package backend

import (
	"strconv"
	"sync"
)

// Backend defines the interface for output surfaces.
// Implementations must be safe for concurrent use: each Emit is written as
// one uninterrupted unit.
type Backend interface {
	// Emit writes blob with the cursor placed at the 0-based screen
	// position (row, col). The cursor position is saved before and
	// restored after the write.
	Emit(row, col int, blob []byte) error

	// CellPixelHeight returns the pixel height of one text row, when the
	// surface can report it.
	CellPixelHeight() (int, bool)

	// Close releases backend resources.
	Close() error
}

// Frame wraps blob in the cursor save, absolute position and cursor
// restore sequences used by Emit.
func Frame(row, col int, blob []byte) []byte {
	buf := make([]byte, 0, len(blob)+24)
	buf = append(buf, "\x1b[s\x1b["...)
	buf = strconv.AppendInt(buf, int64(row+1), 10)
	buf = append(buf, ';')
	buf = strconv.AppendInt(buf, int64(col+1), 10)
	buf = append(buf, 'H')
	buf = append(buf, blob...)
	buf = append(buf, "\x1b[u"...)
	return buf
}

// Emission is one recorded Emit call.
type Emission struct {
	Row, Col int
	Blob     []byte
}

// Recorder is an in-memory backend that keeps every emission.
type Recorder struct {
	mu          sync.Mutex
	emissions   []Emission
	pixelHeight int
	err         error
	closed      bool
}

// NewRecorder creates a recorder reporting pixelHeight as the cell height.
// Zero means the height is unknown.
func NewRecorder(pixelHeight int) *Recorder {
	return &Recorder{pixelHeight: pixelHeight}
}

func (r *Recorder) Emit(row, col int, blob []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.emissions = append(r.emissions, Emission{Row: row, Col: col, Blob: append([]byte(nil), blob...)})
	return nil
}

func (r *Recorder) CellPixelHeight() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pixelHeight, r.pixelHeight > 0
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	return nil
}

// FailWith makes every following Emit return err. A nil err clears it.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.err = err
}

// Emissions returns a copy of the recorded emissions.
func (r *Recorder) Emissions() []Emission {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Emission, len(r.emissions))
	copy(out, r.emissions)
	return out
}

// Reset discards the recorded emissions.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.emissions = nil
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.closed
}
