// Package watcher reports changes to the files a document references.
//
// Files are watched through their parent directories so that editors which
// save by renaming a temporary file over the original are still seen. Rapid
// changes to one file are coalesced into a single notification.
package watcher

import (
	"errors"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed = errors.New("watcher is closed")
	ErrPathNotExist  = errors.New("path does not exist")
)

// Op represents the type of file system operation.
type Op uint32

const (
	// OpCreate indicates a file was created.
	OpCreate Op = 1 << iota
	// OpWrite indicates a file was written to.
	OpWrite
	// OpRemove indicates a file was removed.
	OpRemove
	// OpRename indicates a file was renamed.
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpWrite:
		return "WRITE"
	case OpRemove:
		return "REMOVE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// Has returns true if the operation includes the given op.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event is a coalesced change to one tracked file.
type Event struct {
	// Path is the absolute path of the file.
	Path string

	// Op combines every operation seen during the debounce window.
	Op Op

	// Timestamp is when the first operation of the window occurred.
	Timestamp time.Time
}

// Stats provides watcher status information.
type Stats struct {
	TrackedFiles  int
	WatchedDirs   int
	PendingEvents int
	TotalEvents   int64
	Errors        int64
	LastError     error
}

// Config holds watcher settings.
type Config struct {
	// Debounce is how long a file must stay quiet before its change is
	// reported.
	Debounce time.Duration
}

// bufferSize is the capacity of the event and error channels. A full
// channel drops the change: the engine drains every draw.
const bufferSize = 100

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		Debounce: 100 * time.Millisecond,
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Config) {
		c.Debounce = d
	}
}
