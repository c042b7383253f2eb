package toolchain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the toolchain package.
var (
	// ErrNotFound is matched by errors for missing referenced files.
	ErrNotFound = errors.New("file not found")

	// ErrGeneration is matched by errors reported by an external tool.
	ErrGeneration = errors.New("generation failed")

	// ErrToolMissing is matched by errors for tools not on PATH.
	ErrToolMissing = errors.New("tool not found")

	// ErrSupervisorShutdown is returned when the supervisor is shutting down.
	ErrSupervisorShutdown = errors.New("supervisor is shutting down")

	// ErrTimeout is returned when a tool exceeds the run timeout.
	ErrTimeout = errors.New("tool timed out")
)

// NotFoundError reports a referenced file that does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// GenerationError reports a failure of an external tool. Element and Line
// are set when the tool's log locates the offending input.
type GenerationError struct {
	Tool    string
	Reason  string
	Element string
	Line    int
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Tool, e.Reason)
	if e.Line > 0 {
		msg += fmt.Sprintf(" (line %d", e.Line)
		if e.Element != "" {
			msg += fmt.Sprintf(" at %q", e.Element)
		}
		msg += ")"
	}
	return msg
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

// MissingToolError reports a tool that cannot be located.
type MissingToolError struct {
	Tool string
	Err  error
}

func (e *MissingToolError) Error() string {
	return fmt.Sprintf("%s: not found in PATH", e.Tool)
}

func (e *MissingToolError) Is(target error) bool {
	return target == ErrToolMissing
}

func (e *MissingToolError) Unwrap() error {
	return e.Err
}
