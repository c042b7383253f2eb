package node

import "fmt"

// Phase is the discriminant of State.
type Phase int

const (
	// PhaseEmpty means no artifact exists and nothing is running.
	PhaseEmpty Phase = iota
	// PhaseRunning means a background stage owns the node.
	PhaseRunning
	// PhaseReady means the artifact is available.
	PhaseReady
	// PhaseFailed means the last stage failed and the error is unreported.
	PhaseFailed
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseRunning:
		return "running"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(p))
	}
}

// State is the generation state of a node.
// Artifact is set only in PhaseReady and Err only in PhaseFailed.
type State struct {
	Phase    Phase
	Artifact Artifact
	Err      error
}

func ready(a Artifact) State { return State{Phase: PhaseReady, Artifact: a} }

func failed(err error) State { return State{Phase: PhaseFailed, Err: err} }
