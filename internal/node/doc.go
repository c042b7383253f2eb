// Package node implements the per-identity render pipeline.
//
// A Node owns a generation state machine and a geometry cache:
//
//	Empty ──Start/Blob──▶ Running ──▶ Ready(artifact) ──miss──▶ Running ──▶ Ready
//	                         │
//	                         └──▶ Failed(err) ──reported once──▶ Empty
//
// Stage A turns the node's source into an artifact; Stage B renders the
// artifact at a requested geometry and stores the encoded blob. Both stages
// run on background goroutines and never overlap for one node: the single
// Running phase is the exclusion.
//
// # Thread Safety
//
// Node fields other than the cell are owned by the control goroutine.
// Background goroutines hold only a pointer to the cell, so dropping a Node
// never leaves a goroutine writing into live registry state.
package node
