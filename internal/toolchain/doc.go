// Package toolchain turns node sources into vector artifacts by running the
// external compilers (latex, dvisvgm, gnuplot) in a scratch directory.
//
// # Artifacts
//
// Every generated artifact is written to the scratch directory as
// <identity>.svg, where identity is the content hash of the source. An
// artifact that already exists is reused, also across process lifetimes:
//
//	tc, err := toolchain.New(toolchain.DefaultConfig(), toolchain.NewSupervisor())
//	path, err := tc.Generate(content.KindMath, `e^{i\pi} + 1 = 0`)
//
// File references are returned as they are, except for .tex and gnuplot
// sources which are compiled on every call.
//
// # Supervisor
//
// Child processes run under a Supervisor that caps concurrency, applies a
// per-run timeout and kills stragglers on Shutdown:
//
//	sup := toolchain.NewSupervisor(toolchain.WithMaxProcesses(4))
//	defer sup.Shutdown(5 * time.Second)
//
// # Errors
//
// Failures are typed: *NotFoundError, *GenerationError and
// *MissingToolError, matched with errors.Is against ErrNotFound,
// ErrGeneration and ErrToolMissing.
//
// # Thread Safety
//
// Toolchain and Supervisor are safe for concurrent use. Generation for one
// identity is serialized.
package toolchain
