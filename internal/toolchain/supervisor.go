package toolchain

import (
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single tool run. Zero waits for the tool however
// long it takes.
const DefaultTimeout time.Duration = 0

// Supervisor runs tool processes with bounded concurrency and tracks them
// until they exit.
type Supervisor struct {
	mu        sync.RWMutex
	processes map[string]*Process

	shutdown chan struct{}
	closed   atomic.Bool

	// slots holds one token per running process when a limit is set.
	slots   chan struct{}
	timeout time.Duration

	onProcessExit func(p *Process)
}

// SupervisorOption configures a Supervisor instance.
type SupervisorOption func(*Supervisor)

// WithMaxProcesses limits the number of concurrently running tools. Runs
// beyond the limit wait for a slot. Zero means unlimited.
func WithMaxProcesses(max int) SupervisorOption {
	return func(s *Supervisor) {
		if max > 0 {
			s.slots = make(chan struct{}, max)
		}
	}
}

// WithTimeout sets how long a run may take before it is killed. Zero
// disables the limit.
func WithTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.timeout = d
	}
}

// WithProcessExitCallback sets a callback for when processes exit.
func WithProcessExitCallback(fn func(p *Process)) SupervisorOption {
	return func(s *Supervisor) {
		s.onProcessExit = fn
	}
}

// NewSupervisor creates a new process supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		processes: make(map[string]*Process),
		shutdown:  make(chan struct{}),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes tool with args in dir and waits for it to exit. A non-zero
// exit status is not an error: callers inspect the returned process.
//
// Run fails with a *MissingToolError when tool cannot be found, with
// ErrTimeout when it outlives the run timeout and with
// ErrSupervisorShutdown once shutdown has begun.
func (s *Supervisor) Run(dir, tool string, args ...string) (*Process, error) {
	path, err := exec.LookPath(tool)
	if err != nil {
		return nil, &MissingToolError{Tool: tool, Err: err}
	}

	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	cmd := exec.Command(path, args...)
	cmd.Dir = dir

	proc, err := s.Start(tool, cmd)
	if err != nil {
		return nil, err
	}

	var expired <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-proc.Done():
		return proc, nil
	case <-expired:
		_ = proc.Kill()
		<-proc.Done()
		return proc, fmt.Errorf("%s after %s: %w", tool, s.timeout, ErrTimeout)
	case <-s.shutdown:
		<-proc.Done()
		return proc, ErrSupervisorShutdown
	}
}

func (s *Supervisor) acquire() error {
	if s.slots == nil {
		return nil
	}
	select {
	case s.slots <- struct{}{}:
		return nil
	case <-s.shutdown:
		return ErrSupervisorShutdown
	}
}

func (s *Supervisor) release() {
	if s.slots != nil {
		<-s.slots
	}
}

// Start starts cmd under supervision without waiting for it.
func (s *Supervisor) Start(tool string, cmd *exec.Cmd) (*Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed.Load() {
		return nil, ErrSupervisorShutdown
	}

	proc := NewProcess(uuid.New().String(), tool, cmd)
	if err := proc.start(); err != nil {
		return nil, err
	}

	s.processes[proc.ID] = proc
	go s.monitorProcess(proc)

	return proc, nil
}

// monitorProcess watches for process exit and cleans up.
func (s *Supervisor) monitorProcess(proc *Process) {
	<-proc.Done()

	if s.onProcessExit != nil {
		func() {
			defer func() {
				_ = recover()
			}()
			s.onProcessExit(proc)
		}()
	}

	s.mu.Lock()
	delete(s.processes, proc.ID)
	s.mu.Unlock()
}

// Get returns a running process by ID, or nil.
func (s *Supervisor) Get(id string) *Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.processes[id]
}

// Count returns the number of tracked processes.
func (s *Supervisor) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.processes)
}

// IsShuttingDown returns true if the supervisor is shutting down.
func (s *Supervisor) IsShuttingDown() bool {
	return s.closed.Load()
}

// Shutdown sends SIGTERM to all processes, waits up to timeout and kills
// whatever is still running. It blocks until every process is gone.
func (s *Supervisor) Shutdown(timeout time.Duration) {
	if s.closed.Swap(true) {
		return
	}
	close(s.shutdown)

	s.mu.RLock()
	procs := make([]*Process, 0, len(s.processes))
	for _, p := range s.processes {
		procs = append(procs, p)
	}
	s.mu.RUnlock()

	if len(procs) == 0 {
		return
	}

	for _, p := range procs {
		if p.IsRunning() {
			_ = p.Terminate()
		}
	}

	done := make(chan struct{})
	go func() {
		for _, p := range procs {
			<-p.Done()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		for _, p := range procs {
			if p.IsRunning() {
				_ = p.Kill()
			}
		}
		<-done
	}

	s.waitForCleanup()
}

// waitForCleanup waits for all processes to be removed from the map.
func (s *Supervisor) waitForCleanup() {
	for {
		s.mu.RLock()
		count := len(s.processes)
		s.mu.RUnlock()
		if count == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
