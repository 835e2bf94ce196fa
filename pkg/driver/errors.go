package driver

import (
	"errors"
	"fmt"

	"github.com/bft-labs/sakamoto/pkg/lifecycle"
)

// Driver errors, checked with errors.Is.
var (
	// ErrAlreadyRunning is returned by Run or Start while a run is in progress.
	ErrAlreadyRunning = errors.New("driver: already running")

	// ErrNotRunning is returned by Stop and Reload when no tree is being driven.
	ErrNotRunning = errors.New("driver: not running")

	// ErrNilRoot is returned when New or Reload is given no tree.
	ErrNilRoot = errors.New("driver: nil root")

	// ErrShutdownTimeout is returned by Stop when the run does not finish in time.
	ErrShutdownTimeout = lifecycle.ErrShutdownTimeout
)

// Phase names a tree-wide lifecycle call.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseUpdate   Phase = "update"
	PhaseTeardown Phase = "teardown"
)

// PhaseError reports a hook failure during a tree-wide phase. Err is the
// error the hook returned.
type PhaseError struct {
	Phase Phase
	// Tick is the tick being processed; zero outside the update loop.
	Tick uint64
	Err  error
}

func (e *PhaseError) Error() string {
	if e.Tick > 0 {
		return fmt.Sprintf("%s failed at tick %d: %v", e.Phase, e.Tick, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
