package lifecycle

import "time"

// State is the lifecycle state of a driven entity tree.
type State int

const (
	// StateIdle is the state of a driver that has never run.
	StateIdle State = iota
	// StateSettingUp covers plugin initialization and the tree-wide setup.
	StateSettingUp
	// StateRunning means the tree is being updated once per tick.
	StateRunning
	// StateTearingDown covers the tree-wide teardown and plugin shutdown.
	StateTearingDown
	// StateStopped follows a clean teardown.
	StateStopped
	// StateCrashed follows a failed hook or plugin.
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSettingUp:
		return "SettingUp"
	case StateRunning:
		return "Running"
	case StateTearingDown:
		return "TearingDown"
	case StateStopped:
		return "Stopped"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateCrashed
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateIdle:        {StateSettingUp},
	StateSettingUp:   {StateRunning, StateTearingDown, StateCrashed},
	StateRunning:     {StateTearingDown, StateCrashed},
	StateTearingDown: {StateStopped, StateCrashed},
	StateStopped:     {StateSettingUp},
	StateCrashed:     {StateSettingUp},
}

// CanTransition reports whether from -> to is a valid transition.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// EventEmitter is called when the lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Manager manages the lifecycle state machine of a driver.
type Manager interface {
	// State returns the current lifecycle state.
	State() State

	// CanStart reports whether a new run may begin.
	CanStart() bool

	// CanStop reports whether a run is in progress that Stop can end.
	CanStop() bool

	// TransitionTo moves to newState, or returns ErrInvalidTransition.
	TransitionTo(newState State, reason string) error

	// WaitWithTimeout waits for all workers to finish.
	// Returns ErrShutdownTimeout if the timeout expires.
	WaitWithTimeout(timeout time.Duration) error

	// AddWorker increments the worker count.
	AddWorker()

	// WorkerDone decrements the worker count.
	WorkerDone()
}
