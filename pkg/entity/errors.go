package entity

import "errors"

// Programmer errors. They are raised as panics wrapping these values, so a
// recovered panic can still be matched with errors.Is.
var (
	// ErrUnknownEvent is raised when an Event outside the four lifecycle
	// events reaches the event registry.
	ErrUnknownEvent = errors.New("entity: unknown event")

	// ErrNilListener is raised when On or Once is given a nil listener.
	ErrNilListener = errors.New("entity: nil listener")
)
