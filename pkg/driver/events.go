package driver

import (
	"time"

	"github.com/bft-labs/sakamoto/pkg/lifecycle"
)

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous lifecycle.State
	Current  lifecycle.State
	Reason   string
}

// TickEvent is emitted after each successful tree-wide update.
type TickEvent struct {
	Tick     uint64
	Duration time.Duration
}

// PhaseErrorEvent is emitted when a hook fails.
type PhaseErrorEvent struct {
	Phase Phase
	Tick  uint64
	Err   error
}

// ReloadEvent is emitted after a queued tree replacement was applied.
type ReloadEvent struct {
	Nodes int
	Err   error
}

// EventHandler receives driver notifications. Methods are called
// synchronously from the loop goroutine and should return quickly.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnTick(TickEvent)
	OnPhaseError(PhaseErrorEvent)
	OnReload(ReloadEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnTick(TickEvent)               {}
func (BaseEventHandler) OnPhaseError(PhaseErrorEvent)   {}
func (BaseEventHandler) OnReload(ReloadEvent)           {}

// stateEmitter adapts an EventHandler to lifecycle.EventEmitter.
type stateEmitter struct {
	handler EventHandler
}

func (s stateEmitter) OnStateChange(previous, current lifecycle.State, reason string) {
	s.handler.OnStateChange(StateChangeEvent{
		Previous: previous,
		Current:  current,
		Reason:   reason,
	})
}
