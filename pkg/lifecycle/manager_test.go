package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/sakamoto/pkg/log"
)

// mockEmitter tracks state change events for testing.
type mockEmitter struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockEmitter) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockEmitter) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

func newTestManager(emitter EventEmitter) *DefaultManager {
	return NewManager(log.NewNoopLogger(), emitter)
}

func TestNewManager(t *testing.T) {
	m := NewManager(nil, nil)

	if m.State() != StateIdle {
		t.Errorf("initial state = %v, want StateIdle", m.State())
	}
	if !m.CanStart() {
		t.Error("CanStart() = false for a fresh manager")
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "Idle"},
		{StateSettingUp, "SettingUp"},
		{StateRunning, "Running"},
		{StateTearingDown, "TearingDown"},
		{StateStopped, "Stopped"},
		{StateCrashed, "Crashed"},
		{State(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateSettingUp, StateRunning, StateTearingDown} {
		if s.Terminal() {
			t.Errorf("%v.Terminal() = true", s)
		}
	}
	for _, s := range []State{StateStopped, StateCrashed} {
		if !s.Terminal() {
			t.Errorf("%v.Terminal() = false", s)
		}
	}
}

func TestManager_TransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"idle to setting up", StateIdle, StateSettingUp},
		{"setting up to running", StateSettingUp, StateRunning},
		{"setting up to tearing down", StateSettingUp, StateTearingDown},
		{"setting up to crashed", StateSettingUp, StateCrashed},
		{"running to tearing down", StateRunning, StateTearingDown},
		{"running to crashed", StateRunning, StateCrashed},
		{"tearing down to stopped", StateTearingDown, StateStopped},
		{"tearing down to crashed", StateTearingDown, StateCrashed},
		{"stopped to setting up", StateStopped, StateSettingUp},
		{"crashed to setting up", StateCrashed, StateSettingUp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(nil)
			m.state = tt.from

			if err := m.TransitionTo(tt.to, "test"); err != nil {
				t.Fatalf("TransitionTo() error = %v", err)
			}
			if m.State() != tt.to {
				t.Errorf("state = %v after transition, want %v", m.State(), tt.to)
			}
		})
	}
}

func TestManager_TransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"idle to running", StateIdle, StateRunning},
		{"idle to stopped", StateIdle, StateStopped},
		{"setting up to stopped", StateSettingUp, StateStopped},
		{"running to setting up", StateRunning, StateSettingUp},
		{"running to stopped", StateRunning, StateStopped},
		{"tearing down to running", StateTearingDown, StateRunning},
		{"stopped to running", StateStopped, StateRunning},
		{"crashed to stopped", StateCrashed, StateStopped},
		{"running to running", StateRunning, StateRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(nil)
			m.state = tt.from

			err := m.TransitionTo(tt.to, "test")
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("TransitionTo() error = %v, want ErrInvalidTransition", err)
			}
			if m.State() != tt.from {
				t.Errorf("state changed to %v on invalid transition, want %v", m.State(), tt.from)
			}
		})
	}
}

func TestManager_TransitionTo_EmitsEvents(t *testing.T) {
	emitter := &mockEmitter{}
	m := newTestManager(emitter)

	_ = m.TransitionTo(StateSettingUp, "run")
	_ = m.TransitionTo(StateRunning, "setup complete")
	_ = m.TransitionTo(StateStopped, "invalid, not emitted")

	events := emitter.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].previous != StateIdle || events[0].current != StateSettingUp || events[0].reason != "run" {
		t.Errorf("event 0 = %+v, want Idle->SettingUp (run)", events[0])
	}
	if events[1].previous != StateSettingUp || events[1].current != StateRunning {
		t.Errorf("event 1 = %+v, want SettingUp->Running", events[1])
	}
}

func TestManager_CanStartCanStop(t *testing.T) {
	tests := []struct {
		state    State
		canStart bool
		canStop  bool
	}{
		{StateIdle, true, false},
		{StateSettingUp, false, true},
		{StateRunning, false, true},
		{StateTearingDown, false, false},
		{StateStopped, true, false},
		{StateCrashed, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			m := newTestManager(nil)
			m.state = tt.state

			if got := m.CanStart(); got != tt.canStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.canStart)
			}
			if got := m.CanStop(); got != tt.canStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.canStop)
			}
		})
	}
}

func TestManager_SetCancel_And_Cancel(t *testing.T) {
	m := newTestManager(nil)

	ctx, cancel := context.WithCancel(context.Background())
	m.SetCancel(cancel)

	select {
	case <-ctx.Done():
		t.Error("context should not be canceled before Cancel()")
	default:
	}

	m.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context should be canceled after Cancel()")
	}
}

func TestManager_Cancel_NilSafe(t *testing.T) {
	m := newTestManager(nil)
	m.Cancel()
}

func TestManager_WaitWithTimeout_Success(t *testing.T) {
	m := newTestManager(nil)
	m.AddWorker()

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.WorkerDone()
	}()

	if err := m.WaitWithTimeout(time.Second); err != nil {
		t.Errorf("WaitWithTimeout() = %v, want nil", err)
	}
}

func TestManager_WaitWithTimeout_Timeout(t *testing.T) {
	m := newTestManager(nil)
	m.AddWorker()

	if err := m.WaitWithTimeout(10 * time.Millisecond); err != ErrShutdownTimeout {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}

	m.WorkerDone()
}

func TestManager_Concurrency(t *testing.T) {
	m := newTestManager(nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.State()
				_ = m.CanStart()
				_ = m.CanStop()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.TransitionTo(StateSettingUp, "test")
			_ = m.TransitionTo(StateRunning, "test")
		}()
	}

	wg.Wait()
}
