package driver

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/sakamoto/pkg/entity"
	"github.com/bft-labs/sakamoto/pkg/lifecycle"
)

// callLog records hook calls in order. Hooks run on the loop goroutine while
// the test goroutine reads, so access is locked.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) hook(name string) entity.Hook {
	return func() error {
		c.add(name)
		return nil
	}
}

func (c *callLog) failing(name string, err error) entity.Hook {
	return func() error {
		c.add(name)
		return err
	}
}

func (c *callLog) add(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.calls...)
}

func (c *callLog) Count(name string) int {
	n := 0
	for _, call := range c.Calls() {
		if call == name {
			n++
		}
	}
	return n
}

// eventTracker records driver events.
type eventTracker struct {
	BaseEventHandler
	mu      sync.Mutex
	states  []lifecycle.State
	ticks   []uint64
	errs    []PhaseErrorEvent
	reloads chan ReloadEvent
	running chan struct{}
}

func newEventTracker() *eventTracker {
	return &eventTracker{
		reloads: make(chan ReloadEvent, 4),
		running: make(chan struct{}, 4),
	}
}

func (e *eventTracker) OnStateChange(ev StateChangeEvent) {
	e.mu.Lock()
	e.states = append(e.states, ev.Current)
	e.mu.Unlock()
	if ev.Current == lifecycle.StateRunning {
		e.running <- struct{}{}
	}
}

func (e *eventTracker) OnTick(ev TickEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ticks = append(e.ticks, ev.Tick)
}

func (e *eventTracker) OnPhaseError(ev PhaseErrorEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, ev)
}

func (e *eventTracker) OnReload(ev ReloadEvent) {
	e.reloads <- ev
}

func (e *eventTracker) States() []lifecycle.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]lifecycle.State{}, e.states...)
}

func (e *eventTracker) waitRunning(t *testing.T) {
	t.Helper()
	select {
	case <-e.running:
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not reach Running")
	}
}

// manualTicker lets a test decide when ticks happen.
type manualTicker struct {
	ch chan time.Time
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               {}

func (m *manualTicker) factory(time.Duration) Ticker { return m }

func (m *manualTicker) tick(t *testing.T) {
	t.Helper()
	select {
	case m.ch <- time.Now():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not accept tick")
	}
}

func fastOpts(opts ...Option) []Option {
	return append([]Option{WithTickInterval(time.Millisecond)}, opts...)
}

func TestNew_NilRoot(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrNilRoot) {
		t.Errorf("New(nil) error = %v, want ErrNilRoot", err)
	}
	var e *entity.Entity
	if _, err := New(e); !errors.Is(err, ErrNilRoot) {
		t.Errorf("New(typed nil) error = %v, want ErrNilRoot", err)
	}
	var r *entity.Root[int]
	if _, err := New(r); !errors.Is(err, ErrNilRoot) {
		t.Errorf("New(nil *Root) error = %v, want ErrNilRoot", err)
	}
}

func TestRun_Lifecycle(t *testing.T) {
	calls := &callLog{}
	root := entity.NewRoot("test",
		entity.WithSetup(calls.hook("setup")),
		entity.WithUpdate(calls.hook("update")),
		entity.WithTeardown(calls.hook("teardown")),
	)
	root.Add(entity.New(entity.WithUpdate(calls.hook("child.update"))))

	events := newEventTracker()
	d, err := New(root, fastOpts(WithMaxTicks(3), WithEventHandler(events))...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []string{
		"setup",
		"update", "child.update",
		"update", "child.update",
		"update", "child.update",
		"teardown",
	}
	if got := calls.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v\nwant    %v", got, want)
	}
	if d.Status() != lifecycle.StateStopped {
		t.Errorf("Status() = %v, want Stopped", d.Status())
	}
	if d.Ticks() != 3 {
		t.Errorf("Ticks() = %d, want 3", d.Ticks())
	}
	if d.Nodes() != 2 {
		t.Errorf("Nodes() = %d, want 2", d.Nodes())
	}

	wantStates := []lifecycle.State{
		lifecycle.StateSettingUp,
		lifecycle.StateRunning,
		lifecycle.StateTearingDown,
		lifecycle.StateStopped,
	}
	if got := events.States(); !reflect.DeepEqual(got, wantStates) {
		t.Errorf("states = %v, want %v", got, wantStates)
	}
	if !reflect.DeepEqual(events.ticks, []uint64{1, 2, 3}) {
		t.Errorf("tick events = %v, want [1 2 3]", events.ticks)
	}
}

func TestRun_SetupFailure(t *testing.T) {
	boom := errors.New("boom")
	calls := &callLog{}
	root := entity.NewRoot(0,
		entity.WithUpdate(calls.hook("update")),
		entity.WithTeardown(calls.hook("teardown")),
	)
	root.Add(entity.New(entity.WithSetup(calls.failing("a.setup", boom))))
	root.Add(entity.New(entity.WithSetup(calls.hook("b.setup"))))

	events := newEventTracker()
	d, _ := New(root, fastOpts(WithEventHandler(events))...)

	err := d.Run(context.Background())

	var perr *PhaseError
	if !errors.As(err, &perr) || perr.Phase != PhaseSetup {
		t.Fatalf("Run() error = %v, want setup *PhaseError", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("Run() error does not unwrap to the hook error")
	}
	if calls.Count("b.setup") != 0 {
		t.Error("sibling after the failing node was set up")
	}
	if calls.Count("update") != 0 {
		t.Error("tree was updated after a failed setup")
	}
	if calls.Count("teardown") != 1 {
		t.Errorf("teardown ran %d times, want 1 best-effort teardown", calls.Count("teardown"))
	}
	if d.Status() != lifecycle.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", d.Status())
	}
	if len(events.errs) != 1 || events.errs[0].Phase != PhaseSetup {
		t.Errorf("phase error events = %+v", events.errs)
	}
}

func TestRun_UpdateFailure(t *testing.T) {
	boom := errors.New("boom")
	calls := &callLog{}
	n := 0
	root := entity.New(
		entity.WithUpdate(func() error {
			n++
			if n == 2 {
				return boom
			}
			return nil
		}),
		entity.WithTeardown(calls.hook("teardown")),
	)

	d, _ := New(root, fastOpts()...)
	err := d.Run(context.Background())

	var perr *PhaseError
	if !errors.As(err, &perr) {
		t.Fatalf("Run() error = %v, want *PhaseError", err)
	}
	if perr.Phase != PhaseUpdate || perr.Tick != 2 {
		t.Errorf("PhaseError = %+v, want update at tick 2", perr)
	}
	if d.Ticks() != 1 {
		t.Errorf("Ticks() = %d, want 1 completed tick", d.Ticks())
	}
	if calls.Count("teardown") != 1 {
		t.Errorf("teardown ran %d times, want 1", calls.Count("teardown"))
	}
	if d.Status() != lifecycle.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", d.Status())
	}
}

func TestRun_TeardownFailure(t *testing.T) {
	boom := errors.New("boom")
	calls := &callLog{}
	root := entity.New(entity.WithTeardown(calls.failing("teardown", boom)))

	d, _ := New(root, fastOpts(WithMaxTicks(1))...)
	err := d.Run(context.Background())

	var perr *PhaseError
	if !errors.As(err, &perr) || perr.Phase != PhaseTeardown {
		t.Fatalf("Run() error = %v, want teardown *PhaseError", err)
	}
	if calls.Count("teardown") != 1 {
		t.Errorf("teardown ran %d times, want 1", calls.Count("teardown"))
	}
	if d.Status() != lifecycle.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", d.Status())
	}
}

func TestRun_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := &callLog{}
	n := 0
	root := entity.New(
		entity.WithUpdate(func() error {
			n++
			if n == 2 {
				cancel()
			}
			return nil
		}),
		entity.WithTeardown(calls.hook("teardown")),
	)

	d, _ := New(root, fastOpts()...)
	if err := d.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v, want nil on cancel", err)
	}
	if d.Ticks() < 2 {
		t.Errorf("Ticks() = %d, want at least 2", d.Ticks())
	}
	if calls.Count("teardown") != 1 {
		t.Errorf("teardown ran %d times, want 1", calls.Count("teardown"))
	}
	if d.Status() != lifecycle.StateStopped {
		t.Errorf("Status() = %v, want Stopped", d.Status())
	}
}

func TestRun_Restart(t *testing.T) {
	calls := &callLog{}
	root := entity.New(entity.WithSetup(calls.hook("setup")))
	d, _ := New(root, fastOpts(WithMaxTicks(2))...)

	for i := 0; i < 2; i++ {
		if err := d.Run(context.Background()); err != nil {
			t.Fatalf("Run() #%d error = %v", i+1, err)
		}
		if d.Ticks() != 2 {
			t.Errorf("Ticks() = %d after run %d, want 2", d.Ticks(), i+1)
		}
	}
	if calls.Count("setup") != 2 {
		t.Errorf("setup ran %d times over two runs, want 2", calls.Count("setup"))
	}
}

func TestStartStop(t *testing.T) {
	calls := &callLog{}
	root := entity.New(
		entity.WithSetup(calls.hook("setup")),
		entity.WithTeardown(calls.hook("teardown")),
	)
	events := newEventTracker()
	d, _ := New(root, fastOpts(WithEventHandler(events))...)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	events.waitRunning(t)

	if err := d.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Run() while started error = %v, want ErrAlreadyRunning", err)
	}
	if err := d.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	select {
	case <-d.Done():
	default:
		t.Fatal("Done() not closed after Stop")
	}
	if d.Err() != nil {
		t.Errorf("Err() = %v, want nil", d.Err())
	}
	if got := calls.Calls(); !reflect.DeepEqual(got, []string{"setup", "teardown"}) {
		t.Errorf("calls = %v, want [setup teardown]", got)
	}
	if d.Status() != lifecycle.StateStopped {
		t.Errorf("Status() = %v, want Stopped", d.Status())
	}
}

func TestStop_NotRunning(t *testing.T) {
	d, _ := New(entity.New())
	if err := d.Stop(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Stop() error = %v, want ErrNotRunning", err)
	}
	if d.Done() != nil {
		t.Error("Done() should be nil before Start")
	}
}

func TestReload(t *testing.T) {
	calls := &callLog{}
	oldRoot := entity.New(
		entity.WithUpdate(calls.hook("old.update")),
		entity.WithTeardown(calls.hook("old.teardown")),
	)
	newRoot := entity.New(
		entity.WithSetup(calls.hook("new.setup")),
		entity.WithUpdate(calls.hook("new.update")),
		entity.WithTeardown(calls.hook("new.teardown")),
	)
	newRoot.Add(entity.New())

	ticker := newManualTicker()
	events := newEventTracker()
	d, _ := New(oldRoot, WithTicker(ticker.factory), WithEventHandler(events))

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	events.waitRunning(t)
	ticker.tick(t)

	if err := d.Reload(newRoot); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	select {
	case ev := <-events.reloads:
		if ev.Err != nil || ev.Nodes != 2 {
			t.Errorf("ReloadEvent = %+v, want 2 nodes and no error", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reload was not applied")
	}
	ticker.tick(t)

	if err := d.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	want := []string{"old.update", "old.teardown", "new.setup", "new.update", "new.teardown"}
	if got := calls.Calls(); !reflect.DeepEqual(got, want) {
		t.Errorf("calls = %v\nwant    %v", got, want)
	}
	if d.Nodes() != 2 {
		t.Errorf("Nodes() = %d, want 2", d.Nodes())
	}
}

func TestReload_SetupFailureCrashes(t *testing.T) {
	boom := errors.New("boom")
	calls := &callLog{}
	newRoot := entity.New(
		entity.WithSetup(calls.failing("new.setup", boom)),
		entity.WithTeardown(calls.hook("new.teardown")),
	)

	ticker := newManualTicker()
	events := newEventTracker()
	d, _ := New(entity.New(), WithTicker(ticker.factory), WithEventHandler(events))

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	events.waitRunning(t)

	if err := d.Reload(newRoot); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not end after failed reload")
	}

	if !errors.Is(d.Err(), boom) {
		t.Errorf("Err() = %v, want boom", d.Err())
	}
	if calls.Count("new.teardown") != 1 {
		t.Errorf("new tree teardown ran %d times, want 1", calls.Count("new.teardown"))
	}
	if d.Status() != lifecycle.StateCrashed {
		t.Errorf("Status() = %v, want Crashed", d.Status())
	}
}

func TestReload_Errors(t *testing.T) {
	d, _ := New(entity.New())

	if err := d.Reload(nil); !errors.Is(err, ErrNilRoot) {
		t.Errorf("Reload(nil) error = %v, want ErrNilRoot", err)
	}
	var r *entity.Root[string]
	if err := d.Reload(r); !errors.Is(err, ErrNilRoot) {
		t.Errorf("Reload(nil *Root) error = %v, want ErrNilRoot", err)
	}
	if err := d.Reload(entity.New()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Reload() on idle driver error = %v, want ErrNotRunning", err)
	}
}

func TestPhaseError_Error(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		err  *PhaseError
		want string
	}{
		{&PhaseError{Phase: PhaseSetup, Err: boom}, "setup failed: boom"},
		{&PhaseError{Phase: PhaseUpdate, Tick: 4, Err: boom}, "update failed at tick 4: boom"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
