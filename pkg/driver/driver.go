package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/sakamoto/pkg/entity"
	"github.com/bft-labs/sakamoto/pkg/lifecycle"
	"github.com/bft-labs/sakamoto/pkg/log"
)

// Driver runs an entity tree: SetupTree once, UpdateTree once per tick and
// TeardownTree once when the run ends. All tree access happens on the
// goroutine executing the run.
type Driver struct {
	opts      options
	lifecycle *lifecycle.DefaultManager
	logger    log.Logger
	handler   EventHandler

	reloads chan *entity.Entity
	ticks   atomic.Uint64
	nodes   atomic.Int64

	mu   sync.Mutex
	root *entity.Entity
	done chan struct{}
	err  error
}

// New creates a driver for the tree rooted at root. The driver starts in
// lifecycle.StateIdle; call Run or Start to drive it.
func New(root entity.Node, opts ...Option) (*Driver, error) {
	if entity.IsNil(root) {
		return nil, ErrNilRoot
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	d := &Driver{
		opts:      o,
		lifecycle: lifecycle.NewManager(o.logger, stateEmitter{handler: o.handler}),
		logger:    o.logger,
		handler:   o.handler,
		reloads:   make(chan *entity.Entity, 1),
		root:      root.Base(),
	}
	d.countNodes(d.root)
	return d, nil
}

// Run drives the tree until ctx is canceled or the tick limit is reached.
// It returns nil after a clean teardown and a *PhaseError when a hook fails.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.begin("Run() called"); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.lifecycle.SetCancel(cancel)

	return d.run(runCtx)
}

// Start drives the tree in a background goroutine and returns once the run
// has begun. Use Stop to end it, Done and Err to observe its end.
func (d *Driver) Start(ctx context.Context) error {
	if err := d.begin("Start() called"); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.lifecycle.SetCancel(cancel)

	done := make(chan struct{})
	d.mu.Lock()
	d.done = done
	d.err = nil
	d.mu.Unlock()

	d.lifecycle.AddWorker()
	go func() {
		defer d.lifecycle.WorkerDone()
		defer cancel()

		err := d.run(runCtx)
		if err != nil {
			d.logger.Error("driver run failed", log.Err(err))
		}

		d.mu.Lock()
		d.err = err
		d.mu.Unlock()
		close(done)
	}()

	return nil
}

// Stop cancels the current run and waits up to the shutdown timeout for a
// run launched by Start to tear down.
func (d *Driver) Stop() error {
	if !d.lifecycle.CanStop() {
		return ErrNotRunning
	}
	d.lifecycle.Cancel()
	return d.lifecycle.WaitWithTimeout(d.opts.shutdownTimeout)
}

// Done is closed when the run launched by the last Start ends.
// It is nil before the first Start.
func (d *Driver) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

// Err returns the result of the run launched by the last Start once Done
// is closed.
func (d *Driver) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Status returns the current lifecycle state.
func (d *Driver) Status() lifecycle.State {
	return d.lifecycle.State()
}

// Ticks returns the number of updates completed in the current run.
func (d *Driver) Ticks() uint64 {
	return d.ticks.Load()
}

// Nodes returns the number of entities in the driven tree, counted when the
// driver was created and again before each setup.
func (d *Driver) Nodes() int {
	return int(d.nodes.Load())
}

// Reload queues root to replace the driven tree. Between two ticks the loop
// tears the current tree down and sets root up. Only the latest queued tree
// is applied. The outcome is reported through EventHandler.OnReload.
func (d *Driver) Reload(root entity.Node) error {
	if entity.IsNil(root) {
		return ErrNilRoot
	}
	if d.Status() != lifecycle.StateRunning {
		return ErrNotRunning
	}

	next := root.Base()
	for {
		select {
		case d.reloads <- next:
			return nil
		default:
		}
		// Drop the stale request and retry.
		select {
		case <-d.reloads:
		default:
		}
	}
}

func (d *Driver) begin(reason string) error {
	if !d.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := d.lifecycle.TransitionTo(lifecycle.StateSettingUp, reason); err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			return ErrAlreadyRunning
		}
		return err
	}
	return nil
}

func (d *Driver) currentRoot() *entity.Entity {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.root
}

func (d *Driver) setRoot(root *entity.Entity) {
	d.mu.Lock()
	d.root = root
	d.mu.Unlock()
	d.countNodes(root)
}

func (d *Driver) countNodes(root *entity.Entity) {
	n := 0
	root.Walk(func(int, *entity.Entity) bool {
		n++
		return true
	})
	d.nodes.Store(int64(n))
	treeNodes.Set(float64(n))
}

// run expects the lifecycle to be in StateSettingUp.
func (d *Driver) run(ctx context.Context) error {
	d.ticks.Store(0)
	d.drainReloads()

	initialized, err := d.initPlugins(ctx)
	if err != nil {
		d.shutdownPlugins(initialized)
		_ = d.lifecycle.TransitionTo(lifecycle.StateCrashed, err.Error())
		return err
	}

	root := d.currentRoot()
	d.countNodes(root)

	start := time.Now()
	if err := d.phase(root, PhaseSetup, 0); err != nil {
		return d.fail(root, err, initialized)
	}
	d.logger.Info("tree set up",
		log.Int("nodes", d.Nodes()),
		log.Duration("duration", time.Since(start)),
	)

	if err := d.lifecycle.TransitionTo(lifecycle.StateRunning, "setup complete"); err != nil {
		return err
	}

	reason, err := d.loop(ctx, &root)
	if err != nil {
		return d.fail(root, err, initialized)
	}

	if err := d.lifecycle.TransitionTo(lifecycle.StateTearingDown, reason); err != nil {
		return err
	}
	if err := d.phase(root, PhaseTeardown, 0); err != nil {
		return d.fail(root, err, initialized)
	}
	d.shutdownPlugins(initialized)

	_ = d.lifecycle.TransitionTo(lifecycle.StateStopped, "teardown complete")
	return nil
}

// loop ticks until the run should end. It returns the reason for a clean
// end, or the failed phase. root tracks reloads.
func (d *Driver) loop(ctx context.Context, root **entity.Entity) (string, error) {
	ticker := d.opts.newTicker(d.opts.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "context canceled", nil

		case next := <-d.reloads:
			if err := d.reload(*root, next); err != nil {
				// The failing tree is the one that needs a teardown attempt.
				var perr *PhaseError
				if errors.As(err, &perr) && perr.Phase == PhaseSetup {
					*root = next
				}
				return "", err
			}
			*root = next

		case <-ticker.C():
			tick := d.ticks.Load() + 1
			start := time.Now()
			if err := d.phase(*root, PhaseUpdate, tick); err != nil {
				return "", err
			}
			d.ticks.Store(tick)
			ticksTotal.Inc()
			d.handler.OnTick(TickEvent{Tick: tick, Duration: time.Since(start)})

			if d.opts.maxTicks > 0 && tick >= d.opts.maxTicks {
				return "max ticks reached", nil
			}
		}
	}
}

func (d *Driver) reload(old, next *entity.Entity) error {
	d.logger.Info("reloading tree")

	if err := d.phase(old, PhaseTeardown, 0); err != nil {
		reloadsTotal.WithLabelValues("error").Inc()
		d.handler.OnReload(ReloadEvent{Err: err})
		return err
	}
	d.setRoot(next)
	if err := d.phase(next, PhaseSetup, 0); err != nil {
		reloadsTotal.WithLabelValues("error").Inc()
		d.handler.OnReload(ReloadEvent{Nodes: d.Nodes(), Err: err})
		return err
	}

	reloadsTotal.WithLabelValues("ok").Inc()
	d.logger.Info("tree reloaded", log.Int("nodes", d.Nodes()))
	d.handler.OnReload(ReloadEvent{Nodes: d.Nodes()})
	return nil
}

// phase runs one tree-wide phase and wraps a hook failure in *PhaseError.
func (d *Driver) phase(root *entity.Entity, p Phase, tick uint64) error {
	var run func() error
	switch p {
	case PhaseSetup:
		run = root.SetupTree
	case PhaseUpdate:
		run = root.UpdateTree
	case PhaseTeardown:
		run = root.TeardownTree
	}

	start := time.Now()
	err := run()
	phaseDuration.WithLabelValues(string(p)).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}

	phaseErrorsTotal.WithLabelValues(string(p)).Inc()
	perr := &PhaseError{Phase: p, Tick: tick, Err: err}
	d.logger.Error("hook failed",
		log.String("phase", string(p)),
		log.Uint64("tick", tick),
		log.Err(err),
	)
	d.handler.OnPhaseError(PhaseErrorEvent{Phase: p, Tick: tick, Err: err})
	return perr
}

// fail handles a failed phase: one best-effort teardown unless teardown is
// what failed, plugin shutdown, then StateCrashed.
func (d *Driver) fail(root *entity.Entity, err error, initialized int) error {
	var perr *PhaseError
	if errors.As(err, &perr) && perr.Phase != PhaseTeardown {
		_ = d.lifecycle.TransitionTo(lifecycle.StateTearingDown, string(perr.Phase)+" failed")
		if tdErr := d.phase(root, PhaseTeardown, 0); tdErr != nil {
			d.logger.Warn("teardown after failure also failed", log.Err(tdErr))
		}
	}
	d.shutdownPlugins(initialized)
	_ = d.lifecycle.TransitionTo(lifecycle.StateCrashed, err.Error())
	return err
}

func (d *Driver) initPlugins(ctx context.Context) (int, error) {
	cfg := PluginConfig{
		Logger:     d.logger,
		Controller: d,
	}
	for i, p := range d.opts.plugins {
		if err := p.Initialize(ctx, cfg); err != nil {
			d.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			return i, fmt.Errorf("initialize plugin %s: %w", p.Name(), err)
		}
		d.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}
	return len(d.opts.plugins), nil
}

// shutdownPlugins shuts down the first n plugins in reverse order.
func (d *Driver) shutdownPlugins(n int) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.shutdownTimeout)
	defer cancel()

	for i := n - 1; i >= 0; i-- {
		p := d.opts.plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			d.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			continue
		}
		d.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
	}
}

func (d *Driver) drainReloads() {
	for {
		select {
		case <-d.reloads:
		default:
			return
		}
	}
}

var _ Controller = (*Driver)(nil)
