package scene

import (
	"errors"
	"fmt"

	"github.com/bft-labs/sakamoto/pkg/entity"
	"github.com/bft-labs/sakamoto/pkg/log"
)

// ErrInjected is returned by a hook named in a node's fail field.
var ErrInjected = errors.New("scene: injected failure")

// World is the context shared by every node of a built scene.
type World struct {
	Name string
	Vars map[string]string
	// Frame counts root updates.
	Frame uint64

	actors   map[string]*Actor
	byEntity map[*entity.Entity]*Actor
}

// Actor looks up a node by its path, e.g. "demo/ship/engine".
func (w *World) Actor(path string) (*Actor, bool) {
	a, ok := w.actors[path]
	return a, ok
}

// Len returns the number of actors, not counting the root.
func (w *World) Len() int {
	return len(w.actors)
}

// Actor is a scene node. Each declared hook logs the call and counts it.
type Actor struct {
	entity.Entity

	Name string
	Path string

	Setups    int
	Updates   int
	Teardowns int

	hooks  []string
	fail   string
	world  *World
	logger log.Logger
}

// Hooks returns the hook names declared for the actor.
func (a *Actor) Hooks() []string {
	return append([]string{}, a.hooks...)
}

// World returns the scene the actor belongs to.
func (a *Actor) World() *World {
	return a.world
}

// Setup counts a setup call and fails if the node is set to fail setup.
func (a *Actor) Setup() error {
	a.Setups++
	return a.call(HookSetup, a.Setups)
}

// Update counts an update call and fails if the node is set to fail update.
func (a *Actor) Update() error {
	a.Updates++
	return a.call(HookUpdate, a.Updates)
}

// Teardown counts a teardown call and fails if the node is set to fail
// teardown.
func (a *Actor) Teardown() error {
	a.Teardowns++
	return a.call(HookTeardown, a.Teardowns)
}

func (a *Actor) call(hook string, n int) error {
	a.logger.Debug("hook",
		log.String("node", a.Path),
		log.String("hook", hook),
		log.Int("calls", n),
		log.Uint64("frame", a.world.Frame),
	)
	if a.fail == hook {
		return fmt.Errorf("%s %s: %w", a.Path, hook, ErrInjected)
	}
	return nil
}

// Build creates the entity tree described by f. The root carries the
// scene's World; its update hook advances World.Frame.
func Build(f *File, logger log.Logger) *entity.Root[*World] {
	if logger == nil {
		logger = log.NewNoopLogger()
	}

	w := &World{
		Name:     f.Name,
		Vars:     make(map[string]string, len(f.Context)),
		actors:   make(map[string]*Actor),
		byEntity: make(map[*entity.Entity]*Actor),
	}
	for k, v := range f.Context {
		w.Vars[k] = v
	}

	root := entity.NewRoot(w,
		entity.WithSetup(func() error {
			logger.Info("scene setup", log.String("scene", w.Name), log.Int("actors", w.Len()))
			return nil
		}),
		entity.WithUpdate(func() error {
			w.Frame++
			return nil
		}),
		entity.WithTeardown(func() error {
			logger.Info("scene teardown", log.String("scene", w.Name), log.Uint64("frames", w.Frame))
			return nil
		}),
	)

	for _, n := range f.Nodes {
		root.Add(build(w, f.Name, n, logger))
	}
	return root
}

func build(w *World, parent string, n Node, logger log.Logger) *Actor {
	a := &Actor{
		Name:   n.Name,
		Path:   parent + "/" + n.Name,
		hooks:  append([]string{}, n.Hooks...),
		fail:   n.Fail,
		world:  w,
		logger: logger,
	}
	for _, h := range n.Hooks {
		switch h {
		case HookSetup:
			a.SetSetup(a.Setup)
		case HookUpdate:
			a.SetUpdate(a.Update)
		case HookTeardown:
			a.SetTeardown(a.Teardown)
		}
	}
	w.actors[a.Path] = a
	w.byEntity[a.Base()] = a

	for _, c := range n.Children {
		a.Add(build(w, a.Path, c, logger))
	}
	return a
}
