package entity

type phase struct {
	hook   func(*Entity) Hook
	before Event
	after  Event
}

var (
	setupPhase = phase{
		hook:   func(e *Entity) Hook { return e.setup },
		before: BeforeSetup,
		after:  AfterSetup,
	}
	updatePhase = phase{
		hook: func(e *Entity) Hook { return e.update },
	}
	teardownPhase = phase{
		hook:   func(e *Entity) Hook { return e.teardown },
		before: BeforeTeardown,
		after:  AfterTeardown,
	}
)

// SetupTree runs the setup phase over e and its descendants. For every node
// with a setup hook it emits BeforeSetup, calls the hook and emits
// AfterSetup, then moves on to the node's children. The first hook error
// stops the traversal and is returned as is.
func (e *Entity) SetupTree() error {
	return e.traverse(&setupPhase)
}

// UpdateTree calls the update hook of e and its descendants in pre-order.
// Update emits no events.
func (e *Entity) UpdateTree() error {
	return e.traverse(&updatePhase)
}

// TeardownTree runs the teardown phase over e and its descendants, emitting
// BeforeTeardown and AfterTeardown around each present hook.
func (e *Entity) TeardownTree() error {
	return e.traverse(&teardownPhase)
}

func (e *Entity) traverse(p *phase) error {
	if h := p.hook(e); h != nil {
		if p.before != 0 {
			e.Emit(p.before)
		}
		if err := h(); err != nil {
			return err
		}
		if p.after != 0 {
			e.Emit(p.after)
		}
	}
	// Children are read live: one removed before it is reached is skipped,
	// one added during the phase, by any hook, is visited.
	var err error
	e.eachChild(func(c *Entity) bool {
		err = c.traverse(p)
		return err == nil
	})
	return err
}
