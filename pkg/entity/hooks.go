package entity

// Hook implements one lifecycle phase for a single node. A nil Hook is
// absent. A returned error aborts the tree-wide phase.
type Hook func() error

// Setupper is implemented by types that declare a setup hook.
type Setupper interface {
	Setup() error
}

// Updater is implemented by types that declare an update hook.
type Updater interface {
	Update() error
}

// Teardowner is implemented by types that declare a teardown hook.
type Teardowner interface {
	Teardown() error
}

// Option configures an Entity at construction.
type Option func(*Entity)

// WithSetup sets the setup hook.
func WithSetup(h Hook) Option {
	return func(e *Entity) { e.setup = h }
}

// WithUpdate sets the update hook.
func WithUpdate(h Hook) Option {
	return func(e *Entity) { e.update = h }
}

// WithTeardown sets the teardown hook.
func WithTeardown(h Hook) Option {
	return func(e *Entity) { e.teardown = h }
}

func (e *Entity) apply(opts []Option) {
	for _, opt := range opts {
		opt(e)
	}
}

// SetSetup replaces the setup hook. nil removes it.
func (e *Entity) SetSetup(h Hook) { e.setup = h }

// SetUpdate replaces the update hook. nil removes it.
func (e *Entity) SetUpdate(h Hook) { e.update = h }

// SetTeardown replaces the teardown hook. nil removes it.
func (e *Entity) SetTeardown(h Hook) { e.teardown = h }

// HasSetup reports whether a setup hook is present.
func (e *Entity) HasSetup() bool { return e.setup != nil }

// HasUpdate reports whether an update hook is present.
func (e *Entity) HasUpdate() bool { return e.update != nil }

// HasTeardown reports whether a teardown hook is present.
func (e *Entity) HasTeardown() bool { return e.teardown != nil }

// Bind installs the hooks owner declares through Setupper, Updater and
// Teardowner. Hooks for interfaces owner does not implement are left as they
// are. The usual call is x.Bind(x) on a type embedding Entity.
func (e *Entity) Bind(owner any) {
	if s, ok := owner.(Setupper); ok {
		e.setup = s.Setup
	}
	if u, ok := owner.(Updater); ok {
		e.update = u.Update
	}
	if t, ok := owner.(Teardowner); ok {
		e.teardown = t.Teardown
	}
}
