package entity

// Root is the entity at the top of a tree. It carries an application value
// shared by the whole tree, set once at construction.
type Root[C any] struct {
	Entity
	context C
}

// NewRoot creates a Root holding ctx.
func NewRoot[C any](ctx C, opts ...Option) *Root[C] {
	r := &Root[C]{context: ctx}
	r.apply(opts)
	return r
}

// Context returns the value passed to NewRoot.
func (r *Root[C]) Context() C {
	return r.context
}
