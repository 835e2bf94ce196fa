package entity

import (
	"cmp"
	"reflect"
	"slices"
)

// Node is anything that carries an Entity. *Entity implements it, and so
// does every struct embedding Entity or *Entity.
type Node interface {
	Base() *Entity
}

// Entity is a node of the lifecycle tree.
//
// The zero value is ready to use. An Entity must not be copied after first
// use; identity is the pointer.
type Entity struct {
	// children is ordered by insertion sequence; index maps each child to
	// its sequence number.
	children []*Entity
	index    map[*Entity]uint64
	seq      uint64

	setup    Hook
	update   Hook
	teardown Hook

	listeners map[Event][]listener
	lastID    uint64
}

// New creates an Entity with the given hooks.
func New(opts ...Option) *Entity {
	e := &Entity{}
	e.apply(opts)
	return e
}

// Base returns e itself.
func (e *Entity) Base() *Entity {
	return e
}

// Has reports whether n is a direct child of e.
func (e *Entity) Has(n Node) bool {
	c := base(n)
	if c == nil {
		return false
	}
	_, ok := e.index[c]
	return ok
}

// Add appends n to e's children. Adding a child that is already present does
// nothing. No hook or event runs.
func (e *Entity) Add(n Node) {
	c := base(n)
	if c == nil {
		return
	}
	if _, ok := e.index[c]; ok {
		return
	}
	if e.index == nil {
		e.index = make(map[*Entity]uint64)
	}
	e.seq++
	e.index[c] = e.seq
	e.children = append(e.children, c)
}

// Remove detaches n from e. The removed node keeps its own children and is
// not torn down. Removing an absent node does nothing.
func (e *Entity) Remove(n Node) {
	c := base(n)
	if c == nil {
		return
	}
	if _, ok := e.index[c]; !ok {
		return
	}
	delete(e.index, c)
	if i := slices.Index(e.children, c); i >= 0 {
		e.children = slices.Delete(e.children, i, i+1)
	}
}

// Children returns the direct children in insertion order.
// The returned slice is a copy.
func (e *Entity) Children() []*Entity {
	return slices.Clone(e.children)
}

// Len returns the number of direct children.
func (e *Entity) Len() int {
	return len(e.children)
}

// Walk visits e and its descendants in pre-order, passing each node's depth
// relative to e. When fn returns false the node's children are skipped.
func (e *Entity) Walk(fn func(depth int, n *Entity) bool) {
	e.walk(0, fn)
}

func (e *Entity) walk(depth int, fn func(int, *Entity) bool) {
	if !fn(depth, e) {
		return
	}
	e.eachChild(func(c *Entity) bool {
		c.walk(depth+1, fn)
		return true
	})
}

// eachChild calls fn for each child in insertion order, reading the live
// children between calls. A child removed before it is reached is skipped
// and a child added meanwhile is visited, re-added children included.
// It stops when fn returns false.
func (e *Entity) eachChild(fn func(*Entity) bool) {
	var last uint64
	for {
		i, _ := slices.BinarySearchFunc(e.children, last+1, func(c *Entity, seq uint64) int {
			return cmp.Compare(e.index[c], seq)
		})
		if i >= len(e.children) {
			return
		}
		c := e.children[i]
		last = e.index[c]
		if !fn(c) {
			return
		}
	}
}

// IsNil reports whether n is nil or a nil pointer with no Entity behind it,
// such as a nil *Root[C].
func IsNil(n Node) bool {
	return base(n) == nil
}

func base(n Node) *Entity {
	if n == nil {
		return nil
	}
	if v := reflect.ValueOf(n); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return n.Base()
}
