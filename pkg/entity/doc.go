// Package entity provides the lifecycle tree primitive: an Entity that owns
// child entities, runs setup, update and teardown hooks recursively through
// its subtree, and emits lifecycle events to per-entity listeners.
//
// # Building a tree
//
// Application types embed Entity and declare the hooks they need:
//
//	type Player struct {
//	    entity.Entity
//	}
//
//	func (p *Player) Setup() error  { ...; return nil }
//	func (p *Player) Update() error { ...; return nil }
//
//	root := entity.NewRoot(&Game{})
//	p := &Player{}
//	p.Bind(p)
//	root.Add(p)
//
// Hooks can also be supplied as functions with [WithSetup], [WithUpdate] and
// [WithTeardown], or replaced later with SetSetup and friends. A nil hook is
// absent: the node emits nothing for that phase but its children still run.
//
// # Lifecycle
//
// The owning application drives the tree from its root: SetupTree once,
// UpdateTree once per tick, TeardownTree once at shutdown. Every call visits
// the tree depth-first in pre-order, children in insertion order. A node's
// hook and its Before/After events complete before any child starts.
//
// The first hook that returns an error stops the traversal. The error is
// returned unchanged and nodes after the failing one are not visited. Adding
// a child never runs its hooks; a subtree attached after setup has to be set
// up by the caller.
//
// Children are read live while a phase runs. A child a hook removes before
// the traversal reaches it is skipped; a child a hook adds is visited in the
// same phase once its turn comes in insertion order.
//
// # Events
//
// Four events exist: [BeforeSetup], [AfterSetup], [BeforeTeardown] and
// [AfterTeardown]. On and Once return a [Subscription] that Off accepts.
// Passing any other Event value panics.
//
// # Ownership
//
// Nothing stops a node from being added to several parents or from becoming
// its own descendant. A cycle makes traversal recurse without bound; keeping
// the structure a tree is the caller's job.
//
// Entity is not safe for concurrent use. A single goroutine is expected to
// own a tree while it is being driven.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package entity
