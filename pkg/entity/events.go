package entity

import (
	"fmt"
	"slices"
)

// Event names a lifecycle event. Only the four constants below are valid.
type Event uint8

const (
	BeforeSetup Event = iota + 1
	AfterSetup
	BeforeTeardown
	AfterTeardown
)

var eventNames = map[Event]string{
	BeforeSetup:    "beforeSetup",
	AfterSetup:     "afterSetup",
	BeforeTeardown: "beforeTeardown",
	AfterTeardown:  "afterTeardown",
}

// Events returns the four lifecycle events.
func Events() []Event {
	return []Event{BeforeSetup, AfterSetup, BeforeTeardown, AfterTeardown}
}

// String returns the event name, e.g. "beforeSetup".
func (ev Event) String() string {
	if name, ok := eventNames[ev]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", uint8(ev))
}

// Valid reports whether ev is one of the four lifecycle events.
func (ev Event) Valid() bool {
	_, ok := eventNames[ev]
	return ok
}

// ParseEvent maps an event name back to its Event.
func ParseEvent(name string) (Event, error) {
	for ev, n := range eventNames {
		if n == name {
			return ev, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

func mustValid(ev Event) {
	if !ev.Valid() {
		panic(fmt.Errorf("%w: %s", ErrUnknownEvent, ev))
	}
}

// Listener is called when an event fires. Lifecycle events carry no arguments.
type Listener func()

// Subscription identifies one registration made with On or Once.
type Subscription struct {
	event Event
	id    uint64
}

// Event returns the event the subscription is registered for.
func (s Subscription) Event() Event {
	return s.event
}

type listener struct {
	id   uint64
	fn   Listener
	once bool
}

// On registers l for ev. Listeners run in registration order.
func (e *Entity) On(ev Event, l Listener) Subscription {
	return e.subscribe(ev, l, false)
}

// Once registers l for the next emission of ev only. The listener is
// removed before it is called.
func (e *Entity) Once(ev Event, l Listener) Subscription {
	return e.subscribe(ev, l, true)
}

func (e *Entity) subscribe(ev Event, l Listener, once bool) Subscription {
	mustValid(ev)
	if l == nil {
		panic(ErrNilListener)
	}
	if e.listeners == nil {
		e.listeners = make(map[Event][]listener)
	}
	e.lastID++
	e.listeners[ev] = append(e.listeners[ev], listener{id: e.lastID, fn: l, once: once})
	return Subscription{event: ev, id: e.lastID}
}

// Off removes the registration behind sub. It reports false when sub is not
// registered on e, for example after a Once listener has fired.
func (e *Entity) Off(sub Subscription) bool {
	return e.drop(sub.event, sub.id)
}

func (e *Entity) drop(ev Event, id uint64) bool {
	ls := e.listeners[ev]
	i := slices.IndexFunc(ls, func(l listener) bool { return l.id == id })
	if i < 0 {
		return false
	}
	ls = slices.Delete(ls, i, i+1)
	if len(ls) == 0 {
		delete(e.listeners, ev)
	} else {
		e.listeners[ev] = ls
	}
	return true
}

// RemoveAllListeners clears the listeners of the given events, or of every
// event when called without arguments.
func (e *Entity) RemoveAllListeners(evs ...Event) {
	if len(evs) == 0 {
		e.listeners = nil
		return
	}
	for _, ev := range evs {
		mustValid(ev)
		delete(e.listeners, ev)
	}
}

// ListenerCount returns the number of listeners registered for ev.
func (e *Entity) ListenerCount(ev Event) int {
	mustValid(ev)
	return len(e.listeners[ev])
}

// Emit calls the listeners of ev in registration order and reports whether
// there were any. The listener list is captured when Emit starts, so
// registrations made by a listener apply from the next emission on. A Once
// listener never runs more than once.
func (e *Entity) Emit(ev Event) bool {
	mustValid(ev)
	ls := e.listeners[ev]
	if len(ls) == 0 {
		return false
	}
	for _, l := range slices.Clone(ls) {
		if l.once && !e.drop(ev, l.id) {
			continue
		}
		l.fn()
	}
	return true
}
