package driver

import (
	"time"

	"github.com/bft-labs/sakamoto/pkg/log"
)

// Defaults used when an option is not given.
const (
	DefaultTickInterval    = 16 * time.Millisecond
	DefaultShutdownTimeout = 30 * time.Second
)

// Ticker delivers update ticks to the loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Option configures optional behavior of a Driver.
type Option func(*options)

type options struct {
	tickInterval    time.Duration
	maxTicks        uint64
	shutdownTimeout time.Duration
	logger          log.Logger
	handler         EventHandler
	plugins         []Plugin
	newTicker       func(time.Duration) Ticker
}

func defaultOptions() options {
	return options{
		tickInterval:    DefaultTickInterval,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          log.NewNoopLogger(),
		handler:         BaseEventHandler{},
		newTicker:       newTimeTicker,
	}
}

// WithTickInterval sets the time between tree-wide updates.
// Non-positive values keep the default.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithMaxTicks ends the run cleanly after n updates. Zero means no limit.
func WithMaxTicks(n uint64) Option {
	return func(o *options) {
		o.maxTicks = n
	}
}

// WithShutdownTimeout bounds how long Stop waits for the run to finish.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets the handler for driver events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		if handler != nil {
			o.handler = handler
		}
	}
}

// WithPlugin registers a plugin. Plugins are initialized in registration
// order and shut down in reverse order.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, p)
	}
}

// WithTicker replaces the time.Ticker based tick source, mostly for tests.
func WithTicker(newTicker func(time.Duration) Ticker) Option {
	return func(o *options) {
		if newTicker != nil {
			o.newTicker = newTicker
		}
	}
}

type timeTicker struct {
	t *time.Ticker
}

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }
