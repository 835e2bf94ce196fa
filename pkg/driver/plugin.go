package driver

import (
	"context"

	"github.com/bft-labs/sakamoto/pkg/entity"
	"github.com/bft-labs/sakamoto/pkg/lifecycle"
	"github.com/bft-labs/sakamoto/pkg/log"
)

// Plugin extends a driver run. Plugins are initialized in registration
// order before the tree is set up and shut down in reverse order after it
// is torn down.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called at the start of each run. A returned error aborts
	// the run before setup.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called at the end of each run in which Initialize succeeded.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to Plugin.Initialize.
type PluginConfig struct {
	Logger     log.Logger
	Controller Controller
}

// Controller is the part of a Driver plugins may use from any goroutine.
type Controller interface {
	Status() lifecycle.State
	Ticks() uint64
	Nodes() int
	Reload(root entity.Node) error
}

// BasePlugin implements the Plugin lifecycle methods as no-ops.
type BasePlugin struct{}

func (BasePlugin) Initialize(context.Context, PluginConfig) error { return nil }
func (BasePlugin) Shutdown(context.Context) error                 { return nil }
