// Package sakamoto provides entity trees with a setup, update and teardown
// lifecycle, and a driver that runs them on a fixed tick.
//
// Example usage:
//
//	type Ship struct {
//	    sakamoto.Entity
//	}
//
//	func (s *Ship) Update() error { return nil }
//
//	root := sakamoto.NewRoot("demo")
//	ship := &Ship{}
//	ship.Bind(ship)
//	root.Add(ship)
//
//	if err := sakamoto.Drive(ctx, root, driver.WithMaxTicks(60)); err != nil {
//	    log.Fatal(err)
//	}
package sakamoto

import (
	"context"
	"fmt"

	"github.com/bft-labs/sakamoto/pkg/driver"
	"github.com/bft-labs/sakamoto/pkg/entity"
	"github.com/bft-labs/sakamoto/pkg/lifecycle"
	"github.com/bft-labs/sakamoto/pkg/log"
)

// Version is the version of the sakamoto module.
const Version = "1.0.0"

type (
	// Entity is a tree node with optional lifecycle hooks and events.
	Entity = entity.Entity
	// Node is anything that embeds an Entity.
	Node = entity.Node
	// Hook is a lifecycle hook. A nil Hook is absent.
	Hook = entity.Hook
	// Event names one of the four lifecycle events.
	Event = entity.Event
	// Listener is called when an event is emitted.
	Listener = entity.Listener
	// Subscription identifies a registered listener for Off.
	Subscription = entity.Subscription
	// Option configures a new Entity.
	Option = entity.Option
)

// Root is an entity carrying a context shared by its tree.
type Root[C any] = entity.Root[C]

// Lifecycle events.
const (
	BeforeSetup    = entity.BeforeSetup
	AfterSetup     = entity.AfterSetup
	BeforeTeardown = entity.BeforeTeardown
	AfterTeardown  = entity.AfterTeardown
)

// New creates an entity.
func New(opts ...Option) *Entity {
	return entity.New(opts...)
}

// NewRoot creates a root entity holding ctx.
func NewRoot[C any](ctx C, opts ...Option) *Root[C] {
	return entity.NewRoot(ctx, opts...)
}

// WithSetup, WithUpdate and WithTeardown install hooks on a new entity.
var (
	WithSetup    = entity.WithSetup
	WithUpdate   = entity.WithUpdate
	WithTeardown = entity.WithTeardown
)

// Drive runs root until ctx is canceled, the tick limit is reached or a
// hook fails.
func Drive(ctx context.Context, root Node, opts ...driver.Option) error {
	if err := validateModuleVersions(); err != nil {
		return err
	}
	d, err := driver.New(root, opts...)
	if err != nil {
		return err
	}
	return d.Run(ctx)
}

// ModuleVersions returns the version of each sub-module.
func ModuleVersions() map[string]string {
	return map[string]string{
		"entity":    entity.Version,
		"driver":    driver.Version,
		"lifecycle": lifecycle.Version,
		"log":       log.Version,
	}
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"entity":    {entity.Version, entity.MinCompatibleVersion},
		"driver":    {driver.Version, driver.MinCompatibleVersion},
		"lifecycle": {lifecycle.Version, lifecycle.MinCompatibleVersion},
		"log":       {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible reports whether version >= minVersion.
// Versions are "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
