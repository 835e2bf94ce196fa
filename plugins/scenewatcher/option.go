package scenewatcher

import "github.com/bft-labs/sakamoto/pkg/driver"

// WithSceneWatcher returns a driver Option that reloads the tree whenever
// the scene file at path changes.
//
// Usage:
//
//	d, err := driver.New(root,
//	    scenewatcher.WithSceneWatcher(path, loader, scenewatcher.Config{
//	        DebounceDelay: 200 * time.Millisecond,
//	    }),
//	)
func WithSceneWatcher(path string, load Loader, cfg Config) driver.Option {
	return driver.WithPlugin(New(path, load, cfg))
}
