// Package driver runs an entity tree over time.
//
// pkg/entity has no notion of time or scheduling. A
// Driver is the owning application's main loop: it sets the tree up once,
// updates it once per tick and tears it down once when the run ends.
//
// # Basic Usage
//
//	root := entity.NewRoot(&World{})
//	// ... add children ...
//
//	d, err := driver.New(root,
//	    driver.WithTickInterval(16*time.Millisecond),
//	    driver.WithLogger(logger),
//	)
//	if err != nil {
//	    return err
//	}
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	err = d.Run(ctx)
//
// Run blocks; Start and Stop run the same loop in the background.
//
// # Failures
//
// A hook error ends the run. The driver attempts one tree-wide teardown
// (skipped when teardown itself failed), shuts plugins down and ends in
// lifecycle.StateCrashed. The returned *PhaseError unwraps to the hook's
// error.
//
// # Reloading
//
// [Driver.Reload] queues a replacement tree. The loop applies it between
// ticks: the current tree is torn down, the new one set up.
//
// # Plugins and Events
//
// [Plugin] implementations are initialized before setup and shut down after
// teardown. An [EventHandler] receives state changes, ticks, hook failures
// and reload results on the loop goroutine.
//
// # Metrics
//
// The package registers sakamoto_driver_* collectors with the default
// prometheus registry.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package driver
