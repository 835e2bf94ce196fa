// Package lifecycle provides the state machine a driver moves through while
// it runs an entity tree.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, emitter)
//
//	if !manager.CanStart() {
//	    return ErrAlreadyRunning
//	}
//	_ = manager.TransitionTo(lifecycle.StateSettingUp, "run")
//	// ... SetupTree, then tick ...
//	_ = manager.TransitionTo(lifecycle.StateRunning, "setup complete")
//
// # State Machine
//
// Valid state transitions:
//   - Idle -> SettingUp
//   - SettingUp -> Running, TearingDown, Crashed
//   - Running -> TearingDown, Crashed
//   - TearingDown -> Stopped, Crashed
//   - Stopped -> SettingUp
//   - Crashed -> SettingUp
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// See version.go for version constants that can be used programmatically.
package lifecycle
