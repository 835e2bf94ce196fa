// Package log provides the logging abstraction used by the sakamoto driver,
// scene loader and plugins.
//
// Build a zerolog-backed logger from configuration:
//
//	logger, err := log.New("debug", log.FormatJSON, os.Stderr)
//
// wrap an existing zerolog.Logger:
//
//	logger := log.NewZerologAdapter(zerolog.New(os.Stderr))
//
// or discard everything in tests:
//
//	logger := log.NewNoopLogger()
//
// Any type with Debug, Info, Warn and Error methods taking a message and
// fields satisfies [Logger].
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package log
