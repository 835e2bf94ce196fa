package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SAKAMOTO_"

// ApplyEnvConfig applies configuration from SAKAMOTO_* environment variables.
// It respects flags that have been explicitly set (changed map).
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("scene", env("SCENE"), &cfg.ScenePath)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)
	s.setString("status-addr", env("STATUS_ADDR"), &cfg.StatusAddr)
	s.setBoolFromString("watch", env("WATCH"), &cfg.Watch)

	if err := s.setUint64FromString("max-ticks", env("MAX_TICKS"), &cfg.MaxTicks); err != nil {
		return err
	}
	if err := s.setDuration("tick", env("TICK_INTERVAL"), &cfg.TickInterval); err != nil {
		return err
	}
	if err := s.setDuration("debounce", env("DEBOUNCE_DELAY"), &cfg.DebounceDelay); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", env("SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	return nil
}
