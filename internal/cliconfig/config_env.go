package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (MULTIFLOW_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("enable-file", os.Getenv("MULTIFLOW_ENABLE_FILE"), &cfg.EnableFile)
	s.setString("log-level", os.Getenv("MULTIFLOW_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntFromString("devices", os.Getenv("MULTIFLOW_DEVICES"), &cfg.Devices); err != nil {
		return err
	}
	if err := s.setIntFromString("capacity", os.Getenv("MULTIFLOW_CAPACITY"), &cfg.Capacity); err != nil {
		return err
	}
	if err := s.setIntFromString("notify-buffer", os.Getenv("MULTIFLOW_NOTIFY_BUFFER"), &cfg.NotifyBuffer); err != nil {
		return err
	}
	if err := s.setMinorFromString("minor", os.Getenv("MULTIFLOW_MINOR"), &cfg.Minor); err != nil {
		return err
	}
	if err := s.setIntsFromString("disabled", os.Getenv("MULTIFLOW_DISABLED"), &cfg.Disabled); err != nil {
		return err
	}

	if err := s.setDuration("commit-delay", os.Getenv("MULTIFLOW_COMMIT_DELAY"), &cfg.CommitDelay); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("MULTIFLOW_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}
	if err := s.setDuration("stats-interval", os.Getenv("MULTIFLOW_STATS_INTERVAL"), &cfg.StatsInterval); err != nil {
		return err
	}
	return nil
}
