package enablewatcher

import "github.com/bft-labs/multiflow/pkg/multiflow"

// WithEnableWatcher returns a multiflow Option that applies and watches an
// enable file.
//
// Usage:
//
//	mf, err := multiflow.New(cfg,
//	    enablewatcher.WithEnableWatcher(enablewatcher.Config{
//	        Path:          "/etc/multiflow/enabled.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithEnableWatcher(cfg Config) multiflow.Option {
	return multiflow.WithPlugin(New(cfg))
}

// WithDefaultEnableWatcher watches path with default settings.
func WithDefaultEnableWatcher(path string) multiflow.Option {
	return WithEnableWatcher(DefaultConfig(path))
}
