package multiflow

import "github.com/bft-labs/multiflow/pkg/log"

// Logger is the structured logging interface used by every package.
type Logger = log.Logger

// LogField is a structured log field.
type LogField = log.Field

// Option configures optional behavior of Multiflow.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
}

func defaultOptions() options {
	return options{logger: log.NewNoopLogger()}
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for lifecycle and commit events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized on Start.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
