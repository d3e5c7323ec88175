package multiflow

import (
	"context"

	"github.com/bft-labs/multiflow/pkg/log"
)

// Controller is the part of the device table a plugin may drive.
type Controller interface {
	Devices() int
	Enable(minor int) error
	Disable(minor int) error
}

// PluginConfig is passed to Plugin.Initialize.
type PluginConfig struct {
	Controller Controller
	Logger     log.Logger
}

// Plugin extends a device table with background behavior. Plugins are
// initialized in registration order after the devices start and shut down
// in reverse order after the devices drain.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}
