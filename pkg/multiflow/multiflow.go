package multiflow

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/multiflow/pkg/device"
	"github.com/bft-labs/multiflow/pkg/lifecycle"
	"github.com/bft-labs/multiflow/pkg/log"
)

// Re-exported device types.
type (
	Session    = device.Session
	Device     = device.Device
	Priority   = device.Priority
	Completion = device.Completion
	Stats      = device.Stats
	FlowStats  = device.FlowStats
)

// Priorities.
const (
	Low  = device.Low
	High = device.High
)

// Multiflow is a table of devices numbered 0..Devices-1, each with a high
// and a low priority flow. Use New to create one, then Start to bring the
// devices up.
type Multiflow struct {
	config    Config
	opts      options
	lifecycle *lifecycle.DefaultManager
	emitter   *eventEmitterWrapper
	logger    log.Logger
	plugins   []Plugin

	// mu serializes Start and Stop.
	mu sync.Mutex

	tableMu sync.RWMutex
	devices []*device.Device
}

var _ Controller = (*Multiflow)(nil)

// New creates a device table in StateStopped. Returns an error if the
// configuration is invalid.
func New(cfg Config, opts ...Option) (*Multiflow, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	return &Multiflow{
		config:    cfg,
		opts:      o,
		lifecycle: lifecycle.NewManager(o.logger, emitter),
		emitter:   emitter,
		logger:    o.logger,
		plugins:   o.plugins,
	}, nil
}

// Start creates the devices, starts one deferred-commit worker per device
// and initializes plugins. Every Start builds a fresh table, so data and
// sessions from a previous run are gone.
func (m *Multiflow) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lifecycle.CanStart() {
		return ErrAlreadyRunning
	}
	if err := m.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.lifecycle.SetCancel(cancel)

	devices := make([]*device.Device, m.config.Devices)
	for minor := range devices {
		devices[minor] = device.New(minor, m.config.deviceConfig(), m.logger, m.emitter)
	}
	for _, minor := range m.config.Disabled {
		devices[minor].Disable()
	}

	m.tableMu.Lock()
	m.devices = devices
	m.tableMu.Unlock()

	g, gctx := errgroup.WithContext(runCtx)
	for _, d := range devices {
		d := d
		g.Go(func() error { return d.Run(gctx) })
	}
	m.lifecycle.Go(func() {
		if err := g.Wait(); err != nil {
			m.logger.Error("device worker failed", log.Err(err))
			_ = m.lifecycle.TransitionTo(StateCrashed, err.Error())
		}
	})

	pluginCfg := PluginConfig{Controller: m, Logger: m.logger}
	for i, p := range m.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			m.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			_ = m.lifecycle.WaitWithTimeout(m.config.ShutdownTimeout)
			m.shutdownPlugins(m.plugins[:i])
			_ = m.lifecycle.TransitionTo(StateCrashed, "plugin init failed: "+p.Name())
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		m.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	m.logger.Info("device table started",
		log.Int("devices", m.config.Devices),
		log.Int("capacity", m.config.Capacity),
		log.Duration("commit_delay", m.config.CommitDelay))
	return m.lifecycle.TransitionTo(StateRunning, "devices started")
}

// Stop cancels the device workers, waits for pending deferred commits to
// drain and shuts plugins down in reverse order. Returns ErrShutdownTimeout
// if the workers did not finish within Config.ShutdownTimeout.
func (m *Multiflow) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.lifecycle.CanStop() {
		return ErrNotRunning
	}
	if err := m.lifecycle.TransitionTo(StateStopping, "Stop() called"); err != nil {
		return err
	}

	m.lifecycle.Cancel()
	err := m.lifecycle.WaitWithTimeout(m.config.ShutdownTimeout)

	m.shutdownPlugins(m.plugins)

	if err != nil {
		_ = m.lifecycle.TransitionTo(StateCrashed, "shutdown timeout")
	} else {
		_ = m.lifecycle.TransitionTo(StateStopped, "graceful shutdown")
	}
	return err
}

func (m *Multiflow) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			m.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			m.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

// Status returns the current lifecycle state.
func (m *Multiflow) Status() State {
	return m.lifecycle.State()
}

// Config returns the effective configuration.
func (m *Multiflow) Config() Config {
	return m.config
}

// Devices returns the number of minors in the table.
func (m *Multiflow) Devices() int {
	return m.config.Devices
}

// Device returns the device for minor. Returns ErrNotRunning before the
// first Start and ErrNoSuchDevice for an out-of-range minor.
func (m *Multiflow) Device(minor int) (*device.Device, error) {
	m.tableMu.RLock()
	defer m.tableMu.RUnlock()

	if m.devices == nil {
		return nil, ErrNotRunning
	}
	if minor < 0 || minor >= len(m.devices) {
		return nil, fmt.Errorf("minor %d: %w", minor, ErrNoSuchDevice)
	}
	return m.devices[minor], nil
}

// Attach opens a session on minor with default settings: high priority,
// blocking, maximum timeout.
func (m *Multiflow) Attach(minor int) (*Session, error) {
	if m.lifecycle.State() != StateRunning {
		return nil, ErrNotRunning
	}
	d, err := m.Device(minor)
	if err != nil {
		return nil, err
	}
	return d.Open()
}

// Detach closes a session opened by Attach.
func (m *Multiflow) Detach(s *Session) error {
	return s.Close()
}

// Enable allows new sessions on minor.
func (m *Multiflow) Enable(minor int) error {
	d, err := m.Device(minor)
	if err != nil {
		return err
	}
	d.Enable()
	return nil
}

// Disable refuses new sessions on minor. Open sessions are unaffected.
func (m *Multiflow) Disable(minor int) error {
	d, err := m.Device(minor)
	if err != nil {
		return err
	}
	d.Disable()
	return nil
}

// Stats returns a snapshot of every device's counters, or nil before the
// first Start.
func (m *Multiflow) Stats() []Stats {
	m.tableMu.RLock()
	defer m.tableMu.RUnlock()

	if m.devices == nil {
		return nil
	}
	out := make([]Stats, len(m.devices))
	for i, d := range m.devices {
		out[i] = d.Stats()
	}
	return out
}
