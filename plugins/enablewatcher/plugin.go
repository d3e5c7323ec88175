// Package enablewatcher toggles multiflow devices from a TOML file.
// The file lists the minors that refuse new sessions:
//
//	disabled = [1, 5]
//
// Every minor not listed is enabled. The file is applied once when the
// plugin starts and again, debounced, whenever it is written or replaced.
package enablewatcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/multiflow/pkg/lifecycle"
	"github.com/bft-labs/multiflow/pkg/log"
	"github.com/bft-labs/multiflow/pkg/multiflow"
)

// File is the on-disk format of the enable file.
type File struct {
	Disabled []int `toml:"disabled"`
}

// LoadFile reads and parses an enable file.
func LoadFile(path string) (File, error) {
	var f File
	b, err := os.ReadFile(path)
	if err != nil {
		return f, err
	}
	if err := toml.Unmarshal(b, &f); err != nil {
		return f, fmt.Errorf("parse %s: %w", path, err)
	}
	return f, nil
}

// Config holds configuration options for the enable watcher plugin.
type Config struct {
	// Path is the enable file. An empty path disables the plugin.
	Path string

	// DebounceDelay is the delay to wait after a file change before applying.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RetryInterval is the first delay between attempts to watch a
	// directory that does not exist yet. Later attempts back off
	// exponentially up to MaxRetryInterval.
	// Default: 5 seconds
	RetryInterval time.Duration

	// MaxRetryInterval caps the retry backoff.
	// Default: 1 minute
	MaxRetryInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:             path,
		DebounceDelay:    100 * time.Millisecond,
		RetryInterval:    5 * time.Second,
		MaxRetryInterval: time.Minute,
	}
}

// Plugin applies the enable file to a device table.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	retryInterval time.Duration
	maxRetry      time.Duration

	controller multiflow.Controller
	logger     log.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer
	stopped    bool
}

// New creates a new enable watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 5 * time.Second
	}
	if cfg.MaxRetryInterval <= 0 {
		cfg.MaxRetryInterval = time.Minute
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		retryInterval: cfg.RetryInterval,
		maxRetry:      cfg.MaxRetryInterval,
		logger:        log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "enablewatcher"
}

// Initialize applies the enable file and starts watching it.
func (p *Plugin) Initialize(ctx context.Context, cfg multiflow.PluginConfig) error {
	p.mu.Lock()
	p.controller = cfg.Controller
	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}
	p.stopped = false
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("enable watcher disabled: no enable file configured")
		return nil
	}
	if p.controller == nil {
		return errors.New("enable watcher: no controller")
	}

	if err := p.Apply(); err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("enable file not applied", log.String("path", p.path), log.Err(err))
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	p.logger.Info("enable watcher plugin initialized", log.String("path", p.path))
	return nil
}

// Shutdown stops the watcher and any pending debounced apply.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// Apply reads the enable file and enables or disables every minor to match.
func (p *Plugin) Apply() error {
	f, err := LoadFile(p.path)
	if err != nil {
		return err
	}

	n := p.controller.Devices()
	disabled := make(map[int]bool, len(f.Disabled))
	for _, minor := range f.Disabled {
		if minor < 0 || minor >= n {
			p.logger.Warn("enable file lists unknown minor", log.Minor(minor), log.Int("devices", n))
			continue
		}
		disabled[minor] = true
	}

	for minor := 0; minor < n; minor++ {
		var err error
		if disabled[minor] {
			err = p.controller.Disable(minor)
		} else {
			err = p.controller.Enable(minor)
		}
		if err != nil {
			return fmt.Errorf("minor %d: %w", minor, err)
		}
	}

	p.logger.Info("enable file applied", log.String("path", p.path), log.Int("disabled", len(disabled)))
	return nil
}

// watchLoop watches the enable file's directory so that editors replacing
// the file by rename are noticed.
func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("enable watcher: failed to create watcher", log.Err(err))
		return
	}
	defer watcher.Close()

	dir := filepath.Dir(p.path)
	name := filepath.Base(p.path)

	backoff := lifecycle.NewBackoff(p.retryInterval, p.maxRetry)
	retried := false
	for {
		err := watcher.Add(dir)
		if err == nil {
			break
		}
		retried = true
		p.logger.Warn("enable watcher: failed to watch directory, retrying",
			log.String("dir", dir), log.Err(err), log.Duration("retry", backoff.Current()))
		if backoff.Wait(ctx) != nil {
			return
		}
	}
	if retried {
		// The directory appeared after a retry; pick up a file created meanwhile.
		p.debounceApply()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceApply()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("enable watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceApply() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		p.mu.Lock()
		stopped := p.stopped
		p.mu.Unlock()
		if stopped {
			return
		}
		if err := p.Apply(); err != nil {
			p.logger.Warn("enable file not applied", log.String("path", p.path), log.Err(err))
		}
	})
}

var _ multiflow.Plugin = (*Plugin)(nil)
