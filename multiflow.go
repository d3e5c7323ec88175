// Package multiflow provides a table of prioritized byte-stream devices.
//
// Example usage:
//
//	cfg := multiflow.DefaultConfig()
//	cfg.Devices = 8
//	mf, err := multiflow.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := mf.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mf.Stop()
//
// See github.com/bft-labs/multiflow/pkg/multiflow for the full API.
package multiflow

import (
	"context"

	"github.com/bft-labs/multiflow/pkg/multiflow"
)

// Config holds the settings of a device table.
type Config = multiflow.Config

// Multiflow is a table of devices.
type Multiflow = multiflow.Multiflow

// Session is one client's attachment to a device.
type Session = multiflow.Session

// Option configures optional behavior of Multiflow.
type Option = multiflow.Option

// Priorities.
const (
	Low  = multiflow.Low
	High = multiflow.High
)

// New creates a device table. See multiflow.New.
func New(cfg Config, opts ...Option) (*Multiflow, error) {
	return multiflow.New(cfg, opts...)
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

// Run starts a device table and blocks until ctx is cancelled, then stops
// it, draining deferred commits. ready, if not nil, is called once the
// table is running.
func Run(ctx context.Context, cfg Config, ready func(*Multiflow), opts ...Option) error {
	mf, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := mf.Start(ctx); err != nil {
		return err
	}
	if ready != nil {
		ready(mf)
	}
	<-ctx.Done()
	return mf.Stop()
}
