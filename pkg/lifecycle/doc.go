// Package lifecycle provides the state machine that brings a device table
// up and down.
//
// A Manager tracks the state (Stopped, Starting, Running, Stopping,
// Crashed) and the worker goroutines started on its behalf, one per device
// for deferred commits. Stopping cancels the workers and waits, with a
// timeout, for them to drain.
//
// # Usage
//
//	manager := lifecycle.NewManager(logger, emitter)
//	if err := manager.TransitionTo(lifecycle.StateStarting, "Start() called"); err != nil {
//	    return err
//	}
//	ctx, cancel := context.WithCancel(parent)
//	manager.SetCancel(cancel)
//	manager.Go(func() { _ = dev.Run(ctx) })
//	_ = manager.TransitionTo(lifecycle.StateRunning, "workers started")
//
//	// later
//	manager.Cancel()
//	if err := manager.WaitWithTimeout(lifecycle.ShutdownTimeout); err != nil {
//	    return err
//	}
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package lifecycle
