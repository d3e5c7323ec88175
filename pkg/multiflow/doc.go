// Package multiflow provides an embeddable table of prioritized byte-stream
// devices.
//
// Every device (minor) owns two bounded FIFO flows, one per priority. High
// priority writes are visible to readers at once. Low priority writes are
// accepted immediately, committed after Config.CommitDelay and announced to
// the writing session with a Completion. Operations on a flow run one at a
// time; blocking callers wait in FIFO order until the flow is ready, their
// timeout expires or their context is cancelled.
//
// # Basic Usage
//
//	mf, err := multiflow.New(multiflow.Config{Devices: 4})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := mf.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mf.Stop()
//
//	s, err := mf.Attach(0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mf.Detach(s)
//
//	s.SetPriority(multiflow.Low)
//	n, err := s.Write(ctx, []byte("hello"))
//	c := <-s.Notifications() // after CommitDelay
//
// # Results
//
// A non-blocking call on a flow that is not ready, and a blocking call that
// times out, return (0, nil). ErrBusy means another operation held the flow.
// ErrInterrupted wraps the cause of a cancelled context.
//
// # Lifecycle States
//
//   - StateStopped: initial state, or after Stop
//   - StateStarting: devices are being created
//   - StateRunning: sessions may attach
//   - StateStopping: deferred commits are draining
//   - StateCrashed: a worker or plugin failed
//
// # Plugins
//
// Plugins receive a Controller to enable or disable minors at runtime. See
// plugins/enablewatcher for a file-driven implementation.
package multiflow
