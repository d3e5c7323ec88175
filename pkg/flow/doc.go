// Package flow implements a capacity-bounded FIFO byte buffer built from
// variable-size segments, together with the admission protocol that gates
// access to it.
//
// A Flow has a single operation token. Callers obtain it through
// [Flow.Acquire], which either probes (non-blocking) or waits (blocking)
// until the token is free and a readiness predicate holds. The token is
// represented by a [Guard]; every Guard method that transfers data also
// returns the token and wakes at most one waiter whose predicate is now
// satisfied.
//
// Deferred writes use [Guard.Reserve]: the bytes are counted against the
// capacity immediately, the token stays held by the returned [Pending],
// and the data becomes visible to readers only when [Pending.Commit] runs.
//
// Used, reserved and waiter counts can be read at any time without the
// token; such reads may be stale.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package flow
