// Package device implements a multi-flow device: two independent priority
// flows (low and high) plus a single deferred-commit worker.
//
// Clients attach to a Device with [Device.Open] and receive a [Session]
// carrying their priority, blocking mode and timeout. High-priority writes
// are applied synchronously. Low-priority writes reserve capacity, keep the
// low flow's token, and are committed by the device worker after the
// configured delay; the writing session then receives a [Completion] on its
// notification channel.
//
// The worker must be driven by [Device.Run]. When its context is cancelled,
// pending commits are applied immediately so every accepted write is
// committed and notified exactly once.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package device
