// SPDX-License-Identifier: EPL-2.0

// Package mix sums any number of frame sources into a single output buffer
// on the real-time render callback of a host.Driver, and taps the result to
// an optional record.Recorder.
//
// # Mixing law
//
// For every output sample i:
//
//	out[i] = Σ source.Gain() * sample[i]
//
// where Gain is zero for a muted source and its volume otherwise. The sum is
// not clamped. Values outside [-1, 1] reach the recorder and the driver
// unchanged; the device driver and the file sinks saturate when converting
// to integer PCM.
//
// # Concurrency
//
// Render never allocates, locks or logs. The set of registered sources and
// the attached recorder live in an immutable snapshot that writers replace
// with an atomic pointer swap; Render loads it once per callback. Per-track
// controls are single-word atomics and take effect on a later callback.
//
// A removed source is not released until the render epoch shows that no
// callback can still hold the snapshot that referenced it. Release happens
// in Reclaim, which runs on a background goroutine, on demand and in Stop.
// Until then AddTrack refuses the source with ErrTrackPendingRelease.
//
// Callbacks must be serial. Every host.Driver in this module guarantees it.
package mix
