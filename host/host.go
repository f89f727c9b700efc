// SPDX-License-Identifier: EPL-2.0

// Package host defines the boundary between the mixer and the audio runtime
// that clocks it, plus two runtimes that need no hardware: Manual, driven
// by the caller, and Clock, paced by a ticker.
//
// A Driver owns the real-time context. It invokes the Callback serially,
// never from two goroutines at once, and Stop must not return while a
// callback is running or could still start.
package host

import (
	"errors"

	"github.com/ik5/mixrec/audio"
)

// Status is returned by a Callback for each rendered buffer.
type Status int

const (
	// StatusOK means out holds rendered audio.
	StatusOK Status = iota
	// StatusSilence means out was zero-filled because nothing was audible.
	StatusSilence
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSilence:
		return "silence"
	default:
		return "unknown"
	}
}

// RenderInfo describes one callback invocation.
type RenderInfo struct {
	// SampleTime is the number of frames rendered by the driver before this
	// callback.
	SampleTime int64
	// Frames is the number of frames requested.
	Frames int
	// Input holds captured interleaved input for the same period when the
	// driver was opened with input enabled; nil otherwise.
	Input []float32
}

// Callback renders info.Frames frames of interleaved audio into out.
// It runs on the driver's real-time context.
type Callback func(info RenderInfo, out []float32) Status

// Driver is an audio runtime able to call a Callback on a deadline.
type Driver interface {
	// Open configures the runtime for format. It does not start callbacks.
	Open(format audio.Format, inputEnabled bool, cb Callback) error
	// Start begins invoking the callback.
	Start() error
	// Stop halts callbacks. After it returns no callback is running and
	// none will start until Start is called again.
	Stop() error
	// Close releases the runtime. The driver cannot be reopened.
	Close() error
}

var (
	ErrNotOpen       = errors.New("driver is not open")
	ErrAlreadyOpen   = errors.New("driver is already open")
	ErrClosed        = errors.New("driver is closed")
	ErrInputRequired = errors.New("driver cannot capture input")
	ErrBufferSize    = errors.New("invalid buffer size")
	ErrNilCallback   = errors.New("nil render callback")
)
