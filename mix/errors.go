// SPDX-License-Identifier: EPL-2.0

package mix

import (
	"errors"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/record"
)

var (
	// ErrUnsupportedFormat is returned by Start for a format the engine
	// cannot use. It is the same value as audio.ErrUnsupportedFormat.
	ErrUnsupportedFormat = audio.ErrUnsupportedFormat

	// ErrRecorderInUse is returned by SetRecorder when the recorder is
	// attached to another engine. It is the same value as
	// record.ErrRecorderInUse.
	ErrRecorderInUse = record.ErrRecorderInUse

	// ErrGraphInit wraps the driver error when the audio runtime refuses
	// the configuration.
	ErrGraphInit = errors.New("audio graph initialization failed")

	ErrNotRunning          = errors.New("engine is not running")
	ErrNilSource           = errors.New("nil frame source")
	ErrFormatMismatch      = errors.New("source format does not match engine format")
	ErrAlreadyRegistered   = errors.New("source is already registered")
	ErrTrackReleased       = errors.New("track buffer was released")
	ErrTrackPendingRelease = errors.New("removed track is waiting to be released")
	ErrUnknownBus          = errors.New("no source on bus")
	ErrInputDisabled       = errors.New("engine was started without input")
	ErrRecorderAttached    = errors.New("a recorder is already attached")
	ErrRecorderNotAttached = errors.New("recorder is not attached")
	ErrEmptyBuffer         = errors.New("track buffer is empty")
)
