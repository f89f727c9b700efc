// SPDX-License-Identifier: EPL-2.0

package record

import "errors"

var (
	// ErrSinkOpen wraps the opener error when BeginRecording cannot create
	// the destination.
	ErrSinkOpen = errors.New("cannot open recording sink")
	// ErrSinkWrite wraps a sink Append error. Recording stops.
	ErrSinkWrite = errors.New("cannot write to recording sink")
	// ErrSinkFlush wraps a sink Close error.
	ErrSinkFlush = errors.New("cannot flush recording sink")
	// ErrOverrun is reported to the error handler when the render side
	// dropped buffers because the writer fell behind.
	ErrOverrun = errors.New("recording overrun")

	ErrAlreadyRecording = errors.New("already recording")
	ErrNotRecording     = errors.New("not recording")
	ErrUnknownFileType  = errors.New("unknown recording file type")
	ErrRecorderInUse    = errors.New("recorder is attached to another producer")
)
