// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrInvalidDstSize = errors.New("dst size must be multiple of channels")

	// ErrUnsupportedFormat is returned when a Format cannot be used as the
	// fixed working format of the mixer.
	ErrUnsupportedFormat = errors.New("unsupported audio format")

	// ErrChannelLayout is returned when a channel conversion has no defined
	// mapping.
	ErrChannelLayout = errors.New("unsupported channel conversion")
)
