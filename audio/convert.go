// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
)

// Convert builds the pipeline that brings src to target's sample rate and
// channel count: resample first, then remap channels.
func Convert(src Source, target Format) (Source, error) {
	out := src
	if out.SampleRate() != target.SampleRate {
		out = NewResampler(out, target.SampleRate)
	}

	if out.Channels() != target.Channels {
		cm, err := NewChannelMixer(out, target.Channels)
		if err != nil {
			return nil, err
		}
		out = cm
	}

	return out, nil
}

// ReadAll drains src into a Buffer in the given format. The source must
// already match format's rate and channel count; use Convert first.
func ReadAll(src Source, format Format, bufferSize int) (*Buffer, error) {
	if src.SampleRate() != format.SampleRate || src.Channels() != format.Channels {
		return nil, fmt.Errorf("%w: source is %dHz/%dch, want %s",
			ErrUnsupportedFormat, src.SampleRate(), src.Channels(), format)
	}

	ch := format.Channels
	bufferSize -= bufferSize % ch
	if bufferSize <= 0 {
		bufferSize = 4096 * ch
	}

	// Pre-size from the length hint to avoid repeated growth.
	estimated := 0
	if fc, ok := src.(FrameCounter); ok {
		estimated = fc.FrameCount() * ch
	}
	data := make([]float32, 0, max(estimated, bufferSize))

	buf := make([]float32, bufferSize)
	empty := 0

	for {
		n, err := src.ReadSamples(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			empty = 0
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}

		if n == 0 {
			empty++
			if empty >= maxEmptyReads {
				return nil, io.ErrNoProgress
			}
		}
	}

	// Drop a trailing partial frame.
	data = data[:len(data)-len(data)%ch]

	return &Buffer{Format: format, Data: data}, nil
}
