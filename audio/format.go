// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// Format is the linear PCM layout shared by every track, the mix output and
// the recorder. Samples travel through the mixer as interleaved float32;
// BitsPerSample describes the container and device representation only.
type Format struct {
	SampleRate    int  `yaml:"sample_rate" json:"sample_rate"`
	Channels      int  `yaml:"channels" json:"channels"`
	BitsPerSample int  `yaml:"bits_per_sample" json:"bits_per_sample"`
	Interleaved   bool `yaml:"interleaved" json:"interleaved"`
}

const (
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MaxChannels   = 8
)

// DefaultFormat returns 44.1kHz stereo 16-bit interleaved linear PCM.
func DefaultFormat() Format {
	return Format{
		SampleRate:    44100,
		Channels:      2,
		BitsPerSample: 16,
		Interleaved:   true,
	}
}

// FrameSize is the size in bytes of one frame in the container representation.
func (f Format) FrameSize() int {
	return f.Channels * f.BitsPerSample / 8
}

// Validate reports whether f can be used as a working format. The error
// wraps ErrUnsupportedFormat.
func (f Format) Validate() error {
	switch {
	case f.SampleRate < MinSampleRate || f.SampleRate > MaxSampleRate:
		return fmt.Errorf("%w: sample rate %d outside [%d, %d]",
			ErrUnsupportedFormat, f.SampleRate, MinSampleRate, MaxSampleRate)
	case f.Channels < 1 || f.Channels > MaxChannels:
		return fmt.Errorf("%w: channel count %d outside [1, %d]",
			ErrUnsupportedFormat, f.Channels, MaxChannels)
	case f.BitsPerSample != 16 && f.BitsPerSample != 24 && f.BitsPerSample != 32:
		return fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, f.BitsPerSample)
	case !f.Interleaved:
		return fmt.Errorf("%w: non-interleaved layout", ErrUnsupportedFormat)
	}

	return nil
}

// FramesToDuration converts a frame count at f's sample rate to a duration.
func (f Format) FramesToDuration(frames int64) time.Duration {
	if f.SampleRate <= 0 {
		return 0
	}

	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// DurationToFrames converts d to a frame count, truncating partial frames.
func (f Format) DurationToFrames(d time.Duration) int64 {
	return int64(d) * int64(f.SampleRate) / int64(time.Second)
}

func (f Format) String() string {
	layout := "interleaved"
	if !f.Interleaved {
		layout = "planar"
	}

	return fmt.Sprintf("%dHz/%dch/%dbit/%s", f.SampleRate, f.Channels, f.BitsPerSample, layout)
}
