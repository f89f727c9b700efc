// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"math"
)

// genSource produces frames from fn. It cannot come from audiotest, which
// imports this package.
type genSource struct {
	rate, channels int
	frames, pos    int
	fn             func(frame, channel int) float32
}

func newGenSource(rate, channels, frames int, fn func(frame, channel int) float32) *genSource {
	return &genSource{rate: rate, channels: channels, frames: frames, fn: fn}
}

func newSilentSource(rate, channels, frames int) *genSource {
	return newConstantSource(rate, channels, frames, 0)
}

func newSineSource(rate, channels, frames int, freq float64) *genSource {
	step := 2 * math.Pi * freq / float64(rate)
	return newGenSource(rate, channels, frames, func(frame, _ int) float32 {
		return float32(math.Sin(step * float64(frame)))
	})
}

func newConstantSource(rate, channels, frames int, v float32) *genSource {
	return newGenSource(rate, channels, frames, func(int, int) float32 { return v })
}

func (s *genSource) SampleRate() int { return s.rate }
func (s *genSource) Channels() int   { return s.channels }
func (s *genSource) BufSize() int    { return 1024 * s.channels }
func (s *genSource) Close() error    { return nil }
func (s *genSource) FrameCount() int { return s.frames }

func (s *genSource) ReadSamples(dst []float32) (int, error) {
	if s.pos >= s.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/s.channels, s.frames-s.pos)
	for f := range n {
		for c := range s.channels {
			dst[f*s.channels+c] = s.fn(s.pos+f, c)
		}
	}
	s.pos += n

	if s.pos >= s.frames {
		return n * s.channels, io.EOF
	}

	return n * s.channels, nil
}
