// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"io"
	"math"
)

// Generator is an audio.Source whose frames come from a function. It
// reports its length through FrameCount.
type Generator struct {
	rate     int
	channels int
	frames   int
	pos      int
	fn       func(frame, channel int) float32
}

func NewGenerator(rate, channels, frames int, fn func(frame, channel int) float32) *Generator {
	return &Generator{rate: rate, channels: channels, frames: frames, fn: fn}
}

// NewSineSource generates a full-scale sine at freq Hz on every channel.
func NewSineSource(rate, channels, frames int, freq float64) *Generator {
	step := 2 * math.Pi * freq / float64(rate)
	return NewGenerator(rate, channels, frames, func(frame, _ int) float32 {
		return float32(math.Sin(step * float64(frame)))
	})
}

func NewConstantSource(rate, channels, frames int, value float32) *Generator {
	return NewGenerator(rate, channels, frames, func(int, int) float32 { return value })
}

func (g *Generator) SampleRate() int { return g.rate }
func (g *Generator) Channels() int   { return g.channels }
func (g *Generator) BufSize() int    { return 1024 * g.channels }
func (g *Generator) Close() error    { return nil }
func (g *Generator) FrameCount() int { return g.frames }

func (g *Generator) ReadSamples(dst []float32) (int, error) {
	n := min(len(dst)/g.channels, g.frames-g.pos)
	for f := range n {
		for c := range g.channels {
			dst[f*g.channels+c] = g.fn(g.pos+f, c)
		}
	}
	g.pos += n

	if g.pos >= g.frames {
		return n * g.channels, io.EOF
	}

	return n * g.channels, nil
}
