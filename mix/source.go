// SPDX-License-Identifier: EPL-2.0

package mix

import (
	"math"
	"sync/atomic"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
)

// FrameSource is anything the engine can pull audio from.
//
// ProduceFrames, Gain and Playing are called on the render callback and
// must not block, allocate or perform I/O. ProduceFrames fills dst with
// len(dst)/channels frames, zero-filling what it cannot provide, and
// returns the number of frames that carry signal. A muted source keeps
// producing (its position advances) and reports a Gain of zero.
//
// A source that also implements io.Closer is closed once the engine is sure
// no callback still references it.
type FrameSource interface {
	ProduceFrames(info host.RenderInfo, dst []float32) int
	Gain() float32
	Playing() bool
	Format() audio.Format
}

// busSlot is implemented by sources that record their own bus.
type busSlot interface {
	Bus() int
	setBus(bus int)
}

// releaser is implemented by sources owning memory the engine frees.
type releaser interface {
	release()
	released() bool
}

// gainControl is the volume and mute state shared by every source in this
// package.
type gainControl struct {
	volume atomic.Uint32
	muted  atomic.Bool
}

// SetVolume sets the linear gain, clamped to [0, 1]. NaN counts as 0.
func (g *gainControl) SetVolume(v float32) {
	switch {
	case v != v || v < 0:
		v = 0
	case v > 1:
		v = 1
	}
	g.volume.Store(math.Float32bits(v))
}

func (g *gainControl) Volume() float32 {
	return math.Float32frombits(g.volume.Load())
}

func (g *gainControl) SetMuted(muted bool) {
	g.muted.Store(muted)
}

func (g *gainControl) Muted() bool {
	return g.muted.Load()
}

// Gain is the factor applied while mixing: zero when muted, the volume
// otherwise.
func (g *gainControl) Gain() float32 {
	if g.muted.Load() {
		return 0
	}

	return g.Volume()
}
