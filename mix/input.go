// SPDX-License-Identifier: EPL-2.0

package mix

import (
	"sync/atomic"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
)

// LiveInput routes the driver's captured input into the mix. It requires an
// engine started with input enabled. It is created playing and muted, so
// monitoring starts off until SetMuted(false).
type LiveInput struct {
	gainControl

	format  audio.Format
	bus     atomic.Int32
	playing atomic.Bool
}

func NewLiveInput(format audio.Format) *LiveInput {
	in := &LiveInput{format: format}
	in.bus.Store(-1)
	in.SetVolume(1)
	in.SetMuted(true)
	in.playing.Store(true)

	return in
}

func (in *LiveInput) Format() audio.Format { return in.format }
func (in *LiveInput) Bus() int             { return int(in.bus.Load()) }
func (in *LiveInput) setBus(bus int)       { in.bus.Store(int32(bus)) }
func (in *LiveInput) Playing() bool        { return in.playing.Load() }
func (in *LiveInput) Play()                { in.playing.Store(true) }
func (in *LiveInput) Pause()               { in.playing.Store(false) }

// ProduceFrames copies the captured input of the current callback.
func (in *LiveInput) ProduceFrames(info host.RenderInfo, dst []float32) int {
	n := copy(dst, info.Input)
	clear(dst[n:])

	return n / in.format.Channels
}
