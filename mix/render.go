// SPDX-License-Identifier: EPL-2.0

package mix

import (
	"time"

	"github.com/ik5/mixrec/host"
)

// Render is the engine's host.Callback. It mixes every playing source into
// out, feeds the result to the attached recorder and reports
// host.StatusSilence when nothing was audible. out is always fully written.
func (e *Engine) Render(info host.RenderInfo, out []float32) host.Status {
	e.epoch.Add(1)
	defer e.epoch.Add(1)

	clear(out)
	if !e.running.Load() {
		return host.StatusSilence
	}

	start := time.Now()
	snap := e.snap.Load()

	ch := e.format.Channels
	frames := len(out) / ch
	step := len(e.scratch) / ch

	audible := false
	for off := 0; off < frames; off += step {
		n := min(step, frames-off)
		chunk := info
		chunk.SampleTime += int64(off)
		chunk.Frames = n
		chunk.Input = nil
		if len(info.Input) >= (off+n)*ch {
			chunk.Input = info.Input[off*ch : (off+n)*ch]
		}

		if e.mixInto(snap.sources, chunk, out[off*ch:(off+n)*ch]) {
			audible = true
		}
	}

	if snap.recorder != nil {
		snap.recorder.Ingest(out)
	}

	e.callbacks.Add(1)
	e.frames.Add(uint64(frames))
	e.observe(time.Since(start))

	if !audible {
		return host.StatusSilence
	}

	return host.StatusOK
}

// mixInto accumulates every playing source into out.
func (e *Engine) mixInto(sources []FrameSource, info host.RenderInfo, out []float32) bool {
	scratch := e.scratch[:len(out)]
	ch := e.format.Channels

	audible := false
	for _, src := range sources {
		if !src.Playing() {
			continue
		}

		n := src.ProduceFrames(info, scratch)
		gain := src.Gain()
		if n == 0 || gain == 0 {
			continue
		}

		for i, v := range scratch[:n*ch] {
			out[i] += gain * v
		}
		audible = true
	}

	return audible
}

func (e *Engine) observe(d time.Duration) {
	for {
		cur := e.maxCallback.Load()
		if int64(d) <= cur || e.maxCallback.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}
