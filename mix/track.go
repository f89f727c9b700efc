// SPDX-License-Identifier: EPL-2.0

package mix

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
)

// Track plays an already decoded buffer. All transport controls are atomic
// and may be called from any goroutine while the engine renders.
//
// A new Track is paused at position 0 with volume 1.
type Track struct {
	gainControl

	format audio.Format
	frames int64
	url    string
	title  string

	data      atomic.Pointer[audio.Buffer]
	bus       atomic.Int32
	position  atomic.Int64
	playing   atomic.Bool
	loop      atomic.Bool
	timestamp atomic.Int64
}

type TrackOption func(*Track)

// WithURL records where the track was loaded from.
func WithURL(url string) TrackOption {
	return func(t *Track) { t.url = url }
}

func WithTitle(title string) TrackOption {
	return func(t *Track) { t.title = title }
}

func WithLoop(loop bool) TrackOption {
	return func(t *Track) { t.loop.Store(loop) }
}

func WithVolume(v float32) TrackOption {
	return func(t *Track) { t.SetVolume(v) }
}

func WithMuted(muted bool) TrackOption {
	return func(t *Track) { t.SetMuted(muted) }
}

// NewTrack takes ownership of buf. The buffer must not be modified
// afterwards.
func NewTrack(buf *audio.Buffer, opts ...TrackOption) (*Track, error) {
	if buf.Frames() == 0 {
		return nil, ErrEmptyBuffer
	}
	if err := buf.Format.Validate(); err != nil {
		return nil, fmt.Errorf("track: %w", err)
	}

	t := &Track{
		format: buf.Format,
		frames: int64(buf.Frames()),
	}
	t.data.Store(buf)
	t.bus.Store(-1)
	t.SetVolume(1)

	for _, opt := range opts {
		opt(t)
	}

	return t, nil
}

func (t *Track) Format() audio.Format { return t.format }
func (t *Track) URL() string          { return t.url }
func (t *Track) Title() string        { return t.title }

// Frames is the length of the track in frames.
func (t *Track) Frames() int { return int(t.frames) }

// Bus is the track's bus while registered with an engine, -1 otherwise.
func (t *Track) Bus() int { return int(t.bus.Load()) }

func (t *Track) setBus(bus int) { t.bus.Store(int32(bus)) }

// Playing reports whether the track is playing. A released track never
// plays.
func (t *Track) Playing() bool {
	return t.playing.Load() && t.data.Load() != nil
}

// Play starts playback. A non-looping track that already reached its end
// restarts from the beginning.
func (t *Track) Play() {
	if !t.loop.Load() && t.position.Load() >= t.frames {
		t.position.Store(0)
	}
	t.playing.Store(true)
}

func (t *Track) Pause() {
	t.playing.Store(false)
}

func (t *Track) SetLoop(loop bool) {
	t.loop.Store(loop)
}

func (t *Track) Loop() bool {
	return t.loop.Load()
}

// Seek moves the read position to d, clamped to the track bounds. A seek
// that races a render callback wins over the callback's advance.
func (t *Track) Seek(d time.Duration) {
	pos := min(max(t.format.DurationToFrames(d), 0), t.frames)
	t.position.Store(pos)
}

// Position is the read position in frames.
func (t *Track) Position() int64 {
	return t.position.Load()
}

func (t *Track) CurrentTime() time.Duration {
	return t.format.FramesToDuration(t.position.Load())
}

func (t *Track) Duration() time.Duration {
	return t.format.FramesToDuration(t.frames)
}

// Timestamp is the driver sample time of the last callback that pulled
// frames from the track.
func (t *Track) Timestamp() int64 {
	return t.timestamp.Load()
}

// DecodeTo copies up to frames frames starting at the current position
// into dst without advancing. A looping track wraps; otherwise fewer frames
// are returned near the end. The rest of dst[:frames*channels] is zeroed.
func (t *Track) DecodeTo(dst []float32, frames int) int {
	ch := t.format.Channels
	frames = max(min(frames, len(dst)/ch), 0)

	buf := t.data.Load()
	if buf == nil {
		clear(dst[:frames*ch])
		return 0
	}

	n, _ := t.copyFrom(buf.Data, t.position.Load(), dst[:frames*ch], t.loop.Load())

	return n
}

// ProduceFrames implements FrameSource.
func (t *Track) ProduceFrames(info host.RenderInfo, dst []float32) int {
	buf := t.data.Load()
	if buf == nil {
		clear(dst)
		return 0
	}

	loop := t.loop.Load()
	pos := t.position.Load()
	n, next := t.copyFrom(buf.Data, pos, dst, loop)

	if t.position.CompareAndSwap(pos, next) && !loop && next >= t.frames {
		t.playing.Store(false)
	}
	t.timestamp.Store(info.SampleTime)

	return n
}

// copyFrom reads len(dst)/channels frames from data starting at pos and
// returns the frames copied and the position after them. Without loop the
// tail past the end is zeroed. With loop the read wraps at the last frame.
func (t *Track) copyFrom(data []float32, pos int64, dst []float32, loop bool) (int, int64) {
	ch := t.format.Channels
	want := len(dst) / ch

	n := 0
	for n < want {
		if pos >= t.frames {
			if !loop {
				break
			}
			pos = 0
		}

		c := min(int64(want-n), t.frames-pos)
		copy(dst[n*ch:], data[pos*int64(ch):(pos+c)*int64(ch)])
		n += int(c)
		pos += c
	}
	clear(dst[n*ch:])

	if loop && pos >= t.frames {
		pos = 0
	}

	return n, pos
}

func (t *Track) release() {
	t.playing.Store(false)
	t.data.Store(nil)
}

func (t *Track) released() bool {
	return t.data.Load() == nil
}
