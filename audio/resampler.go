// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/mixrec/utils"
)

// maxEmptyReads bounds consecutive (0, nil) reads from a source before the
// resampler gives up with io.ErrNoProgress.
const maxEmptyReads = 100

// Resampler streams from src to a target sample rate using cubic
// interpolation. Works on interleaved samples and preserves the channel
// count. A one-pole low-pass filter is applied to the input when
// downsampling.
type Resampler struct {
	src      Source
	dstRate  int
	step     float64 // source frames consumed per output frame
	channels int

	// hist holds the source frames at index-1, index, index+1 and index+2,
	// frame-major. Indices past the end repeat the last real frame.
	hist  []float32
	index int64
	frac  float64

	block    []float32
	blockPos int
	blockLen int
	last     []float32

	realFrames int64
	srcEOF     bool
	primed     bool

	lowpass bool
	alpha   float32
	lpState []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := src.Channels()
	step := float64(src.SampleRate()) / float64(dstRate)

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		step:     step,
		channels: channels,
		hist:     make([]float32, 4*channels),
		block:    make([]float32, 1024*channels),
		last:     make([]float32, channels),
		lowpass:  step > 1.0,
		lpState:  make([]float32, channels),
	}
	if r.lowpass {
		r.alpha = 0.5
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }
func (r *Resampler) Close() error {
	err := r.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// FrameCount estimates the output length from the source's hint.
func (r *Resampler) FrameCount() int {
	fc, ok := r.src.(FrameCounter)
	if !ok || fc.FrameCount() == 0 {
		return 0
	}

	return int(float64(fc.FrameCount())/r.step) + 1
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}

	if !r.primed {
		if err := r.prime(); err != nil {
			return 0, err
		}
	}

	ch := r.channels
	frames := len(dst) / ch
	written := 0

	for written < frames {
		if r.exhausted() && r.index >= r.realFrames {
			if written == 0 {
				return 0, io.EOF
			}
			return written * ch, io.EOF
		}

		x := float32(r.frac)
		out := dst[written*ch : (written+1)*ch]
		for c := range ch {
			out[c] = utils.CatmullRom(
				r.hist[c], r.hist[ch+c], r.hist[2*ch+c], r.hist[3*ch+c], x)
		}
		written++

		r.frac += r.step
		for r.frac >= 1.0 {
			r.frac -= 1.0
			if err := r.advance(); err != nil {
				return written * ch, err
			}
		}
	}

	return written * ch, nil
}

// exhausted reports whether every source frame has been pulled.
func (r *Resampler) exhausted() bool {
	return r.srcEOF && r.blockPos >= r.blockLen
}

func (r *Resampler) prime() error {
	ch := r.channels

	ok, err := r.next(r.hist[ch : 2*ch])
	if err != nil {
		return err
	}
	if !ok {
		return io.EOF
	}
	copy(r.hist[:ch], r.hist[ch:2*ch])

	if _, err := r.next(r.hist[2*ch : 3*ch]); err != nil {
		return err
	}
	if _, err := r.next(r.hist[3*ch:]); err != nil {
		return err
	}

	r.primed = true

	return nil
}

// advance shifts the history window forward by one source frame.
func (r *Resampler) advance() error {
	ch := r.channels
	copy(r.hist, r.hist[ch:])
	r.index++

	_, err := r.next(r.hist[3*ch:])

	return err
}

// next writes the following source frame into dst. Past the end of the
// source it repeats the last real frame and reports false.
func (r *Resampler) next(dst []float32) (bool, error) {
	if r.blockPos >= r.blockLen && !r.srcEOF {
		if err := r.fill(); err != nil {
			return false, err
		}
	}

	if r.blockPos >= r.blockLen {
		copy(dst, r.last)
		return false, nil
	}

	frame := r.block[r.blockPos : r.blockPos+r.channels]
	r.blockPos += r.channels

	if r.lowpass {
		if r.realFrames == 0 {
			copy(r.lpState, frame)
		}
		for c, v := range frame {
			// y[n] = alpha * x[n] + (1-alpha) * y[n-1]
			y := r.alpha*v + (1-r.alpha)*r.lpState[c]
			r.lpState[c] = y
			frame[c] = y
		}
	}

	copy(dst, frame)
	copy(r.last, frame)
	r.realFrames++

	return true, nil
}

func (r *Resampler) fill() error {
	for range maxEmptyReads {
		n, err := r.src.ReadSamples(r.block)
		n -= n % r.channels
		r.blockPos, r.blockLen = 0, n

		if err == io.EOF {
			r.srcEOF = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w", err)
		}
		if n > 0 {
			return nil
		}
	}

	return io.ErrNoProgress
}
