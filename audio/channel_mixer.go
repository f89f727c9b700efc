// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMixer adapts the channel count of a Source. Downmixing to mono
// averages channels, upmixing from mono duplicates the single channel.
// Other layouts are rejected by NewChannelMixer.
type ChannelMixer struct {
	src   Source
	outCh int
	tmp   []float32
}

func NewChannelMixer(src Source, channels int) (*ChannelMixer, error) {
	inCh := src.Channels()
	if channels < 1 || (inCh != channels && inCh != 1 && channels != 1) {
		return nil, fmt.Errorf("%w: %d -> %d channels", ErrChannelLayout, inCh, channels)
	}

	return &ChannelMixer{
		src:   src,
		outCh: channels,
		tmp:   make([]float32, 4096),
	}, nil
}

func (m *ChannelMixer) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMixer) Channels() int   { return m.outCh }
func (m *ChannelMixer) BufSize() int    { return m.src.BufSize() }
func (m *ChannelMixer) Close() error {
	err := m.src.Close()
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	return nil
}

// FrameCount forwards the source's length hint, if any.
func (m *ChannelMixer) FrameCount() int {
	if fc, ok := m.src.(FrameCounter); ok {
		return fc.FrameCount()
	}

	return 0
}

func (m *ChannelMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if len(dst)%m.outCh != 0 {
		return 0, ErrInvalidDstSize
	}

	inCh := m.src.Channels()
	if inCh == m.outCh {
		return m.src.ReadSamples(dst)
	}

	frames := len(dst) / m.outCh
	samplesNeeded := frames * inCh

	// Grow tmp buffer if needed (but don't shrink to avoid thrashing)
	if cap(m.tmp) < samplesNeeded {
		m.tmp = make([]float32, max(samplesNeeded, 8192))
	}
	m.tmp = m.tmp[:samplesNeeded]

	n, err := m.src.ReadSamples(m.tmp)
	if n == 0 {
		return 0, err
	}
	got := n / inCh

	if inCh == 1 {
		for f := range got {
			v := m.tmp[f]
			base := f * m.outCh
			for c := range m.outCh {
				dst[base+c] = v
			}
		}

		return got * m.outCh, err
	}

	invChannels := float32(1.0) / float32(inCh)
	switch inCh {
	case 2:
		for f := range got {
			idx := f << 1
			dst[f] = (m.tmp[idx] + m.tmp[idx+1]) * 0.5
		}
	default:
		for f := range got {
			sum := float32(0)
			base := f * inCh
			for c := range inCh {
				sum += m.tmp[base+c]
			}
			dst[f] = sum * invChannels
		}
	}

	return got, err
}
