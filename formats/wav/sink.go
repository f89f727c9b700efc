// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/utils"
)

// Sink encodes interleaved float32 samples as linear PCM WAV. Samples are
// clamped to [-1, 1]. The header is finalized by Close; the underlying
// writer is left open.
type Sink struct {
	enc      *wav.Encoder
	buf      *goaudio.IntBuffer
	bitDepth int
}

func NewSink(w io.WriteSeeker, format audio.Format) (*Sink, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	return &Sink{
		enc: wav.NewEncoder(w, format.SampleRate, format.BitsPerSample, format.Channels, formatPCM),
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: format.Channels,
				SampleRate:  format.SampleRate,
			},
			SourceBitDepth: format.BitsPerSample,
		},
		bitDepth: format.BitsPerSample,
	}, nil
}

func (s *Sink) Append(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}

	s.buf.Data = utils.AppendPCM(s.buf.Data[:0], samples, s.bitDepth)

	return s.enc.Write(s.buf)
}

func (s *Sink) Close() error {
	return s.enc.Close()
}
