// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/utils"
)

// Sink encodes interleaved float32 samples as big-endian PCM AIFF, clamping
// to [-1, 1]. Close writes the final chunk sizes but does not close the
// writer.
type Sink struct {
	enc      *aiff.Encoder
	buf      *goaudio.IntBuffer
	bitDepth int
}

func NewSink(w io.WriteSeeker, format audio.Format) (*Sink, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	return &Sink{
		enc: aiff.NewEncoder(w, format.SampleRate, format.BitsPerSample, format.Channels),
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
