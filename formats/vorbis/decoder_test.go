// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// mockOggVorbisReader serves interleaved samples like oggvorbis.Reader,
// counting values rather than frames.
type mockOggVorbisReader struct {
	sampleRate int
	channels   int
	samples    []float32
	err        error
}

func (m *mockOggVorbisReader) SampleRate() int { return m.sampleRate }
func (m *mockOggVorbisReader) Channels() int   { return m.channels }

func (m *mockOggVorbisReader) Read(buf []float32) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if len(m.samples) == 0 {
		return 0, io.EOF
	}

	n := copy(buf, m.samples)
	m.samples = m.samples[n:]
	return n, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte("This is not Ogg Vorbis data")} {
		if _, err := (Decoder{}).Decode(bytes.NewReader(data)); err == nil {
			t.Errorf("Decode(%q) error = nil, want error", data)
		}
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		channels int
		samples  []float32
		dstLen   int
		want     int
	}{
		{"mono", 1, []float32{0.1, 0.2, 0.3}, 8, 3},
		{"stereo", 2, []float32{0.1, -0.1, 0.2, -0.2}, 4, 4},
		{"stereo odd dst", 2, []float32{0.1, -0.1, 0.2, -0.2}, 3, 2},
		{"surround", 6, make([]float32, 12), 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &source{
				dec:        &mockOggVorbisReader{sampleRate: 44100, channels: tt.channels, samples: tt.samples},
				sampleRate: 44100,
				channels:   tt.channels,
			}

			dst := make([]float32, tt.dstLen)
			n, err := src.ReadSamples(dst)
			if err != nil {
				t.Fatalf("ReadSamples() error = %v", err)
			}
			if n != tt.want {
				t.Fatalf("ReadSamples() = %d, want %d", n, tt.want)
			}
			for i := range n {
				if dst[i] != tt.samples[i] {
					t.Errorf("dst[%d] = %v, want %v", i, dst[i], tt.samples[i])
				}
			}
		})
	}
}

func TestSource_ReadSamples_EOF(t *testing.T) {
	t.Parallel()

	src := &source{dec: &mockOggVorbisReader{channels: 2}, channels: 2}

	n, err := src.ReadSamples(make([]float32, 4))
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("ReadSamples() = %d, %v; want 0, EOF", n, err)
	}

	if n, err := src.ReadSamples(make([]float32, 1)); n != 0 || err != nil {
		t.Errorf("ReadSamples() below one frame = %d, %v; want 0, nil", n, err)
	}
}

func TestSource_Metadata(t *testing.T) {
	t.Parallel()

	src := &source{sampleRate: 48000, channels: 2, frames: 96000}

	if src.SampleRate() != 48000 || src.Channels() != 2 || src.FrameCount() != 96000 {
		t.Errorf("metadata = %d/%d/%d", src.SampleRate(), src.Channels(), src.FrameCount())
	}
	if src.Close() != nil {
		t.Error("Close() returned an error")
	}
}
