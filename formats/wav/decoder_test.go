// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/mixrec/audio"
)

// wavBytes builds a canonical 44-byte-header WAV holding raw PCM data.
func wavBytes(formatTag uint16, sampleRate, channels, bits int, data []byte) []byte {
	var b bytes.Buffer

	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(data)))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, formatTag)
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(sampleRate*channels*bits/8))
	_ = binary.Write(&b, binary.LittleEndian, uint16(channels*bits/8))
	_ = binary.Write(&b, binary.LittleEndian, uint16(bits))

	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(data)))
	b.Write(data)

	return b.Bytes()
}

func pcm16(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func readAll(t *testing.T, src audio.Source) []float32 {
	t.Helper()

	var out []float32
	buf := make([]float32, 64)
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestDecoder_PCM16(t *testing.T) {
	t.Parallel()

	data := wavBytes(formatPCM, 8000, 2, 16, pcm16(0, 16384, -16384, 32767, -32768, 8192))

	src, err := Decoder{}.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if src.SampleRate() != 8000 || src.Channels() != 2 {
		t.Errorf("format = %dHz/%dch, want 8000Hz/2ch", src.SampleRate(), src.Channels())
	}
	if fc, ok := src.(audio.FrameCounter); !ok || fc.FrameCount() != 3 {
		t.Errorf("FrameCount() = %v, want 3", fc)
	}

	got := readAll(t, src)
	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1, 0.25}
	if len(got) != len(want) {
		t.Fatalf("read %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecoder_NotReadSeeker(t *testing.T) {
	t.Parallel()

	data := wavBytes(formatPCM, 16000, 1, 16, pcm16(1, 2, 3, 4))

	src, err := Decoder{}.Decode(io.MultiReader(bytes.NewReader(data)))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := len(readAll(t, src)); got != 4 {
		t.Errorf("read %d samples, want 4", got)
	}
}

func TestDecoder_Rejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not riff", []byte("this is not a wav file at all, just some text padding it out"), ErrNotWavFile},
		{"empty", nil, ErrNotWavFile},
		{"8 bit", wavBytes(formatPCM, 8000, 1, 8, []byte{1, 2, 3, 4}), ErrUnsupportedBitDepth},
		{"float", wavBytes(3, 8000, 1, 32, make([]byte, 16)), ErrUnsupportedEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decoder{}.Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

type stubReader struct {
	data []int
	err  error
}

func (r *stubReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	n := copy(buf.Data, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	src := &source{
		dec:        &stubReader{data: []int{4194304, -8388608, 0}},
		sampleRate: 48000,
		channels:   1,
		bitDepth:   24,
	}

	dst := make([]float32, 2)
	n, err := src.ReadSamples(dst)
	if n != 2 || err != nil {
		t.Fatalf("ReadSamples() = %d, %v; want 2, nil", n, err)
	}
	if dst[0] != 0.5 || dst[1] != -1 {
		t.Errorf("dst = %v, want [0.5 -1]", dst)
	}

	n, err = src.ReadSamples(dst)
	if n != 1 || !errors.Is(err, io.EOF) {
		t.Errorf("short read = %d, %v; want 1, EOF", n, err)
	}

	n, err = src.ReadSamples(dst)
	if n != 0 || !errors.Is(err, io.EOF) {
		t.Errorf("drained read = %d, %v; want 0, EOF", n, err)
	}

	if n, err := src.ReadSamples(nil); n != 0 || err != nil {
		t.Errorf("empty read = %d, %v; want 0, nil", n, err)
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	src := &source{dec: &stubReader{err: io.ErrUnexpectedEOF}, channels: 1, bitDepth: 16}

	if _, err := src.ReadSamples(make([]float32, 4)); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

func TestSink_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, bits := range []int{16, 24, 32} {
		format := audio.Format{SampleRate: 22050, Channels: 2, BitsPerSample: bits, Interleaved: true}

		path := filepath.Join(t.TempDir(), "out.wav")
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}

		sink, err := NewSink(f, format)
		if err != nil {
			t.Fatalf("NewSink(%d bits) error = %v", bits, err)
		}

		want := make([]float32, 2*300)
		for i := range want {
			want[i] = float32(math.Sin(float64(i)/10)) * 0.9
		}
		// Two appends exercise buffer reuse.
		if err := sink.Append(want[:256]); err != nil {
			t.Fatal(err)
		}
		if err := sink.Append(want[256:]); err != nil {
			t.Fatal(err)
		}
		if err := sink.Close(); err != nil {
			t.Fatal(err)
		}
		_ = f.Close()

		in, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}

		src, err := Decoder{}.Decode(in)
		if err != nil {
			t.Fatalf("%d bits: Decode() error = %v", bits, err)
		}
		if fc := src.(audio.FrameCounter).FrameCount(); fc != 300 {
			t.Errorf("%d bits: FrameCount() = %d, want 300", bits, fc)
		}

		got := readAll(t, src)
		_ = in.Close()

		if len(got) != len(want) {
			t.Fatalf("%d bits: read %d samples, want %d", bits, len(got), len(want))
		}
		for i := range want {
			if math.Abs(float64(got[i]-want[i])) > 1.0/8192 {
				t.Fatalf("%d bits: sample %d = %v, want %v", bits, i, got[i], want[i])
			}
		}
	}
}

func TestSink_Clamps(t *testing.T) {
	t.Parallel()

	format := audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16, Interleaved: true}
	path := filepath.Join(t.TempDir(), "loud.wav")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	sink, err := NewSink(f, format)
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Append([]float32{60, -60}); err != nil {
		t.Fatal(err)
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	src, err := Decoder{}.Decode(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	got := readAll(t, src)
	if len(got) != 2 || got[0] != 32767.0/32768.0 || got[1] != -32767.0/32768.0 {
		t.Errorf("clamped samples = %v", got)
	}
}

func TestNewSink_InvalidFormat(t *testing.T) {
	t.Parallel()

	_, err := NewSink(nil, audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 8, Interleaved: true})
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("NewSink() error = %v, want %v", err, audio.ErrUnsupportedFormat)
	}
}

func BenchmarkSource_ReadSamples(b *testing.B) {
	samples := make([]int16, 44100*2)
	data := wavBytes(formatPCM, 44100, 2, 16, pcm16(samples...))
	buf := make([]float32, 4096)

	b.ReportAllocs()
	for b.Loop() {
		src, err := Decoder{}.Decode(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		for {
			if _, err := src.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
