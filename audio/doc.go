// SPDX-License-Identifier: EPL-2.0

// Package audio provides the data model and low-level stream primitives
// shared by the mixer, the recorder and the track loader.
//
// # Formats and Buffers
//
// Format describes the linear PCM layout used throughout a mixing session.
// Every track, the mix output and the recorder use one Format; nothing in
// the real-time path converts between formats.
//
//	f := audio.DefaultFormat() // 44.1kHz, stereo, 16-bit, interleaved
//	if err := f.Validate(); err != nil {
//	    // errors.Is(err, audio.ErrUnsupportedFormat)
//	}
//
// Buffer holds decoded interleaved float32 frames in a Format.
//
// # Source Interface
//
// Decoders expose audio as a Source, pulled in chunks of interleaved
// float32 samples:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// # Conversion
//
// Convert chains a Resampler and a ChannelMixer to bring a decoded
// Source to the session format, and ReadAll drains it into a Buffer:
//
//	src, _ := wav.Decoder{}.Decode(file)
//	conv, _ := audio.Convert(src, f)
//	buf, _ := audio.ReadAll(conv, f, 4096)
//
// Conversion runs in the loader, never during rendering.
//
// # Format Registry
//
// The registry maps file extensions to decoders:
//
//	registry := audio.NewRegistry()
//	registry.Register("wav", wav.Decoder{})
//	decoder, ok := registry.ForPath("drums.wav")
//
// # Sample Format
//
// Samples are float32, nominally in [-1.0, 1.0]. Sums produced by the mixer
// may exceed that range; clamping happens only when samples are written to
// a device or a file.
package audio
