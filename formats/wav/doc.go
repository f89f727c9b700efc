// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes linear PCM WAV files through
// github.com/go-audio/wav.
//
// # Decoding
//
// Decoder accepts 16, 24 and 32-bit integer PCM with any channel count and
// sample rate. The returned audio.Source yields float32 samples in
// [-1.0, 1.0] and implements audio.FrameCounter:
//
//	src, err := wav.Decoder{}.Decode(file)
//	if err != nil {
//	    return err
//	}
//	frames := src.(audio.FrameCounter).FrameCount()
//
// Inputs that are not an io.ReadSeeker are read into memory first.
//
// # Encoding
//
// Sink is the recorder's WAV container. It converts float32 samples to the
// format's bit depth, saturating anything outside [-1.0, 1.0]:
//
//	f, _ := os.Create("take.wav")
//	sink, _ := wav.NewSink(f, audio.DefaultFormat())
//	_ = sink.Append(samples)
//	_ = sink.Close() // writes the final header
//	_ = f.Close()
package wav
