// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF (Audio Interchange File Format) decoding and
// encoding.
//
// This package uses github.com/go-audio/aiff. AIFF is Apple's standard
// uncompressed format and the second container the recorder can write.
//
// # Supported Formats
//
//   - PCM 16, 24 and 32-bit
//   - Mono and multi-channel
//   - Any sample rate
//
// # Decoding AIFF Files
//
//	src, err := aiff.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]float32, 4096)
//	n, err := src.ReadSamples(buf)
//
// The frame count from the COMM chunk is available through
// audio.FrameCounter.
//
// # Writing AIFF Files
//
// Sink encodes float32 samples, clamped to [-1.0, 1.0], at the bit depth
// of the audio.Format it was created with. Close finalizes chunk sizes and
// leaves the writer open.
//
// # Error Handling
//
//   - ErrNotAiffFile: the input is not a valid AIFF file
//   - ErrUnsupportedBitDepth: sample size is not 16, 24 or 32 bits
//   - ErrUnsupportedAiffLayout: the header carries no usable format
package aiff
