// SPDX-License-Identifier: EPL-2.0

// Package mp3 provides MP3 audio file decoding.
//
// This package uses github.com/hajimehoshi/go-mp3. The decoder always
// produces 16-bit stereo, which the source converts to float32 in
// [-1.0, 1.0]:
//
//	src, err := mp3.Decoder{}.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
// When the input is an io.Seeker the decoded length is known up front and
// reported through audio.FrameCounter; otherwise FrameCount is 0.
package mp3
