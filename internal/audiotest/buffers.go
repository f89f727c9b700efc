// SPDX-License-Identifier: EPL-2.0

package audiotest

import "github.com/ik5/mixrec/audio"

// MonoFormat is mono 16-bit at 8kHz, small enough for exhaustive checks.
var MonoFormat = audio.Format{SampleRate: 8000, Channels: 1, BitsPerSample: 16, Interleaved: true}

// StereoFormat is stereo 16-bit at 8kHz.
var StereoFormat = audio.Format{SampleRate: 8000, Channels: 2, BitsPerSample: 16, Interleaved: true}

// ConstantBuffer returns frames frames of value on every channel.
func ConstantBuffer(format audio.Format, frames int, value float32) *audio.Buffer {
	buf := audio.NewBuffer(format, frames)
	for i := range buf.Data {
		buf.Data[i] = value
	}

	return buf
}

// RampBuffer returns a buffer whose frame i holds float32(i) on every
// channel, which makes positions visible in rendered output.
func RampBuffer(format audio.Format, frames int) *audio.Buffer {
	buf := audio.NewBuffer(format, frames)
	for f := range frames {
		for c := range format.Channels {
			buf.Data[f*format.Channels+c] = float32(f)
		}
	}

	return buf
}
