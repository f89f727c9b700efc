// SPDX-License-Identifier: EPL-2.0

package audio

import "time"

// Buffer holds decoded interleaved samples in a fixed Format.
type Buffer struct {
	Format Format
	Data   []float32
}

// NewBuffer allocates a silent buffer of frames frames.
func NewBuffer(format Format, frames int) *Buffer {
	return &Buffer{
		Format: format,
		Data:   make([]float32, frames*format.Channels),
	}
}

// Frames is the number of complete frames in the buffer.
func (b *Buffer) Frames() int {
	if b == nil || b.Format.Channels == 0 {
		return 0
	}

	return len(b.Data) / b.Format.Channels
}

func (b *Buffer) Duration() time.Duration {
	return b.Format.FramesToDuration(int64(b.Frames()))
}
