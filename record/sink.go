// SPDX-License-Identifier: EPL-2.0

package record

import (
	"errors"
	"fmt"
	"os"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/formats/aiff"
	"github.com/ik5/mixrec/formats/wav"
)

// Sink receives recorded interleaved samples on the flush goroutine.
// Append must copy what it keeps; the slice is reused. Close finalizes the
// container.
type Sink interface {
	Append(samples []float32) error
	Close() error
}

// Opener creates the sink for a recording session.
type Opener func(dest string, fileType FileType, format audio.Format) (Sink, error)

// fileSink closes the underlying file after the encoder.
type fileSink struct {
	Sink
	f *os.File
}

func (s *fileSink) Close() error {
	return errors.Join(s.Sink.Close(), s.f.Close())
}

// DefaultOpener creates dest on disk and encodes it as fileType.
func DefaultOpener(dest string, fileType FileType, format audio.Format) (Sink, error) {
	if fileType != FileTypeWAV && fileType != FileTypeAIFF {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFileType, fileType)
	}

	f, err := os.Create(dest)
	if err != nil {
		return nil, err
	}

	var sink Sink
	switch fileType {
	case FileTypeWAV:
		sink, err = wav.NewSink(f, format)
	case FileTypeAIFF:
		sink, err = aiff.NewSink(f, format)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return nil, err
	}

	return &fileSink{Sink: sink, f: f}, nil
}
