// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"errors"
	"slices"
	"sync"
)

var (
	ErrWriteFailed = errors.New("memory sink write failed")
	ErrCloseFailed = errors.New("memory sink close failed")
)

// MemorySink collects appended frames in memory. It satisfies record.Sink.
type MemorySink struct {
	mu      sync.Mutex
	data    []float32
	appends int
	closed  bool

	// FailAfter makes Append fail once this many appends succeeded; zero
	// disables the failure.
	FailAfter int
	// FailClose makes Close return ErrCloseFailed.
	FailClose bool
}

func (s *MemorySink) Append(frames []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailAfter > 0 && s.appends >= s.FailAfter {
		return ErrWriteFailed
	}
	s.appends++
	s.data = append(s.data, frames...)

	return nil
}

func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.FailClose {
		return ErrCloseFailed
	}

	return nil
}

// Samples returns a copy of everything appended so far.
func (s *MemorySink) Samples() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.data)
}

func (s *MemorySink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}
