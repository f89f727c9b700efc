// SPDX-License-Identifier: EPL-2.0

package host

import (
	"sync"

	"github.com/ik5/mixrec/audio"
)

// Manual is a Driver whose callbacks happen only when the caller pulls.
// It suits tests and offline rendering faster than real time.
type Manual struct {
	mu         sync.Mutex
	format     audio.Format
	cb         Callback
	open       bool
	started    bool
	closed     bool
	input      bool
	sampleTime int64
	out        []float32
	in         []float32
}

func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Open(format audio.Format, inputEnabled bool, cb Callback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.closed:
		return ErrClosed
	case m.open:
		return ErrAlreadyOpen
	case cb == nil:
		return ErrNilCallback
	}

	m.format = format
	m.cb = cb
	m.input = inputEnabled
	m.open = true

	return nil
}

func (m *Manual) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.open {
		return ErrNotOpen
	}
	m.started = true

	return nil
}

// Stop waits for an in-flight Pull to finish.
func (m *Manual) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = false

	return nil
}

func (m *Manual) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = false
	m.open = false
	m.closed = true
	m.cb = nil

	return nil
}

// SetInput sets the interleaved samples handed to the callback as captured
// input on subsequent pulls. The driver must have been opened with input
// enabled. Short input is zero-padded.
func (m *Manual) SetInput(samples []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.input {
		return ErrInputRequired
	}
	m.in = append(m.in[:0], samples...)

	return nil
}

// Pull renders frames frames and returns a copy of the output. A stopped
// driver yields silence without invoking the callback.
func (m *Manual) Pull(frames int) ([]float32, Status) {
	out := make([]float32, frames*max(m.channels(), 1))
	status := m.PullInto(out)

	return out, status
}

// PullInto renders len(out)/channels frames into out.
func (m *Manual) PullInto(out []float32) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started || m.cb == nil {
		clear(out)
		return StatusSilence
	}

	frames := len(out) / m.format.Channels
	info := RenderInfo{SampleTime: m.sampleTime, Frames: frames}

	if m.input {
		need := frames * m.format.Channels
		if len(m.in) < need {
			m.in = append(m.in, make([]float32, need-len(m.in))...)
		}
		info.Input = m.in[:need]
	}

	status := m.cb(info, out[:frames*m.format.Channels])
	m.sampleTime += int64(frames)

	return status
}

// SampleTime is the number of frames pulled so far.
func (m *Manual) SampleTime() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.sampleTime
}

func (m *Manual) channels() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.format.Channels
}
