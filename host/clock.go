// SPDX-License-Identifier: EPL-2.0

package host

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/mixrec/audio"
)

// Clock is a headless real-time Driver. A goroutine renders one buffer per
// period and hands it to an output function, standing in for a device.
type Clock struct {
	bufferFrames int
	output       func([]float32)
	logger       *slog.Logger

	mu      sync.Mutex
	format  audio.Format
	cb      Callback
	open    bool
	closed  bool
	stop    chan struct{}
	done    chan struct{}
	elapsed int64

	callbacks atomic.Uint64
	late      atomic.Uint64
}

// ClockStats reports how well the clock kept its deadline.
type ClockStats struct {
	Callbacks uint64
	// Late counts callbacks whose render plus output took longer than the
	// buffer period.
	Late uint64
}

// NewClock returns a Clock rendering bufferFrames frames per period. output
// runs on the clock goroutine and must not retain the slice; it may be nil.
func NewClock(bufferFrames int, output func([]float32), logger *slog.Logger) *Clock {
	if logger == nil {
		logger = slog.Default()
	}

	return &Clock{
		bufferFrames: bufferFrames,
		output:       output,
		logger:       logger,
	}
}

func (c *Clock) Open(format audio.Format, inputEnabled bool, cb Callback) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.open:
		return ErrAlreadyOpen
	case cb == nil:
		return ErrNilCallback
	case inputEnabled:
		return ErrInputRequired
	case c.bufferFrames <= 0:
		return ErrBufferSize
	}

	c.format = format
	c.cb = cb
	c.open = true

	return nil
}

func (c *Clock) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return ErrNotOpen
	}
	if c.stop != nil {
		return nil
	}

	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done, c.elapsed)

	c.logger.Debug("clock started",
		"buffer_frames", c.bufferFrames,
		"period", c.period(),
	)

	return nil
}

// Stop signals the clock goroutine and waits for it to exit.
func (c *Clock) Stop() error {
	c.mu.Lock()
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.mu.Unlock()

	if stop == nil {
		return nil
	}

	close(stop)
	<-done

	return nil
}

func (c *Clock) Close() error {
	if err := c.Stop(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.open = false
	c.closed = true
	c.cb = nil

	return nil
}

func (c *Clock) Stats() ClockStats {
	return ClockStats{
		Callbacks: c.callbacks.Load(),
		Late:      c.late.Load(),
	}
}

func (c *Clock) period() time.Duration {
	return c.format.FramesToDuration(int64(c.bufferFrames))
}

func (c *Clock) run(stop, done chan struct{}, sampleTime int64) {
	defer close(done)

	period := c.period()
	out := make([]float32, c.bufferFrames*c.format.Channels)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	defer func() {
		c.mu.Lock()
		c.elapsed = sampleTime
		c.mu.Unlock()
	}()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		start := time.Now()
		c.cb(RenderInfo{SampleTime: sampleTime, Frames: c.bufferFrames}, out)
		if c.output != nil {
			c.output(out)
		}
		sampleTime += int64(c.bufferFrames)

		c.callbacks.Add(1)
		if time.Since(start) > period {
			c.late.Add(1)
		}
	}
}
