// SPDX-License-Identifier: EPL-2.0

package record

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ik5/mixrec/audio"
)

const (
	DefaultQueueDuration = 2 * time.Second
	DefaultFlushInterval = 20 * time.Millisecond

	flushFrames = 4096
)

// Recorder taps mixed output on the render callback and writes it to a
// Sink from its own goroutine. A Recorder is reusable: Idle, Recording,
// Idle, Recording again.
type Recorder struct {
	format        audio.Format
	opener        Opener
	queueFrames   int
	flushInterval time.Duration
	logger        *slog.Logger
	onError       func(error)

	ring *ring

	// mu serializes Begin and Finish.
	mu      sync.Mutex
	session *session

	recording atomic.Bool
	ingesting atomic.Int32
	elapsed   atomic.Int64
	written   atomic.Uint64
	overruns  atomic.Uint64
	dropped   atomic.Uint64
	attached  atomic.Bool

	errMu   sync.Mutex
	lastErr error
}

type session struct {
	id   uuid.UUID
	dest string
	sink Sink
	stop chan struct{}
	done chan struct{}
	// err is set by the flush goroutine before done is closed.
	err error
}

type Option func(*Recorder)

// WithOpener replaces DefaultOpener.
func WithOpener(o Opener) Option {
	return func(r *Recorder) { r.opener = o }
}

// WithQueueFrames sets the capacity of the hand-off queue in frames.
func WithQueueFrames(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.queueFrames = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(r *Recorder) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

// WithErrorHandler is called from the flush goroutine on write failures
// and overruns.
func WithErrorHandler(fn func(error)) Option {
	return func(r *Recorder) { r.onError = fn }
}

func New(format audio.Format, opts ...Option) (*Recorder, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	r := &Recorder{
		format:        format,
		opener:        DefaultOpener,
		queueFrames:   int(format.DurationToFrames(DefaultQueueDuration)),
		flushInterval: DefaultFlushInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.ring = newRing(r.queueFrames * format.Channels)

	return r, nil
}

func (r *Recorder) Format() audio.Format { return r.format }

// Recording reports whether ingested frames are being accepted.
func (r *Recorder) Recording() bool { return r.recording.Load() }

// BeginRecording opens dest and starts accepting frames.
func (r *Recorder) BeginRecording(dest string, fileType FileType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s := r.session; s != nil {
		if r.recording.Load() {
			return ErrAlreadyRecording
		}
		// The previous session failed on write and was never finished.
		close(s.stop)
		<-s.done
		r.session = nil
	}

	sink, err := r.opener(dest, fileType, r.format)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrSinkOpen, dest, err)
		r.setErr(err)
		return err
	}

	r.waitIngest()
	r.ring.reset()
	r.elapsed.Store(0)
	r.written.Store(0)
	r.overruns.Store(0)
	r.dropped.Store(0)
	r.setErr(nil)

	s := &session{
		id:   uuid.New(),
		dest: dest,
		sink: sink,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	r.session = s

	go r.flush(s)
	r.recording.Store(true)

	r.logger.Info("recording started",
		"session", s.id.String(),
		"dest", dest,
		"file_type", string(fileType),
		"format", r.format.String(),
	)

	return nil
}

// Attach claims r for a single producer. The ring tolerates only one
// writer, so a second Attach fails with ErrRecorderInUse until Detach.
func (r *Recorder) Attach() error {
	if !r.attached.CompareAndSwap(false, true) {
		return ErrRecorderInUse
	}

	return nil
}

// Detach releases the claim taken by Attach. The caller must ensure its
// producer no longer calls Ingest.
func (r *Recorder) Detach() { r.attached.Store(false) }

// Attached reports whether a producer holds r.
func (r *Recorder) Attached() bool { return r.attached.Load() }

// Ingest queues one buffer of mixed output. It is called on the render
// callback, never blocks and never allocates. A buffer that does not fit
// is dropped whole and counted as an overrun.
func (r *Recorder) Ingest(samples []float32) {
	r.ingesting.Add(1)
	defer r.ingesting.Add(-1)

	if !r.recording.Load() {
		return
	}

	frames := len(samples) / r.format.Channels
	r.elapsed.Add(int64(frames))
	if !r.ring.push(samples[:frames*r.format.Channels]) {
		r.overruns.Add(1)
		r.dropped.Add(uint64(frames))
	}
}

// FinishRecording stops accepting frames, writes everything already
// accepted and closes the sink. It returns the write error that ended the
// session early, if any, or ErrSinkFlush when closing fails.
func (r *Recorder) FinishRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	if s == nil {
		return ErrNotRecording
	}
	r.session = nil

	r.recording.Store(false)
	r.waitIngest()
	close(s.stop)
	<-s.done

	if s.err != nil {
		r.setErr(s.err)
	}

	r.logger.Info("recording finished",
		"session", s.id.String(),
		"dest", s.dest,
		"frames", r.written.Load(),
		"overruns", r.overruns.Load(),
		"error", s.err,
	)

	return s.err
}

// CurrentTime is the length of audio offered to the recorder in the
// current or last session, including dropped frames.
func (r *Recorder) CurrentTime() time.Duration {
	return r.format.FramesToDuration(r.elapsed.Load())
}

// Queued is the number of accepted frames not yet handed to the sink.
func (r *Recorder) Queued() int {
	return r.ring.len() / r.format.Channels
}

// Stats describes the current or last session.
type Stats struct {
	SessionID     uuid.UUID
	FramesWritten uint64
	Overruns      uint64
	DroppedFrames uint64
	Elapsed       time.Duration
}

func (r *Recorder) Stats() Stats {
	r.mu.Lock()
	var id uuid.UUID
	if r.session != nil {
		id = r.session.id
	}
	r.mu.Unlock()

	return Stats{
		SessionID:     id,
		FramesWritten: r.written.Load(),
		Overruns:      r.overruns.Load(),
		DroppedFrames: r.dropped.Load(),
		Elapsed:       r.CurrentTime(),
	}
}

// Err returns the last sink error, or nil.
func (r *Recorder) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()

	return r.lastErr
}

func (r *Recorder) setErr(err error) {
	r.errMu.Lock()
	r.lastErr = err
	r.errMu.Unlock()
}

func (r *Recorder) report(err error) {
	r.setErr(err)
	if r.onError != nil {
		r.onError(err)
	}
}

// waitIngest returns once no Ingest call is in flight.
func (r *Recorder) waitIngest() {
	for r.ingesting.Load() != 0 {
		runtime.Gosched()
	}
}

func (r *Recorder) flush(s *session) {
	defer close(s.done)

	buf := make([]float32, flushFrames*r.format.Channels)
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	var overruns uint64
	for {
		select {
		case <-s.stop:
			werr := r.drain(s.sink, buf)
			cerr := s.sink.Close()
			switch {
			case werr != nil:
				s.err = fmt.Errorf("%w: %w", ErrSinkWrite, werr)
			case cerr != nil:
				s.err = fmt.Errorf("%w: %w", ErrSinkFlush, cerr)
			}
			return
		case <-ticker.C:
		}

		if err := r.drain(s.sink, buf); err != nil {
			s.err = fmt.Errorf("%w: %w", ErrSinkWrite, err)
			r.recording.Store(false)
			_ = s.sink.Close()

			r.logger.Error("recording stopped", "session", s.id.String(), "error", s.err)
			r.report(s.err)

			return
		}

		if n := r.overruns.Load(); n != overruns {
			overruns = n
			dropped := r.dropped.Load()

			r.logger.Warn("recording overrun",
				"session", s.id.String(),
				"overruns", n,
				"dropped_frames", dropped,
			)
			r.report(fmt.Errorf("%w: %d buffers, %d frames dropped", ErrOverrun, n, dropped))
		}
	}
}

// drain writes everything queued to sink.
func (r *Recorder) drain(sink Sink, buf []float32) error {
	for {
		n := r.ring.pop(buf)
		if n == 0 {
			return nil
		}
		if err := sink.Append(buf[:n]); err != nil {
			return err
		}
		r.written.Add(uint64(n / r.format.Channels))
	}
}
