// SPDX-License-Identifier: EPL-2.0

package mix

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
	"github.com/ik5/mixrec/record"
)

const (
	DefaultMaxFrames       = 4096
	DefaultReclaimInterval = 100 * time.Millisecond
)

// snapshot is the immutable state read by Render. Writers replace it whole.
type snapshot struct {
	gen      uint64
	buses    []int
	sources  []FrameSource
	recorder *record.Recorder
}

func (s *snapshot) index(bus int) int {
	i, ok := slices.BinarySearch(s.buses, bus)
	if !ok {
		return -1
	}

	return i
}

// freeBus returns the lowest bus not in use.
func (s *snapshot) freeBus() int {
	for i, b := range s.buses {
		if b != i {
			return i
		}
	}

	return len(s.buses)
}

func (s *snapshot) with(bus int, src FrameSource) *snapshot {
	i, _ := slices.BinarySearch(s.buses, bus)

	return &snapshot{
		gen:      s.gen + 1,
		buses:    slices.Insert(slices.Clone(s.buses), i, bus),
		sources:  slices.Insert(slices.Clone(s.sources), i, src),
		recorder: s.recorder,
	}
}

func (s *snapshot) without(i int) *snapshot {
	return &snapshot{
		gen:      s.gen + 1,
		buses:    slices.Delete(slices.Clone(s.buses), i, i+1),
		sources:  slices.Delete(slices.Clone(s.sources), i, i+1),
		recorder: s.recorder,
	}
}

func (s *snapshot) withRecorder(r *record.Recorder) *snapshot {
	return &snapshot{
		gen:      s.gen + 1,
		buses:    s.buses,
		sources:  s.sources,
		recorder: r,
	}
}

// retired is a source waiting for the render epoch to move past tag.
type retired struct {
	src FrameSource
	tag uint64
}

// Engine is the mixer. Create it with Start.
type Engine struct {
	format          audio.Format
	input           bool
	driver          host.Driver
	logger          *slog.Logger
	maxFrames       int
	reclaimInterval time.Duration

	// mu serializes writers. Render never takes it.
	mu      sync.Mutex
	retired []retired
	stopped bool

	snap    atomic.Pointer[snapshot]
	running atomic.Bool
	// epoch is odd while a callback is in flight.
	epoch atomic.Uint64

	// scratch belongs to Render.
	scratch []float32

	callbacks   atomic.Uint64
	frames      atomic.Uint64
	maxCallback atomic.Int64

	reclaimStop chan struct{}
	reclaimDone chan struct{}
}

type Option func(*Engine)

// WithDriver selects the audio runtime. The default is host.NewManual().
func WithDriver(d host.Driver) Option {
	return func(e *Engine) { e.driver = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMaxFrames sizes the per-source scratch buffer. Longer callbacks are
// mixed in several passes.
func WithMaxFrames(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxFrames = n
		}
	}
}

// WithReclaimInterval sets how often removed sources are released in the
// background. Zero or less disables the background pass; Reclaim and Stop
// still release.
func WithReclaimInterval(d time.Duration) Option {
	return func(e *Engine) { e.reclaimInterval = d }
}

// Start validates format, opens and starts the driver and returns a running
// engine. When inputEnabled is set the driver must supply captured input,
// which a LiveInput source can play.
func Start(format audio.Format, inputEnabled bool, opts ...Option) (*Engine, error) {
	if err := format.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		format:          format,
		input:           inputEnabled,
		maxFrames:       DefaultMaxFrames,
		reclaimInterval: DefaultReclaimInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.driver == nil {
		e.driver = host.NewManual()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}

	e.scratch = make([]float32, e.maxFrames*format.Channels)
	e.snap.Store(&snapshot{})

	if err := e.driver.Open(format, inputEnabled, e.Render); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGraphInit, err)
	}

	e.running.Store(true)
	if err := e.driver.Start(); err != nil {
		e.running.Store(false)
		_ = e.driver.Close()
		return nil, fmt.Errorf("%w: %w", ErrGraphInit, err)
	}

	if e.reclaimInterval > 0 {
		e.reclaimStop = make(chan struct{})
		e.reclaimDone = make(chan struct{})
		go e.reclaimLoop()
	}

	e.logger.Info("mix engine started",
		"format", format.String(),
		"input", inputEnabled,
		"max_frames", e.maxFrames,
	)

	return e, nil
}

// Stop halts rendering and tears the engine down. After Stop returns no
// render callback is running or will run, every source has been released
// and the recorder, if any, is detached but not finished. Stop is
// idempotent.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.stopped = true
	e.running.Store(false)
	e.mu.Unlock()

	stopErr := e.driver.Stop()
	e.waitIdle()

	e.mu.Lock()
	cur := e.snap.Load()
	e.snap.Store(&snapshot{gen: cur.gen + 1})
	e.retire(cur.sources...)
	if cur.recorder != nil {
		cur.recorder.Detach()
	}
	e.mu.Unlock()

	if e.reclaimStop != nil {
		close(e.reclaimStop)
		<-e.reclaimDone
	}
	released := e.Reclaim()

	closeErr := e.driver.Close()

	e.logger.Info("mix engine stopped",
		"released", released,
		"callbacks", e.callbacks.Load(),
	)

	if err := errors.Join(stopErr, closeErr); err != nil {
		return fmt.Errorf("stop driver: %w", err)
	}

	return nil
}

// waitIdle spins until no callback is in flight. The driver has already
// guaranteed none will start.
func (e *Engine) waitIdle() {
	for e.epoch.Load()%2 != 0 {
		runtime.Gosched()
	}
}

// waitEpoch returns once the callback that was in flight at tag, if any,
// has finished.
func (e *Engine) waitEpoch(tag uint64) {
	if tag%2 == 0 {
		return
	}
	for e.epoch.Load() == tag {
		runtime.Gosched()
	}
}

// pending reports whether src was removed but not yet released. Callers
// hold e.mu.
func (e *Engine) pending(src FrameSource) bool {
	for _, r := range e.retired {
		if r.src == src {
			return true
		}
	}

	return false
}

// AddTrack registers src on the lowest free bus and returns it. The source
// is heard from the next callback on.
func (e *Engine) AddTrack(src FrameSource) (int, error) {
	if src == nil {
		return -1, ErrNilSource
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.Load() {
		return -1, ErrNotRunning
	}
	if src.Format() != e.format {
		return -1, fmt.Errorf("%w: %s, engine %s", ErrFormatMismatch, src.Format(), e.format)
	}
	if r, ok := src.(releaser); ok && r.released() {
		return -1, ErrTrackReleased
	}
	if _, ok := src.(*LiveInput); ok && !e.input {
		return -1, ErrInputDisabled
	}

	slot, hasSlot := src.(busSlot)
	if hasSlot && slot.Bus() >= 0 {
		return -1, fmt.Errorf("%w: bus %d", ErrAlreadyRegistered, slot.Bus())
	}

	cur := e.snap.Load()
	if slices.Contains(cur.sources, src) {
		return -1, ErrAlreadyRegistered
	}
	if e.pending(src) {
		return -1, ErrTrackPendingRelease
	}

	bus := cur.freeBus()
	if hasSlot {
		slot.setBus(bus)
	}
	e.snap.Store(cur.with(bus, src))

	e.logger.Debug("track added", "bus", bus, "tracks", len(cur.buses)+1)

	return bus, nil
}

// RemoveTrack unregisters the source on bus. Its memory is released once no
// callback can still be reading it.
func (e *Engine) RemoveTrack(bus int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.snap.Load()
	i := cur.index(bus)
	if i < 0 {
		return fmt.Errorf("%w: %d", ErrUnknownBus, bus)
	}

	e.snap.Store(cur.without(i))
	e.retire(cur.sources[i])

	e.logger.Debug("track removed", "bus", bus, "tracks", len(cur.buses)-1)

	return nil
}

// ClearTracks unregisters every source.
func (e *Engine) ClearTracks() {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.snap.Load()
	if len(cur.sources) == 0 {
		return
	}

	e.snap.Store(&snapshot{gen: cur.gen + 1, recorder: cur.recorder})
	e.retire(cur.sources...)

	e.logger.Debug("tracks cleared", "count", len(cur.sources))
}

// SetRecorder attaches r. Render feeds it the mixed output of every
// callback while it is recording.
func (e *Engine) SetRecorder(r *record.Recorder) error {
	if r == nil {
		return ErrRecorderNotAttached
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running.Load() {
		return ErrNotRunning
	}
	if r.Format() != e.format {
		return fmt.Errorf("%w: recorder %s, engine %s", ErrFormatMismatch, r.Format(), e.format)
	}

	cur := e.snap.Load()
	if cur.recorder != nil {
		return ErrRecorderAttached
	}
	if err := r.Attach(); err != nil {
		return err
	}
	e.snap.Store(cur.withRecorder(r))

	return nil
}

// RemoveRecorder detaches r and returns once no callback can still feed
// it, so r may then be attached elsewhere. It must not be called from
// Render.
func (e *Engine) RemoveRecorder(r *record.Recorder) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.snap.Load()
	if r == nil || cur.recorder != r {
		return ErrRecorderNotAttached
	}
	e.snap.Store(cur.withRecorder(nil))
	e.waitEpoch(e.epoch.Load())
	r.Detach()

	return nil
}

// Recorder returns the attached recorder or nil.
func (e *Engine) Recorder() *record.Recorder {
	return e.snap.Load().recorder
}

// Track returns the source registered on bus.
func (e *Engine) Track(bus int) (FrameSource, bool) {
	cur := e.snap.Load()
	i := cur.index(bus)
	if i < 0 {
		return nil, false
	}

	return cur.sources[i], true
}

// Buses lists the registered buses in ascending order.
func (e *Engine) Buses() []int {
	return slices.Clone(e.snap.Load().buses)
}

func (e *Engine) Format() audio.Format { return e.format }
func (e *Engine) Running() bool        { return e.running.Load() }

// Stats is a point-in-time view of engine counters.
type Stats struct {
	Callbacks      uint64
	Frames         uint64
	MaxCallback    time.Duration
	Tracks         int
	PendingReclaim int
	Generation     uint64
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	pending := len(e.retired)
	e.mu.Unlock()

	cur := e.snap.Load()

	return Stats{
		Callbacks:      e.callbacks.Load(),
		Frames:         e.frames.Load(),
		MaxCallback:    time.Duration(e.maxCallback.Load()),
		Tracks:         len(cur.sources),
		PendingReclaim: pending,
		Generation:     cur.gen,
	}
}
