// SPDX-License-Identifier: EPL-2.0

package mix_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mixrec/host"
	"github.com/ik5/mixrec/internal/audiotest"
	"github.com/ik5/mixrec/mix"
)

// pullUntil renders from drv on its own goroutine until stop is closed and
// hands every buffer to check.
func pullUntil(drv *host.Manual, frames, channels int, stop <-chan struct{}, check func([]float32)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		out := make([]float32, frames*channels)
		for {
			select {
			case <-stop:
				return
			default:
			}
			drv.PullInto(out)
			if check != nil {
				check(out)
			}
		}
	}()

	return done
}

func TestConcurrentAddRemoveUnderRender(t *testing.T) {
	const (
		writers    = 4
		operations = 10000
	)

	drv := host.NewManual()
	e, err := mix.Start(audiotest.MonoFormat, false,
		mix.WithDriver(drv),
		mix.WithLogger(quiet),
		mix.WithReclaimInterval(time.Millisecond),
	)
	require.NoError(t, err)

	var violations, corrupt atomic.Int64
	stop := make(chan struct{})
	rendering := pullUntil(drv, 32, 1, stop, func(out []float32) {
		for _, v := range out {
			if v < 0 || v > writers || v != float32(int(v)) {
				corrupt.Add(1)
			}
		}
	})

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		sentinels []*sentinel
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for i := range operations / writers / 2 {
				p := newSentinel(audiotest.MonoFormat, 1, &violations)
				mu.Lock()
				sentinels = append(sentinels, p)
				mu.Unlock()

				bus, err := e.AddTrack(p)
				if !assert.NoError(t, err) {
					return
				}
				if i%16 == 0 {
					e.Reclaim()
				}
				if !assert.NoError(t, e.RemoveTrack(bus)) {
					return
				}
			}
		}()
	}
	wg.Wait()

	close(stop)
	<-rendering
	require.NoError(t, e.Stop())

	assert.Zero(t, violations.Load(), "rendered a released source")
	assert.Zero(t, corrupt.Load(), "observed an inconsistent mix")
	assert.Len(t, sentinels, operations/2)
	for _, p := range sentinels {
		assert.True(t, p.closed.Load())
	}
	assert.Zero(t, e.Stats().PendingReclaim)
}

func TestConcurrentTransportControls(t *testing.T) {
	e, drv := startManual(t, audiotest.MonoFormat)

	tr := playing(t, audiotest.RampBuffer(audiotest.MonoFormat, 1000), mix.WithLoop(true))
	_, err := e.AddTrack(tr)
	require.NoError(t, err)

	stop := make(chan struct{})
	rendering := pullUntil(drv, 64, 1, stop, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		for i := range 5000 {
			tr.SetVolume(float32(i%10) / 10)
			tr.SetMuted(i%3 == 0)
			tr.SetLoop(i%2 == 0)
			tr.Seek(time.Duration(i%100) * time.Millisecond)
			if i%7 == 0 {
				tr.Pause()
			} else {
				tr.Play()
			}
		}
	}()
	wg.Wait()

	close(stop)
	<-rendering

	assert.LessOrEqual(t, tr.Position(), int64(tr.Frames()))
	assert.GreaterOrEqual(t, tr.Position(), int64(0))
}

func TestRepeatedStartStop(t *testing.T) {
	for range 100 {
		drv := host.NewManual()
		e, err := mix.Start(audiotest.MonoFormat, false,
			mix.WithDriver(drv),
			mix.WithLogger(quiet),
			mix.WithReclaimInterval(time.Millisecond),
		)
		require.NoError(t, err)

		var violations atomic.Int64
		p := newSentinel(audiotest.MonoFormat, 0.25, &violations)
		_, err = e.AddTrack(p)
		require.NoError(t, err)

		stop := make(chan struct{})
		rendering := pullUntil(drv, 16, 1, stop, nil)

		require.NoError(t, e.Stop())
		assert.True(t, p.closed.Load())

		close(stop)
		<-rendering
		require.Zero(t, violations.Load())
	}
}

func TestStartStopWithClock(t *testing.T) {
	for range 5 {
		var outputs atomic.Int64
		clock := host.NewClock(64, func([]float32) { outputs.Add(1) }, quiet)

		e, err := mix.Start(audiotest.MonoFormat, false, mix.WithDriver(clock), mix.WithLogger(quiet))
		require.NoError(t, err)

		var violations atomic.Int64
		p := newSentinel(audiotest.MonoFormat, 0.25, &violations)
		_, err = e.AddTrack(p)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return outputs.Load() > 0 }, 2*time.Second, time.Millisecond)
		require.NoError(t, e.Stop())

		after := outputs.Load()
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, after, outputs.Load())
		assert.True(t, p.closed.Load())
		assert.Zero(t, violations.Load())
	}
}
