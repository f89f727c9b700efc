// SPDX-License-Identifier: EPL-2.0

package host_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mixrec/host"
)

func TestClockRendersUntilStopped(t *testing.T) {
	var outputs atomic.Int64
	c := host.NewClock(80, func(out []float32) {
		assert.Len(t, out, 160)
		outputs.Add(1)
	}, nil)

	var calls atomic.Int64
	var inFlight atomic.Int32
	require.NoError(t, c.Open(stereo, false, func(info host.RenderInfo, out []float32) host.Status {
		inFlight.Add(1)
		defer inFlight.Add(-1)
		calls.Add(1)
		return host.StatusOK
	}))
	require.NoError(t, c.Start())

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, c.Stop())
	assert.Zero(t, inFlight.Load())

	after := calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "no callbacks after Stop")
	assert.Equal(t, uint64(after), c.Stats().Callbacks)
	assert.Equal(t, after, outputs.Load())

	require.NoError(t, c.Close())
}

func TestClockResumesSampleTime(t *testing.T) {
	c := host.NewClock(40, nil, nil)

	var last atomic.Int64
	var calls atomic.Int64
	require.NoError(t, c.Open(stereo, false, func(info host.RenderInfo, out []float32) host.Status {
		last.Store(info.SampleTime)
		calls.Add(1)
		return host.StatusOK
	}))

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop())
	first := calls.Load()

	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return calls.Load() > first }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, c.Close())

	assert.GreaterOrEqual(t, last.Load(), first*40)
}

func TestClockOpenErrors(t *testing.T) {
	c := host.NewClock(64, nil, nil)
	assert.ErrorIs(t, c.Start(), host.ErrNotOpen)
	assert.ErrorIs(t, c.Open(stereo, true, fill(0)), host.ErrInputRequired)

	bad := host.NewClock(0, nil, nil)
	assert.ErrorIs(t, bad.Open(stereo, false, fill(0)), host.ErrBufferSize)

	require.NoError(t, c.Open(stereo, false, fill(0)))
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Open(stereo, false, fill(0)), host.ErrClosed)
}
