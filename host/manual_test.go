// SPDX-License-Identifier: EPL-2.0

package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
)

var stereo = audio.Format{SampleRate: 8000, Channels: 2, BitsPerSample: 16, Interleaved: true}

func fill(value float32) host.Callback {
	return func(info host.RenderInfo, out []float32) host.Status {
		for i := range out {
			out[i] = value
		}
		return host.StatusOK
	}
}

func TestManualLifecycle(t *testing.T) {
	m := host.NewManual()

	require.ErrorIs(t, m.Start(), host.ErrNotOpen)
	require.ErrorIs(t, m.Open(stereo, false, nil), host.ErrNilCallback)
	require.NoError(t, m.Open(stereo, false, fill(0.5)))
	require.ErrorIs(t, m.Open(stereo, false, fill(0.5)), host.ErrAlreadyOpen)

	out, status := m.Pull(4)
	assert.Equal(t, host.StatusSilence, status, "not started")
	assert.Len(t, out, 8)
	assert.Equal(t, int64(0), m.SampleTime())

	require.NoError(t, m.Start())
	out, status = m.Pull(4)
	assert.Equal(t, host.StatusOK, status)
	for _, v := range out {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
	assert.Equal(t, int64(4), m.SampleTime())

	require.NoError(t, m.Stop())
	out, status = m.Pull(4)
	assert.Equal(t, host.StatusSilence, status)
	assert.Equal(t, make([]float32, 8), out)

	require.NoError(t, m.Close())
	require.ErrorIs(t, m.Open(stereo, false, fill(0.5)), host.ErrClosed)
}

func TestManualSampleTime(t *testing.T) {
	m := host.NewManual()

	var seen []int64
	require.NoError(t, m.Open(stereo, false, func(info host.RenderInfo, out []float32) host.Status {
		seen = append(seen, info.SampleTime)
		assert.Equal(t, info.Frames*2, len(out))
		return host.StatusOK
	}))
	require.NoError(t, m.Start())

	m.Pull(10)
	m.Pull(5)
	m.Pull(7)

	assert.Equal(t, []int64{0, 10, 15}, seen)
	assert.Equal(t, int64(22), m.SampleTime())
}

func TestManualInput(t *testing.T) {
	m := host.NewManual()

	var got []float32
	require.NoError(t, m.Open(stereo, true, func(info host.RenderInfo, out []float32) host.Status {
		got = append(got[:0], info.Input...)
		return host.StatusOK
	}))
	require.NoError(t, m.Start())
	require.NoError(t, m.SetInput([]float32{0.1, 0.2}))

	m.Pull(2)
	assert.Equal(t, []float32{0.1, 0.2, 0, 0}, got)
}

func TestManualInputRequiresDuplex(t *testing.T) {
	m := host.NewManual()
	require.NoError(t, m.Open(stereo, false, fill(0)))

	assert.ErrorIs(t, m.SetInput([]float32{1}), host.ErrInputRequired)
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "ok", host.StatusOK.String())
	assert.Equal(t, "silence", host.StatusSilence.String())
	assert.Equal(t, "unknown", host.Status(42).String())
}
