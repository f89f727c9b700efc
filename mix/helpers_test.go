// SPDX-License-Identifier: EPL-2.0

package mix_test

import (
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ik5/mixrec/audio"
	"github.com/ik5/mixrec/host"
	"github.com/ik5/mixrec/mix"
)

var quiet = slog.New(slog.DiscardHandler)

// startManual starts an engine on a Manual driver with background
// reclamation disabled, so tests decide when Reclaim runs.
func startManual(t *testing.T, format audio.Format, opts ...mix.Option) (*mix.Engine, *host.Manual) {
	t.Helper()

	drv := host.NewManual()
	base := []mix.Option{
		mix.WithDriver(drv),
		mix.WithLogger(quiet),
		mix.WithReclaimInterval(0),
	}

	e, err := mix.Start(format, false, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Stop() })

	return e, drv
}

func playing(t *testing.T, buf *audio.Buffer, opts ...mix.TrackOption) *mix.Track {
	t.Helper()

	tr, err := mix.NewTrack(buf, opts...)
	require.NoError(t, err)
	tr.Play()

	return tr
}

// sentinel is an external source that emits a constant and notices being
// rendered after it was closed.
type sentinel struct {
	format     audio.Format
	value      float32
	closed     atomic.Bool
	violations *atomic.Int64
	hook       func()
}

func newSentinel(format audio.Format, value float32, violations *atomic.Int64) *sentinel {
	return &sentinel{format: format, value: value, violations: violations}
}

func (p *sentinel) ProduceFrames(_ host.RenderInfo, dst []float32) int {
	if p.closed.Load() && p.violations != nil {
		p.violations.Add(1)
	}
	if p.hook != nil {
		hook := p.hook
		p.hook = nil
		hook()
	}
	for i := range dst {
		dst[i] = p.value
	}

	return len(dst) / p.format.Channels
}

func (p *sentinel) Gain() float32        { return 1 }
func (p *sentinel) Playing() bool        { return true }
func (p *sentinel) Format() audio.Format { return p.format }

func (p *sentinel) Close() error {
	p.closed.Store(true)
	return nil
}
