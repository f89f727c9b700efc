// SPDX-License-Identifier: EPL-2.0

package mix

import (
	"io"
	"time"
)

// retire queues sources for release. The tag is the epoch observed after
// the snapshot without them was published: an even tag means no callback
// was in flight, so none can hold the old snapshot; an odd tag is safe once
// the epoch moves past it. Callers hold e.mu.
func (e *Engine) retire(sources ...FrameSource) {
	tag := e.epoch.Load()
	for _, src := range sources {
		if slot, ok := src.(busSlot); ok {
			slot.setBus(-1)
		}
		e.retired = append(e.retired, retired{src: src, tag: tag})
	}
}

// Reclaim releases every retired source no callback can still reference
// and returns how many were released. It must not be called from Render.
func (e *Engine) Reclaim() int {
	now := e.epoch.Load()

	e.mu.Lock()
	var ready []FrameSource
	keep := e.retired[:0]
	for _, r := range e.retired {
		if r.tag%2 == 0 || now > r.tag {
			ready = append(ready, r.src)
			continue
		}
		keep = append(keep, r)
	}
	clear(e.retired[len(keep):])
	e.retired = keep
	e.mu.Unlock()

	for _, src := range ready {
		e.release(src)
	}

	return len(ready)
}

func (e *Engine) release(src FrameSource) {
	switch s := src.(type) {
	case releaser:
		s.release()
	case io.Closer:
		if err := s.Close(); err != nil {
			e.logger.Warn("closing released source", "error", err)
		}
	}
}

func (e *Engine) reclaimLoop() {
	defer close(e.reclaimDone)

	ticker := time.NewTicker(e.reclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.reclaimStop:
			return
		case <-ticker.C:
			if n := e.Reclaim(); n > 0 {
				e.logger.Debug("released sources", "count", n)
			}
		}
	}
}
