// SPDX-License-Identifier: EPL-2.0

package record

import "sync/atomic"

// ring is a single-producer single-consumer queue of samples. push runs on
// the render callback and pop on the flush goroutine; neither blocks.
type ring struct {
	buf   []float32
	read  atomic.Uint64
	write atomic.Uint64
}

func newRing(size int) *ring {
	return &ring{buf: make([]float32, size)}
}

// push appends all of p or nothing.
func (r *ring) push(p []float32) bool {
	w := r.write.Load()
	size := uint64(len(r.buf))
	if uint64(len(p)) > size-(w-r.read.Load()) {
		return false
	}

	n := copy(r.buf[w%size:], p)
	copy(r.buf, p[n:])
	r.write.Store(w + uint64(len(p)))

	return true
}

// pop moves up to len(dst) samples into dst.
func (r *ring) pop(dst []float32) int {
	rd := r.read.Load()
	size := uint64(len(r.buf))
	n := int(min(r.write.Load()-rd, uint64(len(dst))))
	if n == 0 {
		return 0
	}

	c := copy(dst[:n], r.buf[rd%size:])
	copy(dst[c:n], r.buf)
	r.read.Store(rd + uint64(n))

	return n
}

func (r *ring) len() int {
	return int(r.write.Load() - r.read.Load())
}

// reset empties the ring. Neither side may be active.
func (r *ring) reset() {
	r.read.Store(0)
	r.write.Store(0)
}
