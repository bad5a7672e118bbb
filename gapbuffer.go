// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package triedb

// gapBuffer rewrites an encoded node sequence in place. The buffer is split
// into a finished target region [0, t1), a gap, and an unprocessed source
// region [s0, len). Rewrites move bytes from source to target, replace them
// with new encodings appended at t1, or skip them entirely; the gap absorbs
// growth so that most edits never shift the tail.
type gapBuffer struct {
	buf []byte
	t1  int
	s0  int
}

func newGapBuffer(buf []byte) *gapBuffer {
	return &gapBuffer{buf: buf}
}

func (g *gapBuffer) gap() int {
	return g.s0 - g.t1
}

// source returns the unprocessed region.
func (g *gapBuffer) source() []byte {
	return g.buf[g.s0:]
}

func (g *gapBuffer) hasRemaining() bool {
	return g.s0 < len(g.buf)
}

// reserve grows the gap to at least n bytes, shifting the source region.
func (g *gapBuffer) reserve(n int) {
	if g.gap() >= n {
		return
	}
	grow := n - g.gap()
	old := g.buf
	if cap(old)-len(old) >= grow {
		g.buf = old[:len(old)+grow]
	} else {
		g.buf = make([]byte, len(old)+grow, (len(old)+grow)*2)
		copy(g.buf, old[:g.t1])
	}
	copy(g.buf[g.s0+grow:], old[g.s0:])
	g.s0 += grow
}

func (g *gapBuffer) appendByte(b byte) {
	g.reserve(1)
	g.buf[g.t1] = b
	g.t1++
}

func (g *gapBuffer) appendBytes(data []byte) {
	g.reserve(len(data))
	copy(g.buf[g.t1:], data)
	g.t1 += len(data)
}

// forward moves n source bytes to the target unchanged.
func (g *gapBuffer) forward(n int) {
	copy(g.buf[g.t1:], g.buf[g.s0:g.s0+n])
	g.t1 += n
	g.s0 += n
}

// drop discards n source bytes.
func (g *gapBuffer) drop(n int) {
	g.s0 += n
}

// rewind moves target bytes written at or after mark back in front of the
// source region, making them the next bytes to be processed.
func (g *gapBuffer) rewind(mark int) {
	n := g.t1 - mark
	if n == 0 {
		return
	}
	copy(g.buf[g.s0-n:g.s0], g.buf[mark:g.t1])
	g.s0 -= n
	g.t1 = mark
}

// finish closes the gap and returns the rewritten sequence. The source region
// must have been fully consumed.
func (g *gapBuffer) finish() []byte {
	if g.hasRemaining() {
		panic("unprocessed source bytes left in gap buffer")
	}
	return g.buf[:g.t1]
}
