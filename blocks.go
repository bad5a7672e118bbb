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

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// The shared-block table holds heap payloads referenced by shared references.
// Blocks are reference counted so that cloned trees can share subtrees while
// in-place mutations copy-on-write only when a block is actually shared.
//
// A block holding a node sequence releases the references embedded in its
// payload when its own count drops to zero, cascading through the subtree.

type block struct {
	refs atomic.Int32
	data []byte
	// seq marks payloads containing encoded node sequences, as opposed to
	// plain prefix or value bytes.
	seq bool
}

type blockTable struct {
	mu   sync.Mutex
	list []*block
	free []uint64
}

// blocks is the process-wide table. Handles embedded in encoded nodes index
// into it; handle zero is reserved as invalid.
var blocks = &blockTable{list: []*block{nil}}

// alloc registers data under a fresh handle with a reference count of one.
// The table takes ownership of the slice.
func (t *blockTable) alloc(data []byte, seq bool) uint64 {
	b := &block{data: data, seq: seq}
	b.refs.Store(1)
	t.mu.Lock()
	defer t.mu.Unlock()
	if n := len(t.free); n > 0 {
		h := t.free[n-1]
		t.free = t.free[:n-1]
		t.list[h] = b
		return h
	}
	t.list = append(t.list, b)
	return uint64(len(t.list) - 1)
}

func (t *blockTable) get(h uint64) *block {
	t.mu.Lock()
	defer t.mu.Unlock()
	if h == 0 || h >= uint64(len(t.list)) || t.list[h] == nil {
		panic(fmt.Sprintf("invalid shared block handle %d", h))
	}
	return t.list[h]
}

func (t *blockTable) retain(h uint64) {
	t.get(h).refs.Add(1)
}

// isUnique reports whether the block is referenced exactly once, permitting
// in-place mutation of its payload.
func (t *blockTable) isUnique(h uint64) bool {
	return t.get(h).refs.Load() == 1
}

// release drops one reference. When the count reaches zero the slot is freed
// and, for node-sequence payloads, all embedded references are released too.
func (t *blockTable) release(h uint64) {
	b := t.get(h)
	if b.refs.Add(-1) > 0 {
		return
	}
	t.mu.Lock()
	t.list[h] = nil
	t.free = append(t.free, h)
	t.mu.Unlock()
	// Cascade outside the lock; child blocks recurse through release again.
	if b.seq {
		releaseSeq(b.data)
	}
}

// take detaches the payload of a uniquely referenced block and frees its slot
// without releasing embedded references. The caller inherits ownership of all
// references contained in the returned data.
func (t *blockTable) take(h uint64) []byte {
	b := t.get(h)
	if b.refs.Load() != 1 {
		panic(fmt.Sprintf("taking payload of shared block %d with %d references", h, b.refs.Load()))
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.list[h] = nil
	t.free = append(t.free, h)
	return b.data
}

// live reports the number of allocated blocks. Used by tests to verify that
// retain and release calls balance out.
func (t *blockTable) live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for _, b := range t.list {
		if b != nil {
			count++
		}
	}
	return count
}

// retainSeq bumps every reference embedded in an encoded node sequence. The
// scan is per reference and does not care about field boundaries.
func retainSeq(data []byte) {
	for len(data) > 0 {
		r, rest := mustReadRef(data)
		r.retain()
		data = rest
	}
}

// releaseSeq drops every reference embedded in an encoded node sequence.
func releaseSeq(data []byte) {
	for len(data) > 0 {
		r, rest := mustReadRef(data)
		r.release()
		data = rest
	}
}
