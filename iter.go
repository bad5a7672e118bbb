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
	"iter"
	"sync/atomic"
)

// Iterator yields the tree's entries in lexicographic key order. It follows
// the scanner idiom:
//
//	iter := tree.Iterator()
//	defer iter.Close()
//	for iter.Next() {
//		process(iter.Key(), iter.Value())
//	}
//	if err := iter.Err(); err != nil { ... }
//
// The iterator pins the subtrees it still has to visit, so the source tree
// may be mutated or released while iteration is in progress without affecting
// the entries yielded.
type Iterator struct {
	tree  *Tree
	root  []byte
	stack []iterFrame
	path  *iterKey
	key   []byte
	value []byte
	err   error
}

// iterFrame is one level of the descent: the unvisited part of a sibling
// sequence, the length of the prefix that led into it, and the pinned block
// backing the sequence data, if any.
type iterFrame struct {
	seq       seqReader
	prefixLen int
	handle    uint64
}

// Iterator creates an iterator over all entries of the tree.
func (t *Tree) Iterator() *Iterator {
	root := append([]byte(nil), t.root...)
	retainSeq(root)
	return &Iterator{
		tree:  t,
		root:  root,
		stack: []iterFrame{{seq: seqReader{rest: root}}},
		path:  newIterKey(),
	}
}

// Values creates an iterator yielding the tree's values in key order without
// the key bookkeeping; Key returns nil on it.
func (t *Tree) Values() *Iterator {
	iter := t.Iterator()
	iter.path = nil
	return iter
}

// All ranges over all entries in lexicographic key order. Store read
// failures end the iteration early; use Iterator directly to observe them.
func (t *Tree) All() iter.Seq2[[]byte, []byte] {
	return func(yield func([]byte, []byte) bool) {
		it := t.Iterator()
		defer it.Close()
		for it.Next() {
			if !yield(it.Key(), it.Value()) {
				return
			}
		}
	}
}

// AllValues ranges over all values in key order.
func (t *Tree) AllValues() iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		it := t.Values()
		defer it.Close()
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}

// Next advances to the next entry. It returns false once the iteration is
// exhausted or failed; Err tells the two apart.
func (i *Iterator) Next() bool {
	if i.err != nil || i.stack == nil {
		return false
	}
	st := i.tree.store
	for len(i.stack) > 0 {
		top := &i.stack[len(i.stack)-1]
		if top.seq.done() {
			if i.path != nil {
				i.path.pop(top.prefixLen)
			}
			if top.handle != 0 {
				blocks.release(top.handle)
			}
			i.stack = i.stack[:len(i.stack)-1]
			continue
		}
		n, err := top.seq.next()
		if err != nil {
			return i.fail(err)
		}
		prefix, err := n.prefix.load(st)
		if err != nil {
			return i.fail(err)
		}
		if i.path != nil {
			i.path.push(prefix)
		}
		children, err := n.children.load(st)
		if err != nil {
			return i.fail(err)
		}
		// Pin the child block so a concurrent in-place mutation of the tree
		// copies instead of rewriting the bytes still to be visited.
		if children.handle != 0 {
			blocks.retain(children.handle)
		}
		i.stack = append(i.stack, iterFrame{
			seq:       seqReader{rest: children.data},
			prefixLen: len(prefix),
			handle:    children.handle,
		})
		// The node's own entry precedes all entries below it.
		if n.value.present() {
			value, _, err := n.value.load(st)
			if err != nil {
				return i.fail(err)
			}
			if i.path != nil {
				i.key = i.path.snapshot()
			}
			i.value = value
			return true
		}
	}
	i.release()
	return false
}

// Key returns the key of the current entry. The slice is valid until the
// iterator is closed.
func (i *Iterator) Key() []byte {
	return i.key
}

// Value returns the value of the current entry.
func (i *Iterator) Value() []byte {
	return i.value
}

// Err reports the first failure encountered, nil after a clean exhaustion.
func (i *Iterator) Err() error {
	return i.err
}

// Close releases the iterator's pins. It is idempotent and must be called
// when abandoning an unexhausted iterator.
func (i *Iterator) Close() error {
	i.release()
	return i.err
}

func (i *Iterator) fail(err error) bool {
	i.err = err
	i.release()
	return false
}

func (i *Iterator) release() {
	if i.stack == nil && i.root == nil {
		return
	}
	for _, f := range i.stack {
		if f.handle != 0 {
			blocks.release(f.handle)
		}
	}
	i.stack = nil
	releaseSeq(i.root)
	i.root = nil
}

// iterKey accumulates the key of the current entry along the descent path.
// Snapshots handed out by Key stay valid by copying on the next write after a
// snapshot was taken.
type iterKey struct {
	data   []byte
	shared *atomic.Int32
}

func newIterKey() *iterKey {
	return &iterKey{shared: new(atomic.Int32)}
}

func (k *iterKey) snapshot() []byte {
	k.shared.Store(1)
	return k.data
}

func (k *iterKey) ensureUnique() {
	if k.shared.Load() != 0 {
		k.data = append([]byte(nil), k.data...)
		k.shared = new(atomic.Int32)
	}
}

func (k *iterKey) push(p []byte) {
	k.ensureUnique()
	k.data = append(k.data, p...)
}

func (k *iterKey) pop(n int) {
	k.data = k.data[:len(k.data)-n]
}
