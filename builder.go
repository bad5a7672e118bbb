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

import "github.com/0xsoniclabs/triedb/backend/store"

// seqBuilder assembles an encoded node sequence in a growing buffer. It owns
// one reference for every shared slot it appends; take hands that ownership
// to the caller, release drops it.
type seqBuilder struct {
	buf []byte
}

func (b *seqBuilder) appendByte(c byte) {
	b.buf = append(b.buf, c)
}

func (b *seqBuilder) appendBytes(data []byte) {
	b.buf = append(b.buf, data...)
}

func (b *seqBuilder) isEmpty() bool {
	return len(b.buf) == 0
}

// take detaches the assembled sequence together with the ownership of all
// references it contains. The builder is reset to empty.
func (b *seqBuilder) take() []byte {
	data := b.buf
	b.buf = nil
	return data
}

// release drops all references held by the assembled sequence and resets the
// builder. Safe on partially assembled triples since references are
// self-delimiting.
func (b *seqBuilder) release() {
	releaseSeq(b.buf)
	b.buf = nil
}

func (b *seqBuilder) pushPrefix(p []byte) {
	appendBlobRef(b, p)
}

func (b *seqBuilder) pushValue(v []byte, present bool) {
	if !present {
		appendNone(b)
		return
	}
	appendBlobRef(b, v)
}

// pushChildren wraps the child sequence into a shared block, or an absent
// slot when it is empty. Ownership of the child builder's references moves
// into the new block.
func (b *seqBuilder) pushChildren(children *seqBuilder) {
	if children.isEmpty() {
		appendNone(b)
		return
	}
	appendSharedRef(b, blocks.alloc(children.take(), true))
}

// pushValueRef copies the value slot's encoding, retaining a shared slot.
func (b *seqBuilder) pushValueRef(v valueRef) {
	v.retain()
	b.appendBytes(v.bytes())
}

// pushChildrenRef copies the children slot's encoding, retaining a shared
// slot.
func (b *seqBuilder) pushChildrenRef(c childrenRef) {
	c.retain()
	b.appendBytes(c.bytes())
}

// pushNode copies the node's encoding, retaining every shared slot.
func (b *seqBuilder) pushNode(n node) {
	n.retain()
	b.appendBytes(n.prefix.bytes())
	b.appendBytes(n.value.bytes())
	b.appendBytes(n.children.bytes())
}

// pushShortened copies the node with its first cut prefix bytes removed.
// Identifier slots in value and children are copied verbatim, so the result
// must only be read against the node's own store.
func (b *seqBuilder) pushShortened(n node, st store.Store, cut int) error {
	if cut > 0 {
		p, err := n.prefix.load(st)
		if err != nil {
			return err
		}
		b.pushPrefix(p[cut:])
	} else {
		n.prefix.retain()
		b.appendBytes(n.prefix.bytes())
	}
	n.value.retain()
	b.appendBytes(n.value.bytes())
	n.children.retain()
	b.appendBytes(n.children.bytes())
	return nil
}

// pushShortenedConverted is pushShortened with identifier slots materialized
// from st, producing a node readable without the store.
func (b *seqBuilder) pushShortenedConverted(n node, st store.Store, cut int) error {
	if cut > 0 || n.prefix.r.tag() == tagId {
		p, err := n.prefix.load(st)
		if err != nil {
			return err
		}
		b.pushPrefix(p[cut:])
	} else {
		n.prefix.retain()
		b.appendBytes(n.prefix.bytes())
	}
	if err := appendConvertedValue(b, n.value, st); err != nil {
		return err
	}
	return appendConvertedChildren(b, n.children, st)
}

// pushConverted copies the node with identifier slots materialized from st.
func (b *seqBuilder) pushConverted(n node, st store.Store) error {
	return appendConverted(b, n, st)
}

// emptyTreeSeq encodes the canonical empty tree, a single node with an empty
// prefix and neither value nor children.
func emptyTreeSeq() []byte {
	b := &seqBuilder{}
	b.pushPrefix(nil)
	b.pushValue(nil, false)
	appendNone(b)
	return b.take()
}

// singleTreeSeq encodes a tree holding exactly one entry.
func singleTreeSeq(key, value []byte) []byte {
	b := &seqBuilder{}
	b.pushPrefix(key)
	b.pushValue(value, true)
	appendNone(b)
	return b.take()
}
