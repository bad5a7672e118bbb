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

	"github.com/0xsoniclabs/triedb/backend/store"
)

// The three node fields share the tagged-reference encoding but differ in
// which variants they admit and how identifier payloads are laid out. The
// typed wrappers below keep those rules in one place.

// optByte is an optional leading prefix byte. Nodes with an empty prefix have
// none and sort before all others in a sibling sequence.
type optByte struct {
	b  byte
	ok bool
}

func someByte(b byte) optByte { return optByte{b: b, ok: true} }

// cmpOptByte orders sibling nodes by leading byte with absent sorting first.
func cmpOptByte(a, b optByte) int {
	switch {
	case !a.ok && !b.ok:
		return 0
	case !a.ok:
		return -1
	case !b.ok:
		return 1
	case a.b < b.b:
		return -1
	case a.b > b.b:
		return 1
	default:
		return 0
	}
}

// prefixRef is the prefix slot of a node. It is never absent; the empty
// prefix is an inline reference with no payload. Identifier payloads pack the
// leading prefix byte before the store identifier.
type prefixRef struct {
	r ref
}

func (p prefixRef) size() int  { return p.r.size() }
func (p prefixRef) retain()    { p.r.retain() }
func (p prefixRef) release()   { p.r.release() }
func (p prefixRef) bytes() ref { return p.r }

// first returns the leading byte of the prefix without touching the store.
func (p prefixRef) first() optByte {
	switch p.r.tag() {
	case tagInline:
		if payload := p.r.payload(); len(payload) > 0 {
			return someByte(payload[0])
		}
		return optByte{}
	case tagShared:
		return someByte(blocks.get(p.r.handle()).data[0])
	case tagId:
		return someByte(p.r.payload()[0])
	default:
		panic("absent prefix slot")
	}
}

func (p prefixRef) isEmpty() bool {
	return p.r.tag() == tagInline && len(p.r.payload()) == 0
}

// load resolves the prefix bytes, reading from st for identifier slots.
func (p prefixRef) load(st store.Store) ([]byte, error) {
	switch p.r.tag() {
	case tagInline:
		return p.r.payload(), nil
	case tagShared:
		return blocks.get(p.r.handle()).data, nil
	case tagId:
		return st.Read(decodeId(p.r.payload()[1:]))
	default:
		panic("absent prefix slot")
	}
}

// valueRef is the value slot of a node, absent when the node's key holds no
// entry. Identifier payloads are the bare store identifier.
type valueRef struct {
	r ref
}

func (v valueRef) size() int     { return v.r.size() }
func (v valueRef) retain()       { v.r.retain() }
func (v valueRef) release()      { v.r.release() }
func (v valueRef) bytes() ref    { return v.r }
func (v valueRef) present() bool { return !v.r.isNone() }

// load resolves the value bytes; the second result reports presence.
func (v valueRef) load(st store.Store) ([]byte, bool, error) {
	switch v.r.tag() {
	case tagNone:
		return nil, false, nil
	case tagInline:
		return v.r.payload(), true, nil
	case tagShared:
		return blocks.get(v.r.handle()).data, true, nil
	default:
		data, err := st.Read(decodeId(v.r.payload()))
		return data, true, err
	}
}

// childrenRef is the children slot of a node. Child sequences are never
// stored inline; they are either absent, a shared block, or a store
// identifier resolving to an encoded sequence.
type childrenRef struct {
	r ref
}

func (c childrenRef) size() int     { return c.r.size() }
func (c childrenRef) retain()       { c.r.retain() }
func (c childrenRef) release()      { c.r.release() }
func (c childrenRef) bytes() ref    { return c.r }
func (c childrenRef) isEmpty() bool { return c.r.isNone() }

// childSeq is a resolved child sequence. The handle is non-zero when the data
// is backed by a shared block, letting callers pin the block independently.
type childSeq struct {
	data   []byte
	handle uint64
}

// load resolves the encoded child sequence, reading from st for identifier
// slots.
func (c childrenRef) load(st store.Store) (childSeq, error) {
	switch c.r.tag() {
	case tagNone:
		return childSeq{}, nil
	case tagShared:
		h := c.r.handle()
		return childSeq{data: blocks.get(h).data, handle: h}, nil
	case tagId:
		data, err := st.Read(decodeId(c.r.payload()))
		return childSeq{data: data}, err
	default:
		panic(fmt.Sprintf("inline children slot with tag %d", c.r.tag()))
	}
}
