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

// node is a view on one encoded triple of prefix, value, and children
// references. The three fields always appear in this order and the views
// alias the underlying buffer.
type node struct {
	prefix   prefixRef
	value    valueRef
	children childrenRef
}

// readNode splits one node triple off the front of buf and returns the rest.
func readNode(buf []byte) (node, []byte, error) {
	p, rest, err := readRef(buf)
	if err != nil {
		return node{}, nil, err
	}
	if p.isNone() {
		return node{}, nil, fmt.Errorf("%w: absent prefix slot", ErrCorruptEncoding)
	}
	v, rest, err := readRef(rest)
	if err != nil {
		return node{}, nil, err
	}
	c, rest, err := readRef(rest)
	if err != nil {
		return node{}, nil, err
	}
	if c.tag() == tagInline && len(c.payload()) > 0 {
		return node{}, nil, fmt.Errorf("%w: inline children slot", ErrCorruptEncoding)
	}
	return node{prefixRef{p}, valueRef{v}, childrenRef{c}}, rest, nil
}

func mustReadNode(buf []byte) (node, []byte) {
	n, rest, err := readNode(buf)
	if err != nil {
		panic(err)
	}
	return n, rest
}

func (n node) size() int {
	return n.prefix.size() + n.value.size() + n.children.size()
}

func (n node) retain() {
	n.prefix.retain()
	n.value.retain()
	n.children.retain()
}

func (n node) release() {
	n.prefix.release()
	n.value.release()
	n.children.release()
}

// seqReader walks the node triples of an encoded sibling sequence.
type seqReader struct {
	rest []byte
}

func (s *seqReader) done() bool {
	return len(s.rest) == 0
}

// peekFirst reports the leading prefix byte of the next node, if any. The
// second result is false once the sequence is exhausted.
func (s *seqReader) peekFirst() (optByte, bool, error) {
	if s.done() {
		return optByte{}, false, nil
	}
	n, _, err := readNode(s.rest)
	if err != nil {
		return optByte{}, false, err
	}
	return n.prefix.first(), true, nil
}

func (s *seqReader) next() (node, error) {
	n, rest, err := readNode(s.rest)
	if err != nil {
		return node{}, err
	}
	s.rest = rest
	return n, nil
}

// findChild scans a sibling sequence for the node whose prefix starts with
// the given byte. Sequences are ordered by leading byte, so the scan stops
// early once a larger byte is seen.
func findChild(seq []byte, first byte) (node, bool, error) {
	r := seqReader{rest: seq}
	for !r.done() {
		n, err := r.next()
		if err != nil {
			return node{}, false, err
		}
		lead := n.prefix.first()
		if !lead.ok {
			continue
		}
		if lead.b == first {
			return n, true, nil
		}
		if lead.b > first {
			break
		}
	}
	return node{}, false, nil
}

// isBare reports whether the node carries neither value nor children. Such
// nodes persist only with an empty prefix, as produced by canonicalization,
// and hold no entries.
func (n node) isBare() bool {
	return !n.value.present() && n.children.isEmpty()
}

// appendConverted re-encodes the node fields into e, ensuring the result is
// detached: identifier slots are materialized by reading st, shared slots are
// retained, and inline slots are copied.
func appendConverted(e extender, n node, st store.Store) error {
	if err := appendConvertedPrefix(e, n.prefix, st); err != nil {
		return err
	}
	if err := appendConvertedValue(e, n.value, st); err != nil {
		return err
	}
	return appendConvertedChildren(e, n.children, st)
}

func appendConvertedPrefix(e extender, p prefixRef, st store.Store) error {
	if p.r.tag() == tagId {
		data, err := p.load(st)
		if err != nil {
			return err
		}
		appendBlobRef(e, data)
		return nil
	}
	p.retain()
	e.appendBytes(p.bytes())
	return nil
}

func appendConvertedValue(e extender, v valueRef, st store.Store) error {
	if v.r.tag() == tagId {
		data, _, err := v.load(st)
		if err != nil {
			return err
		}
		appendBlobRef(e, data)
		return nil
	}
	v.retain()
	e.appendBytes(v.bytes())
	return nil
}

func appendConvertedChildren(e extender, c childrenRef, st store.Store) error {
	if c.r.tag() == tagId {
		seq, err := c.load(st)
		if err != nil {
			return err
		}
		sub := &seqBuilder{}
		r := seqReader{rest: seq.data}
		for !r.done() {
			n, err := r.next()
			if err != nil {
				sub.release()
				return err
			}
			if err := appendConverted(sub, n, st); err != nil {
				sub.release()
				return err
			}
		}
		if sub.isEmpty() {
			appendNone(e)
			return nil
		}
		appendSharedRef(e, blocks.alloc(sub.take(), true))
		return nil
	}
	c.retain()
	e.appendBytes(c.bytes())
	return nil
}
