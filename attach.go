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

// Attach writes the tree into the given store and returns a tree reading
// from it, together with the root identifier needed to reopen it through
// NewFromStore. Payloads small enough to stay inline do so, everything else
// moves behind store identifiers; child sequences are always written to the
// store bottom-up. The receiver stays untouched.
//
// Appends already issued are not rolled back on failure; with an ErrIdOverflow
// or write error the store may hold unreferenced blobs.
func (t *Tree) Attach(w store.Writer) (*Tree, uint64, error) {
	out := &seqBuilder{}
	if err := attachNode(t.rootNode(), t.store, w, out); err != nil {
		return nil, 0, err
	}
	id, err := w.Append(out.buf)
	if err != nil {
		return nil, 0, err
	}
	return &Tree{root: out.take(), store: w}, id, nil
}

// Detach materializes every store-resident payload of the tree, returning a
// tree independent of any store. The receiver stays untouched.
func (t *Tree) Detach() (*Tree, error) {
	out := &seqBuilder{}
	if err := out.pushConverted(t.rootNode(), t.store); err != nil {
		out.release()
		return nil, err
	}
	return &Tree{root: out.take()}, nil
}

// attachNode appends the store-resident encoding of n to out. The resulting
// triple contains only inline and identifier slots.
func attachNode(n node, src store.Store, w store.Writer, out *seqBuilder) error {
	prefix, err := n.prefix.load(src)
	if err != nil {
		return err
	}
	if len(prefix) <= maxInline {
		appendInlineRef(out, prefix)
	} else {
		id, err := w.Append(prefix)
		if err != nil {
			return err
		}
		// The leading byte travels with the identifier so that sibling
		// ordering never needs a store read.
		if err := appendIdRef(out, prefix[:1], id); err != nil {
			return err
		}
	}

	value, present, err := n.value.load(src)
	if err != nil {
		return err
	}
	switch {
	case !present:
		appendNone(out)
	case len(value) <= maxInline:
		appendInlineRef(out, value)
	default:
		id, err := w.Append(value)
		if err != nil {
			return err
		}
		if err := appendIdRef(out, nil, id); err != nil {
			return err
		}
	}

	seq, err := n.children.load(src)
	if err != nil {
		return err
	}
	if len(seq.data) == 0 {
		appendNone(out)
		return nil
	}
	sub := &seqBuilder{}
	r := seqReader{rest: seq.data}
	for !r.done() {
		child, err := r.next()
		if err != nil {
			return err
		}
		if err := attachNode(child, src, w, sub); err != nil {
			return err
		}
	}
	id, err := w.Append(sub.buf)
	if err != nil {
		return err
	}
	return appendIdRef(out, nil, id)
}
