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
	"io"
	"strings"

	"github.com/0xsoniclabs/triedb/backend/store"
)

// Dump writes a human-readable rendition of the tree's node structure to w,
// one node per line, annotated with how each field is represented. Intended
// for debugging and the inspection tool, not for machine consumption.
func (t *Tree) Dump(w io.Writer) error {
	return dumpNode(w, t.store, t.rootNode(), 0)
}

func dumpNode(w io.Writer, st store.Store, n node, depth int) error {
	indent := strings.Repeat("  ", depth)
	prefix, err := n.prefix.load(st)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s%q %s", indent, prefix, describeRef(n.prefix.r, 1))
	if n.value.present() {
		value, _, err := n.value.load(st)
		if err != nil {
			return err
		}
		line += fmt.Sprintf(" = %q %s", value, describeRef(n.value.r, 0))
	}
	if !n.children.isEmpty() {
		line += " " + describeRef(n.children.r, 0)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	seq, err := n.children.load(st)
	if err != nil {
		return err
	}
	r := seqReader{rest: seq.data}
	for !r.done() {
		child, err := r.next()
		if err != nil {
			return err
		}
		if err := dumpNode(w, st, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// describeRef renders the representation of one slot; lead is the number of
// packed lead bytes preceding an identifier payload.
func describeRef(r ref, lead int) string {
	switch r.tag() {
	case tagNone:
		return "(none)"
	case tagInline:
		return "(inline)"
	case tagShared:
		h := r.handle()
		return fmt.Sprintf("(block %d, %d refs)", h, blocks.get(h).refs.Load())
	default:
		return fmt.Sprintf("(id %d)", decodeId(r.payload()[lead:]))
	}
}
