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

// inPlaceBuilder rewrites an encoded node sequence through a gap buffer. The
// typed cursors below enforce the prefix, value, children field order at
// compile time: each position only offers the operations valid for the field
// the rewrite has reached.
type inPlaceBuilder struct {
	g *gapBuffer
}

func newInPlaceBuilder(buf []byte) *inPlaceBuilder {
	return &inPlaceBuilder{g: newGapBuffer(buf)}
}

// cursor starts a triple rewrite at the next source node's prefix field.
func (b *inPlaceBuilder) cursor() prefixCursor {
	return prefixCursor{b: b}
}

// peekFirst reports the leading prefix byte of the next source node, if any.
func (b *inPlaceBuilder) peekFirst() (optByte, bool) {
	if !b.g.hasRemaining() {
		return optByte{}, false
	}
	n, _ := mustReadNode(b.g.source())
	return n.prefix.first(), true
}

// moveOne forwards the next source node unchanged.
func (b *inPlaceBuilder) moveOne() {
	b.cursor().move().move().move()
}

// insertConverted inserts a detached copy of n in front of the next source
// node, materializing identifier slots from st.
func (b *inPlaceBuilder) insertConverted(n node, st store.Store) error {
	vc, err := b.cursor().insert(n.prefix, st)
	if err != nil {
		return err
	}
	cc, err := vc.insertConverted(n.value, st)
	if err != nil {
		return err
	}
	_, err = cc.insertConverted(n.children, st)
	return err
}

// rewindAll moves all rewritten triples back into the source region.
func (b *inPlaceBuilder) rewindAll() {
	b.g.rewind(0)
}

// canonicalizeAll rewrites every source node that lost both value and
// children into the bare form with an empty prefix, keeping the sequence
// free of dangling paths.
func (b *inPlaceBuilder) canonicalizeAll() {
	for b.g.hasRemaining() {
		b.canonicalizeOne()
	}
}

func (b *inPlaceBuilder) canonicalizeOne() {
	mark := b.g.t1
	pc := b.cursor()
	prefixEmpty := pc.peek().isEmpty()
	vc := pc.move()
	valueAbsent := !vc.peek().present()
	cc := vc.move()
	childrenAbsent := cc.peek().isEmpty()
	cc.move()
	if valueAbsent && childrenAbsent && !prefixEmpty {
		b.g.rewind(mark)
		b.cursor().push(nil).push(nil, false).pushSeq(&seqBuilder{})
	}
}

// finish closes the gap and returns the rewritten sequence.
func (b *inPlaceBuilder) finish() []byte {
	return b.g.finish()
}

// prefixCursor rewrites the prefix field of the current node.
type prefixCursor struct {
	b *inPlaceBuilder
}

func (c prefixCursor) peek() prefixRef {
	r, _ := mustReadRef(c.b.g.source())
	return prefixRef{r}
}

func (c prefixCursor) dropCurrent() {
	cur := c.peek()
	cur.release()
	c.b.g.drop(cur.size())
}

// move forwards the prefix unchanged.
func (c prefixCursor) move() valueCursor {
	c.b.g.forward(c.peek().size())
	return valueCursor{c.b}
}

// push replaces the prefix with the given bytes.
func (c prefixCursor) push(p []byte) valueCursor {
	c.dropCurrent()
	appendBlobRef(c.b.g, p)
	return valueCursor{c.b}
}

// insert writes a detached copy of p without consuming a source field, used
// when inserting a whole node in front of the current one.
func (c prefixCursor) insert(p prefixRef, st store.Store) (valueCursor, error) {
	if err := appendConvertedPrefix(c.b.g, p, st); err != nil {
		return valueCursor{}, err
	}
	return valueCursor{c.b}, nil
}

// valueCursor rewrites the value field of the current node.
type valueCursor struct {
	b *inPlaceBuilder
}

func (c valueCursor) peek() valueRef {
	r, _ := mustReadRef(c.b.g.source())
	return valueRef{r}
}

func (c valueCursor) dropCurrent() {
	cur := c.peek()
	cur.release()
	c.b.g.drop(cur.size())
}

// move forwards the value unchanged.
func (c valueCursor) move() childrenCursor {
	c.b.g.forward(c.peek().size())
	return childrenCursor{c.b}
}

// push replaces the value.
func (c valueCursor) push(v []byte, present bool) childrenCursor {
	c.dropCurrent()
	if present {
		appendBlobRef(c.b.g, v)
	} else {
		appendNone(c.b.g)
	}
	return childrenCursor{c.b}
}

// replaceConverted replaces the value with a detached copy of v, reading st
// for identifier slots. The current field is only consumed once the copy is
// safely loaded.
func (c valueCursor) replaceConverted(v valueRef, st store.Store) (childrenCursor, error) {
	if v.r.tag() == tagId {
		data, _, err := v.load(st)
		if err != nil {
			return childrenCursor{}, err
		}
		return c.push(data, true), nil
	}
	v.retain()
	c.dropCurrent()
	c.b.g.appendBytes(v.bytes())
	return childrenCursor{c.b}, nil
}

// insertConverted writes a detached copy of v without consuming a source
// field.
func (c valueCursor) insertConverted(v valueRef, st store.Store) (childrenCursor, error) {
	if err := appendConvertedValue(c.b.g, v, st); err != nil {
		return childrenCursor{}, err
	}
	return childrenCursor{c.b}, nil
}

// childrenCursor rewrites the children field of the current node.
type childrenCursor struct {
	b *inPlaceBuilder
}

func (c childrenCursor) peek() childrenRef {
	r, _ := mustReadRef(c.b.g.source())
	return childrenRef{r}
}

func (c childrenCursor) dropCurrent() {
	cur := c.peek()
	cur.release()
	c.b.g.drop(cur.size())
}

// move forwards the children unchanged.
func (c childrenCursor) move() prefixCursor {
	c.b.g.forward(c.peek().size())
	return prefixCursor{c.b}
}

// pushSeq replaces the children with the given sequence, wrapped into a
// shared block, or with an absent slot when the sequence is empty. Ownership
// of the builder's references moves into the block.
func (c childrenCursor) pushSeq(children *seqBuilder) prefixCursor {
	c.dropCurrent()
	if children.isEmpty() {
		appendNone(c.b.g)
	} else {
		appendSharedRef(c.b.g, blocks.alloc(children.take(), true))
	}
	return prefixCursor{c.b}
}

// setSeq is pushSeq followed by a rewind, leaving the cursor in front of the
// freshly installed children so they can be rewritten further.
func (c childrenCursor) setSeq(children *seqBuilder) childrenCursor {
	mark := c.b.g.t1
	c.pushSeq(children)
	c.b.g.rewind(mark)
	return childrenCursor{c.b}
}

// insertConverted writes a detached copy of cr without consuming a source
// field.
func (c childrenCursor) insertConverted(cr childrenRef, st store.Store) (prefixCursor, error) {
	if err := appendConvertedChildren(c.b.g, cr, st); err != nil {
		return prefixCursor{}, err
	}
	return prefixCursor{c.b}, nil
}

// mutate detaches the current child sequence for rewriting by f and installs
// the result. Uniquely referenced blocks are rewritten in place; shared
// blocks and identifier slots are copied first. When f fails, the sequence is
// reinstalled as f left it so that reference accounting stays balanced, but
// the tree must be considered broken.
func (c childrenCursor) mutate(st store.Store, f func(*inPlaceBuilder) error) (prefixCursor, error) {
	cur := c.peek()
	var data []byte
	switch cur.r.tag() {
	case tagNone:
		data = nil
	case tagShared:
		h := cur.r.handle()
		if blocks.isUnique(h) {
			data = blocks.take(h)
		} else {
			data = append([]byte(nil), blocks.get(h).data...)
			retainSeq(data)
			blocks.release(h)
		}
	case tagId:
		seq, err := cur.load(st)
		if err != nil {
			return prefixCursor{}, err
		}
		data = append([]byte(nil), seq.data...)
	default:
		panic("inline children slot")
	}
	c.b.g.drop(cur.size())

	sub := newInPlaceBuilder(data)
	err := f(sub)
	sub.rewindAll()
	var out []byte
	if err == nil {
		sub.canonicalizeAll()
		out = sub.finish()
	} else {
		out = sub.g.source()
	}
	if len(out) == 0 {
		appendNone(c.b.g)
	} else {
		appendSharedRef(c.b.g, blocks.alloc(out, true))
	}
	return prefixCursor{c.b}, err
}
