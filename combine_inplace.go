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

// combineValues resolves a value collision during a merge. It receives the
// value slots of both sides and yields the merged bytes, or present=false to
// drop the entry.
type combineValues func(a, b valueRef) (value []byte, present bool, err error)

// outerCombineWith merges node b, read against bs, into the node under cursor
// a, read against as. The rewrite distinguishes four prefix relations:
// identical prefixes merge field-wise, one side being an ancestor of the
// other pushes the longer side down as a child, and diverging prefixes split
// into a fresh parent with two children ordered by their leading bytes.
// Everything taken from the b side is converted, so the a tree never ends up
// referencing bs.
func outerCombineWith(a prefixCursor, as store.Store, b node, bs store.Store, f combineValues) error {
	ap, err := a.peek().load(as)
	if err != nil {
		return err
	}
	bp, err := b.prefix.load(bs)
	if err != nil {
		return err
	}
	n := commonPrefixLen(ap, bp)
	switch {
	case n == len(ap) && n == len(bp):
		// Identical prefixes, merge values and child sequences.
		av := a.move()
		var ac childrenCursor
		switch {
		case av.peek().present() && b.value.present():
			merged, present, err := f(av.peek(), b.value)
			if err != nil {
				return err
			}
			ac = av.push(merged, present)
		case av.peek().present():
			ac = av.move()
		default:
			ac, err = av.replaceConverted(b.value, bs)
			if err != nil {
				return err
			}
		}
		bc, err := b.children.load(bs)
		if err != nil {
			return err
		}
		_, err = outerCombineChildrenWith(ac, as, bc, bs, f)
		return err

	case n == len(ap):
		// a's prefix is a proper prefix of b's, push b below a.
		ac := a.move().move()
		shortened := &seqBuilder{}
		if err := shortened.pushShortened(b, bs, n); err != nil {
			shortened.release()
			return err
		}
		defer shortened.release()
		_, err = outerCombineChildrenWith(ac, as, childSeq{data: shortened.buf}, bs, f)
		return err

	case n == len(bp):
		// b's prefix is a proper prefix of a's, split a and adopt b's fields.
		child := &seqBuilder{}
		defer child.release()
		child.pushPrefix(ap[n:])
		av := a.push(ap[:n])
		child.pushValueRef(av.peek())
		ac, err := av.replaceConverted(b.value, bs)
		if err != nil {
			return err
		}
		child.pushChildrenRef(ac.peek())
		acs := ac.setSeq(child)
		bc, err := b.children.load(bs)
		if err != nil {
			return err
		}
		_, err = outerCombineChildrenWith(acs, as, bc, bs, f)
		return err

	default:
		// Diverging prefixes, a fresh parent holds the common part and both
		// remainders as children ordered by their leading bytes.
		// An inline ap aliases the gap buffer, so the diverging bytes must be
		// captured before the pushes below overwrite the prefix in place.
		an, bn := ap[n], bp[n]
		child := &seqBuilder{}
		defer child.release()
		child.pushPrefix(ap[n:])
		av := a.push(ap[:n])
		child.pushValueRef(av.peek())
		ac := av.push(nil, false)
		child.pushChildrenRef(ac.peek())

		children := &seqBuilder{}
		childNode, _ := mustReadNode(child.buf)
		if an <= bn {
			children.pushNode(childNode)
			if err := children.pushShortenedConverted(b, bs, n); err != nil {
				children.release()
				return err
			}
		} else {
			if err := children.pushShortenedConverted(b, bs, n); err != nil {
				children.release()
				return err
			}
			children.pushNode(childNode)
		}
		ac.pushSeq(children)
		return nil
	}
}

// outerCombineChildrenWith runs the sorted merge join of the child sequence
// under cursor a and the encoded sequence bc. Matching leading bytes recurse
// into outerCombineWith, unmatched a nodes are kept, unmatched b nodes are
// inserted converted.
func outerCombineChildrenWith(a childrenCursor, as store.Store, bc childSeq, bs store.Store, f combineValues) (prefixCursor, error) {
	if len(bc.data) == 0 {
		return a.move(), nil
	}
	if a.peek().isEmpty() {
		converted := &seqBuilder{}
		r := seqReader{rest: bc.data}
		for !r.done() {
			bn, err := r.next()
			if err != nil {
				converted.release()
				return prefixCursor{}, err
			}
			if err := converted.pushConverted(bn, bs); err != nil {
				converted.release()
				return prefixCursor{}, err
			}
		}
		return a.pushSeq(converted), nil
	}
	return a.mutate(as, func(sub *inPlaceBuilder) error {
		r := seqReader{rest: bc.data}
		for {
			af, aok := sub.peekFirst()
			bf, bok, err := r.peekFirst()
			if err != nil {
				return err
			}
			switch {
			case !aok && !bok:
				return nil
			case !aok:
				bn, err := r.next()
				if err != nil {
					return err
				}
				if err := sub.insertConverted(bn, bs); err != nil {
					return err
				}
			case !bok:
				sub.moveOne()
			default:
				switch cmpOptByte(af, bf) {
				case -1:
					sub.moveOne()
				case 1:
					bn, err := r.next()
					if err != nil {
						return err
					}
					if err := sub.insertConverted(bn, bs); err != nil {
						return err
					}
				default:
					bn, err := r.next()
					if err != nil {
						return err
					}
					if err := outerCombineWith(sub.cursor(), as, bn, bs, f); err != nil {
						return err
					}
				}
			}
		}
	})
}
