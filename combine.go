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

// The allocating merge engine builds the merged tree into a fresh builder
// instead of rewriting either input. It leaves both inputs untouched, which
// makes it the basis for the fallible merge flavors: a failure simply
// discards the partial result.

// mergedValue defers the encoding of a merged value slot, either computed
// bytes or one side's slot to be copied converted.
type mergedValue struct {
	present bool
	isRef   bool
	data    []byte
	ref     valueRef
	store   store.Store
}

func (m mergedValue) push(out *seqBuilder) error {
	switch {
	case !m.present:
		out.pushValue(nil, false)
		return nil
	case m.isRef:
		return appendConvertedValue(out, m.ref, m.store)
	default:
		out.pushValue(m.data, true)
		return nil
	}
}

// outerCombine merges nodes a and b, read against their respective stores,
// and appends the detached merged triple to out. Bare results are emitted in
// canonical form.
func outerCombine(a node, as store.Store, b node, bs store.Store, f combineValues, out *seqBuilder) error {
	ap, err := a.prefix.load(as)
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
		// Identical prefixes, merge values and join the child sequences.
		var value mergedValue
		switch {
		case a.value.present() && b.value.present():
			data, present, err := f(a.value, b.value)
			if err != nil {
				return err
			}
			value = mergedValue{present: present, data: data}
		case a.value.present():
			value = mergedValue{present: true, isRef: true, ref: a.value, store: as}
		case b.value.present():
			value = mergedValue{present: true, isRef: true, ref: b.value, store: bs}
		}
		ac, err := a.children.load(as)
		if err != nil {
			return err
		}
		bc, err := b.children.load(bs)
		if err != nil {
			return err
		}
		children, err := outerCombineChildren(ac.data, as, bc.data, bs, f)
		if err != nil {
			return err
		}
		return emitMerged(out, ap, value, children)

	case n == len(ap):
		// a's prefix is a proper prefix of b's, b joins a's children.
		shortened := &seqBuilder{}
		if err := shortened.pushShortened(b, bs, n); err != nil {
			shortened.release()
			return err
		}
		defer shortened.release()
		ac, err := a.children.load(as)
		if err != nil {
			return err
		}
		children, err := outerCombineChildren(ac.data, as, shortened.buf, bs, f)
		if err != nil {
			return err
		}
		value := mergedValue{present: a.value.present(), isRef: true, ref: a.value, store: as}
		return emitMerged(out, ap, value, children)

	case n == len(bp):
		// b's prefix is a proper prefix of a's, a joins b's children.
		shortened := &seqBuilder{}
		if err := shortened.pushShortened(a, as, n); err != nil {
			shortened.release()
			return err
		}
		defer shortened.release()
		bc, err := b.children.load(bs)
		if err != nil {
			return err
		}
		children, err := outerCombineChildren(shortened.buf, as, bc.data, bs, f)
		if err != nil {
			return err
		}
		value := mergedValue{present: b.value.present(), isRef: true, ref: b.value, store: bs}
		return emitMerged(out, bp, value, children)

	default:
		// Diverging prefixes, both remainders become children of a fresh
		// node holding the common part and no value.
		children := &seqBuilder{}
		first, second, firstStore, secondStore := a, b, as, bs
		if bp[n] < ap[n] {
			first, second, firstStore, secondStore = b, a, bs, as
		}
		if err := children.pushShortenedConverted(first, firstStore, n); err != nil {
			children.release()
			return err
		}
		if err := children.pushShortenedConverted(second, secondStore, n); err != nil {
			children.release()
			return err
		}
		return emitMerged(out, ap[:n], mergedValue{}, children)
	}
}

// emitMerged appends the merged triple, taking ownership of the children
// builder. A node left without value and children collapses into the bare
// canonical form.
func emitMerged(out *seqBuilder, prefix []byte, value mergedValue, children *seqBuilder) error {
	if !value.present && children.isEmpty() {
		prefix = nil
	}
	out.pushPrefix(prefix)
	if err := value.push(out); err != nil {
		children.release()
		return err
	}
	out.pushChildren(children)
	return nil
}

// outerCombineChildren runs the sorted merge join of two encoded child
// sequences into a fresh builder. Matching leading bytes recurse into
// outerCombine, unmatched nodes are copied converted.
func outerCombineChildren(aseq []byte, as store.Store, bseq []byte, bs store.Store, f combineValues) (*seqBuilder, error) {
	res := &seqBuilder{}
	ar := seqReader{rest: aseq}
	br := seqReader{rest: bseq}
	fail := func(err error) (*seqBuilder, error) {
		res.release()
		return nil, err
	}
	for {
		af, aok, err := ar.peekFirst()
		if err != nil {
			return fail(err)
		}
		bf, bok, err := br.peekFirst()
		if err != nil {
			return fail(err)
		}
		take := 0
		switch {
		case !aok && !bok:
			return res, nil
		case !aok:
			take = 1
		case !bok:
			take = -1
		default:
			take = cmpOptByte(af, bf)
		}
		switch take {
		case -1:
			an, err := ar.next()
			if err != nil {
				return fail(err)
			}
			if err := res.pushConverted(an, as); err != nil {
				return fail(err)
			}
		case 1:
			bn, err := br.next()
			if err != nil {
				return fail(err)
			}
			if err := res.pushConverted(bn, bs); err != nil {
				return fail(err)
			}
		default:
			an, err := ar.next()
			if err != nil {
				return fail(err)
			}
			bn, err := br.next()
			if err != nil {
				return fail(err)
			}
			if err := outerCombine(an, as, bn, bs, f, res); err != nil {
				return fail(err)
			}
		}
	}
}
