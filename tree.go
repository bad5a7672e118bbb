// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package triedb provides an embeddable key-value store organized as a
// byte-prefix-compressed radix tree. Node fields are encoded as tagged
// references that keep small payloads inline, share large subtrees through
// reference-counted blocks, and address store-resident data through opaque
// identifiers, so a tree can span main memory and a backing store.
package triedb

import (
	"slices"

	"golang.org/x/exp/maps"

	"github.com/0xsoniclabs/triedb/backend/store"
)

// Tree is an ordered map from byte-string keys to byte-string values. Trees
// are value-semantic through explicit Clone calls, sharing subtrees until one
// side mutates, and must be released when no longer used to balance the
// shared-block reference counts.
//
// A detached tree lives entirely in memory. Trees obtained from NewFromStore
// keep resolving identifier slots against their store; all operations
// converting or merging such trees materialize what they touch, so results
// never depend on the other side's store.
//
// Trees are not safe for concurrent use.
type Tree struct {
	root  []byte
	store store.Store
}

// New creates an empty detached tree.
func New() *Tree {
	return &Tree{root: emptyTreeSeq()}
}

// Single creates a detached tree holding exactly one entry.
func Single(key, value []byte) *Tree {
	return &Tree{root: singleTreeSeq(key, value)}
}

// FromMap creates a detached tree holding the given entries.
func FromMap(entries map[string][]byte) *Tree {
	keys := maps.Keys(entries)
	slices.Sort(keys)
	res := New()
	for _, key := range keys {
		single := Single([]byte(key), entries[key])
		res.OuterCombineWith(single, TakeRight)
		single.Release()
	}
	return res
}

// Entry pairs a key with its value.
type Entry struct {
	Key   []byte
	Value []byte
}

// FromSortedEntries creates a detached tree from entries given in ascending
// key order. Later entries win on duplicate keys.
func FromSortedEntries(entries []Entry) *Tree {
	res := New()
	for _, e := range entries {
		single := Single(e.Key, e.Value)
		res.OuterCombineWith(single, TakeRight)
		single.Release()
	}
	return res
}

// NewFromStore opens the tree rooted at the given identifier, as previously
// produced by Attach. The tree keeps reading from st on demand.
func NewFromStore(st store.Store, rootId uint64) (*Tree, error) {
	data, err := st.Read(rootId)
	if err != nil {
		return nil, err
	}
	root := append([]byte(nil), data...)
	if _, rest, err := readNode(root); err != nil {
		return nil, err
	} else if len(rest) != 0 {
		return nil, ErrCorruptEncoding
	}
	return &Tree{root: root, store: st}, nil
}

func (t *Tree) rootNode() node {
	n, _ := mustReadNode(t.root)
	return n
}

// Clone creates a tree holding the same entries. Subtrees are shared until
// either side mutates them.
func (t *Tree) Clone() *Tree {
	root := append([]byte(nil), t.root...)
	retainSeq(root)
	return &Tree{root: root, store: t.store}
}

// Release drops the tree's references into the shared-block table. The tree
// must not be used afterwards.
func (t *Tree) Release() {
	releaseSeq(t.root)
	t.root = nil
}

// IsEmpty reports whether the tree holds no entries.
func (t *Tree) IsEmpty() bool {
	return t.rootNode().isBare()
}

// Get returns a copy of the value stored for key. It panics on store
// failures; use TryGet for store-backed trees with fallible reads.
func (t *Tree) Get(key []byte) ([]byte, bool) {
	value, found, err := t.TryGet(key)
	if err != nil {
		panic(err)
	}
	return value, found
}

// TryGet returns a copy of the value stored for key.
func (t *Tree) TryGet(key []byte) ([]byte, bool, error) {
	outcome, n, _, err := find(t.store, t.rootNode(), key)
	if err != nil || outcome != findExact {
		return nil, false, err
	}
	value, found, err := n.value.load(t.store)
	if err != nil || !found {
		return nil, false, err
	}
	return append([]byte(nil), value...), true, nil
}

// Contains reports whether the tree holds an entry for key.
func (t *Tree) Contains(key []byte) bool {
	return must(t.TryContains(key))
}

func (t *Tree) TryContains(key []byte) (bool, error) {
	outcome, n, _, err := find(t.store, t.rootNode(), key)
	if err != nil || outcome != findExact {
		return false, err
	}
	return n.value.present(), nil
}

// First returns the smallest key and its value.
func (t *Tree) First() ([]byte, []byte, bool) {
	key, value, found, err := t.TryFirst()
	if err != nil {
		panic(err)
	}
	return key, value, found
}

func (t *Tree) TryFirst() ([]byte, []byte, bool, error) {
	key, value, found, err := firstEntry(t.store, t.rootNode(), nil)
	if err != nil || !found {
		return nil, nil, false, err
	}
	return key, append([]byte(nil), value...), true, nil
}

// Last returns the largest key and its value.
func (t *Tree) Last() ([]byte, []byte, bool) {
	key, value, found, err := t.TryLast()
	if err != nil {
		panic(err)
	}
	return key, value, found
}

func (t *Tree) TryLast() ([]byte, []byte, bool, error) {
	key, value, found, err := lastEntry(t.store, t.rootNode(), nil)
	if err != nil || !found {
		return nil, nil, false, err
	}
	return key, append([]byte(nil), value...), true, nil
}

// FilterPrefix returns a tree holding exactly the entries whose keys start
// with the given prefix, keys unchanged.
func (t *Tree) FilterPrefix(prefix []byte) *Tree {
	return must(t.TryFilterPrefix(prefix))
}

func (t *Tree) TryFilterPrefix(prefix []byte) (*Tree, error) {
	outcome, n, remaining, err := find(t.store, t.rootNode(), prefix)
	if err != nil {
		return nil, err
	}
	if outcome == findMiss {
		return New(), nil
	}
	// The found node becomes the new root; its prefix is rewritten to spell
	// the full path from the old root.
	rootPrefix := append([]byte(nil), prefix...)
	if outcome == findDescend {
		p, err := n.prefix.load(t.store)
		if err != nil {
			return nil, err
		}
		rootPrefix = append(rootPrefix, p[len(p)-remaining:]...)
	}
	res := &seqBuilder{}
	res.pushPrefix(rootPrefix)
	res.pushValueRef(n.value)
	res.pushChildrenRef(n.children)
	return &Tree{root: res.take(), store: t.store}, nil
}

// Value hands one side's collided value to a combine function.
type Value struct {
	ref   valueRef
	store store.Store
}

// Bytes returns a copy of the value. It panics on store failures; combine
// functions passed to the Try merge flavors should use TryBytes.
func (v Value) Bytes() []byte {
	return must(v.TryBytes())
}

func (v Value) TryBytes() ([]byte, error) {
	data, _, err := v.ref.load(v.store)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), data...), nil
}

// CombineFunc resolves a value collision during a merge. Returning false
// drops the colliding entry from the result.
type CombineFunc func(a, b Value) ([]byte, bool)

// TryCombineFunc is a CombineFunc that may fail, aborting the merge.
type TryCombineFunc func(a, b Value) ([]byte, bool, error)

// TakeLeft resolves collisions by keeping the left value.
var TakeLeft CombineFunc = func(a, b Value) ([]byte, bool) { return a.Bytes(), true }

// TakeRight resolves collisions by keeping the right value.
var TakeRight CombineFunc = func(a, b Value) ([]byte, bool) { return b.Bytes(), true }

func lift(f CombineFunc) TryCombineFunc {
	return func(a, b Value) ([]byte, bool, error) {
		value, present := f(a, b)
		return value, present, nil
	}
}

func (t *Tree) wrapCombine(that *Tree, f TryCombineFunc) combineValues {
	return func(av, bv valueRef) ([]byte, bool, error) {
		return f(Value{ref: av, store: t.store}, Value{ref: bv, store: that.store})
	}
}

// OuterCombine merges this tree with that into a fresh detached tree,
// resolving key collisions through f. Both inputs stay untouched.
func (t *Tree) OuterCombine(that *Tree, f CombineFunc) *Tree {
	return must(t.TryOuterCombine(that, lift(f)))
}

func (t *Tree) TryOuterCombine(that *Tree, f TryCombineFunc) (*Tree, error) {
	out := &seqBuilder{}
	err := outerCombine(t.rootNode(), t.store, that.rootNode(), that.store, t.wrapCombine(that, f), out)
	if err != nil {
		out.release()
		return nil, err
	}
	return &Tree{root: out.take()}, nil
}

// OuterCombineWith merges that into this tree in place, resolving key
// collisions through f. Unaffected subtrees are reused without copying; that
// stays untouched. It panics on store failures, TryOuterCombineWith is the
// fallible flavor.
func (t *Tree) OuterCombineWith(that *Tree, f CombineFunc) {
	b := newInPlaceBuilder(t.root)
	err := outerCombineWith(b.cursor(), t.store, that.rootNode(), that.store, t.wrapCombine(that, lift(f)))
	if err != nil {
		panic(err)
	}
	b.rewindAll()
	b.canonicalizeAll()
	t.root = b.finish()
}

// TryOuterCombineWith merges that into this tree, resolving key collisions
// through f. The merge is all or nothing: on failure the tree is unchanged.
// The merged tree is fully materialized and detached from any store.
func (t *Tree) TryOuterCombineWith(that *Tree, f TryCombineFunc) error {
	merged, err := t.TryOuterCombine(that, f)
	if err != nil {
		return err
	}
	releaseSeq(t.root)
	t.root = merged.root
	t.store = nil
	return nil
}
