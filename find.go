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

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// findOutcome classifies the result of descending along a key.
type findOutcome int

const (
	// findMiss means no node on the path corresponds to the key.
	findMiss findOutcome = iota
	// findExact means the returned node's path spells exactly the key.
	findExact
	// findDescend means the key ends inside the returned node's prefix;
	// remaining reports how many prefix bytes extend past the key.
	findDescend
)

// find descends from n along key. On findExact the returned node holds
// whatever the tree stores for the key, on findDescend every entry below the
// returned node starts with the key.
func find(st store.Store, n node, key []byte) (findOutcome, node, int, error) {
	for {
		prefix, err := n.prefix.load(st)
		if err != nil {
			return findMiss, node{}, 0, err
		}
		c := commonPrefixLen(prefix, key)
		switch {
		case c == len(key) && c == len(prefix):
			return findExact, n, 0, nil
		case c == len(key):
			return findDescend, n, len(prefix) - c, nil
		case c == len(prefix):
			seq, err := n.children.load(st)
			if err != nil {
				return findMiss, node{}, 0, err
			}
			child, ok, err := findChild(seq.data, key[c])
			if err != nil {
				return findMiss, node{}, 0, err
			}
			if !ok {
				return findMiss, node{}, 0, nil
			}
			n = child
			key = key[c:]
		default:
			return findMiss, node{}, 0, nil
		}
	}
}

// firstEntry returns the smallest key below n together with its value. The
// passed prefix is the path spelled so far; the returned key extends it.
func firstEntry(st store.Store, n node, prefix []byte) ([]byte, []byte, bool, error) {
	p, err := n.prefix.load(st)
	if err != nil {
		return nil, nil, false, err
	}
	prefix = append(prefix, p...)
	// The node's own entry precedes every descendant.
	if n.value.present() {
		v, _, err := n.value.load(st)
		if err != nil {
			return nil, nil, false, err
		}
		return prefix, v, true, nil
	}
	seq, err := n.children.load(st)
	if err != nil {
		return nil, nil, false, err
	}
	r := seqReader{rest: seq.data}
	for !r.done() {
		child, err := r.next()
		if err != nil {
			return nil, nil, false, err
		}
		key, v, ok, err := firstEntry(st, child, prefix)
		if err != nil || ok {
			return key, v, ok, err
		}
	}
	return nil, nil, false, nil
}

// lastEntry returns the largest key below n together with its value.
func lastEntry(st store.Store, n node, prefix []byte) ([]byte, []byte, bool, error) {
	p, err := n.prefix.load(st)
	if err != nil {
		return nil, nil, false, err
	}
	prefix = append(prefix, p...)
	seq, err := n.children.load(st)
	if err != nil {
		return nil, nil, false, err
	}
	// Descendants follow the node's own entry, walk children from the back.
	var children []node
	r := seqReader{rest: seq.data}
	for !r.done() {
		child, err := r.next()
		if err != nil {
			return nil, nil, false, err
		}
		children = append(children, child)
	}
	for i := len(children) - 1; i >= 0; i-- {
		key, v, ok, err := lastEntry(st, children[i], prefix)
		if err != nil || ok {
			return key, v, ok, err
		}
	}
	if n.value.present() {
		v, _, err := n.value.load(st)
		if err != nil {
			return nil, nil, false, err
		}
		return prefix, v, true, nil
	}
	return nil, nil, false, nil
}
