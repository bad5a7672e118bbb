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
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIterator_YieldsEntriesInLexicographicOrder(t *testing.T) {
	require := require.New(t)
	input := map[string][]byte{}
	for i := 0; i < 50; i++ {
		input[fmt.Sprintf("%03d", i*37%100)] = []byte{byte(i)}
	}
	tree := FromMap(input)
	defer tree.Release()

	var keys []string
	iter := tree.Iterator()
	defer iter.Close()
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	require.NoError(iter.Err())
	require.Len(keys, len(input))
	require.True(slices.IsSorted(keys))
}

func TestIterator_ParentEntryPrecedesDescendants(t *testing.T) {
	require := require.New(t)
	tree := FromMap(map[string][]byte{
		"a":   []byte("1"),
		"ab":  []byte("2"),
		"abc": []byte("3"),
	})
	defer tree.Release()

	var keys []string
	iter := tree.Iterator()
	defer iter.Close()
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	require.NoError(iter.Err())
	require.Equal([]string{"a", "ab", "abc"}, keys)
}

func TestIterator_KeysRemainValidAfterAdvancing(t *testing.T) {
	require := require.New(t)
	tree := FromMap(map[string][]byte{"aa": nil, "ab": nil, "b": nil})
	defer tree.Release()

	var keys [][]byte
	iter := tree.Iterator()
	defer iter.Close()
	for iter.Next() {
		keys = append(keys, iter.Key())
	}
	require.NoError(iter.Err())
	require.Equal([][]byte{[]byte("aa"), []byte("ab"), []byte("b")}, keys)
}

func TestIterator_SurvivesMutationOfTheSourceTree(t *testing.T) {
	require := require.New(t)
	tree := FromMap(map[string][]byte{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")})
	defer tree.Release()

	iter := tree.Iterator()
	defer iter.Close()
	require.True(iter.Next())
	require.Equal("a", string(iter.Key()))

	update := FromMap(map[string][]byte{"b": []byte("replaced"), "d": []byte("new")})
	defer update.Release()
	tree.OuterCombineWith(update, TakeRight)

	// The iterator keeps yielding the state it was started on.
	require.True(iter.Next())
	require.Equal("2", string(iter.Value()))
	require.True(iter.Next())
	require.Equal("c", string(iter.Key()))
	require.False(iter.Next())
	require.NoError(iter.Err())
}

func TestIterator_SurvivesReleaseOfTheSourceTree(t *testing.T) {
	require := require.New(t)
	tree := FromMap(map[string][]byte{"x": []byte("1"), "xy": []byte("2")})

	iter := tree.Iterator()
	defer iter.Close()
	tree.Release()

	count := 0
	for iter.Next() {
		count++
	}
	require.NoError(iter.Err())
	require.Equal(2, count)
}

func TestIterator_CloseIsIdempotentAndReleasesPins(t *testing.T) {
	require := require.New(t)
	before := blocks.live()

	tree := FromMap(map[string][]byte{"a": []byte("1"), "ab": []byte("2"), "b": []byte("3")})
	iter := tree.Iterator()
	iter.Next()
	require.NoError(iter.Close())
	require.NoError(iter.Close())
	tree.Release()

	require.Equal(before, blocks.live())
}

func TestIterator_ValuesSkipsKeyTracking(t *testing.T) {
	require := require.New(t)
	tree := FromMap(map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	defer tree.Release()

	var values []string
	iter := tree.Values()
	defer iter.Close()
	for iter.Next() {
		require.Nil(iter.Key())
		values = append(values, string(iter.Value()))
	}
	require.NoError(iter.Err())
	require.Equal([]string{"1", "2"}, values)
}

func TestIterator_AllSupportsRangingAndEarlyExit(t *testing.T) {
	require := require.New(t)
	tree := FromMap(map[string][]byte{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")})
	defer tree.Release()

	collected := map[string]string{}
	for key, value := range tree.All() {
		collected[string(key)] = string(value)
	}
	require.Len(collected, 3)

	count := 0
	for range tree.AllValues() {
		count++
		if count == 2 {
			break
		}
	}
	require.Equal(2, count)
}

func TestIterator_EmptyTreeYieldsNothing(t *testing.T) {
	require := require.New(t)
	tree := New()
	defer tree.Release()

	iter := tree.Iterator()
	defer iter.Close()
	require.False(iter.Next())
	require.NoError(iter.Err())
}
