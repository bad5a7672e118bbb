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
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/0xsoniclabs/triedb/backend/store"
	"github.com/0xsoniclabs/triedb/backend/store/memory"
)

func testEntries() map[string][]byte {
	res := map[string][]byte{
		"a":      []byte("1"),
		"ab":     []byte("2"),
		"abc":    []byte("3"),
		"b":      {},
		"branch": bytes.Repeat([]byte{0xbb}, 500),
	}
	res[string(bytes.Repeat([]byte{'k'}, 300))] = []byte("long key")
	return res
}

func TestAttach_RoundTripsThroughAMemoryStore(t *testing.T) {
	require := require.New(t)
	original := FromMap(testEntries())
	defer original.Release()

	st := memory.NewStore()
	defer st.Close()

	attached, rootId, err := original.Attach(st)
	require.NoError(err)
	defer attached.Release()
	require.NotZero(rootId)
	require.Equal(entries(t, original), entries(t, attached))

	reopened, err := NewFromStore(st, rootId)
	require.NoError(err)
	defer reopened.Release()
	require.Equal(entries(t, original), entries(t, reopened))
	for key, want := range testEntries() {
		value, found, err := reopened.TryGet([]byte(key))
		require.NoError(err)
		require.True(found, "key %q", key)
		require.Equal(want, value)
	}
}

func TestAttach_LeavesNoSharedBlocksBehind(t *testing.T) {
	require := require.New(t)
	before := blocks.live()

	original := FromMap(testEntries())
	st := memory.NewStore()
	defer st.Close()
	attached, _, err := original.Attach(st)
	require.NoError(err)

	original.Release()
	attached.Release()
	require.Equal(before, blocks.live())
}

func TestDetach_MaterializesAllStorePayloads(t *testing.T) {
	require := require.New(t)
	original := FromMap(testEntries())
	defer original.Release()

	st := memory.NewStore()
	attached, _, err := original.Attach(st)
	require.NoError(err)
	defer attached.Release()

	detached, err := attached.Detach()
	require.NoError(err)
	defer detached.Release()

	// The detached tree must not need the store anymore.
	require.Nil(detached.store)
	require.Equal(entries(t, original), entries(t, detached))
}

func TestAttach_MergingAttachedTreesMaterializesTheResult(t *testing.T) {
	require := require.New(t)
	sa := memory.NewStore()
	sb := memory.NewStore()
	defer sa.Close()
	defer sb.Close()

	baseA := FromMap(map[string][]byte{"shared": []byte("a"), "left": bytes.Repeat([]byte{1}, 100)})
	baseB := FromMap(map[string][]byte{"shared": []byte("b"), "right": bytes.Repeat([]byte{2}, 100)})
	defer baseA.Release()
	defer baseB.Release()

	a, _, err := baseA.Attach(sa)
	require.NoError(err)
	defer a.Release()
	b, _, err := baseB.Attach(sb)
	require.NoError(err)
	defer b.Release()

	merged, err := a.TryOuterCombine(b, func(x, y Value) ([]byte, bool, error) {
		v, err := y.TryBytes()
		return v, true, err
	})
	require.NoError(err)
	defer merged.Release()

	// The result must be independent of both stores.
	require.Nil(merged.store)
	require.Equal(map[string]string{
		"shared": "b",
		"left":   string(bytes.Repeat([]byte{1}, 100)),
		"right":  string(bytes.Repeat([]byte{2}, 100)),
	}, entries(t, merged))
}

func TestAttach_ReportsIdentifierOverflow(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	writer := store.NewMockWriter(ctrl)
	writer.EXPECT().Append(gomock.Any()).Return(uint64(maxId+1), nil)

	tree := Single(bytes.Repeat([]byte{'x'}, maxInline+1), []byte("v"))
	defer tree.Release()

	_, _, err := tree.Attach(writer)
	require.ErrorIs(err, ErrIdOverflow)
}

func TestAttach_PropagatesWriteFailures(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	injected := fmt.Errorf("injected write failure")
	writer := store.NewMockWriter(ctrl)
	writer.EXPECT().Append(gomock.Any()).Return(uint64(0), injected)

	tree := Single([]byte("k"), bytes.Repeat([]byte{1}, maxInline+1))
	defer tree.Release()

	_, _, err := tree.Attach(writer)
	require.ErrorIs(err, injected)
}

func TestTryGet_PropagatesStoreReadFailures(t *testing.T) {
	require := require.New(t)
	st := memory.NewStore()
	defer st.Close()

	base := Single(bytes.Repeat([]byte{'p'}, 100), []byte("v"))
	defer base.Release()
	attached, rootId, err := base.Attach(st)
	require.NoError(err)
	attached.Release()

	ctrl := gomock.NewController(t)
	injected := fmt.Errorf("injected read failure")
	failing := store.NewMockStore(ctrl)
	failing.EXPECT().Read(rootId).Return(st.Read(rootId))
	failing.EXPECT().Read(gomock.Any()).Return(nil, injected).AnyTimes()

	reopened, err := NewFromStore(failing, rootId)
	require.NoError(err)
	defer reopened.Release()

	_, _, err = reopened.TryGet(bytes.Repeat([]byte{'p'}, 100))
	require.ErrorIs(err, injected)
}

func TestNewFromStore_ReportsUnknownRoots(t *testing.T) {
	require := require.New(t)
	st := memory.NewStore()
	defer st.Close()

	_, err := NewFromStore(st, 42)
	require.ErrorIs(err, store.ErrNotFound)
}

func TestNewFromStore_RejectsCorruptRoots(t *testing.T) {
	require := require.New(t)
	st := memory.NewStore()
	defer st.Close()

	id, err := st.Append([]byte{0xff, 0xff})
	require.NoError(err)

	_, err = NewFromStore(st, id)
	require.ErrorIs(err, ErrCorruptEncoding)
}
