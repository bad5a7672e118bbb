// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package storetest provides a conformance suite that every store.Writer
// implementation is expected to pass.
package storetest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xsoniclabs/triedb/backend/store"
)

// Factory creates a fresh, empty store for one test case. Cleanup is expected
// to be registered on the testing handle by the factory itself.
type Factory func(t *testing.T) store.Writer

// Run exercises the given store implementation with the conformance suite.
func Run(t *testing.T, factory Factory) {
	t.Run("AppendedBlobsCanBeReadBack", func(t *testing.T) {
		require := require.New(t)
		s := factory(t)

		blobs := [][]byte{
			[]byte("hello"),
			{},
			[]byte("world"),
			bytes.Repeat([]byte{0xab}, 1<<16),
		}
		ids := make([]uint64, len(blobs))
		for i, blob := range blobs {
			id, err := s.Append(blob)
			require.NoError(err)
			ids[i] = id
		}
		for i, blob := range blobs {
			got, err := s.Read(ids[i])
			require.NoError(err)
			require.Equal(blob, got)
		}
	})

	t.Run("IdentifiersAreUnique", func(t *testing.T) {
		require := require.New(t)
		s := factory(t)

		seen := map[uint64]bool{}
		for i := 0; i < 100; i++ {
			id, err := s.Append(fmt.Appendf(nil, "blob-%d", i))
			require.NoError(err)
			require.False(seen[id], "id %d handed out twice", id)
			seen[id] = true
		}
	})

	t.Run("ZeroIdIsNeverValid", func(t *testing.T) {
		require := require.New(t)
		s := factory(t)

		_, err := s.Read(0)
		require.ErrorIs(err, store.ErrNotFound)
	})

	t.Run("UnknownIdsAreReported", func(t *testing.T) {
		require := require.New(t)
		s := factory(t)

		_, err := s.Read(12345)
		require.ErrorIs(err, store.ErrNotFound)
	})

	t.Run("AppendCopiesItsInput", func(t *testing.T) {
		require := require.New(t)
		s := factory(t)

		blob := []byte("originally")
		id, err := s.Append(blob)
		require.NoError(err)
		copy(blob, "corrupted!")

		got, err := s.Read(id)
		require.NoError(err)
		require.Equal([]byte("originally"), got)
	})
}
