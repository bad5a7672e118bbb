// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xsoniclabs/triedb/backend/store"
	"github.com/0xsoniclabs/triedb/backend/store/storetest"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Writer {
		s := NewStore()
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStore_SizeTracksAppends(t *testing.T) {
	require := require.New(t)

	s := NewStore()
	require.Equal(0, s.Size())
	for i := 1; i <= 10; i++ {
		_, err := s.Append([]byte{byte(i)})
		require.NoError(err)
		require.Equal(i, s.Size())
	}
}
