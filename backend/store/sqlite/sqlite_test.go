// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/0xsoniclabs/triedb/backend/store"
	"github.com/0xsoniclabs/triedb/backend/store/storetest"
)

func TestStore_Conformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Writer {
		s, err := NewStore(t.TempDir())
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestStore_DataSurvivesReopening(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(err)
	id, err := s.Append([]byte("persistent"))
	require.NoError(err)
	require.NoError(s.Close())

	s, err = NewStore(dir)
	require.NoError(err)
	defer s.Close()
	got, err := s.Read(id)
	require.NoError(err)
	require.Equal([]byte("persistent"), got)
}
