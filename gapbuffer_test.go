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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGapBuffer_ForwardMovesSourceToTarget(t *testing.T) {
	require := require.New(t)
	g := newGapBuffer([]byte("abcdef"))

	g.forward(2)
	g.forward(4)
	require.False(g.hasRemaining())
	require.Equal([]byte("abcdef"), g.finish())
}

func TestGapBuffer_DropDiscardsSourceBytes(t *testing.T) {
	require := require.New(t)
	g := newGapBuffer([]byte("abcdef"))

	g.forward(2)
	g.drop(2)
	g.forward(2)
	require.Equal([]byte("abef"), g.finish())
}

func TestGapBuffer_AppendGrowsIntoTheGap(t *testing.T) {
	require := require.New(t)
	g := newGapBuffer([]byte("abcdef"))

	g.drop(3)
	g.appendByte('x')
	g.appendBytes([]byte("yz"))
	g.forward(3)
	require.Equal([]byte("xyzdef"), g.finish())
}

func TestGapBuffer_AppendPastCapacityReallocatesOnce(t *testing.T) {
	require := require.New(t)
	g := newGapBuffer([]byte("ab"))

	g.appendBytes([]byte("0123456789"))
	g.forward(2)
	require.Equal([]byte("0123456789ab"), g.finish())
}

func TestGapBuffer_RewindMovesTargetBackToSource(t *testing.T) {
	require := require.New(t)
	g := newGapBuffer([]byte("abcdef"))

	g.forward(4)
	mark := 2
	g.rewind(mark)
	require.Equal([]byte("cdef"), g.source())
	g.forward(4)
	require.Equal([]byte("abcdef"), g.finish())
}

func TestGapBuffer_RewindAfterReplacement(t *testing.T) {
	require := require.New(t)
	g := newGapBuffer([]byte("abcdef"))

	// Replace "ab" by the longer "xxxx", then rewind over it.
	g.drop(2)
	g.appendBytes([]byte("xxxx"))
	g.rewind(0)
	require.Equal([]byte("xxxxcdef"), g.source())
	g.forward(8)
	require.Equal([]byte("xxxxcdef"), g.finish())
}

func TestGapBuffer_FinishPanicsOnUnconsumedSource(t *testing.T) {
	require := require.New(t)
	g := newGapBuffer([]byte("abc"))
	g.forward(1)
	require.Panics(func() { g.finish() })
}
