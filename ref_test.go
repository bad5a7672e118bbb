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
)

func TestReadRef_DecodesInlinePayloads(t *testing.T) {
	tests := map[string][]byte{
		"empty":   {},
		"short":   []byte("abc"),
		"longest": bytes.Repeat([]byte{0x42}, maxInline),
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			b := &seqBuilder{}
			appendInlineRef(b, payload)

			r, rest, err := readRef(b.buf)
			require.NoError(err)
			require.Empty(rest)
			require.Equal(tagInline, r.tag())
			require.Equal(payload, append([]byte{}, r.payload()...))
			require.Equal(1+len(payload), r.size())
		})
	}
}

func TestReadRef_IsSelfDelimiting(t *testing.T) {
	require := require.New(t)
	b := &seqBuilder{}
	appendInlineRef(b, []byte("ab"))
	appendNone(b)
	appendInlineRef(b, []byte("c"))

	r, rest, err := readRef(b.buf)
	require.NoError(err)
	require.Equal([]byte("ab"), []byte(r.payload()))

	r, rest, err = readRef(rest)
	require.NoError(err)
	require.True(r.isNone())

	r, rest, err = readRef(rest)
	require.NoError(err)
	require.Equal([]byte("c"), []byte(r.payload()))
	require.Empty(rest)
}

func TestReadRef_ReportsCorruptEncodings(t *testing.T) {
	tests := map[string][]byte{
		"empty buffer":            {},
		"truncated inline":        {tagInline<<6 | 5, 'a', 'b'},
		"absent with payload":     {tagNone<<6 | 2, 0, 0},
		"shared with short width": {tagShared<<6 | 4, 0, 0, 0, 0},
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			_, _, err := readRef(data)
			require.ErrorIs(err, ErrCorruptEncoding)
		})
	}
}

func TestAppendInlineRef_RejectsOversizedPayloads(t *testing.T) {
	require := require.New(t)
	require.Panics(func() {
		appendInlineRef(&seqBuilder{}, make([]byte, maxInline+1))
	})
}

func TestAppendBlobRef_SwitchesToSharedBlocksPastInlineLimit(t *testing.T) {
	require := require.New(t)
	big := bytes.Repeat([]byte{7}, maxInline+1)
	b := &seqBuilder{}
	appendBlobRef(b, big)

	r, _, err := readRef(b.buf)
	require.NoError(err)
	require.Equal(tagShared, r.tag())
	require.Equal(big, blocks.get(r.handle()).data)
	r.release()
}

func TestIdBytes_EncodingIsMinimalAndRoundTrips(t *testing.T) {
	tests := []uint64{0, 1, 0xff, 0x100, 0xffff, 0x10000, maxId}

	for _, id := range tests {
		t.Run(fmt.Sprintf("%d", id), func(t *testing.T) {
			require := require.New(t)
			encoded, err := idBytes(id)
			require.NoError(err)
			require.LessOrEqual(len(encoded), maxIdBytes)
			require.Equal(id, decodeId(encoded))
			if id > 0 {
				require.NotZero(encoded[0], "leading zero bytes must be trimmed")
			}
		})
	}
}

func TestIdBytes_ReportsOverflow(t *testing.T) {
	require := require.New(t)
	_, err := idBytes(maxId + 1)
	require.ErrorIs(err, ErrIdOverflow)
}

func TestAppendIdRef_PacksLeadBytesBeforeTheIdentifier(t *testing.T) {
	require := require.New(t)
	b := &seqBuilder{}
	require.NoError(appendIdRef(b, []byte{'x'}, 0x1234))

	r, _, err := readRef(b.buf)
	require.NoError(err)
	require.Equal(tagId, r.tag())
	require.Equal(byte('x'), r.payload()[0])
	require.Equal(uint64(0x1234), decodeId(r.payload()[1:]))
}
