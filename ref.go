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
	"encoding/binary"
	"fmt"
)

// Every node field is encoded as a self-delimiting tagged reference. The
// header byte carries the variant in its top two bits and the payload length
// in the remaining six, so a reference never exceeds 64 bytes in the node
// stream. Larger payloads move behind a shared-block handle or a store
// identifier.
const (
	tagNone   = 0 // absent field, no payload
	tagInline = 1 // payload is the data itself, up to maxInline bytes
	tagShared = 2 // payload is an 8-byte big-endian block handle
	tagId     = 3 // payload is a store identifier, prefix slots lead with the first byte

	maxInline = 63

	// Store identifiers are capped at 48 bits so that a prefix slot can pack
	// the leading byte next to the identifier and any slot stays within the
	// 6-bit length field with room to spare.
	maxIdBytes = 6
	maxId      = 1<<(8*maxIdBytes) - 1
)

// ref is a view on one encoded tagged reference, header byte included.
type ref []byte

func (r ref) tag() int        { return int(r[0] >> 6) }
func (r ref) size() int       { return len(r) }
func (r ref) payload() []byte { return r[1:] }
func (r ref) isNone() bool    { return r.tag() == tagNone }

// handle returns the shared-block handle of a tagShared reference.
func (r ref) handle() uint64 {
	return binary.BigEndian.Uint64(r.payload())
}

func (r ref) retain() {
	if r.tag() == tagShared {
		blocks.retain(r.handle())
	}
}

func (r ref) release() {
	if r.tag() == tagShared {
		blocks.release(r.handle())
	}
}

// readRef splits one reference off the front of buf and returns the rest.
func readRef(buf []byte) (ref, []byte, error) {
	if len(buf) == 0 {
		return nil, nil, fmt.Errorf("%w: missing reference header", ErrCorruptEncoding)
	}
	n := int(buf[0] & 0x3f)
	if len(buf) < 1+n {
		return nil, nil, fmt.Errorf("%w: reference payload truncated, need %d bytes, have %d", ErrCorruptEncoding, n, len(buf)-1)
	}
	switch r := ref(buf[:1+n]); r.tag() {
	case tagNone:
		if n != 0 {
			return nil, nil, fmt.Errorf("%w: absent field with %d payload bytes", ErrCorruptEncoding, n)
		}
		return r, buf[1:], nil
	case tagShared:
		if n != 8 {
			return nil, nil, fmt.Errorf("%w: shared reference with %d payload bytes", ErrCorruptEncoding, n)
		}
		return r, buf[1+n:], nil
	default:
		return r, buf[1+n:], nil
	}
}

// mustReadRef reads a reference from a buffer this package built itself,
// where corruption is a programming error.
func mustReadRef(buf []byte) (ref, []byte) {
	r, rest, err := readRef(buf)
	if err != nil {
		panic(err)
	}
	return r, rest
}

// extender is the append surface shared by the allocating sequence builder
// and the gap buffer.
type extender interface {
	appendByte(b byte)
	appendBytes(data []byte)
}

func appendNone(e extender) {
	e.appendByte(tagNone << 6)
}

func appendInlineRef(e extender, data []byte) {
	if len(data) > maxInline {
		panic(fmt.Sprintf("inline payload of %d bytes exceeds limit", len(data)))
	}
	e.appendByte(tagInline<<6 | byte(len(data)))
	e.appendBytes(data)
}

// appendSharedRef encodes a handle the caller already owns a reference to.
func appendSharedRef(e extender, h uint64) {
	var payload [8]byte
	binary.BigEndian.PutUint64(payload[:], h)
	e.appendByte(tagShared<<6 | 8)
	e.appendBytes(payload[:])
}

// appendBlobRef encodes data either inline or, past the inline limit, behind
// a freshly allocated shared block holding a copy.
func appendBlobRef(e extender, data []byte) {
	if len(data) <= maxInline {
		appendInlineRef(e, data)
		return
	}
	h := blocks.alloc(append([]byte(nil), data...), false)
	appendSharedRef(e, h)
}

// idBytes yields the minimal big-endian encoding of a store identifier.
func idBytes(id uint64) ([]byte, error) {
	if id > maxId {
		return nil, fmt.Errorf("%w: id %d", ErrIdOverflow, id)
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], id)
	i := 0
	for i < 7 && buf[i] == 0 {
		i++
	}
	return buf[i:], nil
}

func decodeId(payload []byte) uint64 {
	var id uint64
	for _, b := range payload {
		id = id<<8 | uint64(b)
	}
	return id
}

// appendIdRef encodes a store identifier, optionally preceded by packed lead
// bytes. Prefix slots pass the first prefix byte as lead so that sibling
// ordering never needs a store round trip.
func appendIdRef(e extender, lead []byte, id uint64) error {
	encoded, err := idBytes(id)
	if err != nil {
		return err
	}
	e.appendByte(tagId<<6 | byte(len(lead)+len(encoded)))
	e.appendBytes(lead)
	e.appendBytes(encoded)
	return nil
}
