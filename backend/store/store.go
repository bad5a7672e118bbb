// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package store defines the backing-store contract consumed by the triedb
// core: blobs of bytes addressed by opaque 64-bit identifiers. The core only
// ever reads blobs; writing is an explicit capability used when a tree is
// attached to a store.
package store

import "errors"

//go:generate mockgen -source store.go -destination store_mock.go -package store

// ErrNotFound is reported by stores when asked for an identifier that has
// never been handed out by their Append operation.
var ErrNotFound = errors.New("store: blob not found")

// Store resolves blobs by their identifier. Implementations decide how blobs
// are kept (memory, files, a key-value database); the triedb core treats the
// identifiers as fully opaque.
//
// The returned slice must remain valid and unmodified for the lifetime of the
// store. Implementations backed by volatile buffers must return a copy.
type Store interface {
	Read(id uint64) ([]byte, error)
}

// Writer is a store that can also accept new blobs. Append persists the given
// data and returns the identifier under which it can be read back. Identifiers
// are assigned by the store and need not be contiguous.
type Writer interface {
	Store
	Append(data []byte) (uint64, error)
}
