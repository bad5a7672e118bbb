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
	"fmt"

	"github.com/0xsoniclabs/triedb/backend/store"
)

// Store is an in-memory store.Writer implementation - it maps ids to blobs
// held on the heap. Reads of ids previously handed out by Append never fail,
// which makes this store suitable for tests and for staging data before it is
// copied into a persistent store.
type Store struct {
	blobs [][]byte
}

// NewStore constructs a new empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Append stores the given blob and returns its identifier. The blob is copied,
// so the caller may reuse the input slice.
func (s *Store) Append(data []byte) (uint64, error) {
	copied := make([]byte, len(data))
	copy(copied, data)
	s.blobs = append(s.blobs, copied)
	// ids start at 1 so that a zero id is never valid
	return uint64(len(s.blobs)), nil
}

// Read provides the blob stored under the given identifier.
func (s *Store) Read(id uint64) ([]byte, error) {
	if id == 0 || id > uint64(len(s.blobs)) {
		return nil, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	return s.blobs[id-1], nil
}

// Size returns the number of blobs held by the store.
func (s *Store) Size() int {
	return len(s.blobs)
}

// Flush the store.
func (s *Store) Flush() error {
	return nil // no-op for in-memory store
}

// Close the store.
func (s *Store) Close() error {
	return nil // no-op for in-memory store
}
