// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package leveldb

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/0xsoniclabs/triedb/backend/store"
)

// key of the counter tracking the next identifier to hand out
var nextIdKey = []byte("meta/next")

// Store is a LevelDB-backed store.Writer implementation. Blobs are stored
// under their 8-byte big-endian identifier; a meta record tracks the next
// identifier to be assigned so the sequence survives reopening.
type Store struct {
	db   *leveldb.DB
	next uint64
}

// NewStore opens (or creates) a LevelDB-backed blob store at the given path.
func NewStore(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	next := uint64(1) // ids start at 1 so that a zero id is never valid
	if data, err := db.Get(nextIdKey, nil); err == nil {
		next = binary.BigEndian.Uint64(data)
	} else if !errors.Is(err, leveldb.ErrNotFound) {
		db.Close()
		return nil, err
	}
	return &Store{db: db, next: next}, nil
}

// Append stores the given blob and returns its identifier.
func (s *Store) Append(data []byte) (uint64, error) {
	id := s.next
	var key, next [8]byte
	binary.BigEndian.PutUint64(key[:], id)
	binary.BigEndian.PutUint64(next[:], id+1)

	batch := new(leveldb.Batch)
	batch.Put(key[:], data)
	batch.Put(nextIdKey, next[:])
	if err := s.db.Write(batch, nil); err != nil {
		return 0, err
	}
	s.next = id + 1
	return id, nil
}

// Read provides the blob stored under the given identifier.
func (s *Store) Read(id uint64) ([]byte, error) {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], id)
	data, err := s.db.Get(key[:], nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	return data, err
}

// Flush all unwritten data to the disk.
func (s *Store) Flush() error {
	return nil // writes are committed on Append
}

// Close the store.
func (s *Store) Close() error {
	return s.db.Close()
}
