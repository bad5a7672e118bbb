// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package file

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/snappy"

	"github.com/0xsoniclabs/triedb/backend/store"
)

const headerSize = 4 // uint32 length of the compressed record

// Store is a filesystem-based store.Writer implementation - it appends
// snappy-compressed blobs to a single data file and uses the file offset of
// each record as its identifier.
type Store struct {
	file    *os.File
	writer  *bufio.Writer
	end     int64 // offset right behind the last appended record
	unsaved bool  // appended data not yet flushed to the file
}

// NewStore opens (or creates) a blob store in the given directory.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory; %s", err)
	}
	f, err := os.OpenFile(filepath.Join(path, "blobs.dat"), os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	end, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Store{
		file:   f,
		writer: bufio.NewWriter(f),
		end:    end,
	}, nil
}

// Append compresses and appends the given blob, returning its identifier.
func (s *Store) Append(data []byte) (uint64, error) {
	compressed := snappy.Encode(nil, data)
	var header [headerSize]byte
	binary.BigEndian.PutUint32(header[:], uint32(len(compressed)))

	offset := s.end
	if _, err := s.writer.Write(header[:]); err != nil {
		return 0, err
	}
	if _, err := s.writer.Write(compressed); err != nil {
		return 0, err
	}
	s.end += int64(headerSize + len(compressed))
	s.unsaved = true
	// ids are offsets shifted by one so that a zero id is never valid
	return uint64(offset) + 1, nil
}

// Read provides the blob stored under the given identifier.
func (s *Store) Read(id uint64) ([]byte, error) {
	if id == 0 || int64(id) > s.end {
		return nil, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	if s.unsaved {
		if err := s.Flush(); err != nil {
			return nil, err
		}
	}
	offset := int64(id) - 1
	var header [headerSize]byte
	if _, err := s.file.ReadAt(header[:], offset); err != nil {
		return nil, fmt.Errorf("%w: id %d: %s", store.ErrNotFound, id, err)
	}
	length := binary.BigEndian.Uint32(header[:])
	if offset+headerSize+int64(length) > s.end {
		return nil, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	compressed := make([]byte, length)
	if _, err := s.file.ReadAt(compressed, offset+headerSize); err != nil {
		return nil, err
	}
	return snappy.Decode(nil, compressed)
}

// Flush all unwritten data to the disk.
func (s *Store) Flush() error {
	if err := s.writer.Flush(); err != nil {
		return err
	}
	s.unsaved = false
	return s.file.Sync()
}

// Close the store.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}
