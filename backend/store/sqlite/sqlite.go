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
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/0xsoniclabs/triedb/backend/store"
)

// Store is a SQLite-backed store.Writer implementation. Blobs live in a
// single table keyed by an auto-assigned integer identifier.
type Store struct {
	db     *sql.DB
	insert *sql.Stmt
	query  *sql.Stmt
}

// NewStore opens (or creates) a SQLite-backed blob store at the given path.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", filepath.Join(path, "blobs.db"))
	if err != nil {
		return nil, err
	}
	_, err = db.Exec("CREATE TABLE IF NOT EXISTS blobs (id INTEGER PRIMARY KEY AUTOINCREMENT, data BLOB NOT NULL)")
	if err != nil {
		db.Close()
		return nil, err
	}
	insert, err := db.Prepare("INSERT INTO blobs(data) VALUES(?)")
	if err != nil {
		db.Close()
		return nil, err
	}
	query, err := db.Prepare("SELECT data FROM blobs WHERE id = ?")
	if err != nil {
		insert.Close()
		db.Close()
		return nil, err
	}
	return &Store{db: db, insert: insert, query: query}, nil
}

// Append stores the given blob and returns its identifier.
func (s *Store) Append(data []byte) (uint64, error) {
	res, err := s.insert.Exec(data)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Read provides the blob stored under the given identifier.
func (s *Store) Read(id uint64) ([]byte, error) {
	var data []byte
	err := s.query.QueryRow(int64(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", store.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Flush all unwritten data to the disk.
func (s *Store) Flush() error {
	return nil // writes are committed on Append
}

// Close the store.
func (s *Store) Close() error {
	errInsert := s.insert.Close()
	errQuery := s.query.Close()
	errDb := s.db.Close()
	return errors.Join(errInsert, errQuery, errDb)
}
