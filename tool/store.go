// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/0xsoniclabs/triedb/backend/store"
	"github.com/0xsoniclabs/triedb/backend/store/file"
	"github.com/0xsoniclabs/triedb/backend/store/leveldb"
	"github.com/0xsoniclabs/triedb/backend/store/memory"
	"github.com/0xsoniclabs/triedb/backend/store/sqlite"
)

var (
	backendFlag = cli.StringFlag{
		Name:  "backend",
		Usage: "store backend to use, one of memory, file, leveldb, sqlite",
		Value: "file",
	}
	dirFlag = cli.StringFlag{
		Name:  "dir",
		Usage: "directory holding the store",
	}
)

// backendStore is the surface the tool needs from every backend.
type backendStore interface {
	store.Writer
	Flush() error
	Close() error
}

// openStore opens the store selected by the backend flag in the given
// directory.
func openStore(backend, dir string) (backendStore, error) {
	switch backend {
	case "memory":
		return memory.NewStore(), nil
	case "file":
		return file.NewStore(filepath.Join(dir, "blobs"))
	case "leveldb":
		return leveldb.NewStore(filepath.Join(dir, "leveldb"))
	case "sqlite":
		return sqlite.NewStore(dir)
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}
