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
	"bytes"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/0xsoniclabs/triedb"
)

var DumpCmd = cli.Command{
	Action: dump,
	Name:   "dump",
	Usage:  "prints the node structure of a stored tree",
	Flags: []cli.Flag{
		&backendFlag,
		&dirFlag,
		&rootIdFlag,
	},
}

var VerifyCmd = cli.Command{
	Action: verify,
	Name:   "verify",
	Usage:  "iterates a stored tree checking key order",
	Flags: []cli.Flag{
		&backendFlag,
		&dirFlag,
		&rootIdFlag,
	},
}

var rootIdFlag = cli.Uint64Flag{
	Name:     "root",
	Usage:    "identifier of the tree root in the store",
	Required: true,
}

func dump(ctx *cli.Context) error {
	st, err := openStore(ctx.String(backendFlag.Name), ctx.String(dirFlag.Name))
	if err != nil {
		return err
	}
	defer st.Close()

	tree, err := triedb.NewFromStore(st, ctx.Uint64(rootIdFlag.Name))
	if err != nil {
		return err
	}
	defer tree.Release()
	return tree.Dump(os.Stdout)
}

func verify(ctx *cli.Context) error {
	st, err := openStore(ctx.String(backendFlag.Name), ctx.String(dirFlag.Name))
	if err != nil {
		return err
	}
	defer st.Close()

	tree, err := triedb.NewFromStore(st, ctx.Uint64(rootIdFlag.Name))
	if err != nil {
		return err
	}
	defer tree.Release()

	iter := tree.Iterator()
	defer iter.Close()
	count := 0
	var last []byte
	for iter.Next() {
		if last != nil && bytes.Compare(last, iter.Key()) >= 0 {
			return fmt.Errorf("key order violated at %q", iter.Key())
		}
		last = append(last[:0], iter.Key()...)
		count++
	}
	if err := iter.Err(); err != nil {
		return err
	}
	fmt.Printf("OK, %d entries in order\n", count)
	return nil
}
