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
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/pbnjay/memory"
	"github.com/urfave/cli/v2"

	"github.com/0xsoniclabs/triedb"
	memstore "github.com/0xsoniclabs/triedb/backend/store/memory"
	"github.com/0xsoniclabs/triedb/common/diagnostics"
	"github.com/0xsoniclabs/triedb/common/result"
)

var StressTestCmd = cli.Command{
	Action: diagnostics.WrapAction(stressTest, &diagnosticPortFlag, &cpuProfileFlag, &traceFlag),
	Name:   "stress-test",
	Usage:  "builds and merges random trees, persists the union, and reports resource usage",
	Flags: []cli.Flag{
		&backendFlag,
		&tmpDirFlag,
		&numTreesFlag,
		&numEntriesFlag,
		&numWorkersFlag,
		&seedFlag,
		&reportPeriodFlag,
		&diagnosticPortFlag,
		&cpuProfileFlag,
		&traceFlag,
	},
}

var (
	tmpDirFlag = cli.StringFlag{
		Name:  "tmp-dir",
		Usage: "directory for the store written during the test, defaults to the system temp directory",
	}
	numTreesFlag = cli.IntFlag{
		Name:  "num-trees",
		Usage: "number of random trees to build and merge",
		Value: 100,
	}
	numEntriesFlag = cli.IntFlag{
		Name:  "num-entries",
		Usage: "number of entries per tree",
		Value: 1000,
	}
	numWorkersFlag = cli.IntFlag{
		Name:  "num-workers",
		Usage: "number of concurrent build workers, defaults to the number of CPUs",
		Value: 0,
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Usage: "seed for the random content generator",
		Value: 0,
	}
	reportPeriodFlag = cli.DurationFlag{
		Name:  "report-period",
		Usage: "interval between resource usage reports",
		Value: 5 * time.Second,
	}
)

func stressTest(ctx *cli.Context) error {
	numTrees := ctx.Int(numTreesFlag.Name)
	if numTrees <= 0 {
		numTrees = 100
	}
	numEntries := ctx.Int(numEntriesFlag.Name)
	if numEntries <= 0 {
		numEntries = 1000
	}
	numWorkers := ctx.Int(numWorkersFlag.Name)
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	seed := ctx.Int64(seedFlag.Name)

	dir := ctx.String(tmpDirFlag.Name)
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "triedb-stress-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
	} else if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("cannot use tmp directory: %w", err)
	}
	fmt.Printf("Using store directory %s\n", dir)

	stopReporting := startUsageReports(dir, ctx.Duration(reportPeriodFlag.Name))
	defer stopReporting()

	// Phase 1: workers build random trees concurrently.
	fmt.Printf("Building %d trees with %d entries each on %d workers ...\n", numTrees, numEntries, numWorkers)
	jobs := make(chan int64, numTrees)
	for i := 0; i < numTrees; i++ {
		jobs <- seed + int64(i)
	}
	close(jobs)

	built := make(chan result.Result[*triedb.Tree], numWorkers)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for jobSeed := range jobs {
				built <- buildRandomTree(jobSeed, numEntries)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(built)
	}()

	// Phase 2: merge everything into one union, right bias.
	union := triedb.New()
	defer union.Release()
	var buildErr error
	for res := range built {
		tree, err := res.Get()
		if err != nil {
			buildErr = err
			continue
		}
		union.OuterCombineWith(tree, triedb.TakeRight)
		tree.Release()
	}
	if buildErr != nil {
		return buildErr
	}

	// Phase 3: persist the union and read it back.
	st, err := openStore(ctx.String(backendFlag.Name), dir)
	if err != nil {
		return err
	}
	defer st.Close()

	attached, rootId, err := union.Attach(st)
	if err != nil {
		return err
	}
	defer attached.Release()
	if err := st.Flush(); err != nil {
		return err
	}
	fmt.Printf("Attached union under root id %d\n", rootId)

	count, err := countEntries(attached)
	if err != nil {
		return err
	}
	fmt.Printf("Union holds %d entries, store occupies %d bytes on disk\n", count, getDirectorySize(dir))
	return nil
}

// buildRandomTree assembles a tree of pseudo-random entries, staging it
// through an in-memory store to exercise the attach and detach paths.
func buildRandomTree(seed int64, numEntries int) result.Result[*triedb.Tree] {
	rnd := rand.New(rand.NewSource(seed))
	entries := make(map[string][]byte, numEntries)
	for i := 0; i < numEntries; i++ {
		key := make([]byte, 1+rnd.Intn(32))
		rnd.Read(key)
		value := make([]byte, rnd.Intn(128))
		rnd.Read(value)
		entries[string(key)] = value
	}
	tree := triedb.FromMap(entries)
	defer tree.Release()

	staging := memstore.NewStore()
	defer staging.Close()
	attached, _, err := tree.Attach(staging)
	if err != nil {
		return result.Err[*triedb.Tree](err)
	}
	defer attached.Release()
	detached, err := attached.Detach()
	if err != nil {
		return result.Err[*triedb.Tree](err)
	}
	return result.Ok(detached)
}

func countEntries(tree *triedb.Tree) (int, error) {
	iter := tree.Values()
	defer iter.Close()
	count := 0
	for iter.Next() {
		count++
	}
	return count, iter.Err()
}

// startUsageReports periodically prints heap, system memory, and disk usage
// until the returned stop function is called.
func startUsageReports(dir string, period time.Duration) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				var stats runtime.MemStats
				runtime.ReadMemStats(&stats)
				free, _ := getFreeSpace(dir)
				fmt.Printf("heap %d MiB, system %d/%d MiB free, store %d KiB, disk %d MiB free\n",
					stats.HeapAlloc>>20,
					memory.FreeMemory()>>20, memory.TotalMemory()>>20,
					getDirectorySize(dir)>>10,
					free>>20,
				)
			}
		}
	}()
	return func() { close(done) }
}

// getDirectorySize accumulates the size of all regular files below dir,
// returning 0 if the directory cannot be walked.
func getDirectorySize(dir string) int64 {
	var size int64
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if info, err := d.Info(); err == nil && info.Mode().IsRegular() {
			size += info.Size()
		}
		return nil
	})
	return size
}

// getFreeSpace reports the free disk space of the volume holding the path.
func getFreeSpace(path string) (int64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return int64(stat.Bavail) * stat.Bsize, nil
}
