// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package diagnostics augments CLI commands with optional runtime
// instrumentation: CPU profiling, execution tracing, and a pprof server.
package diagnostics

import (
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"strings"

	"github.com/urfave/cli/v2"
)

// WrapAction returns an action running the given one with the diagnostics
// selected on the command line enabled. portFlag names an integer flag
// starting a pprof server on the given port, cpuProfileFlag and traceFlag
// name string flags routing a CPU profile respectively an execution trace
// into the given files.
func WrapAction(action cli.ActionFunc, portFlag *cli.IntFlag, cpuProfileFlag, traceFlag *cli.StringFlag) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if port := ctx.Int(portFlag.Names()[0]); port > 0 && port < 1<<16 {
			servePprof(port)
		}

		if file := strings.TrimSpace(ctx.String(cpuProfileFlag.Names()[0])); file != "" {
			if err := startCpuProfile(file); err != nil {
				return err
			}
			defer pprof.StopCPUProfile()
		}

		if file := strings.TrimSpace(ctx.String(traceFlag.Names()[0])); file != "" {
			if err := startTrace(file); err != nil {
				return err
			}
			defer trace.Stop()
		}

		return action(ctx)
	}
}

func servePprof(port int) {
	fmt.Printf("Serving pprof diagnostics at http://localhost:%d/debug/pprof/\n", port)
	fmt.Printf("Block and mutex sampling is fully enabled while the server runs, expect some overhead\n")
	runtime.SetBlockProfileRate(1)
	runtime.SetMutexProfileFraction(1)
	go func() {
		log.Println(http.ListenAndServe(fmt.Sprintf("localhost:%d", port), nil))
	}()
}

func startCpuProfile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CPU profile file: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return fmt.Errorf("failed to start CPU profiling: %w", err)
	}
	return nil
}

func startTrace(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create trace file: %w", err)
	}
	if err := trace.Start(f); err != nil {
		return fmt.Errorf("failed to start execution tracing: %w", err)
	}
	return nil
}
