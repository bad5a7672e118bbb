// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package diagnostics

import (
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestWrapAction_EnablesRequestedDiagnostics(t *testing.T) {
	dir := t.TempDir()
	cpuProfile := filepath.Join(dir, "cpu.profile")
	traceFile := filepath.Join(dir, "trace.out")

	called := false
	action := func(ctx *cli.Context) error {
		require.FileExists(t, cpuProfile)
		require.FileExists(t, traceFile)

		// The pprof server may need a moment to come up.
		status := 0
		wait := 100 * time.Millisecond
		var lastErr error
		for i := 0; i < 10 && status != http.StatusOK; i++ {
			resp, err := http.Get("http://localhost:6060/debug/pprof/")
			lastErr = err
			if resp != nil {
				status = resp.StatusCode
			}
			time.Sleep(wait)
			wait *= 2
		}
		require.NoError(t, lastErr)
		require.Equal(t, http.StatusOK, status)

		called = true
		return nil
	}

	portFlag := cli.IntFlag{Name: "diagnostic-port"}
	cpuProfileFlag := cli.StringFlag{Name: "cpu-profile"}
	traceFlag := cli.StringFlag{Name: "trace"}
	app := &cli.App{
		Action: WrapAction(action, &portFlag, &cpuProfileFlag, &traceFlag),
		Flags:  []cli.Flag{&portFlag, &cpuProfileFlag, &traceFlag},
	}

	err := app.Run([]string{
		"cmd",
		"--diagnostic-port", "6060",
		"--cpu-profile", cpuProfile,
		"--trace", traceFile,
	})
	require.NoError(t, err)
	require.True(t, called)
}

func TestWrapAction_ReportsUnwritableProfileTargets(t *testing.T) {
	portFlag := cli.IntFlag{Name: "diagnostic-port"}
	cpuProfileFlag := cli.StringFlag{Name: "cpu-profile"}
	traceFlag := cli.StringFlag{Name: "trace"}
	app := &cli.App{
		Action: WrapAction(func(ctx *cli.Context) error { return nil }, &portFlag, &cpuProfileFlag, &traceFlag),
		Flags:  []cli.Flag{&portFlag, &cpuProfileFlag, &traceFlag},
	}

	err := app.Run([]string{"cmd", "--cpu-profile", "/does/not/exist/cpu.profile"})
	require.Error(t, err)
}
