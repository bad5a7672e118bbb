// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package result

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResult_OkCarriesTheValue(t *testing.T) {
	require := require.New(t)
	res := Ok(42)
	value, err := res.Get()
	require.NoError(err)
	require.Equal(42, value)
	require.False(res.IsErr())
}

func TestResult_ErrCarriesTheError(t *testing.T) {
	require := require.New(t)
	issue := fmt.Errorf("injected error")
	res := Err[int](issue)
	value, err := res.Get()
	require.ErrorIs(err, issue)
	require.Zero(value)
	require.True(res.IsErr())
}
