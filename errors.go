// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package triedb

import (
	"errors"
	"fmt"
)

// ErrCorruptEncoding is reported when a tagged-reference byte stream is
// truncated or malformed. It signals a broken invariant - corrupted data
// rather than a recoverable I/O condition - and operations reporting it must
// not be retried.
var ErrCorruptEncoding = errors.New("corrupt node encoding")

// ErrIdOverflow is reported when a store identifier does not fit the encodable
// identifier width. It surfaces when attaching a tree to a store whose Append
// hands out identifiers beyond the supported range.
var ErrIdOverflow = errors.New("identifier exceeds encodable width")

// must unwraps results of operations that cannot fail on detached trees. A
// failure can only be caused by a failing backing store and is considered a
// usage error of the infallible API flavor.
func must[T any](value T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("unexpected error on infallible code path: %v", err))
	}
	return value
}
