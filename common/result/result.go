// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package result provides a single type carrying either a value or an error,
// for places where the two-value convention does not fit, like channels
// transporting outcomes of concurrent work.
package result

// Result is either a value of type T or an error.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a successful outcome.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failed outcome.
func Err[T any](err error) Result[T] {
	return Result[T]{err: err}
}

// Get unpacks the result into the usual two-value form.
func (r Result[T]) Get() (T, error) {
	return r.value, r.err
}

// IsErr reports whether the result carries an error.
func (r Result[T]) IsErr() bool {
	return r.err != nil
}
