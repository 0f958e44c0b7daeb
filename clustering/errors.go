// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package clustering

import "errors"

// Error is the single failure kind of a clustering run.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "activity clustering failed: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsFailure reports whether err is, or wraps, a clustering failure.
func IsFailure(err error) bool {
	var ce *Error

	return errors.As(err, &ce)
}

func fail(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}
