// Copyright 2025 The Situ8 Authors
// SPDX-License-Identifier: Apache-2.0

package activity

import (
	"errors"
	"fmt"
	"strings"
)

// InvalidError reports every problem Validate found in one activity.
type InvalidError struct {
	ID       string
	Problems []string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("invalid activity %q: %s", e.ID, strings.Join(e.Problems, "; "))
}

// IsInvalid reports whether err is, or wraps, an *InvalidError.
func IsInvalid(err error) bool {
	var ie *InvalidError

	return errors.As(err, &ie)
}
