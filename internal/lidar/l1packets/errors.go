package l1packets

import (
	"errors"
	"fmt"
)

// ErrSizeMismatch matches any SizeMismatchError via errors.Is.
var ErrSizeMismatch = errors.New("packet size mismatch")

// SizeMismatchError reports a buffer whose length differs from the fixed
// record size of the packet type being decoded.
type SizeMismatchError struct {
	Expected int
	Actual   int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("invalid packet size: expected %d, got %d", e.Expected, e.Actual)
}

// Is reports whether target is ErrSizeMismatch.
func (e *SizeMismatchError) Is(target error) bool {
	return target == ErrSizeMismatch
}

// CheckSize returns a *SizeMismatchError unless len(b) == expected.
func CheckSize(b []byte, expected int) error {
	if len(b) != expected {
		return &SizeMismatchError{Expected: expected, Actual: len(b)}
	}
	return nil
}
