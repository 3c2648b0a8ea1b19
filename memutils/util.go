package memutils

import (
	cerrors "github.com/cockroachdb/errors"
)

type Number interface {
	~int | ~int32 | ~int64 | ~uint
}

// CheckPositive returns an error wrapping ErrInvalidRequest if number is not greater than zero
func CheckPositive[T Number](number T, name string) error {
	if number <= 0 {
		return cerrors.Wrapf(ErrInvalidRequest, "%s must be positive, but is %d", name, number)
	}
	return nil
}

// RangeSize returns the number of offsets covered by the inclusive range [start, end]
func RangeSize(start, end int) int {
	return end - start + 1
}
