package utils

import (
	"fmt"
	"math"
)

// Common size limits.
const (
	// MaxChunkElements limits a single chunk to 256M elements.
	MaxChunkElements = 256 * 1024 * 1024

	// MaxReadElements limits a single range read to 4G elements.
	MaxReadElements = 4 * 1024 * 1024 * 1024

	// MaxStringSize limits string scalars to 16MB.
	MaxStringSize = 16 * 1024 * 1024
)

// CheckMultiplyOverflow checks if multiplying two uint64 values would overflow.
// Returns an error if overflow would occur.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil // No overflow when either is zero
	}

	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}

	return nil
}

// SafeMultiply multiplies two uint64 values and returns the result if no overflow occurs.
// Returns 0 and an error if overflow would occur.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// ElementCount returns the product of dims, failing on overflow or when the
// product exceeds limit. An empty dims slice is an error.
func ElementCount(dims []uint64, limit uint64) (uint64, error) {
	if len(dims) == 0 {
		return 0, fmt.Errorf("no dimensions provided")
	}

	total := uint64(1)
	for i, d := range dims {
		if err := CheckMultiplyOverflow(total, d); err != nil {
			return 0, fmt.Errorf("element count overflow at dimension %d: %w", i, err)
		}
		total *= d
	}

	if total > limit {
		return 0, fmt.Errorf("element count %d exceeds maximum %d", total, limit)
	}
	return total, nil
}

// CeilDiv returns ceil(a/b) for b > 0.
func CeilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}
