// Package sequence provides wrap-around-safe arithmetic over unsigned sequence
// numbers and a half-open range type for handing out contiguous claims.
//
// Sequence numbers increase monotonically and wrap at the maximum of their
// type. Two sequence numbers are therefore never compared with the built-in
// operators; Precedes interprets the wrapped difference as a signed value of
// the same width, so that, e.g., 255 precedes 0 for uint8.
package sequence

import (
	"golang.org/x/exp/constraints"
)

// Initial returns the conventional starting value of a cursor, the maximum of
// T. The first sequence number claimed after it is zero.
func Initial[T constraints.Unsigned]() T {
	return ^T(0)
}

// Difference returns a-b interpreted as the signed counterpart of T and
// widened to int64.
func Difference[T constraints.Unsigned](a, b T) int64 {
	d := a - b
	if d <= ^T(0)>>1 {
		return int64(d)
	}
	// d is negative in T's signed counterpart; ^d is its magnitude minus one.
	return -int64(^d) - 1
}

// Precedes reports whether a comes strictly before b.
func Precedes[T constraints.Unsigned](a, b T) bool {
	return Difference(a, b) < 0
}
