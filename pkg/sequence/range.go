package sequence

import (
	"fmt"
	"iter"

	"golang.org/x/exp/constraints"
)

// Range is the half-open interval [begin, end) of sequence numbers. It is a
// value type; copying it is cheap and none of its methods allocate.
type Range[T constraints.Unsigned] struct {
	begin T
	end   T
}

func NewRange[T constraints.Unsigned](begin, end T) Range[T] {
	return Range[T]{begin: begin, end: end}
}

func (r Range[T]) Begin() T { return r.begin }

func (r Range[T]) End() T { return r.end }

// Size returns the number of sequence numbers in the range. It stays correct
// when the range spans the wrap-around point.
func (r Range[T]) Size() T {
	return r.end - r.begin
}

func (r Range[T]) Empty() bool {
	return r.begin == r.end
}

// Front returns the first sequence number. The range must not be empty.
func (r Range[T]) Front() T {
	return r.begin
}

// Back returns the last sequence number. The range must not be empty.
func (r Range[T]) Back() T {
	return r.end - 1
}

// At returns the i-th sequence number of the range. It panics if i is out of
// range.
func (r Range[T]) At(i int) T {
	if i < 0 || uint64(i) >= uint64(r.Size()) {
		panic(fmt.Sprintf("sequence: index %d out of range %v", i, r))
	}
	return r.begin + T(i)
}

// First returns the sub-range of the first n sequence numbers, or the whole
// range if it is shorter than n.
func (r Range[T]) First(n int) Range[T] {
	return Range[T]{begin: r.begin, end: r.begin + r.clamp(n)}
}

// Skip returns the range without its first n sequence numbers. The result is
// empty if the range is not longer than n.
func (r Range[T]) Skip(n int) Range[T] {
	return Range[T]{begin: r.begin + r.clamp(n), end: r.end}
}

func (r Range[T]) clamp(n int) T {
	if n <= 0 {
		return 0
	}
	if size := r.Size(); uint64(n) < uint64(size) {
		return T(n)
	}
	return r.Size()
}

// All iterates over the range in ascending order.
func (r Range[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for seq := r.begin; seq != r.end; seq++ {
			if !yield(seq) {
				return
			}
		}
	}
}

func (r Range[T]) String() string {
	return fmt.Sprintf("[%d, %d)", r.begin, r.end)
}
