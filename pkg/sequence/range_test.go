package sequence

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func collect[T interface{ ~uint8 | ~uint64 }](r Range[T]) []T {
	var seqs []T
	for seq := range r.All() {
		seqs = append(seqs, seq)
	}
	return seqs
}

func TestRange(t *testing.T) {
	Convey("Given a range [3, 8)", t, func() {
		r := NewRange[uint64](3, 8)

		Convey("it should report its bounds and size", func() {
			So(r.Begin(), ShouldEqual, uint64(3))
			So(r.End(), ShouldEqual, uint64(8))
			So(r.Size(), ShouldEqual, uint64(5))
			So(r.Empty(), ShouldBeFalse)
			So(r.Front(), ShouldEqual, uint64(3))
			So(r.Back(), ShouldEqual, uint64(7))
			So(r.String(), ShouldEqual, "[3, 8)")
		})

		Convey("it should be indexable", func() {
			So(r.At(0), ShouldEqual, uint64(3))
			So(r.At(4), ShouldEqual, uint64(7))
			So(func() { r.At(5) }, ShouldPanic)
			So(func() { r.At(-1) }, ShouldPanic)
		})

		Convey("it should iterate in order", func() {
			So(collect(r), ShouldResemble, []uint64{3, 4, 5, 6, 7})
		})

		Convey("it should stop iterating when asked", func() {
			var seqs []uint64
			for seq := range r.All() {
				if seq == 5 {
					break
				}
				seqs = append(seqs, seq)
			}
			So(seqs, ShouldResemble, []uint64{3, 4})
		})

		Convey("First should clamp to its size", func() {
			So(r.First(2), ShouldResemble, NewRange[uint64](3, 5))
			So(r.First(0).Empty(), ShouldBeTrue)
			So(r.First(-1).Empty(), ShouldBeTrue)
			So(r.First(100), ShouldResemble, r)
		})

		Convey("Skip should clamp to its size", func() {
			So(r.Skip(2), ShouldResemble, NewRange[uint64](5, 8))
			So(r.Skip(0), ShouldResemble, r)
			So(r.Skip(5).Empty(), ShouldBeTrue)
			So(r.Skip(100).Empty(), ShouldBeTrue)
		})
	})

	Convey("Given a range spanning the wrap-around point", t, func() {
		r := NewRange[uint8](254, 2)

		Convey("its size should be wrap-aware", func() {
			So(r.Size(), ShouldEqual, uint8(4))
			So(r.Back(), ShouldEqual, uint8(1))
		})

		Convey("it should iterate across the boundary", func() {
			So(collect(r), ShouldResemble, []uint8{254, 255, 0, 1})
			So(r.At(2), ShouldEqual, uint8(0))
		})

		Convey("First and Skip should split it", func() {
			So(collect(r.First(3)), ShouldResemble, []uint8{254, 255, 0})
			So(collect(r.Skip(3)), ShouldResemble, []uint8{1})
		})
	})

	Convey("Given an empty range", t, func() {
		r := NewRange[uint64](9, 9)
		So(r.Empty(), ShouldBeTrue)
		So(r.Size(), ShouldBeZeroValue)
		So(collect(r), ShouldBeEmpty)
		So(func() { r.At(0) }, ShouldPanic)
	})
}
