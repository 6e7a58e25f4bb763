package darr

import "fmt"

// Interval is a contiguous index range [Offset, Offset+Extent) along one
// axis.
type Interval struct {
	Offset int
	Extent int
}

// End returns the exclusive upper bound of the interval.
func (iv Interval) End() int { return iv.Offset + iv.Extent }

// Empty reports whether the interval contains no indices.
func (iv Interval) Empty() bool { return iv.Extent == 0 }

// Intersect returns the overlap of two intervals, or an empty interval at
// the clamped position when they do not overlap.
func Intersect(a, b Interval) Interval {
	lo := max(a.Offset, b.Offset)
	hi := min(a.End(), b.End())
	if hi <= lo {
		return Interval{Offset: lo, Extent: 0}
	}
	return Interval{Offset: lo, Extent: hi - lo}
}

// Partition returns the slab of a length-extent axis owned by rank when
// the axis is split over size ranks. Every rank gets floor(extent/size)
// indices; the remainder is handed out one extra index each to the
// lowest-numbered ranks. Offsets are contiguous and gapless, and the
// extents sum to extent.
func Partition(extent, size, rank int) Interval {
	if extent < 0 || size < 1 || rank < 0 || rank >= size {
		panic(fmt.Sprintf("darr: invalid partition (extent=%d, size=%d, rank=%d)", extent, size, rank))
	}
	base := extent / size
	rem := extent % size

	iv := Interval{Extent: base}
	if rank < rem {
		iv.Extent++
		iv.Offset = rank * (base + 1)
	} else {
		iv.Offset = rem*(base+1) + (rank-rem)*base
	}
	return iv
}

// PartitionAll returns the slabs of all size ranks, indexed by rank.
func PartitionAll(extent, size int) []Interval {
	parts := make([]Interval, size)
	for r := range parts {
		parts[r] = Partition(extent, size, r)
	}
	return parts
}

// checkPartition panics if parts is not a valid gapless partition of
// [0, extent). A failure here is an implementation bug, not a runtime
// condition; it must abort, not propagate.
func checkPartition(parts []Interval, extent int) {
	next := 0
	for r, iv := range parts {
		if iv.Extent < 0 || iv.Offset != next {
			panic(fmt.Sprintf("darr: partition invariant violated at rank %d: %+v", r, iv))
		}
		next = iv.End()
	}
	if next != extent {
		panic(fmt.Sprintf("darr: partition extents sum to %d, want %d", next, extent))
	}
}
