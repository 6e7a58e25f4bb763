package darr

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/robert-malhotra/go-darr/internal/nd"
)

// AxisSel selects indices along one axis of a global array.
type AxisSel interface {
	// Indices returns the selected global indices, in selection order,
	// for an axis of the given extent.
	Indices(extent int) ([]int, error)
}

// Range selects the contiguous half-open interval [Start, Stop). Negative
// bounds count back from the end of the axis; bounds are clamped to the
// axis extent.
type Range struct {
	Start, Stop int
}

// Indices implements AxisSel.
func (r Range) Indices(extent int) ([]int, error) {
	return Strided{Start: r.Start, Stop: r.Stop, Step: 1}.Indices(extent)
}

// Strided selects every Step-th index of [Start, Stop). Negative bounds
// count back from the end of the axis; Step must be >= 1.
type Strided struct {
	Start, Stop, Step int
}

// Indices implements AxisSel.
func (s Strided) Indices(extent int) ([]int, error) {
	if s.Step < 1 {
		return nil, fmt.Errorf("darr: selection step %d, must be >= 1", s.Step)
	}
	start, stop := s.Start, s.Stop
	if start < 0 {
		start += extent
	}
	if stop < 0 {
		stop += extent
	}
	start = max(0, min(start, extent))
	stop = max(0, min(stop, extent))

	var idx []int
	for i := start; i < stop; i += s.Step {
		idx = append(idx, i)
	}
	return idx, nil
}

// Index selects an explicit ordered list of indices. Along a distributed
// axis the list must be strictly increasing (so each rank's share of the
// result stays contiguous); along other axes any order is allowed.
type Index []int

// Indices implements AxisSel.
func (ix Index) Indices(extent int) ([]int, error) {
	idx := make([]int, len(ix))
	for i, v := range ix {
		if v < 0 {
			v += extent
		}
		if v < 0 || v >= extent {
			return nil, fmt.Errorf("darr: selection index %d out of range for extent %d", ix[i], extent)
		}
		idx[i] = v
	}
	return idx, nil
}

// Sel is a per-axis selection. Entries beyond its length, and nil entries,
// select the full axis.
type Sel []AxisSel

// Resolve expands the selection against a global shape into per-axis
// global index lists.
func (sel Sel) Resolve(shape []int) ([][]int, error) {
	if len(sel) > len(shape) {
		return nil, fmt.Errorf("darr: selection has %d axes, shape has %d", len(sel), len(shape))
	}
	idx := make([][]int, len(shape))
	for k, extent := range shape {
		var s AxisSel
		if k < len(sel) {
			s = sel[k]
		}
		if s == nil {
			full := make([]int, extent)
			for i := range full {
				full[i] = i
			}
			idx[k] = full
			continue
		}
		list, err := s.Indices(extent)
		if err != nil {
			return nil, fmt.Errorf("darr: selection axis %d: %w", k, err)
		}
		idx[k] = list
	}
	return idx, nil
}

// SelectionParts computes each rank's share of a selection along the
// distributed axis: for each rank, the interval of selection-result
// positions whose selected global indices fall inside that rank's slab.
// selIdx must be strictly increasing; parts is the per-rank slab
// partition of the axis. The returned intervals tile [0, len(selIdx)).
func SelectionParts(selIdx []int, parts []Interval) []Interval {
	out := make([]Interval, len(parts))
	for r, slab := range parts {
		lo := sort.SearchInts(selIdx, slab.Offset)
		hi := sort.SearchInts(selIdx, slab.End())
		out[r] = Interval{Offset: lo, Extent: hi - lo}
	}
	return out
}

// Select extracts a selection of the array as a new array: distributed
// along the same axis, with the canonical partition of the selected
// extent, so the result layout is independent of the rank count.
//
// Per axis the request is a contiguous range, a strided range, or an
// explicit index list; axes left nil are taken whole. On axes other than
// the distributed one the request applies identically on every rank. On
// the distributed axis each rank contributes only the selected indices
// inside its own slab — a rank whose slab misses the selection entirely
// contributes a zero-extent block, which is valid — and a final exchange
// evens the irregular shares back onto the canonical partition.
//
// Collective: every rank must pass the same selection (cross-checked).
func (a *Array) Select(sel Sel) (*Array, error) {
	a.checkInvariant()

	idx, err := sel.Resolve(a.shape)
	if err != nil {
		a.comm.Abort(err)
		return nil, err
	}
	axisIdx := idx[a.axis]
	if !sort.IntsAreSorted(axisIdx) || hasDuplicates(axisIdx) {
		err := fmt.Errorf("darr: selection along distributed axis %d must be strictly increasing", a.axis)
		a.comm.Abort(err)
		return nil, err
	}

	if err := VerifySame(a.comm, "select", selFingerprint(idx)); err != nil {
		return nil, err
	}

	outShape := make([]int, len(a.shape))
	for k, list := range idx {
		if len(list) == 0 {
			err := fmt.Errorf("darr: selection is empty along axis %d", k)
			a.comm.Abort(err)
			return nil, err
		}
		outShape[k] = len(list)
	}

	// Restrict the distributed axis to this rank's slab, in local
	// coordinates.
	slab := a.LocalInterval()
	localIdx := make([][]int, len(idx))
	copy(localIdx, idx)
	var mine []int
	for _, g := range axisIdx {
		if g >= slab.Offset && g < slab.End() {
			mine = append(mine, g-slab.Offset)
		}
	}
	localIdx[a.axis] = mine

	held := make([]byte, lenProduct(localIdx)*a.dtype.Size)
	nd.CopySelected(held, a.buf, a.local, localIdx, a.dtype.Size)

	// Even the irregular per-rank shares back onto the canonical
	// partition of the result.
	size := a.comm.Size()
	srcParts := SelectionParts(axisIdx, PartitionAll(a.shape[a.axis], size))
	dstParts := PartitionAll(outShape[a.axis], size)

	buf, err := Exchange(a.comm, a.dtype.Size, outShape, a.axis, srcParts, a.axis, dstParts, held)
	if err != nil {
		return nil, fmt.Errorf("selecting: %w", err)
	}

	out, err := Wrap(a.comm, outShape, a.dtype, a.axis, buf)
	if err != nil {
		return nil, err
	}
	out.checkInvariant()
	return out, nil
}

func hasDuplicates(idx []int) bool {
	for i := 1; i < len(idx); i++ {
		if idx[i] == idx[i-1] {
			return true
		}
	}
	return false
}

func lenProduct(idx [][]int) int {
	n := 1
	for _, list := range idx {
		n *= len(list)
	}
	return n
}

func selFingerprint(idx [][]int) []byte {
	var buf []byte
	for _, list := range idx {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(list)))
		for _, v := range list {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
		}
	}
	return buf
}
