package darr

import (
	"fmt"

	"github.com/robert-malhotra/go-darr/comm"
	"github.com/robert-malhotra/go-darr/internal/nd"
)

// Array is an n-dimensional array with a global logical shape whose
// distributed axis is partitioned across the ranks of a communicator.
// Each rank exclusively owns the contiguous local buffer holding its slab;
// slabs are disjoint, so local reads and writes need no synchronization.
//
// The communicator is an identity the array holds but does not own.
type Array struct {
	shape []int
	axis  int
	dtype Dtype
	comm  comm.Communicator

	local  []int // shape with the distributed axis cut down to this rank's slab
	offset int   // global start index of the slab along axis
	buf    []byte
}

// New allocates an array of the given global shape distributed along axis.
// Every rank of the communicator must call New with identical shape, dtype
// and axis; this is not checked here (creation is a purely local
// allocation) but divergent metadata is a fatal error that collective
// operations on the array will detect.
func New(c comm.Communicator, shape []int, dtype Dtype, axis int) (*Array, error) {
	if err := validateMeta(shape, dtype, axis); err != nil {
		return nil, err
	}

	iv := Partition(shape[axis], c.Size(), c.Rank())

	a := &Array{
		shape:  append([]int(nil), shape...),
		axis:   axis,
		dtype:  dtype,
		comm:   c,
		offset: iv.Offset,
	}
	a.local = append([]int(nil), shape...)
	a.local[axis] = iv.Extent
	a.buf = make([]byte, nd.Size(a.local)*dtype.Size)
	return a, nil
}

// Wrap builds an array around an existing local buffer. The buffer length
// must match exactly what the partition assigns this rank; anything else
// means the caller's slabs cannot tile the global array.
func Wrap(c comm.Communicator, shape []int, dtype Dtype, axis int, buf []byte) (*Array, error) {
	a, err := New(c, shape, dtype, axis)
	if err != nil {
		return nil, err
	}
	if len(buf) != len(a.buf) {
		return nil, fmt.Errorf("darr: local buffer is %d bytes, partition of axis %d assigns rank %d %d bytes",
			len(buf), axis, c.Rank(), len(a.buf))
	}
	a.buf = buf
	return a, nil
}

func validateMeta(shape []int, dtype Dtype, axis int) error {
	if len(shape) == 0 {
		return fmt.Errorf("darr: empty shape")
	}
	for i, s := range shape {
		if s <= 0 {
			return fmt.Errorf("darr: shape[%d] = %d, extents must be positive", i, s)
		}
	}
	if axis < 0 || axis >= len(shape) {
		return fmt.Errorf("darr: distributed axis %d out of range for %d-d shape", axis, len(shape))
	}
	if !dtype.Valid() {
		return fmt.Errorf("darr: unsupported dtype %v", dtype)
	}
	return nil
}

// GlobalShape returns a copy of the global logical shape.
func (a *Array) GlobalShape() []int {
	return append([]int(nil), a.shape...)
}

// LocalShape returns a copy of this rank's slab shape.
func (a *Array) LocalShape() []int {
	return append([]int(nil), a.local...)
}

// Axis returns the distributed axis.
func (a *Array) Axis() int { return a.axis }

// Dtype returns the element type.
func (a *Array) Dtype() Dtype { return a.dtype }

// Comm returns the communicator the array is distributed over.
func (a *Array) Comm() comm.Communicator { return a.comm }

// LocalOffset returns the global index along the distributed axis at which
// this rank's slab starts.
func (a *Array) LocalOffset() int { return a.offset }

// Local returns the mutable local buffer: the rank's slab in row-major
// order. Callers may read and write it freely.
func (a *Array) Local() []byte { return a.buf }

// View bundles a rank's mutable slab with its placement in the global
// array.
type View struct {
	// Data is the slab in row-major order, aliasing the array's buffer.
	Data []byte
	// Shape is the slab shape.
	Shape []int
	// Offset is the global start index of the slab along the
	// distributed axis.
	Offset int
}

// LocalView returns this rank's mutable slab along with its shape and
// global offset. Slabs are disjoint, so writes need no synchronization.
func (a *Array) LocalView() View {
	return View{Data: a.buf, Shape: a.LocalShape(), Offset: a.offset}
}

// LocalInterval returns this rank's slab of the distributed axis.
func (a *Array) LocalInterval() Interval {
	return Interval{Offset: a.offset, Extent: a.local[a.axis]}
}

// GlobalIndex maps a local index along the distributed axis to its global
// position.
func (a *Array) GlobalIndex(local int) int {
	return a.offset + local
}

// checkInvariant panics unless the partition policy reproduces this
// rank's slab. Violations are programming errors.
func (a *Array) checkInvariant() {
	iv := Partition(a.shape[a.axis], a.comm.Size(), a.comm.Rank())
	if iv.Offset != a.offset || iv.Extent != a.local[a.axis] {
		panic(fmt.Sprintf("darr: rank %d slab (%d,%d) does not match partition of extent %d over %d ranks",
			a.comm.Rank(), a.offset, a.local[a.axis], a.shape[a.axis], a.comm.Size()))
	}
	if len(a.buf) != nd.Size(a.local)*a.dtype.Size {
		panic(fmt.Sprintf("darr: rank %d buffer is %d bytes for local shape %v", a.comm.Rank(), len(a.buf), a.local))
	}
}
