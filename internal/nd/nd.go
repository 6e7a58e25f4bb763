// Package nd provides row-major shape and stride arithmetic for
// n-dimensional buffers: element counts, contiguous run decomposition of
// axis slabs, and rectangular block copies between buffers of different
// shapes.
package nd

// Size returns the number of elements in a buffer of the given shape.
// An empty shape describes a scalar and has size 1.
func Size(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Strides returns the row-major element strides for shape.
func Strides(shape []int) []int {
	strides := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= shape[i]
	}
	return strides
}

// CopyBlock copies a rectangular block of elements between two row-major
// buffers. The block has shape block and is read from src (shape srcShape)
// starting at srcOff, and written to dst (shape dstShape) starting at
// dstOff. All shapes must have the same number of dimensions; elemSize is
// the element width in bytes.
//
// The copy proceeds innermost-row at a time, so blocks that span the full
// trailing dimensions degenerate to a small number of large copies.
func CopyBlock(dst, src []byte, dstShape, srcShape, dstOff, srcOff, block []int, elemSize int) {
	if Size(block) == 0 {
		return
	}
	ndim := len(block)
	if ndim == 0 {
		copy(dst[:elemSize], src[:elemSize])
		return
	}

	srcStrides := Strides(srcShape)
	dstStrides := Strides(dstShape)

	// Row length along the innermost axis.
	row := block[ndim-1] * elemSize

	// Odometer over the leading block dimensions.
	idx := make([]int, ndim-1)
	for {
		srcPos := srcOff[ndim-1]
		dstPos := dstOff[ndim-1]
		for k := 0; k < ndim-1; k++ {
			srcPos += (srcOff[k] + idx[k]) * srcStrides[k]
			dstPos += (dstOff[k] + idx[k]) * dstStrides[k]
		}
		copy(dst[dstPos*elemSize:dstPos*elemSize+row], src[srcPos*elemSize:srcPos*elemSize+row])

		// Advance the odometer, most-significant digit first to overflow.
		k := ndim - 2
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < block[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}

// AxisSlabRuns decomposes the slab [off, off+n) along axis of a row-major
// array of the given shape into contiguous element runs. For each run it
// calls fn with the element offset of the run start in the full array, the
// element offset in the dense slab buffer, and the run length in elements.
func AxisSlabRuns(shape []int, axis, off, n int, fn func(global, local, run int)) {
	if n == 0 {
		return
	}
	inner := 1
	for _, s := range shape[axis+1:] {
		inner *= s
	}
	outer := 1
	for _, s := range shape[:axis] {
		outer *= s
	}
	run := n * inner
	for i := 0; i < outer; i++ {
		global := (i*shape[axis] + off) * inner
		local := i * run
		fn(global, local, run)
	}
}
