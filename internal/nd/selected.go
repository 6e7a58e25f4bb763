package nd

// CopySelected gathers the elements of src (row-major, shape srcShape)
// addressed by the per-axis index lists idx into dst, densely packed in
// row-major selection order. idx must hold one list per axis; list entries
// index into srcShape's extents. dst must have room for
// prod(len(idx[k])) * elemSize bytes.
//
// When the innermost index list is contiguous the innermost loop copies
// whole rows.
func CopySelected(dst, src []byte, srcShape []int, idx [][]int, elemSize int) {
	ndim := len(srcShape)
	total := 1
	for _, list := range idx {
		total *= len(list)
	}
	if total == 0 {
		return
	}

	strides := Strides(srcShape)
	inner := idx[ndim-1]
	contiguous := true
	for i := 1; i < len(inner); i++ {
		if inner[i] != inner[i-1]+1 {
			contiguous = false
			break
		}
	}

	row := len(inner) * elemSize
	pos := 0
	odo := make([]int, ndim-1)
	for {
		base := 0
		for k := 0; k < ndim-1; k++ {
			base += idx[k][odo[k]] * strides[k]
		}

		if contiguous {
			start := (base + inner[0]) * elemSize
			copy(dst[pos:pos+row], src[start:start+row])
			pos += row
		} else {
			for _, j := range inner {
				start := (base + j) * elemSize
				copy(dst[pos:pos+elemSize], src[start:start+elemSize])
				pos += elemSize
			}
		}

		k := ndim - 2
		for ; k >= 0; k-- {
			odo[k]++
			if odo[k] < len(idx[k]) {
				break
			}
			odo[k] = 0
		}
		if k < 0 {
			return
		}
	}
}
