package darr

import (
	"fmt"

	"github.com/robert-malhotra/go-darr/comm"
	"github.com/robert-malhotra/go-darr/internal/nd"
)

// Exchange performs the all-to-all block exchange that moves an array from
// one partitioning to another. src is this rank's slab under the source
// partitioning; the returned buffer is its slab under the destination
// partitioning. shape is the global shape of the exchanged data, elem the
// element size in bytes.
//
// Two forms are supported. When srcAxis != dstAxis the array moves from
// being distributed over srcAxis (slabs srcParts) to distributed over
// dstAxis (slabs dstParts): the block for rank pair (r, s) is the
// rectangular intersection of r's source slab with s's destination slab,
// projected onto the full orthogonal extents. When srcAxis == dstAxis the
// partitioning changes along a single axis — srcParts may be irregular
// (for example the leftovers of a selection) — and the pair block is the
// 1-D interval intersection. Pairs with empty blocks exchange nothing.
//
// Every rank issues at most one send and one receive per peer; the
// operation is collective and completes as a single step.
func Exchange(c comm.Communicator, elem int, shape []int, srcAxis int, srcParts []Interval, dstAxis int, dstParts []Interval, src []byte) ([]byte, error) {
	rank, size := c.Rank(), c.Size()
	checkPartition(srcParts, shape[srcAxis])
	checkPartition(dstParts, shape[dstAxis])

	srcLocal := shapeWith(shape, srcAxis, srcParts[rank].Extent)
	dstLocal := shapeWith(shape, dstAxis, dstParts[rank].Extent)
	if len(src) != nd.Size(srcLocal)*elem {
		err := fmt.Errorf("darr: exchange source on rank %d is %d bytes, slab shape %v needs %d",
			rank, len(src), srcLocal, nd.Size(srcLocal)*elem)
		c.Abort(err)
		return nil, err
	}
	out := make([]byte, nd.Size(dstLocal)*elem)

	// blockFor returns the block shape exchanged by the ordered pair
	// (r, s) plus its offsets within r's source slab and s's destination
	// slab.
	blockFor := func(r, s int) (block, srcOff, dstOff []int, ok bool) {
		srcOff = make([]int, len(shape))
		dstOff = make([]int, len(shape))
		if srcAxis == dstAxis {
			inter := Intersect(srcParts[r], dstParts[s])
			if inter.Empty() {
				return nil, nil, nil, false
			}
			block = shapeWith(shape, srcAxis, inter.Extent)
			srcOff[srcAxis] = inter.Offset - srcParts[r].Offset
			dstOff[srcAxis] = inter.Offset - dstParts[s].Offset
			return block, srcOff, dstOff, true
		}
		if srcParts[r].Empty() || dstParts[s].Empty() {
			return nil, nil, nil, false
		}
		block = append([]int(nil), shape...)
		block[srcAxis] = srcParts[r].Extent
		block[dstAxis] = dstParts[s].Extent
		srcOff[dstAxis] = dstParts[s].Offset
		dstOff[srcAxis] = srcParts[r].Offset
		return block, srcOff, dstOff, true
	}

	zeros := make([]int, len(shape))

	// Post all sends first; sends are buffered, so the symmetric pattern
	// cannot deadlock.
	for s := 0; s < size; s++ {
		if s == rank {
			continue
		}
		block, srcOff, _, ok := blockFor(rank, s)
		if !ok {
			continue
		}
		msg := make([]byte, nd.Size(block)*elem)
		nd.CopyBlock(msg, src, block, srcLocal, zeros, srcOff, block, elem)
		if err := c.Send(s, tagExchange+rank*size+s, msg); err != nil {
			return nil, fmt.Errorf("exchange send to rank %d: %w", s, err)
		}
	}

	// This rank's own block never leaves the process.
	if block, srcOff, dstOff, ok := blockFor(rank, rank); ok {
		nd.CopyBlock(out, src, dstLocal, srcLocal, dstOff, srcOff, block, elem)
	}

	// Drain receives in peer order.
	for r := 0; r < size; r++ {
		if r == rank {
			continue
		}
		block, _, dstOff, ok := blockFor(r, rank)
		if !ok {
			continue
		}
		msg, err := c.Recv(r, tagExchange+r*size+rank)
		if err != nil {
			return nil, fmt.Errorf("exchange recv from rank %d: %w", r, err)
		}
		if len(msg) != nd.Size(block)*elem {
			err := fmt.Errorf("darr: exchange block from rank %d is %d bytes, want %d", r, len(msg), nd.Size(block)*elem)
			c.Abort(err)
			return nil, err
		}
		nd.CopyBlock(out, msg, dstLocal, block, dstOff, zeros, block, elem)
	}
	return out, nil
}

func shapeWith(shape []int, axis, extent int) []int {
	out := append([]int(nil), shape...)
	out[axis] = extent
	return out
}
