package darr

import (
	"fmt"

	"github.com/robert-malhotra/go-darr/comm"
	"github.com/robert-malhotra/go-darr/internal/nd"
)

// Tags used by the collective operations in this package. Collective calls
// are issued in the same order on every rank, so a fixed tag per operation
// cannot collide with itself across calls (per-pair FIFO ordering) and the
// values are outside the range sensible user code picks.
const (
	tagScatter  = 1 << 30
	tagExchange = 1<<30 + 1 // base; pair (r,s) uses tagExchange + r*size + s
)

// Gather assembles the full global array in row-major global index order
// on root and returns it there; every other rank returns nil. Collective.
func (a *Array) Gather(root int) ([]byte, error) {
	a.checkInvariant()

	parts, err := comm.Gather(a.comm, root, a.buf)
	if err != nil {
		return nil, fmt.Errorf("gathering to rank %d: %w", root, err)
	}
	if a.comm.Rank() != root {
		return nil, nil
	}

	elem := a.dtype.Size
	full := make([]byte, nd.Size(a.shape)*elem)
	zeros := make([]int, len(a.shape))

	for r, iv := range PartitionAll(a.shape[a.axis], a.comm.Size()) {
		if iv.Empty() {
			continue
		}
		slab := append([]int(nil), a.shape...)
		slab[a.axis] = iv.Extent
		if len(parts[r]) != nd.Size(slab)*elem {
			a.comm.Abort(fmt.Errorf("darr: gather received %d bytes from rank %d, want %d", len(parts[r]), r, nd.Size(slab)*elem))
			return nil, fmt.Errorf("darr: gather received %d bytes from rank %d, want %d", len(parts[r]), r, nd.Size(slab)*elem)
		}
		dstOff := make([]int, len(a.shape))
		dstOff[a.axis] = iv.Offset
		nd.CopyBlock(full, parts[r], a.shape, slab, dstOff, zeros, slab, elem)
	}
	return full, nil
}

// AllGather assembles the full global array on every rank. Collective.
func (a *Array) AllGather() ([]byte, error) {
	full, err := a.Gather(0)
	if err != nil {
		return nil, err
	}
	full, err = comm.Bcast(a.comm, 0, full)
	if err != nil {
		return nil, fmt.Errorf("allgathering: %w", err)
	}
	return full, nil
}

// Scatter partitions a full global array held on root along axis and
// distributes the slabs, returning each rank's view as a new Array. Only
// root's full argument is consulted; it must be the complete array in
// row-major global index order. Collective.
func Scatter(c comm.Communicator, full []byte, shape []int, dtype Dtype, axis int, root int) (*Array, error) {
	a, err := New(c, shape, dtype, axis)
	if err != nil {
		c.Abort(err)
		return nil, err
	}

	elem := dtype.Size
	zeros := make([]int, len(shape))

	if c.Rank() == root {
		if len(full) != nd.Size(shape)*elem {
			err := fmt.Errorf("darr: scatter source is %d bytes, global shape %v needs %d", len(full), shape, nd.Size(shape)*elem)
			c.Abort(err)
			return nil, err
		}
		for r, iv := range PartitionAll(shape[axis], c.Size()) {
			slab := append([]int(nil), shape...)
			slab[axis] = iv.Extent
			srcOff := make([]int, len(shape))
			srcOff[axis] = iv.Offset

			block := make([]byte, nd.Size(slab)*elem)
			nd.CopyBlock(block, full, slab, shape, zeros, srcOff, slab, elem)

			if r == root {
				copy(a.buf, block)
				continue
			}
			if err := c.Send(r, tagScatter, block); err != nil {
				return nil, fmt.Errorf("scattering to rank %d: %w", r, err)
			}
		}
		return a, nil
	}

	block, err := c.Recv(root, tagScatter)
	if err != nil {
		return nil, fmt.Errorf("scattering from rank %d: %w", root, err)
	}
	if len(block) != len(a.buf) {
		err := fmt.Errorf("darr: scatter delivered %d bytes to rank %d, want %d", len(block), c.Rank(), len(a.buf))
		c.Abort(err)
		return nil, err
	}
	a.buf = block
	return a, nil
}
