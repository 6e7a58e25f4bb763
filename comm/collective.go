package comm

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-darr/internal/binary"
)

// Barrier blocks until every rank of the group has entered it. Collective.
func Barrier(c Communicator) error {
	size := c.Size()
	if size == 1 {
		return nil
	}

	if c.Rank() != 0 {
		if err := c.Send(0, tagBarrier, nil); err != nil {
			return fmt.Errorf("barrier: %w", err)
		}
		if _, err := c.Recv(0, tagBarrier); err != nil {
			return fmt.Errorf("barrier: %w", err)
		}
		return nil
	}

	for r := 1; r < size; r++ {
		if _, err := c.Recv(r, tagBarrier); err != nil {
			return fmt.Errorf("barrier: %w", err)
		}
	}
	for r := 1; r < size; r++ {
		if err := c.Send(r, tagBarrier, nil); err != nil {
			return fmt.Errorf("barrier: %w", err)
		}
	}
	return nil
}

// Bcast distributes buf from root to every rank and returns the value seen
// by this rank. Only root's buf argument is consulted. Collective.
func Bcast(c Communicator, root int, buf []byte) ([]byte, error) {
	if c.Size() == 1 {
		return buf, nil
	}

	if c.Rank() == root {
		for r := 0; r < c.Size(); r++ {
			if r == root {
				continue
			}
			if err := c.Send(r, tagBcast, buf); err != nil {
				return nil, fmt.Errorf("bcast from rank %d: %w", root, err)
			}
		}
		return buf, nil
	}

	msg, err := c.Recv(root, tagBcast)
	if err != nil {
		return nil, fmt.Errorf("bcast from rank %d: %w", root, err)
	}
	return msg, nil
}

// Gather collects every rank's local buffer at root. On root the result
// holds one entry per rank, indexed by rank; on all other ranks it is nil.
// Collective.
func Gather(c Communicator, root int, local []byte) ([][]byte, error) {
	if c.Rank() != root {
		if err := c.Send(root, tagGather, local); err != nil {
			return nil, fmt.Errorf("gather to rank %d: %w", root, err)
		}
		return nil, nil
	}

	parts := make([][]byte, c.Size())
	own := make([]byte, len(local))
	copy(own, local)
	parts[root] = own

	for r := 0; r < c.Size(); r++ {
		if r == root {
			continue
		}
		msg, err := c.Recv(r, tagGather)
		if err != nil {
			return nil, fmt.Errorf("gather to rank %d: %w", root, err)
		}
		parts[r] = msg
	}
	return parts, nil
}

// AllGather collects every rank's local buffer on every rank. The result
// holds one entry per rank, indexed by rank. Collective.
func AllGather(c Communicator, local []byte) ([][]byte, error) {
	parts, err := Gather(c, 0, local)
	if err != nil {
		return nil, fmt.Errorf("allgather: %w", err)
	}

	var packed []byte
	if c.Rank() == 0 {
		var buf binary.Buffer
		w := binary.NewWriter(&buf)
		for _, part := range parts {
			if err := w.WriteUint32(uint32(len(part))); err != nil {
				return nil, fmt.Errorf("allgather: %w", err)
			}
			if err := w.WriteBytes(part); err != nil {
				return nil, fmt.Errorf("allgather: %w", err)
			}
		}
		packed = buf.Bytes()
	}

	packed, err = Bcast(c, 0, packed)
	if err != nil {
		return nil, fmt.Errorf("allgather: %w", err)
	}

	r := binary.NewReader(bytes.NewReader(packed))
	out := make([][]byte, c.Size())
	for i := range out {
		n, err := r.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("allgather: decoding part %d: %w", i, err)
		}
		part, err := r.ReadBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("allgather: decoding part %d: %w", i, err)
		}
		out[i] = part
	}
	return out, nil
}
