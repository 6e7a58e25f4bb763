package darr

import (
	"fmt"
)

// Redistribute returns a new array with the same global shape, dtype and
// content, re-partitioned so that newAxis is the distributed axis. Only
// the assignment of slabs to ranks changes; the global content is
// byte-for-byte identical.
//
// Collective: every rank must call with the same newAxis (cross-checked).
// Redistributing onto the current axis moves no data but must still be
// called by every rank. With a single rank the exchange degenerates to a
// local copy.
func (a *Array) Redistribute(newAxis int) (*Array, error) {
	if newAxis < 0 || newAxis >= len(a.shape) {
		err := fmt.Errorf("darr: redistribute axis %d out of range for %d-d shape", newAxis, len(a.shape))
		a.comm.Abort(err)
		return nil, err
	}
	a.checkInvariant()

	meta := metaFingerprint(a.shape, a.dtype, a.axis)
	meta = append(meta, metaFingerprint(a.shape, a.dtype, newAxis)...)
	if err := VerifySame(a.comm, "redistribute", meta); err != nil {
		return nil, err
	}

	if newAxis == a.axis {
		buf := make([]byte, len(a.buf))
		copy(buf, a.buf)
		return Wrap(a.comm, a.shape, a.dtype, a.axis, buf)
	}

	size := a.comm.Size()
	buf, err := Exchange(a.comm, a.dtype.Size, a.shape,
		a.axis, PartitionAll(a.shape[a.axis], size),
		newAxis, PartitionAll(a.shape[newAxis], size),
		a.buf)
	if err != nil {
		return nil, fmt.Errorf("redistributing from axis %d to %d: %w", a.axis, newAxis, err)
	}

	out, err := Wrap(a.comm, a.shape, a.dtype, newAxis, buf)
	if err != nil {
		return nil, err
	}
	out.checkInvariant()
	return out, nil
}
