package darr

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/robert-malhotra/go-darr/comm"
)

// MismatchError reports that the ranks of a group disagreed on the
// metadata of a collective operation. It is fatal for the whole group:
// after diverging, the ranks cannot be trusted to issue matching
// collective calls.
type MismatchError struct {
	// Op names the operation whose metadata diverged.
	Op string
	// Rank is the lowest rank whose metadata differs from the group
	// majority, or -1 when no majority exists.
	Rank int
}

func (e *MismatchError) Error() string {
	if e.Rank < 0 {
		return fmt.Sprintf("darr: ranks disagree on metadata for %s", e.Op)
	}
	return fmt.Sprintf("darr: rank %d disagrees on metadata for %s", e.Rank, e.Op)
}

// VerifySame cross-checks that every rank entered op with the same
// metadata bytes. Each rank contributes an xxhash fingerprint via an
// all-gather, so every rank sees every fingerprint and the error (when
// any) is raised on all ranks at once rather than hanging some of them.
// Collective.
func VerifySame(c comm.Communicator, op string, meta []byte) error {
	if c.Size() == 1 {
		return nil
	}

	sum := make([]byte, 8)
	binary.LittleEndian.PutUint64(sum, xxhash.Sum64(meta))

	parts, err := comm.AllGather(c, sum)
	if err != nil {
		return fmt.Errorf("verifying %s metadata: %w", op, err)
	}

	sums := make([]uint64, len(parts))
	counts := make(map[uint64]int, len(parts))
	for r, part := range parts {
		sums[r] = binary.LittleEndian.Uint64(part)
		counts[sums[r]]++
	}
	if len(counts) == 1 {
		return nil
	}

	// Majority fingerprint, if one exists; the first rank off it is the
	// one named.
	var modal uint64
	best := 0
	for s, n := range counts {
		if n > best {
			modal, best = s, n
		}
	}
	if best*2 <= len(sums) {
		return &MismatchError{Op: op, Rank: -1}
	}
	for r, s := range sums {
		if s != modal {
			return &MismatchError{Op: op, Rank: r}
		}
	}
	return nil
}

// metaFingerprint serializes the array metadata checked by collective
// operations.
func metaFingerprint(shape []int, dtype Dtype, axis int) []byte {
	buf := make([]byte, 0, 8*len(shape)+16)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(shape)))
	for _, s := range shape {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s))
	}
	buf = append(buf, dtype.Code())
	buf = binary.LittleEndian.AppendUint64(buf, uint64(axis))
	return buf
}
