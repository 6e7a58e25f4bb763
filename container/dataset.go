package container

import (
	"encoding/binary"

	"github.com/robert-malhotra/go-darr/darr"
)

// Dataset is a leaf node holding array data: either a distributed array
// partitioned across the ranks, or a replicated buffer every rank holds in
// full.
type Dataset struct {
	object
	dtype darr.Dtype
	shape []int

	dist *darr.Array // distributed form, or
	repl []byte      // full local copy on every rank
}

func (d *Dataset) node() {}

// Dtype returns the element type.
func (d *Dataset) Dtype() darr.Dtype { return d.dtype }

// Shape returns a copy of the global shape.
func (d *Dataset) Shape() []int {
	return append([]int(nil), d.shape...)
}

// Distributed reports whether the dataset is backed by a distributed
// array.
func (d *Dataset) Distributed() bool { return d.dist != nil }

// Array returns the backing distributed array, or ErrNotDataset-flavored
// failure when the dataset is replicated.
func (d *Dataset) Array() (*darr.Array, error) {
	if d.dist == nil {
		return nil, errReplicated(d.path)
	}
	return d.dist, nil
}

// Bytes returns the replicated buffer. For a distributed dataset use
// Array (or gather it) instead.
func (d *Dataset) Bytes() ([]byte, error) {
	if d.dist != nil {
		return nil, errDistributed(d.path)
	}
	return d.repl, nil
}

// datasetFingerprint serializes dataset metadata for the collective
// consistency check.
func datasetFingerprint(dtype darr.Dtype, shape []int, axis int) []byte {
	buf := []byte{dtype.Code()}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(axis))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(len(shape)))
	for _, s := range shape {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(s))
	}
	return buf
}
