package ndf

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/robert-malhotra/go-darr/comm"
	"github.com/robert-malhotra/go-darr/container"
	"github.com/robert-malhotra/go-darr/darr"
	bin "github.com/robert-malhotra/go-darr/internal/binary"
	"github.com/robert-malhotra/go-darr/internal/nd"
)

// Read loads a file into a container tree bound to the communicator.
// Collective: every rank calls with the same path and options. The file's
// metadata is cross-checked across ranks, so ranks accidentally reading
// different files fail everywhere instead of hanging.
//
// Distributed datasets come back partitioned over axis 0 by default;
// WithAxis overrides the axis, WithSelection reads only a selection, and
// WithReplicated loads full copies on every rank. The rank count does not
// have to match the one the file was written with.
func Read(c comm.Communicator, path string, opts ...Option) (*container.Group, error) {
	cfg := newConfig(opts)

	f, err := os.Open(path)
	if err != nil {
		c.Abort(err)
		return nil, err
	}
	defer f.Close()

	r := bin.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		c.Abort(err)
		return nil, err
	}
	fr := r.At(int64(h.metaOffset))
	block, err := fr.ReadBytes(int(h.metaLength))
	if err != nil {
		c.Abort(err)
		return nil, err
	}
	stored, err := fr.ReadUint64()
	if err != nil {
		c.Abort(err)
		return nil, err
	}
	if err := bin.VerifyChecksum(block, stored); err != nil {
		err = fmt.Errorf("%w: footer checksum", ErrCorrupt)
		c.Abort(err)
		return nil, err
	}

	// All ranks must be looking at the same file.
	if err := darr.VerifySame(c, "read "+path, block); err != nil {
		return nil, err
	}

	meta, err := decodeMeta(block)
	if err != nil {
		// The block is byte-identical on every rank, so every rank
		// fails here the same way.
		return nil, err
	}
	if err := validateOptions(cfg, meta); err != nil {
		c.Abort(err)
		return nil, err
	}

	root := container.NewRoot(c)
	setAttrs(root, meta.attrs)
	if err := buildTree(c, r, root, "", meta, cfg); err != nil {
		return nil, err
	}
	return root, comm.Barrier(c)
}

func setAttrs(n container.Node, attrs []attrMeta) {
	for _, a := range attrs {
		// Names came out of a well-formed footer.
		_ = n.SetAttr(a.name, a.value)
	}
}

// validateOptions checks the per-dataset options against the file's tree.
// Options are assumed identical on every rank.
func validateOptions(cfg *config, meta *nodeMeta) error {
	datasets := make(map[string]*nodeMeta)
	if err := forEachDataset(meta, func(path string, n *nodeMeta) error {
		datasets[path] = n
		return nil
	}); err != nil {
		return err
	}

	lookup := func(path string) (*nodeMeta, error) {
		n, ok := datasets[path]
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, ErrNoOverride)
		}
		return n, nil
	}

	for path, axis := range cfg.axes {
		n, err := lookup(path)
		if err != nil {
			return err
		}
		if n.replicated {
			return fmt.Errorf("ndf: %s is stored replicated, cannot distribute over axis %d", path, axis)
		}
		if axis < 0 || axis >= len(n.shape) {
			return fmt.Errorf("ndf: %s: axis %d out of range for shape %v", path, axis, n.shape)
		}
	}
	for path := range cfg.sels {
		n, err := lookup(path)
		if err != nil {
			return err
		}
		if n.replicated {
			return fmt.Errorf("ndf: %s is stored replicated, cannot read a selection", path)
		}
		if cfg.repl[path] {
			return fmt.Errorf("ndf: %s: selection and replicated load are mutually exclusive", path)
		}
	}
	for path := range cfg.repl {
		if _, err := lookup(path); err != nil {
			return err
		}
	}
	for path := range cfg.filters {
		if _, err := lookup(path); err != nil {
			return err
		}
	}
	return nil
}

func buildTree(c comm.Communicator, r *bin.Reader, g *container.Group, prefix string, meta *nodeMeta, cfg *config) error {
	for _, n := range meta.children {
		path := prefix + "/" + n.name
		if !n.dataset {
			sub, err := g.CreateGroup(n.name)
			if err != nil {
				return err
			}
			setAttrs(sub, n.attrs)
			if err := buildTree(c, r, sub, path, n, cfg); err != nil {
				return err
			}
			continue
		}

		ds, err := readDataset(c, r, g, path, n, cfg)
		if err != nil {
			return err
		}
		setAttrs(ds, n.attrs)
	}
	return nil
}

func readDataset(c comm.Communicator, r *bin.Reader, g *container.Group, path string, n *nodeMeta, cfg *config) (*container.Dataset, error) {
	cfg.logger.Debug().Int("rank", c.Rank()).Str("dataset", path).
		Int64("offset", n.offset).Int64("bytes", n.length).Msg("reading payload")
	flt := cfg.filters[path]

	if n.replicated || cfg.repl[path] {
		data, err := r.At(n.offset).ReadBytes(int(n.length))
		if err != nil {
			c.Abort(err)
			return nil, err
		}
		if flt != nil {
			if err := flt.Decode(data, n.dtype.Size); err != nil {
				err = fmt.Errorf("filtering %s: %w", path, err)
				c.Abort(err)
				return nil, err
			}
		}
		return g.CreateReplicated(n.name, n.dtype, n.shape, data)
	}

	axis := cfg.axes[path] // zero value is the default axis

	if sel, ok := cfg.sels[path]; ok {
		arr, err := readSelected(c, r, n, axis, sel, flt)
		if err != nil {
			return nil, err
		}
		return g.CreateDatasetFrom(n.name, arr)
	}

	elem := n.dtype.Size
	iv := darr.Partition(n.shape[axis], c.Size(), c.Rank())
	buf := make([]byte, nd.Size(shapeWith(n.shape, axis, iv.Extent))*elem)
	if err := readSlab(r, n, axis, iv, buf); err != nil {
		c.Abort(err)
		return nil, err
	}
	if flt != nil {
		if err := flt.Decode(buf, elem); err != nil {
			err = fmt.Errorf("filtering %s: %w", path, err)
			c.Abort(err)
			return nil, err
		}
	}
	arr, err := darr.Wrap(c, n.shape, n.dtype, axis, buf)
	if err != nil {
		return nil, err
	}
	return g.CreateDatasetFrom(n.name, arr)
}

// readSlab reads the hyperslab [iv.Offset, iv.End()) along axis of the
// dataset's payload into buf, densely packed.
func readSlab(r *bin.Reader, n *nodeMeta, axis int, iv darr.Interval, buf []byte) error {
	elem := n.dtype.Size
	var rerr error
	nd.AxisSlabRuns(n.shape, axis, iv.Offset, iv.Extent, func(global, local, run int) {
		if rerr != nil {
			return
		}
		chunk, err := r.At(n.offset + int64(global*elem)).ReadBytes(run * elem)
		if err != nil {
			rerr = err
			return
		}
		copy(buf[local*elem:], chunk)
	})
	return rerr
}

// readSelected reads only the selected elements of a distributed dataset:
// each rank reads the selected rows along the distribution axis that fall
// in its canonical slab of the file shape, applies the orthogonal-axis
// selections in memory, and a final exchange evens the irregular shares
// onto the canonical partition of the selection's shape.
func readSelected(c comm.Communicator, r *bin.Reader, n *nodeMeta, axis int, sel darr.Sel, flt Filter) (*darr.Array, error) {
	rank, size := c.Rank(), c.Size()
	elem := n.dtype.Size

	idx, err := sel.Resolve(n.shape)
	if err != nil {
		c.Abort(err)
		return nil, err
	}
	axisIdx := idx[axis]
	if !sort.IntsAreSorted(axisIdx) || hasRepeats(axisIdx) {
		err := fmt.Errorf("ndf: selection along distributed axis %d must be strictly increasing", axis)
		c.Abort(err)
		return nil, err
	}
	if err := darr.VerifySame(c, "read selection", idxFingerprint(idx)); err != nil {
		return nil, err
	}

	outShape := make([]int, len(n.shape))
	for k, list := range idx {
		if len(list) == 0 {
			err := fmt.Errorf("ndf: selection is empty along axis %d", k)
			c.Abort(err)
			return nil, err
		}
		outShape[k] = len(list)
	}

	// This rank reads the selected rows inside its canonical slab of the
	// file shape, compacted along the axis.
	srcParts := darr.SelectionParts(axisIdx, darr.PartitionAll(n.shape[axis], size))
	mine := axisIdx[srcParts[rank].Offset:srcParts[rank].End()]

	compShape := shapeWith(n.shape, axis, len(mine))
	compacted := make([]byte, nd.Size(compShape)*elem)
	for j, g := range mine {
		var rerr error
		nd.AxisSlabRuns(n.shape, axis, g, 1, func(global, local, run int) {
			if rerr != nil {
				return
			}
			chunk, err := r.At(n.offset + int64(global*elem)).ReadBytes(run * elem)
			if err != nil {
				rerr = err
				return
			}
			outer := local / run
			copy(compacted[(outer*len(mine)+j)*run*elem:], chunk)
		})
		if rerr != nil {
			c.Abort(rerr)
			return nil, rerr
		}
	}
	if flt != nil {
		if err := flt.Decode(compacted, elem); err != nil {
			c.Abort(err)
			return nil, err
		}
	}

	// Apply the orthogonal-axis selections; the axis itself is already
	// fully selected in the compacted buffer.
	compIdx := make([][]int, len(idx))
	copy(compIdx, idx)
	compIdx[axis] = seq(len(mine))
	held := make([]byte, nd.Size(shapeWith(outShape, axis, len(mine)))*elem)
	nd.CopySelected(held, compacted, compShape, compIdx, elem)

	buf, err := darr.Exchange(c, elem, outShape, axis, srcParts, axis, darr.PartitionAll(outShape[axis], size), held)
	if err != nil {
		return nil, err
	}
	return darr.Wrap(c, outShape, n.dtype, axis, buf)
}

func shapeWith(shape []int, axis, extent int) []int {
	out := append([]int(nil), shape...)
	out[axis] = extent
	return out
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func hasRepeats(idx []int) bool {
	for i := 1; i < len(idx); i++ {
		if idx[i] == idx[i-1] {
			return true
		}
	}
	return false
}

func idxFingerprint(idx [][]int) []byte {
	var buf []byte
	for _, list := range idx {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(len(list)))
		for _, v := range list {
			buf = binary.LittleEndian.AppendUint64(buf, uint64(v))
		}
	}
	return buf
}
