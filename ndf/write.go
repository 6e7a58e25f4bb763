package ndf

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-darr/comm"
	"github.com/robert-malhotra/go-darr/container"
	"github.com/robert-malhotra/go-darr/darr"
	"github.com/robert-malhotra/go-darr/internal/binary"
	"github.com/robert-malhotra/go-darr/internal/nd"
)

// Write persists a container tree to a file. Collective: every rank calls
// with its copy of the same tree, and the call blocks until all ranks
// have entered. The tree metadata is cross-checked first, so a rank whose
// copy diverges fails the write on every rank instead of corrupting the
// file.
//
// All ranks compute the same byte layout from the metadata. Rank 0 writes
// the header, the footer, and the replicated payloads; every rank writes
// only its own slab of each distributed dataset, so the payload regions
// written by different ranks are disjoint. The finished file does not
// depend on the rank count.
func Write(g *container.Group, path string, opts ...Option) error {
	cfg := newConfig(opts)
	c := g.Comm()
	rank := c.Rank()

	root, err := snapshot(g)
	if err != nil {
		c.Abort(err)
		return err
	}
	dataEnd := assignLayout(root)
	block, err := encodeMeta(root)
	if err != nil {
		c.Abort(err)
		return err
	}
	metaOff := align8(dataEnd)
	h := header{
		metaOffset: uint64(metaOff),
		metaLength: uint64(len(block)),
		fileLength: uint64(metaOff) + uint64(len(block)) + 8,
	}

	// The footer block is a pure function of the tree, so comparing it
	// across ranks checks names, shapes, dtypes and attributes at once.
	if err := darr.VerifySame(c, "write "+path, block); err != nil {
		return err
	}

	// Rank 0 creates the file at its final size before anyone else
	// touches it.
	var f *os.File
	if rank == 0 {
		f, err = os.Create(path)
		if err == nil {
			err = f.Truncate(int64(h.fileLength))
		}
		if err != nil {
			c.Abort(err)
			return err
		}
	}
	if err := comm.Barrier(c); err != nil {
		if f != nil {
			f.Close()
		}
		return err
	}
	if rank != 0 {
		f, err = os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			c.Abort(err)
			return err
		}
	}
	defer f.Close()

	w := binary.NewWriter(f)
	if rank == 0 {
		if err := writeHeader(w.At(0), h); err != nil {
			c.Abort(err)
			return err
		}
		fw := w.At(metaOff)
		if err := fw.WriteBytes(block); err == nil {
			err = fw.WriteUint64(binary.Checksum(block))
		}
		if err != nil {
			c.Abort(err)
			return err
		}
	}

	err = forEachDataset(root, func(p string, n *nodeMeta) error {
		ds, err := g.Dataset(p)
		if err != nil {
			return err
		}
		cfg.logger.Debug().Int("rank", rank).Str("dataset", p).
			Int64("offset", n.offset).Int64("bytes", n.length).Msg("writing payload")

		if n.replicated {
			if rank != 0 {
				return nil
			}
			data, err := ds.Bytes()
			if err != nil {
				return err
			}
			if flt := cfg.filters[p]; flt != nil {
				data = append([]byte(nil), data...)
				if err := flt.Encode(data, n.dtype.Size); err != nil {
					return fmt.Errorf("filtering %s: %w", p, err)
				}
			}
			return w.At(n.offset).WriteBytes(data)
		}

		arr, err := ds.Array()
		if err != nil {
			return err
		}
		slab := arr.Local()
		if flt := cfg.filters[p]; flt != nil {
			slab = append([]byte(nil), slab...)
			if err := flt.Encode(slab, n.dtype.Size); err != nil {
				return fmt.Errorf("filtering %s: %w", p, err)
			}
		}
		elem := n.dtype.Size
		iv := arr.LocalInterval()
		var werr error
		nd.AxisSlabRuns(n.shape, arr.Axis(), iv.Offset, iv.Extent, func(global, local, run int) {
			if werr != nil {
				return
			}
			werr = w.At(n.offset + int64(global*elem)).
				WriteBytes(slab[local*elem : (local+run)*elem])
		})
		return werr
	})
	if err != nil {
		c.Abort(err)
		return err
	}

	if err := f.Sync(); err != nil {
		c.Abort(err)
		return err
	}
	// The closing barrier guarantees every rank's slab is on disk before
	// any rank returns.
	return comm.Barrier(c)
}
