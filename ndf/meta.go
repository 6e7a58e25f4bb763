package ndf

import (
	"bytes"
	"fmt"

	"github.com/robert-malhotra/go-darr/container"
	"github.com/robert-malhotra/go-darr/darr"
	"github.com/robert-malhotra/go-darr/internal/binary"
	"github.com/robert-malhotra/go-darr/internal/nd"
)

const (
	kindGroup   = 'g'
	kindDataset = 'd'

	flagReplicated = 0x01
)

// attrMeta is one attribute in footer order.
type attrMeta struct {
	name  string
	value container.Value
}

// nodeMeta is a node of the file's tree description. Dataset payload
// offsets are assigned by assignLayout, never stored by the caller.
type nodeMeta struct {
	name  string
	attrs []attrMeta

	// group form
	children []*nodeMeta

	// dataset form
	dataset    bool
	replicated bool
	dtype      darr.Dtype
	shape      []int
	offset     int64
	length     int64
}

// snapshot captures the structure of a container tree as file metadata.
// Payload offsets are left unset.
func snapshot(g *container.Group) (*nodeMeta, error) {
	root := &nodeMeta{name: g.Name(), attrs: attrsOf(g)}
	for _, name := range g.Members() {
		child, err := g.Get(name)
		if err != nil {
			return nil, err
		}
		switch n := child.(type) {
		case *container.Group:
			sub, err := snapshot(n)
			if err != nil {
				return nil, err
			}
			sub.name = name
			root.children = append(root.children, sub)
		case *container.Dataset:
			dtype := n.Dtype()
			shape := n.Shape()
			root.children = append(root.children, &nodeMeta{
				name:       name,
				attrs:      attrsOf(n),
				dataset:    true,
				replicated: !n.Distributed(),
				dtype:      dtype,
				shape:      shape,
				length:     int64(nd.Size(shape) * dtype.Size),
			})
		default:
			return nil, fmt.Errorf("ndf: %s: unknown node type %T", child.Path(), child)
		}
	}
	return root, nil
}

func attrsOf(n container.Node) []attrMeta {
	var out []attrMeta
	for _, name := range n.AttrNames() {
		v, err := n.Attr(name)
		if err != nil {
			continue // name came from AttrNames, cannot happen
		}
		out = append(out, attrMeta{name: name, value: v})
	}
	return out
}

func align8(off int64) int64 {
	return (off + 7) &^ 7
}

// assignLayout walks the tree depth-first and assigns each dataset its
// payload offset: 8-byte aligned, in walk order, starting right after the
// header. It returns the end of the data region.
func assignLayout(root *nodeMeta) int64 {
	off := int64(headerSize)
	var walk func(n *nodeMeta)
	walk = func(n *nodeMeta) {
		if n.dataset {
			off = align8(off)
			n.offset = off
			off += n.length
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(root)
	return off
}

// encodeMeta serializes the tree into the footer block. The block is a
// pure function of the tree, so it doubles as the fingerprint for the
// cross-rank consistency check.
func encodeMeta(root *nodeMeta) ([]byte, error) {
	var buf binary.Buffer
	if err := encodeNode(binary.NewWriter(&buf), root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeNode(w *binary.Writer, n *nodeMeta) error {
	kind := byte(kindGroup)
	if n.dataset {
		kind = kindDataset
	}
	if err := w.WriteUint8(kind); err != nil {
		return err
	}
	if err := w.WriteString(n.name); err != nil {
		return err
	}
	if err := w.WriteUint16(uint16(len(n.attrs))); err != nil {
		return err
	}
	for _, a := range n.attrs {
		if err := w.WriteString(a.name); err != nil {
			return err
		}
		if err := a.value.EncodeTo(w); err != nil {
			return err
		}
	}

	if !n.dataset {
		if err := w.WriteUint32(uint32(len(n.children))); err != nil {
			return err
		}
		for _, c := range n.children {
			if err := encodeNode(w, c); err != nil {
				return err
			}
		}
		return nil
	}

	var flags uint8
	if n.replicated {
		flags |= flagReplicated
	}
	if err := w.WriteUint8(flags); err != nil {
		return err
	}
	if err := w.WriteUint8(n.dtype.Code()); err != nil {
		return err
	}
	if err := w.WriteUint8(uint8(len(n.shape))); err != nil {
		return err
	}
	for _, s := range n.shape {
		if err := w.WriteUint64(uint64(s)); err != nil {
			return err
		}
	}
	if err := w.WriteUint64(uint64(n.offset)); err != nil {
		return err
	}
	return w.WriteUint64(uint64(n.length))
}

func decodeMeta(block []byte) (*nodeMeta, error) {
	root, err := decodeNode(binary.NewReader(bytes.NewReader(block)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if root.dataset {
		return nil, fmt.Errorf("%w: root node is a dataset", ErrCorrupt)
	}
	return root, nil
}

func decodeNode(r *binary.Reader) (*nodeMeta, error) {
	kind, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if kind != kindGroup && kind != kindDataset {
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}

	n := &nodeMeta{dataset: kind == kindDataset}
	if n.name, err = r.ReadString(); err != nil {
		return nil, err
	}
	count, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(count); i++ {
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		v, err := container.DecodeValue(r)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		n.attrs = append(n.attrs, attrMeta{name: name, value: v})
	}

	if !n.dataset {
		nchild, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(nchild); i++ {
			child, err := decodeNode(r)
			if err != nil {
				return nil, err
			}
			n.children = append(n.children, child)
		}
		return n, nil
	}

	flags, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	n.replicated = flags&flagReplicated != 0
	code, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if n.dtype, err = darr.DtypeFromCode(code); err != nil {
		return nil, err
	}
	ndim, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	n.shape = make([]int, ndim)
	for i := range n.shape {
		u, err := r.ReadUint64()
		if err != nil {
			return nil, err
		}
		n.shape[i] = int(u)
		if n.shape[i] <= 0 {
			return nil, fmt.Errorf("dataset %q: shape[%d] = %d", n.name, i, n.shape[i])
		}
	}
	uoff, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	ulen, err := r.ReadUint64()
	if err != nil {
		return nil, err
	}
	n.offset, n.length = int64(uoff), int64(ulen)
	if n.length != int64(nd.Size(n.shape)*n.dtype.Size) {
		return nil, fmt.Errorf("dataset %q: length %d does not match shape %v of %v",
			n.name, n.length, n.shape, n.dtype)
	}
	return n, nil
}

// forEachDataset visits every dataset in footer walk order with its
// absolute path.
func forEachDataset(root *nodeMeta, fn func(path string, n *nodeMeta) error) error {
	var walk func(prefix string, n *nodeMeta) error
	walk = func(prefix string, n *nodeMeta) error {
		for _, c := range n.children {
			path := prefix + "/" + c.name
			if c.dataset {
				if err := fn(path, c); err != nil {
					return err
				}
				continue
			}
			if err := walk(path, c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk("", root)
}
