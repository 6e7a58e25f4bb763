package container

import (
	"fmt"

	"github.com/robert-malhotra/go-darr/comm"
	"github.com/robert-malhotra/go-darr/darr"
)

// Group is an interior node of the tree. It owns its children by name;
// names are unique within a group and case-sensitive, and iteration order
// is insertion order.
type Group struct {
	object
	children map[string]Node
	order    []string
}

func (g *Group) node() {}

// NewRoot creates an empty root group bound to a communicator. Creation is
// local; the communicator is used by the collective child-creation calls.
func NewRoot(c comm.Communicator) *Group {
	return &Group{
		object:   object{name: "/", path: "/", comm: c},
		children: make(map[string]Node),
	}
}

// Comm returns the communicator the tree is bound to.
func (g *Group) Comm() comm.Communicator { return g.comm }

// Members returns the child names in insertion order.
func (g *Group) Members() []string {
	return append([]string(nil), g.order...)
}

// CreateGroup creates a child group. Collective: every rank must create
// the same group at the same point in its call sequence (cross-checked by
// fingerprint).
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.checkNewChild(name); err != nil {
		g.comm.Abort(err)
		return nil, err
	}
	if err := darr.VerifySame(g.comm, "create group", []byte("group\x00"+joinPath(g.path, name))); err != nil {
		return nil, err
	}

	child := &Group{
		object:   object{name: name, path: joinPath(g.path, name), comm: g.comm},
		children: make(map[string]Node),
	}
	g.insert(name, child)
	return child, nil
}

// CreateDataset creates a child dataset backed by a distributed array
// partitioned along axis. Collective: every rank must pass identical name,
// shape, dtype and axis; divergence fails on every rank with a
// MismatchError naming the odd rank out.
func (g *Group) CreateDataset(name string, dtype darr.Dtype, shape []int, axis int) (*Dataset, error) {
	if err := g.checkNewChild(name); err != nil {
		g.comm.Abort(err)
		return nil, err
	}

	meta := append([]byte("dataset\x00"+joinPath(g.path, name)+"\x00"), datasetFingerprint(dtype, shape, axis)...)
	if err := darr.VerifySame(g.comm, "create dataset", meta); err != nil {
		return nil, err
	}

	arr, err := darr.New(g.comm, shape, dtype, axis)
	if err != nil {
		// Metadata agreed across ranks, so every rank fails here
		// identically; no abort needed.
		return nil, err
	}

	child := &Dataset{
		object: object{name: name, path: joinPath(g.path, name), comm: g.comm},
		dtype:  dtype,
		shape:  append([]int(nil), shape...),
		dist:   arr,
	}
	g.insert(name, child)
	return child, nil
}

// CreateDatasetFrom wraps an existing distributed array as a child
// dataset. Collective with the same cross-check as CreateDataset.
func (g *Group) CreateDatasetFrom(name string, arr *darr.Array) (*Dataset, error) {
	if err := g.checkNewChild(name); err != nil {
		g.comm.Abort(err)
		return nil, err
	}

	shape := arr.GlobalShape()
	meta := append([]byte("dataset\x00"+joinPath(g.path, name)+"\x00"), datasetFingerprint(arr.Dtype(), shape, arr.Axis())...)
	if err := darr.VerifySame(g.comm, "create dataset", meta); err != nil {
		return nil, err
	}

	child := &Dataset{
		object: object{name: name, path: joinPath(g.path, name), comm: g.comm},
		dtype:  arr.Dtype(),
		shape:  shape,
		dist:   arr,
	}
	g.insert(name, child)
	return child, nil
}

// CreateReplicated creates a child dataset holding a full copy of the data
// on every rank. It is not cross-checked: the caller is responsible for
// passing identical data everywhere, and at persist time only the lowest
// rank writes it.
func (g *Group) CreateReplicated(name string, dtype darr.Dtype, shape []int, data []byte) (*Dataset, error) {
	if err := g.checkNewChild(name); err != nil {
		return nil, err
	}
	if !dtype.Valid() {
		return nil, fmt.Errorf("container: unsupported dtype %v", dtype)
	}
	want := 1
	for i, s := range shape {
		if s <= 0 {
			return nil, fmt.Errorf("container: shape[%d] = %d, extents must be positive", i, s)
		}
		want *= s
	}
	if len(data) != want*dtype.Size {
		return nil, fmt.Errorf("container: replicated data is %d bytes, shape %v of %v needs %d",
			len(data), shape, dtype, want*dtype.Size)
	}

	child := &Dataset{
		object: object{name: name, path: joinPath(g.path, name), comm: g.comm},
		dtype:  dtype,
		shape:  append([]int(nil), shape...),
		repl:   append([]byte(nil), data...),
	}
	g.insert(name, child)
	return child, nil
}

// Get resolves a /-separated path relative to this group. Purely local.
func (g *Group) Get(path string) (Node, error) {
	parts := SplitPath(path)
	if len(parts) == 0 {
		return g, nil
	}

	current := g
	for i, name := range parts {
		child, ok := current.children[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", joinPath(current.path, name), ErrNotFound)
		}
		if i == len(parts)-1 {
			return child, nil
		}
		next, ok := child.(*Group)
		if !ok {
			return nil, fmt.Errorf("%s: %w", child.Path(), ErrNotGroup)
		}
		current = next
	}
	return current, nil
}

// Group resolves a path that must name a group.
func (g *Group) Group(path string) (*Group, error) {
	n, err := g.Get(path)
	if err != nil {
		return nil, err
	}
	child, ok := n.(*Group)
	if !ok {
		return nil, fmt.Errorf("%s: %w", n.Path(), ErrNotGroup)
	}
	return child, nil
}

// Dataset resolves a path that must name a dataset.
func (g *Group) Dataset(path string) (*Dataset, error) {
	n, err := g.Get(path)
	if err != nil {
		return nil, err
	}
	child, ok := n.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%s: %w", n.Path(), ErrNotDataset)
	}
	return child, nil
}

func (g *Group) checkNewChild(name string) error {
	if !validName(name) {
		return fmt.Errorf("container: name %q: %w", name, ErrBadName)
	}
	if _, ok := g.children[name]; ok {
		return fmt.Errorf("container: %s: %w", joinPath(g.path, name), ErrExists)
	}
	return nil
}

func (g *Group) insert(name string, n Node) {
	g.children[name] = n
	g.order = append(g.order, name)
}
