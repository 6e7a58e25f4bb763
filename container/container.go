// Package container implements the in-memory hierarchical tree of groups,
// datasets and attributes that the parallel I/O engine persists.
//
// Each rank holds its own tree object; the tree itself is never shared
// between ranks. Consistency across ranks is a contract established when
// nodes are created: the collective creation calls cross-check their
// metadata with a fingerprint exchange, so a tree that was built without
// errors has identical structure on every rank. Path lookups and attribute
// access are purely local.
package container

import "errors"

// Common errors
var (
	ErrNotFound   = errors.New("object not found")
	ErrNotGroup   = errors.New("object is not a group")
	ErrNotDataset = errors.New("object is not a dataset")
	ErrExists     = errors.New("name already in use")
	ErrBadName    = errors.New("invalid object name")
)

// Node is a named member of the tree: either a *Group or a *Dataset. Both
// kinds carry attributes.
type Node interface {
	// Name returns the node name (last path component).
	Name() string
	// Path returns the absolute path of the node.
	Path() string
	// AttrNames returns the attribute names in insertion order.
	AttrNames() []string
	// Attr returns an attribute value, or ErrNotFound.
	Attr(name string) (Value, error)
	// SetAttr sets an attribute. Attributes are replicated values: the
	// caller is responsible for keeping them identical across ranks
	// (they are not cross-checked; at persist time only rank 0 writes
	// them).
	SetAttr(name string, v Value) error

	node()
}
