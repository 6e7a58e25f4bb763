package container

import (
	"fmt"

	"github.com/robert-malhotra/go-darr/comm"
)

// object carries what groups and datasets have in common: identity within
// the tree and an attribute map with stable iteration order.
type object struct {
	name string
	path string
	comm comm.Communicator

	attrOrder []string
	attrs     map[string]Value
}

func (o *object) Name() string { return o.name }

func (o *object) Path() string { return o.path }

func (o *object) AttrNames() []string {
	return append([]string(nil), o.attrOrder...)
}

func (o *object) Attr(name string) (Value, error) {
	v, ok := o.attrs[name]
	if !ok {
		return Value{}, fmt.Errorf("attribute %q on %s: %w", name, o.path, ErrNotFound)
	}
	return v, nil
}

func (o *object) SetAttr(name string, v Value) error {
	if !validName(name) {
		return fmt.Errorf("attribute name %q: %w", name, ErrBadName)
	}
	if o.attrs == nil {
		o.attrs = make(map[string]Value)
	}
	if _, ok := o.attrs[name]; !ok {
		o.attrOrder = append(o.attrOrder, name)
	}
	o.attrs[name] = v
	return nil
}
