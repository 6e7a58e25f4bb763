// Inspection tool that prints the tree of a container file: groups,
// datasets and attributes.
package main

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/go-darr/comm"
	"github.com/robert-malhotra/go-darr/container"
	"github.com/robert-malhotra/go-darr/ndf"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ndfdump <file.ndf>")
		os.Exit(1)
	}
	filename := os.Args[1]

	c := comm.NewLocalGroup(1)[0]
	root, err := ndf.Read(c, filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ndfdump: %s: %v\n", filename, err)
		os.Exit(1)
	}

	fmt.Printf("%s\n/\n", filename)
	printAttrs(root, "  ")
	walk(root, "  ")
}

func walk(g *container.Group, indent string) {
	for _, name := range g.Members() {
		n, err := g.Get(name)
		if err != nil {
			fmt.Printf("%s%s: ERROR: %v\n", indent, name, err)
			continue
		}
		switch v := n.(type) {
		case *container.Group:
			fmt.Printf("%s%s/\n", indent, name)
			printAttrs(v, indent+"  ")
			walk(v, indent+"  ")
		case *container.Dataset:
			form := "distributed"
			if !v.Distributed() {
				form = "replicated"
			}
			fmt.Printf("%s%s  %v %v (%s)\n", indent, name, v.Dtype(), v.Shape(), form)
			printAttrs(v, indent+"  ")
		}
	}
}

func printAttrs(n container.Node, indent string) {
	for _, name := range n.AttrNames() {
		v, err := n.Attr(name)
		if err != nil {
			continue
		}
		fmt.Printf("%s@%s = %s\n", indent, name, formatValue(v))
	}
}

func formatValue(v container.Value) string {
	switch v.Kind() {
	case container.ValueInt:
		i, _ := v.Int()
		return fmt.Sprintf("%d", i)
	case container.ValueUint:
		u, _ := v.Uint()
		return fmt.Sprintf("%d", u)
	case container.ValueFloat:
		f, _ := v.Float()
		return fmt.Sprintf("%g", f)
	case container.ValueString:
		s, _ := v.Str()
		return fmt.Sprintf("%q", s)
	case container.ValueArray:
		dtype, shape, _, _ := v.Array()
		return fmt.Sprintf("%v array %v", dtype, shape)
	default:
		return v.Kind().String()
	}
}
