package xand

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/gomlx/gomlx/pkg/support/sets"
	"github.com/gomlx/gomlx/pkg/support/xslices"
)

// String implements fmt.Stringer, and pretty prints graph information.
func (g *Graph) String() string {
	var buf bytes.Buffer
	w := func(format string, args ...any) {
		if len(args) == 0 {
			buf.WriteString(format)
		} else {
			buf.WriteString(fmt.Sprintf(format, args...))
		}
	}
	w("xand Graph:\n")
	w("\t# nodes:\t%d\n", len(g.Nodes))

	opSet := sets.Make[string]()
	numData := 0
	for _, n := range g.Nodes {
		if n.Op != nil {
			opSet.Insert(n.Op.OpName())
		} else {
			numData++
		}
	}
	w("\t# data nodes:\t%d\n", numData)
	w("\tOp types:\t%#v\n", slices.Sorted(maps.Keys(opSet)))

	nodeName := func(n *Node) string { return n.Name }
	w("\tInputs:\t%q\n", xslices.Map(g.InputNodes, nodeName))
	w("\tOutputs:\t%q\n", xslices.Map(g.OutputNodes, nodeName))
	return buf.String()
}

// NodeString formats one node with its edges, for debugging.
func (g *Graph) NodeString(n *Node) string {
	kind := "data"
	detail := ""
	if n.Op != nil {
		kind = "op"
		detail = fmt.Sprintf(" %s[%s]", n.Op.OpName(), n.Op.Kind())
	} else if n.Data != nil {
		detail = fmt.Sprintf(" %s", n.Data.Type)
	}
	nodeName := func(in *Node) string { return in.Name }
	return fmt.Sprintf("%s (%s%s) inputs=%q outputs=%q",
		n.Name, kind, detail, xslices.Map(n.Inputs, nodeName), xslices.Map(n.Outputs, nodeName))
}
