package xand

import (
	"slices"
)

// Graph owns the full node set of a computation graph, plus an index from
// base name to the nodes sharing it (the passes' candidate lookup), and the
// ordered lists of designated input and output nodes.
//
// A Graph is built once from a description, mutated destructively in place by
// shape inference (pruning) and by the optimization passes (rewriting), and
// then evaluated repeatedly. Nothing here is safe for concurrent use: the
// whole pipeline is single-threaded and ownership of the graph passes
// linearly from one stage to the next.
type Graph struct {
	Nodes []*Node

	InputNodes  []*Node
	OutputNodes []*Node

	byBase map[string][]*Node
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{byBase: make(map[string][]*Node)}
}

// AddNode appends the node to the graph and the base-name index. It never
// deduplicates by name; callers are responsible for uniqueness.
func (g *Graph) AddNode(n *Node) {
	g.Nodes = append(g.Nodes, n)
	base := n.BaseName()
	g.byBase[base] = append(g.byBase[base], n)
}

// Connect creates the directed edge from -> to, maintaining both sides of
// the bidirectional linkage. This is the only sanctioned way to create an
// edge; mutating the Inputs/Outputs lists elsewhere breaks the symmetry
// invariant.
func (g *Graph) Connect(from, to *Node) {
	from.Outputs = append(from.Outputs, to)
	to.Inputs = append(to.Inputs, from)
}

// disconnect removes the directed edge from -> to, again maintaining both
// sides. Removing an edge that does not exist is a no-op.
func (g *Graph) disconnect(from, to *Node) {
	from.Outputs = deleteNode(from.Outputs, to)
	to.Inputs = deleteNode(to.Inputs, from)
}

// deleteNode removes the first occurrence of target from list.
func deleteNode(list []*Node, target *Node) []*Node {
	if idx := slices.Index(list, target); idx >= 0 {
		return slices.Delete(list, idx, idx+1)
	}
	return list
}

// NodesByBase returns a snapshot of the nodes registered under the given
// base name. The copy lets passes iterate while the index mutates under
// them.
func (g *Graph) NodesByBase(base string) []*Node {
	return slices.Clone(g.byBase[base])
}

// ClearTensors resets all memoized tensors, so the next evaluation
// recomputes from scratch.
func (g *Graph) ClearTensors() {
	for _, n := range g.Nodes {
		n.clearTensor()
	}
}

// ClearShapes resets all memoized shapes, so the next shape inference
// recomputes from scratch.
func (g *Graph) ClearShapes() {
	for _, n := range g.Nodes {
		n.clearShape()
	}
}

// removeNode removes n from the node list and the base-name index, dropping
// the index entry when it empties. It does not touch any edges or the
// input/output designations.
func (g *Graph) removeNode(n *Node) {
	g.Nodes = deleteNode(g.Nodes, n)
	base := n.BaseName()
	g.byBase[base] = deleteNode(g.byBase[base], n)
	if len(g.byBase[base]) == 0 {
		delete(g.byBase, base)
	}
}

// removeOutput drops n from the designated outputs, if present.
func (g *Graph) removeOutput(n *Node) {
	g.OutputNodes = deleteNode(g.OutputNodes, n)
}

// rebuildIndex reconstructs the base-name index from the current node list.
func (g *Graph) rebuildIndex() {
	clear(g.byBase)
	for _, n := range g.Nodes {
		base := n.BaseName()
		g.byBase[base] = append(g.byBase[base], n)
	}
}
