package xand

import (
	"slices"

	"k8s.io/klog/v2"
)

// InferShapes computes the output shape of every node reachable from the
// declared inputs and prunes the graph down to exactly those nodes,
// rebuilding the base-name index afterwards.
//
// The traversal is breadth-first from the inputs, with a processed set to
// skip duplicates. When a node is processed, its own inputs are eagerly
// marked processed too: the recursive Shape getter already forced their
// shapes, so re-enqueueing them would only repeat work. The same marking is
// what prunes nodes never connected into an input's fan-out.
func (g *Graph) InferShapes() error {
	g.ClearShapes()

	queue := slices.Clone(g.InputNodes)
	processed := make(map[*Node]bool, len(g.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if processed[node] {
			continue
		}
		if _, err := node.Shape(); err != nil {
			return err
		}
		processed[node] = true
		for _, input := range node.Inputs {
			processed[input] = true
		}
		queue = append(queue, node.Outputs...)
	}

	// Replace the node set with the processed set, keeping insertion order.
	// The input/output designations must shrink with it: a pruned sink must
	// not linger as a declared output.
	kept := make([]*Node, 0, len(processed))
	for _, n := range g.Nodes {
		if processed[n] {
			kept = append(kept, n)
		}
	}
	if pruned := len(g.Nodes) - len(kept); pruned > 0 {
		klog.V(1).Infof("shape inference pruned %d unreachable node(s)", pruned)
	}
	g.Nodes = kept
	g.InputNodes = slices.DeleteFunc(g.InputNodes, func(n *Node) bool { return !processed[n] })
	g.OutputNodes = slices.DeleteFunc(g.OutputNodes, func(n *Node) bool { return !processed[n] })
	g.rebuildIndex()
	return nil
}
