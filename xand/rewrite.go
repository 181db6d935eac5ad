package xand

import (
	"slices"
)

// The four optimization passes share one rewrite discipline: scan the
// candidates (snapshotted at scan start), rewrite the first match, then
// restart the scan from scratch. Restarting keeps iteration away from lists
// invalidated by the structural mutation; a pass terminates when a full scan
// matches nothing.

// spliceOut removes node from the graph, redirecting every consumer of node
// to replacement instead. Consumer input-order positions are not preserved:
// the replacement edge is appended. If node was a designated output, the
// replacement inherits that status. Producers of node that lose their last
// consumer are deleted as dead code.
func (g *Graph) spliceOut(node, replacement *Node) {
	wasOutput := slices.Contains(g.OutputNodes, node)
	for _, consumer := range slices.Clone(node.Outputs) {
		g.disconnect(node, consumer)
		g.Connect(replacement, consumer)
	}
	if wasOutput {
		g.removeOutput(node)
		if !slices.Contains(g.OutputNodes, replacement) {
			g.OutputNodes = append(g.OutputNodes, replacement)
		}
	}
	g.removeNode(node)
	for _, producer := range slices.Clone(node.Inputs) {
		g.disconnect(producer, node)
		if producer != replacement {
			g.removeIfDead(producer)
		}
	}
}

// removeIfDead deletes a node that has no remaining consumers, recursively
// releasing its own producers. Dead producers are only deleted, never
// spliced: with no consumers there is nothing to redirect. Designated graph
// inputs and outputs are kept regardless.
func (g *Graph) removeIfDead(n *Node) {
	if len(n.Outputs) > 0 {
		return
	}
	if slices.Contains(g.InputNodes, n) || slices.Contains(g.OutputNodes, n) {
		return
	}
	g.removeNode(n)
	for _, producer := range slices.Clone(n.Inputs) {
		g.disconnect(producer, n)
		g.removeIfDead(producer)
	}
}
