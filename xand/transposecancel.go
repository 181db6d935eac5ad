package xand

import (
	"slices"

	"k8s.io/klog/v2"
)

// TransposeCancelation removes pairs of consecutive transpose operations
// that undo each other. For a transpose node fed by another transpose, the
// pair cancels only when the first transpose has the second as its sole
// consumer and the shape feeding the pair equals the shape leaving it --
// consecutive transposes over different axes are left alone. On a match the
// source node is connected directly to the second transpose's consumers and
// both transpose nodes are deleted.
func TransposeCancelation(g *Graph) error {
	for changed := true; changed; {
		changed = false
		for _, second := range g.NodesByBase("transpose") {
			if second.Op == nil {
				continue
			}
			for _, first := range second.Inputs {
				if first.Op == nil || first.Op.OpName() != "transpose" {
					continue
				}
				// The first transpose must feed the second and nothing else.
				if len(first.Outputs) != 1 || first.Outputs[0] != second || len(first.Inputs) == 0 {
					continue
				}
				source := first.Inputs[0]

				// True inverses leave the source shape untouched.
				sourceShape, err := source.Shape()
				if err != nil {
					return err
				}
				finalShape, err := second.Shape()
				if err != nil {
					return err
				}
				if !slices.Equal(sourceShape, finalShape) {
					continue
				}

				wasOutput := slices.Contains(g.OutputNodes, second)
				for _, consumer := range slices.Clone(second.Outputs) {
					g.disconnect(second, consumer)
					g.Connect(source, consumer)
				}
				g.disconnect(source, first)
				if wasOutput && !slices.Contains(g.OutputNodes, source) {
					g.OutputNodes = append(g.OutputNodes, source)
				}
				g.removeOutput(first)
				g.removeOutput(second)
				g.removeNode(first)
				g.removeNode(second)
				klog.V(1).Infof("transpose-cancelation: removed pair %s, %s", first.Name, second.Name)
				changed = true
				break
			}
			if changed {
				break
			}
		}
	}
	return nil
}
