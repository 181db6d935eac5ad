package xand

import (
	"k8s.io/klog/v2"

	"github.com/xand-ml/xand/internal/kernels"
)

// SumIdentity removes additions with an all-zero constant operand: the add
// node is spliced out and its consumers take the non-zero operand directly.
// In the degenerate zero+zero case the first zero operand is kept.
func SumIdentity(g *Graph) error {
	for changed := true; changed; {
		changed = false
		for _, addNode := range g.NodesByBase("add") {
			if addNode.Op == nil || len(addNode.Inputs) != 2 {
				continue
			}

			var zeros, nonZeros []*Node
			for _, input := range addNode.Inputs {
				if isZeroConstant(input) {
					zeros = append(zeros, input)
				} else {
					nonZeros = append(nonZeros, input)
				}
			}
			if len(zeros) == 0 {
				continue
			}
			keep := zeros[0]
			if len(nonZeros) > 0 {
				keep = nonZeros[0]
			}

			g.spliceOut(addNode, keep)
			klog.V(1).Infof("sum-identity: removed %s, kept %s", addNode.Name, keep.Name)
			changed = true
			break
		}
	}
	return nil
}

// isZeroConstant reports whether the node is a constant data node holding an
// all-zero tensor.
func isZeroConstant(n *Node) bool {
	if n.Data == nil || n.Data.Type != ConstantData {
		return false
	}
	t, err := n.Tensor()
	if err != nil || t == nil {
		return false
	}
	return kernels.AllZeros(t)
}
