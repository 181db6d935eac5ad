package xand

import (
	"slices"

	"k8s.io/klog/v2"

	"github.com/xand-ml/xand/internal/kernels"
)

// MatmulIdentity removes matrix multiplications with a constant identity
// operand (all-ones for rank 0/1 and rank >= 3, a square identity matrix for
// rank 2): the matmul node is spliced out and its consumers take the other
// operand directly.
//
// When both operands are identity elements, the first one is kept only if its
// shape equals the matmul's own inferred output shape. The guard keeps the
// rewrite from silently changing the output rank (e.g. the vector-vector
// dot product collapses to a scalar, which neither operand has). Whether the
// guard is also needed when exactly one operand is an identity is an open
// question; it is reproduced here only for the both-identity case.
func MatmulIdentity(g *Graph) error {
	for changed := true; changed; {
		changed = false
		for _, matmulNode := range g.NodesByBase("matmul") {
			if matmulNode.Op == nil || len(matmulNode.Inputs) != 2 {
				continue
			}

			var identities, others []*Node
			for _, input := range matmulNode.Inputs {
				if isIdentityConstant(input) {
					identities = append(identities, input)
				} else {
					others = append(others, input)
				}
			}
			if len(identities) == 0 {
				continue
			}
			var keep *Node
			if len(others) > 0 {
				keep = others[0]
			} else {
				keep = identities[0]
				keepShape, err := keep.Shape()
				if err != nil {
					return err
				}
				outShape, err := matmulNode.Shape()
				if err != nil {
					return err
				}
				if !slices.Equal(keepShape, outShape) {
					continue
				}
			}

			g.spliceOut(matmulNode, keep)
			klog.V(1).Infof("matmul-identity: removed %s, kept %s", matmulNode.Name, keep.Name)
			changed = true
			break
		}
	}
	return nil
}

// isIdentityConstant reports whether the node is a constant data node holding
// a multiplicative identity element for matmul.
func isIdentityConstant(n *Node) bool {
	if n.Data == nil || n.Data.Type != ConstantData {
		return false
	}
	t, err := n.Tensor()
	if err != nil || t == nil {
		return false
	}
	return kernels.IsMulIdentity(t)
}
