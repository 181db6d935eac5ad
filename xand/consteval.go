package xand

import (
	"fmt"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ConstEval folds operations whose inputs are all constants: the result is
// computed once at compile time and the operation is replaced by a fresh
// constant node carrying it. The orphaned constant inputs are deleted with
// the operation.
func ConstEval(g *Graph) error {
	for changed := true; changed; {
		changed = false
		for _, node := range slices.Clone(g.Nodes) {
			if node.Op == nil || len(node.Inputs) == 0 || !allConstantInputs(node) {
				continue
			}
			result, err := foldNode(node)
			if err != nil {
				return err
			}

			// The fresh name keeps the fold traceable back to the original
			// operation: "matmul_9" folds into "matmul_const_9".
			constName := fmt.Sprintf("%s_const_%d", node.BaseName(), node.ID)
			constNode := NewDataNode(constName, NewData(ConstantData, result))
			g.AddNode(constNode)
			g.spliceOut(node, constNode)
			klog.V(1).Infof("consteval: folded %s into constant %s", node.Name, constName)
			changed = true
			break
		}
	}
	return nil
}

func allConstantInputs(n *Node) bool {
	for _, input := range n.Inputs {
		if input.Data == nil || input.Data.Type != ConstantData {
			return false
		}
	}
	return true
}

// foldNode executes an operation node immediately on its constant inputs.
func foldNode(node *Node) (*tensors.Tensor, error) {
	inputs := make([]*tensors.Tensor, len(node.Inputs))
	for ii, input := range node.Inputs {
		t, err := input.Tensor()
		if err != nil {
			return nil, errors.WithMessagef(err, "folding node %q", node.Name)
		}
		inputs[ii] = t
	}
	result, err := node.Op.Forward(inputs)
	if err != nil {
		return nil, errors.Wrapf(ErrEvaluation, "folding node %q: %v", node.Name, err)
	}
	return result, nil
}
