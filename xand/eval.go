package xand

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Forward runs the graph on the given inputs, mapping declared input names to
// concrete tensors, and returns a map from declared output names to their
// computed tensors.
//
// All memoized tensors are cleared first, then each supplied input value
// replaces the stored value of the matching input node. Replacement values
// must keep the shape the node was compiled with.
func (g *Graph) Forward(inputs map[string]*tensors.Tensor) (map[string]*tensors.Tensor, error) {
	g.ClearTensors()

	if len(inputs) == 0 {
		return nil, errors.Wrap(ErrEvaluation, "no input tensors provided")
	}
	for name, tensor := range inputs {
		idx := slices.IndexFunc(g.InputNodes, func(n *Node) bool { return n.Name == name })
		if idx < 0 {
			return nil, errors.Wrapf(ErrEvaluation, "input node %q not found", name)
		}
		node := g.InputNodes[idx]
		if node.Data == nil {
			return nil, errors.Wrapf(ErrEvaluation, "node %q is not a data node", name)
		}
		if node.Data.shape != nil && !slices.Equal(node.Data.shape, tensorDims(tensor)) {
			return nil, errors.Wrapf(ErrEvaluation, "input %q expects shape %v, got %v",
				name, node.Data.shape, tensorDims(tensor))
		}
		node.Data.Value = tensor
	}

	// Breadth-first from the inputs. Correct dependency ordering comes from
	// the recursive memoized Tensor getter, not the queue order.
	queue := slices.Clone(g.InputNodes)
	processed := make(map[*Node]bool, len(g.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if processed[node] {
			continue
		}
		if _, err := node.Tensor(); err != nil {
			return nil, err
		}
		processed[node] = true
		queue = append(queue, node.Outputs...)
	}

	outputs := make(map[string]*tensors.Tensor, len(g.OutputNodes))
	for _, node := range g.OutputNodes {
		t, err := node.Tensor()
		if err != nil {
			return nil, errors.WithMessagef(err, "collecting output %q", node.Name)
		}
		outputs[node.Name] = t
	}
	return outputs, nil
}

// tensorDims returns a tensor's dimensions, normalizing scalars to a non-nil
// empty slice.
func tensorDims(t *tensors.Tensor) []int {
	dims := t.Shape().Dimensions
	if dims == nil {
		dims = []int{}
	}
	return dims
}
