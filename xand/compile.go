// Package xand is a small ahead-of-time compiler for tensor computation
// graphs.
//
//   - LoadGraph / ReadGraphFile: resolve a JSON graph description into the
//     graph IR.
//   - Graph.InferShapes: compute per-node output shapes and prune nodes
//     unreachable from the declared inputs.
//   - Optimize: run the rewrite passes (constant folding, additive and
//     multiplicative identity elimination, transpose-pair cancellation) to a
//     fixed point, mutating the graph in place.
//   - Compile: all of the above, producing a callable Module.
//
// The actual tensor math is delegated to the GoMLX backend; the package only
// owns the IR and its transformations.
package xand

import (
	"fmt"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Module is the compiled, callable artifact produced by Compile. It owns the
// optimized graph and is not safe for concurrent calls: each call rebinds
// input values and memoized tensors in place.
type Module struct {
	graph *Graph
}

// Graph returns the optimized graph backing the module.
func (m *Module) Graph() *Graph { return m.graph }

// Call runs one inference step. Inputs are matched positionally to the
// graph's declared input nodes and outputs follow the graph's output-node
// order.
func (m *Module) Call(inputs ...*tensors.Tensor) ([]*tensors.Tensor, error) {
	if len(inputs) != len(m.graph.InputNodes) {
		return nil, errors.Wrapf(ErrCallArity, "expected %d input tensor(s), got %d",
			len(m.graph.InputNodes), len(inputs))
	}
	named := make(map[string]*tensors.Tensor, len(inputs))
	for ii, node := range m.graph.InputNodes {
		named[node.Name] = inputs[ii]
	}
	byName, err := m.graph.Forward(named)
	if err != nil {
		return nil, err
	}
	outputs := make([]*tensors.Tensor, len(m.graph.OutputNodes))
	for ii, node := range m.graph.OutputNodes {
		outputs[ii] = byName[node.Name]
	}
	return outputs, nil
}

// CallOne is Call for the common single-output graph.
func (m *Module) CallOne(inputs ...*tensors.Tensor) (*tensors.Tensor, error) {
	outputs, err := m.Call(inputs...)
	if err != nil {
		return nil, err
	}
	if len(outputs) != 1 {
		return nil, errors.Errorf("CallOne on a graph with %d outputs", len(outputs))
	}
	return outputs[0], nil
}

// Compile reads a graph description file, binds the sample inputs (named
// "input_0", "input_1", ... in order), infers shapes, optimizes and returns
// the callable module.
func Compile(filePath string, inputs ...*tensors.Tensor) (*Module, error) {
	named := make(map[string]*tensors.Tensor, len(inputs))
	for ii, t := range inputs {
		named[fmt.Sprintf("input_%d", ii)] = t
	}
	return CompileWithInputs(filePath, named)
}

// CompileWithInputs is Compile with explicitly named inputs.
func CompileWithInputs(filePath string, inputs map[string]*tensors.Tensor) (*Module, error) {
	g, err := ReadGraphFile(filePath, inputs)
	if err != nil {
		return nil, err
	}
	if err := g.InferShapes(); err != nil {
		return nil, err
	}
	if err := Optimize(g); err != nil {
		return nil, err
	}
	return &Module{graph: g}, nil
}

// Optimize runs the full rewrite pipeline over the graph, in place. Each
// pass runs to its own fixed point before the next starts.
func Optimize(g *Graph) error {
	passes := []struct {
		name string
		run  func(*Graph) error
	}{
		{"consteval", ConstEval},
		{"sum-identity", SumIdentity},
		{"matmul-identity", MatmulIdentity},
		{"transpose-cancelation", TransposeCancelation},
	}
	for _, pass := range passes {
		if err := pass.run(g); err != nil {
			return errors.WithMessagef(err, "%s pass", pass.name)
		}
		klog.V(2).Infof("%s pass done, %d node(s) remain", pass.name, len(g.Nodes))
	}
	return nil
}
