package xand

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstEval(t *testing.T) {
	// a_3 + b_4 -> add_5, all inputs constant: the whole thing folds into a
	// single constant named after the add node.
	g := NewGraph()
	a := constNode("a_3", []float32{1, 2})
	b := constNode("b_4", []float32{10, 20})
	add := opNode(t, "add_5", "add", nil)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(add)
	g.Connect(a, add)
	g.Connect(b, add)
	g.OutputNodes = []*Node{add}

	require.NoError(t, ConstEval(g))
	require.Len(t, g.Nodes, 1)
	folded := g.Nodes[0]
	assert.Equal(t, "add_const_5", folded.Name)
	require.NotNil(t, folded.Data)
	assert.Equal(t, ConstantData, folded.Data.Type)
	assert.Equal(t, []float32{11, 22}, tensors.MustCopyFlatData[float32](folded.Data.Value))
	assert.Equal(t, []*Node{folded}, g.OutputNodes)
	checkGraphInvariants(t, g)
}

func TestConstEvalChained(t *testing.T) {
	// Folding the inner add exposes the outer one; the fixed point folds both.
	g := NewGraph()
	a := constNode("a_1", []float32{1})
	b := constNode("b_2", []float32{2})
	c := constNode("c_3", []float32{3})
	inner := opNode(t, "add_4", "add", nil)
	outer := opNode(t, "add_5", "add", nil)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(c)
	g.AddNode(inner)
	g.AddNode(outer)
	g.Connect(a, inner)
	g.Connect(b, inner)
	g.Connect(inner, outer)
	g.Connect(c, outer)
	g.OutputNodes = []*Node{outer}

	require.NoError(t, ConstEval(g))
	require.Len(t, g.Nodes, 1)
	folded := g.Nodes[0]
	assert.Equal(t, "add_const_5", folded.Name)
	assert.Equal(t, []float32{6}, tensors.MustCopyFlatData[float32](folded.Data.Value))
	checkGraphInvariants(t, g)
}

func TestConstEvalSkipsNonConstant(t *testing.T) {
	g := buildAddGraph(t) // input_0 + zeros_1, input is not a constant
	before := len(g.Nodes)
	require.NoError(t, ConstEval(g))
	assert.Len(t, g.Nodes, before)
	checkGraphInvariants(t, g)
}

func TestConstEvalIdempotent(t *testing.T) {
	g := NewGraph()
	a := constNode("a_3", []float32{1, 2})
	b := constNode("b_4", []float32{10, 20})
	add := opNode(t, "add_5", "add", nil)
	g.AddNode(a)
	g.AddNode(b)
	g.AddNode(add)
	g.Connect(a, add)
	g.Connect(b, add)
	g.OutputNodes = []*Node{add}

	require.NoError(t, ConstEval(g))
	require.NoError(t, ConstEval(g))
	assert.Len(t, g.Nodes, 1)
	assert.Equal(t, "add_const_5", g.Nodes[0].Name)
}

func TestConstEvalKeepsSharedConstant(t *testing.T) {
	// shared_1 also feeds a non-foldable add; it must survive the fold of the
	// all-constant matmul it feeds.
	g := NewGraph()
	input := inputNode("input_0", []float32{1, 2})
	shared := constNode("shared_1", [][]float32{{1, 0}, {0, 1}})
	other := constNode("other_2", [][]float32{{1, 2}, {3, 4}})
	matmul := opNode(t, "matmul_3", "matmul", nil)
	add := opNode(t, "add_4", "add", nil)
	g.AddNode(input)
	g.AddNode(shared)
	g.AddNode(other)
	g.AddNode(matmul)
	g.AddNode(add)
	g.Connect(shared, matmul)
	g.Connect(other, matmul)
	g.Connect(input, add)
	g.Connect(shared, add)
	g.InputNodes = []*Node{input}
	g.OutputNodes = []*Node{matmul, add}

	require.NoError(t, ConstEval(g))
	assert.Contains(t, g.Nodes, shared)
	assert.NotContains(t, g.Nodes, matmul)
	assert.NotContains(t, g.Nodes, other)
	assert.NotEmpty(t, g.NodesByBase("matmul_const"))
	checkGraphInvariants(t, g)
}
