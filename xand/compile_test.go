package xand

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeGraphFile drops a graph description into a temp dir and returns its
// path.
func writeGraphFile(t *testing.T, contents string) string {
	t.Helper()
	filePath := filepath.Join(t.TempDir(), "graph.json")
	must.M(os.WriteFile(filePath, []byte(contents), 0644))
	return filePath
}

const pipelineGraphJSON = `[
  {"name": "eye_1",
   "kind": {"kind": "DATA", "type": "CONSTANT", "value": [[1, 0], [0, 1]]}},
  {"name": "matmul_2",
   "kind": {"kind": "OP", "name": "matmul", "type": "BINARY"},
   "inputs": ["input_0", "eye_1"]},
  {"name": "zeros_3",
   "kind": {"kind": "DATA", "type": "CONSTANT", "value": [[0, 0], [0, 0]]}},
  {"name": "add_4",
   "kind": {"kind": "OP", "name": "add", "type": "BINARY"},
   "inputs": ["matmul_2", "zeros_3"]},
  {"name": "transpose_5",
   "kind": {"kind": "OP", "name": "transpose", "type": "TENSOR_MANIPULATION",
            "args": {"dim0": 0, "dim1": 1}},
   "inputs": ["add_4"]},
  {"name": "transpose_6",
   "kind": {"kind": "OP", "name": "transpose", "type": "TENSOR_MANIPULATION",
            "args": {"dim0": 0, "dim1": 1}},
   "inputs": ["transpose_5"]}
]`

func TestCompile(t *testing.T) {
	// Identity matmul, zero add and an inverse transpose pair: the whole
	// pipeline collapses to the input node.
	filePath := writeGraphFile(t, pipelineGraphJSON)
	module, err := Compile(filePath, tensors.FromValue([][]float32{{1, 2}, {3, 4}}))
	require.NoError(t, err)
	assert.Len(t, module.Graph().Nodes, 1)

	outputs, err := module.Call(tensors.FromValue([][]float32{{5, 6}, {7, 8}}))
	require.NoError(t, err)
	require.Len(t, outputs, 1)
	assert.Equal(t, []float32{5, 6, 7, 8}, tensors.MustCopyFlatData[float32](outputs[0]))
}

func TestCompilePreservesSemantics(t *testing.T) {
	// The optimized module must compute the same values the unoptimized graph
	// does.
	input := tensors.FromValue([][]float32{{1, -2}, {3, 4.5}})

	g, err := LoadGraph([]byte(pipelineGraphJSON), map[string]*tensors.Tensor{"input_0": input})
	require.NoError(t, err)
	require.NoError(t, g.InferShapes())
	reference, err := g.Forward(map[string]*tensors.Tensor{"input_0": input})
	require.NoError(t, err)
	require.Len(t, reference, 1)
	want := tensors.MustCopyFlatData[float32](reference["transpose_6"])

	filePath := writeGraphFile(t, pipelineGraphJSON)
	module, err := Compile(filePath, input)
	require.NoError(t, err)
	got, err := module.CallOne(input)
	require.NoError(t, err)
	assert.Equal(t, want, tensors.MustCopyFlatData[float32](got))
}

func TestCallArity(t *testing.T) {
	filePath := writeGraphFile(t, pipelineGraphJSON)
	module, err := Compile(filePath, tensors.FromValue([][]float32{{1, 2}, {3, 4}}))
	require.NoError(t, err)

	_, err = module.Call(
		tensors.FromValue([][]float32{{1, 2}, {3, 4}}),
		tensors.FromValue([][]float32{{1, 2}, {3, 4}}))
	require.ErrorIs(t, err, ErrCallArity)

	_, err = module.Call()
	require.ErrorIs(t, err, ErrCallArity)
}

func TestCompileWithInputs(t *testing.T) {
	filePath := writeGraphFile(t, `[
	  {"name": "add_1",
	   "kind": {"kind": "OP", "name": "add", "type": "BINARY"},
	   "inputs": ["left_0", "right_1"]}
	]`)
	module, err := CompileWithInputs(filePath, map[string]*tensors.Tensor{
		"left_0":  tensors.FromValue([]float32{1, 2}),
		"right_1": tensors.FromValue([]float32{10, 20}),
	})
	require.NoError(t, err)

	out, err := module.CallOne(
		tensors.FromValue([]float32{1, 2}),
		tensors.FromValue([]float32{10, 20}))
	require.NoError(t, err)
	assert.Equal(t, []float32{11, 22}, tensors.MustCopyFlatData[float32](out))
}

func TestCompileMissingFile(t *testing.T) {
	_, err := Compile(filepath.Join(t.TempDir(), "nope.json"),
		tensors.FromValue([]float32{1}))
	require.Error(t, err)
}

func TestCompileRejectsBadGraph(t *testing.T) {
	filePath := writeGraphFile(t, `[
	  {"name": "softmax_1", "kind": {"kind": "OP", "name": "softmax"},
	   "inputs": ["input_0"]}
	]`)
	_, err := Compile(filePath, tensors.FromValue([]float32{1}))
	require.ErrorIs(t, err, ErrConfig)
}

func TestGraphString(t *testing.T) {
	g := buildAddGraph(t)
	require.NoError(t, g.InferShapes())
	s := g.String()
	assert.Contains(t, s, "input_0")
	assert.Contains(t, s, "add_2")
}
