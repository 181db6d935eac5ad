package xand

import (
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	"github.com/xand-ml/xand/internal/kernels"
)

// This file holds the closed set of operation variants and the registry that
// maps operation names to them. Adding an operation means adding a variant
// here and registering it in opRegistry; there is no open-ended subclassing.

// NewOperation builds the operation registered under name, validating its
// arguments. Unknown names are a hard error.
func NewOperation(name string, args map[string]any) (Operation, error) {
	entry, found := opRegistry[name]
	if !found {
		return nil, errors.Wrapf(ErrConfig, "unknown operation %q", name)
	}
	return entry.build(args)
}

// opRegistry maps an operation name to its category and constructor.
var opRegistry = map[string]struct {
	kind  OpKind
	build func(args map[string]any) (Operation, error)
}{
	"add":       {BinaryOp, func(map[string]any) (Operation, error) { return addOp{}, nil }},
	"matmul":    {BinaryOp, func(map[string]any) (Operation, error) { return matmulOp{}, nil }},
	"unsqueeze": {TensorManipulationOp, newUnsqueezeOp},
	"transpose": {TensorManipulationOp, newTransposeOp},
}

// intArg extracts a required integer argument. JSON decoding delivers
// numbers as float64, so both forms are accepted.
func intArg(args map[string]any, key string) (int, error) {
	v, found := args[key]
	if !found {
		return 0, errors.Wrapf(ErrConfig, "missing required argument %q", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if float64(int(n)) != n {
			return 0, errors.Wrapf(ErrConfig, "argument %q must be an integer, got %v", key, n)
		}
		return int(n), nil
	}
	return 0, errors.Wrapf(ErrConfig, "argument %q must be an integer, got %T", key, v)
}

// addOp is the element-wise binary addition. Operand shapes must match
// exactly: there is no implicit broadcasting at the graph level.
type addOp struct{}

func (addOp) OpName() string { return "add" }
func (addOp) Kind() OpKind   { return BinaryOp }

func (addOp) Forward(inputs []*tensors.Tensor) (*tensors.Tensor, error) {
	if len(inputs) != 2 {
		return nil, errors.Errorf("add requires exactly 2 input tensors, got %d", len(inputs))
	}
	return kernels.Add(inputs[0], inputs[1])
}

func (addOp) InferShape(inputShapes [][]int) ([]int, error) {
	if len(inputShapes) != 2 {
		return nil, errors.Wrapf(ErrShape, "add requires exactly 2 input shapes, got %d", len(inputShapes))
	}
	if len(inputShapes[0]) != len(inputShapes[1]) {
		return nil, errors.Wrapf(ErrShape, "add requires inputs of the same rank, got %v and %v",
			inputShapes[0], inputShapes[1])
	}
	return slices.Clone(inputShapes[0]), nil
}

// matmulOp is the numpy-style matrix product, including the vector cases and
// batched matmul with broadcast batch axes.
type matmulOp struct{}

func (matmulOp) OpName() string { return "matmul" }
func (matmulOp) Kind() OpKind   { return BinaryOp }

func (matmulOp) Forward(inputs []*tensors.Tensor) (*tensors.Tensor, error) {
	if len(inputs) != 2 {
		return nil, errors.Errorf("matmul requires exactly 2 input tensors, got %d", len(inputs))
	}
	return kernels.MatMul(inputs[0], inputs[1])
}

func (matmulOp) InferShape(inputShapes [][]int) ([]int, error) {
	if len(inputShapes) != 2 {
		return nil, errors.Wrapf(ErrShape, "matmul requires exactly 2 input shapes, got %d", len(inputShapes))
	}
	a, b := inputShapes[0], inputShapes[1]
	if len(a) == 0 || len(b) == 0 {
		return nil, errors.Wrapf(ErrShape, "matmul operands cannot be scalars, got %v and %v", a, b)
	}

	switch {
	case len(a) == 1 && len(b) == 1:
		// Vector dot product: [n] x [n] -> scalar.
		if a[0] != b[0] {
			return nil, errors.Wrapf(ErrShape, "incompatible dimensions for vector-vector matmul: %v and %v", a, b)
		}
		return []int{}, nil
	case len(a) == 2 && len(b) == 1:
		// Matrix-vector product: [m,n] x [n] -> [m].
		if a[1] != b[0] {
			return nil, errors.Wrapf(ErrShape, "incompatible dimensions for matrix-vector matmul: %v and %v", a, b)
		}
		return []int{a[0]}, nil
	case len(a) == 1 && len(b) == 2:
		// Vector-matrix product: [m] x [m,n] -> [n].
		if a[0] != b[0] {
			return nil, errors.Wrapf(ErrShape, "incompatible dimensions for vector-matrix matmul: %v and %v", a, b)
		}
		return []int{b[1]}, nil
	case len(a) == 2 && len(b) == 2:
		// Matrix-matrix product: [m,n] x [n,p] -> [m,p].
		if a[1] != b[0] {
			return nil, errors.Wrapf(ErrShape, "incompatible dimensions for matrix-matrix matmul: %v and %v", a, b)
		}
		return []int{a[0], b[1]}, nil
	}

	// Batched matmul: the last two axes of each operand form the matrix
	// product pair, the leading axes are aligned right-to-left and broadcast
	// under numpy rules.
	if len(a) >= 2 && len(b) >= 2 && a[len(a)-1] != b[len(b)-2] {
		return nil, errors.Wrapf(ErrShape,
			"incompatible dimensions for batched matmul: %v and %v: last dimension of first operand (%d) must match second-to-last dimension of second operand (%d)",
			a, b, a[len(a)-1], b[len(b)-2])
	}
	var batchA, batchB []int
	if len(a) > 2 {
		batchA = a[:len(a)-2]
	}
	if len(b) > 2 {
		batchB = b[:len(b)-2]
	}
	maxBatch := max(len(batchA), len(batchB))
	out := make([]int, 0, maxBatch+2)
	for i := range maxBatch {
		dimA, dimB := 1, 1
		if idx := len(batchA) - maxBatch + i; idx >= 0 {
			dimA = batchA[idx]
		}
		if idx := len(batchB) - maxBatch + i; idx >= 0 {
			dimB = batchB[idx]
		}
		switch {
		case dimA == 1:
			out = append(out, dimB)
		case dimB == 1 || dimA == dimB:
			out = append(out, dimA)
		default:
			return nil, errors.Wrapf(ErrShape,
				"incompatible batch dimensions for matmul: %v and %v cannot be broadcast", a, b)
		}
	}
	rows, cols := 1, 1
	if len(a) >= 2 {
		rows = a[len(a)-2]
	}
	if len(b) >= 2 {
		cols = b[len(b)-1]
	}
	return append(out, rows, cols), nil
}

// unsqueezeOp inserts a size-1 axis at a given, possibly negative, position.
type unsqueezeOp struct {
	dim int
}

func newUnsqueezeOp(args map[string]any) (Operation, error) {
	dim, err := intArg(args, "dim")
	if err != nil {
		return nil, errors.WithMessage(err, "unsqueeze")
	}
	return unsqueezeOp{dim: dim}, nil
}

func (unsqueezeOp) OpName() string { return "unsqueeze" }
func (unsqueezeOp) Kind() OpKind   { return TensorManipulationOp }

func (op unsqueezeOp) Forward(inputs []*tensors.Tensor) (*tensors.Tensor, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("unsqueeze requires exactly 1 input tensor, got %d", len(inputs))
	}
	return kernels.Unsqueeze(inputs[0], op.dim)
}

func (op unsqueezeOp) InferShape(inputShapes [][]int) ([]int, error) {
	if len(inputShapes) != 1 {
		return nil, errors.Wrapf(ErrShape, "unsqueeze requires exactly 1 input shape, got %d", len(inputShapes))
	}
	in := inputShapes[0]
	dim := op.dim
	if dim < 0 {
		dim += len(in) + 1
	}
	if dim < 0 || dim > len(in) {
		return nil, errors.Wrapf(ErrShape, "unsqueeze axis %d out of bounds for shape %v", op.dim, in)
	}
	out := make([]int, 0, len(in)+1)
	out = append(out, in[:dim]...)
	out = append(out, 1)
	out = append(out, in[dim:]...)
	return out, nil
}

// transposeOp swaps two named, possibly negative, axes.
type transposeOp struct {
	dim0, dim1 int
}

func newTransposeOp(args map[string]any) (Operation, error) {
	dim0, err := intArg(args, "dim0")
	if err != nil {
		return nil, errors.WithMessage(err, "transpose")
	}
	dim1, err := intArg(args, "dim1")
	if err != nil {
		return nil, errors.WithMessage(err, "transpose")
	}
	return transposeOp{dim0: dim0, dim1: dim1}, nil
}

func (transposeOp) OpName() string { return "transpose" }
func (transposeOp) Kind() OpKind   { return TensorManipulationOp }

func (op transposeOp) Forward(inputs []*tensors.Tensor) (*tensors.Tensor, error) {
	if len(inputs) != 1 {
		return nil, errors.Errorf("transpose requires exactly 1 input tensor, got %d", len(inputs))
	}
	return kernels.Transpose(inputs[0], op.dim0, op.dim1)
}

func (op transposeOp) InferShape(inputShapes [][]int) ([]int, error) {
	if len(inputShapes) != 1 {
		return nil, errors.Wrapf(ErrShape, "transpose requires exactly 1 input shape, got %d", len(inputShapes))
	}
	in := inputShapes[0]
	dim0, dim1 := op.dim0, op.dim1
	if dim0 < 0 {
		dim0 += len(in)
	}
	if dim1 < 0 {
		dim1 += len(in)
	}
	if dim0 < 0 || dim0 >= len(in) || dim1 < 0 || dim1 >= len(in) {
		return nil, errors.Wrapf(ErrShape, "transpose axes (%d, %d) out of bounds for shape %v",
			op.dim0, op.dim1, in)
	}
	out := slices.Clone(in)
	out[dim0], out[dim1] = out[dim1], out[dim0]
	return out, nil
}
