// Package kernels implements the numeric kernels behind the graph operations.
//
// The graph IR never touches tensor data directly: every forward computation
// is delegated here, and every kernel executes on the GoMLX backend via
// graph.ExecOnce. Execution failures come back as returned errors; GoMLX
// graph-building failures surface as panics, so each kernel additionally
// wraps the execution in exceptions.TryCatch.
package kernels

import (
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	graph "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	backendOnce sync.Once
	backend     backends.Backend
)

// Backend returns the process-wide backend used to execute kernels.
// It is created lazily on first use.
func Backend() backends.Backend {
	backendOnce.Do(func() {
		backend = backends.MustNew()
	})
	return backend
}

// execUnary runs a single-operand graph function on the backend. ExecOnce
// reports execution failures as a returned error; graph-building problems
// inside fn still surface as panics, which TryCatch converts.
func execUnary(fn func(x *graph.Node) *graph.Node, x *tensors.Tensor) (out *tensors.Tensor, err error) {
	panicErr := exceptions.TryCatch[error](func() {
		out, err = graph.ExecOnce(Backend(), fn, x)
	})
	if err == nil {
		err = panicErr
	}
	return
}

// execBinary runs a two-operand graph function on the backend, with the same
// error conversion as execUnary.
func execBinary(fn func(lhs, rhs *graph.Node) *graph.Node, lhs, rhs *tensors.Tensor) (out *tensors.Tensor, err error) {
	panicErr := exceptions.TryCatch[error](func() {
		out, err = graph.ExecOnce(Backend(), fn, lhs, rhs)
	})
	if err == nil {
		err = panicErr
	}
	return
}

// Add computes the element-wise sum of two tensors.
// Operands must have identical shapes: the graph layer does not define
// implicit broadcasting for add.
func Add(lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	if !lhs.Shape().Equal(rhs.Shape()) {
		return nil, errors.Errorf("add kernel requires operands of identical shape, got %s and %s",
			lhs.Shape(), rhs.Shape())
	}
	out, err := execBinary(graph.Add, lhs, rhs)
	return out, errors.WithMessage(err, "add kernel")
}

// MatMul computes the numpy-style matrix product of two tensors, including
// vector and batched (broadcast) cases.
func MatMul(lhs, rhs *tensors.Tensor) (*tensors.Tensor, error) {
	out, err := execBinary(graph.MatMul, lhs, rhs)
	return out, errors.WithMessage(err, "matmul kernel")
}

// Unsqueeze inserts a size-1 axis at the given position.
// A negative dim counts from the end, with -1 appending a trailing axis.
func Unsqueeze(x *tensors.Tensor, dim int) (*tensors.Tensor, error) {
	rank := x.Shape().Rank()
	if dim < 0 {
		dim += rank + 1
	}
	if dim < 0 || dim > rank {
		return nil, errors.Errorf("unsqueeze kernel: axis %d out of bounds for shape %s", dim, x.Shape())
	}
	out, err := execUnary(func(x *graph.Node) *graph.Node {
		return graph.ExpandAxes(x, dim)
	}, x)
	return out, errors.WithMessage(err, "unsqueeze kernel")
}

// Transpose swaps two axes of a tensor. Negative axes count from the end.
func Transpose(x *tensors.Tensor, dim0, dim1 int) (*tensors.Tensor, error) {
	rank := x.Shape().Rank()
	if dim0 < 0 {
		dim0 += rank
	}
	if dim1 < 0 {
		dim1 += rank
	}
	if dim0 < 0 || dim0 >= rank || dim1 < 0 || dim1 >= rank {
		return nil, errors.Errorf("transpose kernel: axes (%d, %d) out of bounds for shape %s",
			dim0, dim1, x.Shape())
	}
	permutation := make([]int, rank)
	for axis := range permutation {
		permutation[axis] = axis
	}
	permutation[dim0], permutation[dim1] = permutation[dim1], permutation[dim0]
	out, err := execUnary(func(x *graph.Node) *graph.Node {
		return graph.TransposeAllDims(x, permutation...)
	}, x)
	return out, errors.WithMessage(err, "transpose kernel")
}
