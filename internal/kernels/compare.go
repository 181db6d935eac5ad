package kernels

import (
	"reflect"

	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// flatAsFloat64 reads the tensor's flat data and converts every element to
// float64, whatever the underlying dtype.
func flatAsFloat64(t *tensors.Tensor) []float64 {
	res := make([]float64, t.Size())
	floatType := reflect.TypeOf(float64(0))
	t.ConstFlatData(func(flat any) {
		valueOf := reflect.ValueOf(flat)
		for ii := range valueOf.Len() {
			res[ii] = valueOf.Index(ii).Convert(floatType).Float()
		}
	})
	return res
}

// AllZeros reports whether every element of the tensor is zero.
func AllZeros(t *tensors.Tensor) bool {
	for _, v := range flatAsFloat64(t) {
		if v != 0 {
			return false
		}
	}
	return true
}

// allOnes reports whether every element of the tensor is one.
func allOnes(t *tensors.Tensor) bool {
	for _, v := range flatAsFloat64(t) {
		if v != 1 {
			return false
		}
	}
	return true
}

// IsMulIdentity reports whether the tensor is a multiplicative identity
// element for matmul:
//   - rank 0 or 1: every element is one;
//   - rank 2: a square identity matrix;
//   - rank 3 and above: every element is one (a loose check, kept on purpose:
//     there is no single identity element under batched matmul).
func IsMulIdentity(t *tensors.Tensor) bool {
	shape := t.Shape()
	if shape.Rank() != 2 {
		return allOnes(t)
	}
	rows, cols := shape.Dim(0), shape.Dim(1)
	if rows != cols {
		return false
	}
	flat := flatAsFloat64(t)
	for i := range rows {
		for j := range cols {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if flat[i*cols+j] != want {
				return false
			}
		}
	}
	return true
}

// Equal reports whether two tensors have the same shape and exactly the same
// element values.
func Equal(a, b *tensors.Tensor) bool {
	if !a.Shape().Equal(b.Shape()) {
		return false
	}
	flatA, flatB := flatAsFloat64(a), flatAsFloat64(b)
	for ii := range flatA {
		if flatA[ii] != flatB[ii] {
			return false
		}
	}
	return true
}
