package kernels

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	lhs := tensors.FromValue([]float32{1, 2, 3, 4})
	rhs := tensors.FromValue([]float32{4, 3, 2, 1})
	got, err := Add(lhs, rhs)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 5, 5, 5}, tensors.MustCopyFlatData[float32](got))

	_, err = Add(lhs, tensors.FromValue([]float32{1, 2}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "identical shape")
}

func TestMatMul(t *testing.T) {
	t.Run("MatrixMatrix", func(t *testing.T) {
		a := tensors.FromValue([][]float32{{1, 2}, {3, 4}})
		b := tensors.FromValue([][]float32{{0, 1}, {1, 0}})
		got, err := MatMul(a, b)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 2}, got.Shape().Dimensions)
		assert.Equal(t, []float32{2, 1, 4, 3}, tensors.MustCopyFlatData[float32](got))
	})

	t.Run("VectorVector", func(t *testing.T) {
		a := tensors.FromValue([]float32{1, 2, 3})
		b := tensors.FromValue([]float32{4, 5, 6})
		got, err := MatMul(a, b)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Shape().Rank())
		assert.Equal(t, float32(32), tensors.ToScalar[float32](got))
	})

	t.Run("IncompatibleDims", func(t *testing.T) {
		a := tensors.FromValue([][]float32{{1, 2, 3}})
		b := tensors.FromValue([][]float32{{1, 2}})
		_, err := MatMul(a, b)
		require.Error(t, err)
	})
}

func TestUnsqueeze(t *testing.T) {
	x := tensors.FromValue([][]float32{{1, 2}, {3, 4}})

	got, err := Unsqueeze(x, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 2}, got.Shape().Dimensions)

	got, err = Unsqueeze(x, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, got.Shape().Dimensions)

	_, err = Unsqueeze(x, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of bounds")
}

func TestTranspose(t *testing.T) {
	x := tensors.FromValue([][]float32{{1, 2, 3}, {4, 5, 6}})

	got, err := Transpose(x, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, got.Shape().Dimensions)
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, tensors.MustCopyFlatData[float32](got))

	got, err = Transpose(x, -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2}, got.Shape().Dimensions)

	_, err = Transpose(x, 0, 2)
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of bounds")
}

func TestAllZeros(t *testing.T) {
	assert.True(t, AllZeros(tensors.FromValue([]float32{0, 0, 0})))
	assert.True(t, AllZeros(tensors.FromValue(float32(0))))
	assert.False(t, AllZeros(tensors.FromValue([]float32{0, 1, 0})))
}

func TestIsMulIdentity(t *testing.T) {
	t.Run("ScalarOne", func(t *testing.T) {
		assert.True(t, IsMulIdentity(tensors.FromValue(float32(1))))
		assert.False(t, IsMulIdentity(tensors.FromValue(float32(2))))
	})

	t.Run("VectorOfOnes", func(t *testing.T) {
		assert.True(t, IsMulIdentity(tensors.FromValue([]float32{1, 1, 1})))
		assert.False(t, IsMulIdentity(tensors.FromValue([]float32{1, 0, 1})))
	})

	t.Run("IdentityMatrix", func(t *testing.T) {
		assert.True(t, IsMulIdentity(tensors.FromValue([][]float32{{1, 0}, {0, 1}})))
		assert.False(t, IsMulIdentity(tensors.FromValue([][]float32{{1, 1}, {1, 1}})))
		// Non-square matrices are never identities, even all-ones.
		assert.False(t, IsMulIdentity(tensors.FromValue([][]float32{{1, 1, 1}, {1, 1, 1}})))
	})

	t.Run("HigherRankAllOnes", func(t *testing.T) {
		ones := make([]float32, 8)
		for i := range ones {
			ones[i] = 1
		}
		assert.True(t, IsMulIdentity(tensors.FromFlatDataAndDimensions(ones, 2, 2, 2)))
	})
}

func TestEqual(t *testing.T) {
	a := tensors.FromValue([][]float32{{1, 2}, {3, 4}})
	b := tensors.FromValue([][]float32{{1, 2}, {3, 4}})
	c := tensors.FromValue([][]float32{{1, 2}, {3, 5}})
	d := tensors.FromValue([]float32{1, 2, 3, 4})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, d)) // same data, different shape
}
