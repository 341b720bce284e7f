package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractMatrixMultiply(t *testing.T) {
	a, err := New([]float64{1, 2, 3, 4, 5, 6}, []Index{{"i", 2}, {"k", 3}})
	require.NoError(t, err)
	b, err := New([]float64{7, 8, 9, 10, 11, 12}, []Index{{"k", 3}, {"j", 2}})
	require.NoError(t, err)

	c, err := Contract(a, b)
	require.NoError(t, err)
	require.Equal(t, []string{"i", "j"}, c.IndNames())
	assert.InDelta(t, 58.0, c.At(0, 0), 1e-12)
	assert.InDelta(t, 64.0, c.At(0, 1), 1e-12)
	assert.InDelta(t, 139.0, c.At(1, 0), 1e-12)
	assert.InDelta(t, 154.0, c.At(1, 1), 1e-12)
}

func TestContractDimensionMismatch(t *testing.T) {
	a := Zeros([]Index{{"i", 2}, {"k", 3}})
	b := Zeros([]Index{{"k", 4}, {"j", 2}})
	_, err := Contract(a, b)
	var shapeErr *ShapeError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "k", shapeErr.Ind)
}

func TestContractResultOrder(t *testing.T) {
	// Result indices are the symmetric difference, a's first.
	a := Zeros([]Index{{"p", 2}, {"s", 3}, {"q", 4}})
	b := Zeros([]Index{{"r", 5}, {"s", 3}, {"t", 6}})
	c, err := Contract(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"p", "q", "r", "t"}, c.IndNames())
}

func TestContractMultiIndex(t *testing.T) {
	rng := testRNG(7)
	a := Rand(rng, []Index{{"i", 2}, {"s", 3}, {"u", 2}})
	b := Rand(rng, []Index{{"s", 3}, {"j", 4}, {"u", 2}})

	c, err := Contract(a, b)
	require.NoError(t, err)
	require.Equal(t, []string{"i", "j"}, c.IndNames())

	for i := 0; i < 2; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			for s := 0; s < 3; s++ {
				for u := 0; u < 2; u++ {
					want += a.At(i, s, u) * b.At(s, j, u)
				}
			}
			assert.InDelta(t, want, c.At(i, j), 1e-12)
		}
	}
}

func TestContractOuterProduct(t *testing.T) {
	a, err := New([]float64{1, 2}, []Index{{"i", 2}})
	require.NoError(t, err)
	b, err := New([]float64{3, 4, 5}, []Index{{"j", 3}})
	require.NoError(t, err)

	c, err := Contract(a, b)
	require.NoError(t, err)
	require.Equal(t, []string{"i", "j"}, c.IndNames())
	assert.InDelta(t, 10.0, c.At(1, 2), 1e-12)
}

func TestContractScalars(t *testing.T) {
	c, err := Contract(Scalar(3), Scalar(4))
	require.NoError(t, err)
	require.Equal(t, 0, c.Rank())
	assert.InDelta(t, 12.0, c.At(), 1e-12)
}

func TestContractToScalar(t *testing.T) {
	a, err := New([]float64{1, 2, 3}, []Index{{"i", 3}})
	require.NoError(t, err)
	c, err := Contract(a, a)
	require.NoError(t, err)
	require.Equal(t, 0, c.Rank())
	assert.InDelta(t, 14.0, c.At(), 1e-12)
}

func TestContractOverBatch(t *testing.T) {
	// A shared index kept as a batch axis survives the contraction, the way
	// a hyperindex referenced by a third tensor must.
	rng := testRNG(8)
	a := Rand(rng, []Index{{"h", 3}, {"i", 2}, {"s", 4}})
	b := Rand(rng, []Index{{"s", 4}, {"h", 3}, {"j", 2}})

	c, err := ContractOver(a, b, []string{"s"}, []string{"h"})
	require.NoError(t, err)
	require.Equal(t, []string{"h", "i", "j"}, c.IndNames())

	for h := 0; h < 3; h++ {
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				want := 0.0
				for s := 0; s < 4; s++ {
					want += a.At(h, i, s) * b.At(s, h, j)
				}
				assert.InDelta(t, want, c.At(h, i, j), 1e-12)
			}
		}
	}
}

func TestContractWithDelta(t *testing.T) {
	// delta(i, j) acts as an identity wire.
	v, err := New([]float64{1, 2, 3}, []Index{{"i", 3}})
	require.NoError(t, err)
	d := Delta(3, "i", "j")
	w, err := Contract(v, d)
	require.NoError(t, err)
	require.Equal(t, []string{"j"}, w.IndNames())
	for x := 0; x < 3; x++ {
		assert.InDelta(t, v.At(x), w.At(x), 1e-12)
	}
}
