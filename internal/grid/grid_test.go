package grid

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnet-ml/tnet/internal/network"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func maxAbsDiff(a, b []float64) float64 {
	out := 0.0
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > out {
			out = d
		}
	}
	return out
}

// normSquared contracts the grid exactly through its dense form.
func normSquared(t *testing.T, g *Grid) float64 {
	t.Helper()
	dense, err := g.ToDense(network.ContractOptions{Optimize: "greedy"})
	require.NoError(t, err)
	n := dense.Norm()
	return n * n
}

func TestToDenseStrategiesAgree(t *testing.T) {
	g, err := NewRand(testRNG(5), 3, 3, 2, 2)
	require.NoError(t, err)

	a, err := g.ToDense(network.ContractOptions{Optimize: "random-greedy", Trials: 8, Seed: 11})
	require.NoError(t, err)
	b, err := g.ToDense(network.ContractOptions{Optimize: "optimal"})
	require.NoError(t, err)

	assert.Equal(t, 1<<9, a.Size())
	assert.Less(t, maxAbsDiff(a.Data(), b.Data()), 1e-10)
}

func TestNormNetworkMatchesDense(t *testing.T) {
	g, err := NewRand(testRNG(7), 3, 3, 2, 2)
	require.NoError(t, err)
	norm, err := g.NormNetwork()
	require.NoError(t, err)

	assert.Equal(t, 18, norm.NumTensors())
	assert.Empty(t, norm.OuterInds())

	v, err := norm.ContractValue(network.ContractOptions{Optimize: "greedy"})
	require.NoError(t, err)
	want := normSquared(t, g)
	assert.InDelta(t, want, v, 1e-8*math.Abs(want))
}

func TestBoundaryContractionExactWhenUncapped(t *testing.T) {
	g, err := NewRand(testRNG(13), 3, 3, 2, 2)
	require.NoError(t, err)
	norm, err := g.NormNetwork()
	require.NoError(t, err)

	v, err := ContractBoundary(norm, 3, 3, BoundaryOptions{MaxBond: 64, Cutoff: -1})
	require.NoError(t, err)
	want := normSquared(t, g)
	assert.InDelta(t, want, v, 1e-8*math.Abs(want))
}

func TestBoundaryContractionApprox(t *testing.T) {
	g, err := NewRand(testRNG(17), 4, 4, 3, 2)
	require.NoError(t, err)
	norm, err := g.NormNetwork()
	require.NoError(t, err)
	want := normSquared(t, g)

	v, err := ContractBoundary(norm, 4, 4, BoundaryOptions{MaxBond: 9})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v/want, 1e-2)
}

func TestBoundaryContractionLayered(t *testing.T) {
	g, err := NewRand(testRNG(19), 4, 4, 3, 2)
	require.NoError(t, err)
	norm, err := g.NormNetwork()
	require.NoError(t, err)
	want := normSquared(t, g)

	v, err := ContractBoundary(norm, 4, 4, BoundaryOptions{
		MaxBond:   27,
		LayerTags: []string{KetTag, BraTag},
	})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v/want, 1e-2)
}

func TestGridNorm(t *testing.T) {
	g, err := NewRand(testRNG(23), 3, 3, 2, 2)
	require.NoError(t, err)

	nrm, err := g.Norm(BoundaryOptions{MaxBond: 64, Cutoff: -1})
	require.NoError(t, err)
	want := math.Sqrt(normSquared(t, g))
	assert.InDelta(t, want, nrm, 1e-8*want)
}

func TestFlattenHalvesTensorsAndSquaresBonds(t *testing.T) {
	g, err := NewRand(testRNG(29), 3, 3, 3, 2)
	require.NoError(t, err)
	norm, err := g.NormNetwork()
	require.NoError(t, err)
	before, err := norm.ContractValue(network.ContractOptions{Optimize: "greedy"})
	require.NoError(t, err)

	require.NoError(t, Flatten(norm, 3, 3))

	assert.Equal(t, 9, norm.NumTensors())
	assert.Equal(t, 9, norm.BondSize(SiteTag(1, 1), SiteTag(1, 2)))
	after, err := norm.ContractValue(network.ContractOptions{Optimize: "greedy"})
	require.NoError(t, err)
	assert.InDelta(t, before, after, 1e-8*math.Abs(before))
}

func TestRowEnvironmentsRecombine(t *testing.T) {
	g, err := NewRand(testRNG(31), 3, 3, 2, 2)
	require.NoError(t, err)
	norm, err := g.NormNetwork()
	require.NoError(t, err)
	want, err := norm.ContractValue(network.ContractOptions{Optimize: "greedy"})
	require.NoError(t, err)

	envs, err := RowEnvironments(norm, 3, 3, BoundaryOptions{MaxBond: 64, Cutoff: -1})
	require.NoError(t, err)
	require.Nil(t, envs.Below[0])
	require.Nil(t, envs.Above[2])

	for i := 0; i < 3; i++ {
		parts := []*network.Network{norm.Select(network.SelectAll, RowTag(i)).Copy()}
		if envs.Below[i] != nil {
			parts = append(parts, envs.Below[i])
		}
		if envs.Above[i] != nil {
			parts = append(parts, envs.Above[i])
		}
		merged, err := network.Merge(parts...)
		require.NoError(t, err)
		v, err := merged.ContractValue(network.ContractOptions{Optimize: "greedy"})
		require.NoError(t, err)
		assert.InDelta(t, want, v, 1e-8*math.Abs(want), "row %d", i)
	}
}

func TestColEnvironmentsRecombine(t *testing.T) {
	g, err := NewRand(testRNG(37), 3, 3, 2, 2)
	require.NoError(t, err)
	norm, err := g.NormNetwork()
	require.NoError(t, err)
	want, err := norm.ContractValue(network.ContractOptions{Optimize: "greedy"})
	require.NoError(t, err)

	envs, err := ColEnvironments(norm, 3, 3, BoundaryOptions{MaxBond: 64, Cutoff: -1})
	require.NoError(t, err)

	merged, err := network.Merge(
		envs.Below[1],
		norm.Select(network.SelectAll, ColTag(1)).Copy(),
		envs.Above[1],
	)
	require.NoError(t, err)
	v, err := merged.ContractValue(network.ContractOptions{Optimize: "greedy"})
	require.NoError(t, err)
	assert.InDelta(t, want, v, 1e-8*math.Abs(want))
}
