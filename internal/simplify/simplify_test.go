package simplify

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnet-ml/tnet/internal/network"
	"github.com/tnet-ml/tnet/internal/tensor"
)

func testRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func ix(name string, dim int) tensor.Index { return tensor.Index{Name: name, Dim: dim} }

func randT(seed uint64, inds ...tensor.Index) *tensor.Tensor {
	return tensor.Rand(testRNG(seed), inds)
}

func TestFullPreservesValueAndNeverGrows(t *testing.T) {
	// A scalar, a size-1 bond, and a delta joining two tensors: every pass
	// has something to do.
	net, err := network.New(
		tensor.Scalar(1.5),
		randT(1, ix("u", 1), ix("i", 2)),
		randT(2, ix("u", 1), ix("j", 2)),
		tensor.Delta(2, "i", "j"),
	)
	require.NoError(t, err)

	before, err := net.Contract(network.ContractOptions{OutputInds: []string{}})
	require.NoError(t, err)

	simplified, err := Full(net, Default())
	require.NoError(t, err)
	assert.Equal(t, 4, net.NumTensors())

	assert.LessOrEqual(t, simplified.NumTensors(), net.NumTensors())
	assert.LessOrEqual(t, simplified.NumIndices(), net.NumIndices())

	after, err := simplified.Contract(network.ContractOptions{OutputInds: []string{}})
	require.NoError(t, err)
	assert.InDelta(t, before.Data()[0], after.Data()[0], 1e-12*math.Abs(before.Data()[0]))
}

func TestAbsorbScalars(t *testing.T) {
	m := randT(3, ix("i", 2), ix("j", 3))
	net, err := network.New(tensor.Scalar(2), tensor.Scalar(3), m)
	require.NoError(t, err)

	require.NoError(t, Run(net, Options{AbsorbScalars: true}))
	require.Equal(t, 1, net.NumTensors())
	got := net.Tensors()[0]
	for k, v := range m.Data() {
		assert.InDelta(t, 6*v, got.Data()[k], 1e-12)
	}
}

func TestSqueezeKeepsOuterSingletons(t *testing.T) {
	net, err := network.New(
		randT(4, ix("u", 1), ix("o", 1), ix("i", 2)),
		randT(5, ix("u", 1), ix("j", 2)),
	)
	require.NoError(t, err)

	require.NoError(t, Run(net, Options{Squeeze: true}))
	assert.Equal(t, 0, net.IndDim("u"))
	assert.Equal(t, 1, net.IndDim("o"))
	assert.ElementsMatch(t, []string{"o", "i", "j"}, net.Inds())
}

func TestDiagonalReduce(t *testing.T) {
	net, err := network.New(
		randT(6, ix("i", 2), ix("p", 3)),
		tensor.Delta(2, "i", "j"),
		randT(7, ix("j", 2), ix("q", 3)),
	)
	require.NoError(t, err)
	before, err := net.Contract(network.ContractOptions{OutputInds: []string{"p", "q"}})
	require.NoError(t, err)

	require.NoError(t, Run(net, Options{DiagonalReduce: true}))

	assert.Equal(t, 0, net.IndDim("j"))
	assert.Len(t, net.IndTensors("i"), 3)
	after, err := net.Contract(network.ContractOptions{OutputInds: []string{"p", "q"}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, before.Data(), after.Data(), 1e-12)
}

func TestResolveHyperYieldsStrictBondGraph(t *testing.T) {
	net, err := network.New(
		randT(8, ix("h", 2), ix("p", 3)),
		randT(9, ix("h", 2), ix("q", 3)),
		randT(10, ix("h", 2), ix("r", 3)),
	)
	require.NoError(t, err)
	before, err := net.Contract(network.ContractOptions{OutputInds: []string{"p", "q", "r"}})
	require.NoError(t, err)

	require.NoError(t, Run(net, Options{ResolveHyper: true}))

	assert.Equal(t, 4, net.NumTensors())
	assert.Empty(t, net.HyperInds())
	after, err := net.Contract(network.ContractOptions{OutputInds: []string{"p", "q", "r"}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, before.Data(), after.Data(), 1e-12)
}

func TestRankSimplifyCollapsesMatrixChain(t *testing.T) {
	net, err := network.New(
		randT(11, ix("a", 2), ix("b", 3)),
		randT(12, ix("b", 3), ix("c", 4)),
		randT(13, ix("c", 4), ix("d", 2)),
	)
	require.NoError(t, err)
	before, err := net.Contract(network.ContractOptions{OutputInds: []string{"a", "d"}})
	require.NoError(t, err)

	require.NoError(t, Run(net, Options{RankSimplify: true}))

	require.Equal(t, 1, net.NumTensors())
	got, err := net.Tensors()[0].ToOrder("a", "d")
	require.NoError(t, err)
	assert.InDeltaSlice(t, before.Data(), got.Data(), 1e-12)
}

func TestRankSimplifyHonorsMaxRank(t *testing.T) {
	net, err := network.New(
		randT(14, ix("x", 2), ix("y", 2)),
		randT(15, ix("y", 2), ix("z", 2)),
	)
	require.NoError(t, err)

	require.NoError(t, Run(net, Options{RankSimplify: true, MaxRank: 1}))
	assert.Equal(t, 2, net.NumTensors())

	require.NoError(t, Run(net, Options{RankSimplify: true}))
	assert.Equal(t, 1, net.NumTensors())
}

func TestFixpointTerminates(t *testing.T) {
	var ts []*tensor.Tensor
	names := []string{"a", "b", "c", "d", "e", "f", "g"}
	for i := 0; i+1 < len(names); i++ {
		ts = append(ts, randT(uint64(20+i), ix(names[i], 2), ix(names[i+1], 2)))
	}
	net, err := network.New(ts...)
	require.NoError(t, err)

	require.NoError(t, Run(net, Default()))
	assert.Equal(t, 1, net.NumTensors())
}
