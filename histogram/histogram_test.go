package histogram

import (
	"math/rand"
	"testing"

	"github.com/janusql/planner/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario G: buckets [(0,100,count=100),(100,200,count=50)], field<150
// -> selectivity ~= (100 + 0.5*50)/150 = 0.833.
func TestScenarioG_RangeSelectivity(t *testing.T) {
	h := &Histogram{
		TotalCount: 150,
		Buckets: []Bucket{
			{LowerBound: value.NewInt(0), UpperBound: value.NewInt(100), Count: 100, DistinctCount: 100},
			{LowerBound: value.NewInt(100), UpperBound: value.NewInt(200), Count: 50, DistinctCount: 50},
		},
	}

	v := value.NewInt(150)
	sel := h.LessThanSelectivity(v, false)
	assert.InDelta(t, 0.833, sel, 0.01)
}

func TestEqualsSelectivityOutOfRange(t *testing.T) {
	h := &Histogram{
		TotalCount: 100,
		Buckets: []Bucket{
			{LowerBound: value.NewInt(0), UpperBound: value.NewInt(10), Count: 100, DistinctCount: 10},
		},
	}
	assert.Equal(t, 0.0, h.EqualsSelectivity(value.NewInt(50)))
}

func TestSelectivityBoundedToUnitInterval(t *testing.T) {
	h := &Histogram{
		TotalCount: 100,
		Buckets: []Bucket{
			{LowerBound: value.NewInt(0), UpperBound: value.NewInt(100), Count: 100, DistinctCount: 1},
		},
	}
	sel := h.EqualsSelectivity(value.NewInt(50))
	assert.GreaterOrEqual(t, sel, 0.0)
	assert.LessOrEqual(t, sel, 1.0)

	rsel := h.RangeSelectivity(nil, nil, false, false)
	assert.GreaterOrEqual(t, rsel, 0.0)
	assert.LessOrEqual(t, rsel, 1.0)
}

func TestBuildEquiHeightSwallowsDuplicates(t *testing.T) {
	samples := []value.Value{
		value.NewInt(1), value.NewInt(1), value.NewInt(2), value.NewInt(3),
		value.NewInt(3), value.NewInt(3), value.NewInt(4), value.NewInt(5),
	}
	h := BuildEquiHeight(samples, 3, int64(len(samples)), 0, 5)
	require.NotEmpty(t, h.Buckets)

	for i := 1; i < len(h.Buckets); i++ {
		prevUpper := h.Buckets[i-1].UpperBound
		curLower := h.Buckets[i].LowerBound
		assert.True(t, value.Compare(prevUpper, curLower) < 0,
			"bucket boundaries must not straddle equal values")
	}
}

func TestReservoirSamplingBoundedSize(t *testing.T) {
	r := NewReservoir(10, rand.New(rand.NewSource(42)))
	for i := 0; i < 10000; i++ {
		r.Add(value.NewInt(int64(i)))
	}
	assert.Equal(t, 10, r.Len())
	assert.Equal(t, int64(10000), r.ElementsSeen())
}

func TestReservoirSmallerThanCapacity(t *testing.T) {
	r := NewReservoir(100, rand.New(rand.NewSource(1)))
	for i := 0; i < 5; i++ {
		r.Add(value.NewInt(int64(i)))
	}
	assert.Equal(t, 5, r.Len())
}

func TestHyperLogLogApproximatesDistinctCount(t *testing.T) {
	hll := NewHyperLogLog(14)
	const n = 100000
	for i := 0; i < n; i++ {
		hll.Add(value.NewInt(int64(i)))
	}
	est := hll.Estimate()
	relErr := float64(est-n) / n
	if relErr < 0 {
		relErr = -relErr
	}
	assert.Less(t, relErr, 0.05)
}

func TestMCVComposition(t *testing.T) {
	h := &Histogram{
		TotalCount: 1000,
		Buckets: []Bucket{
			{LowerBound: value.NewInt(0), UpperBound: value.NewInt(1000), Count: 700, DistinctCount: 700},
		},
	}
	h.SetMostCommonValues([]value.Value{value.NewInt(1)}, []float64{0.3})

	sel := h.EqualsSelectivity(value.NewInt(1))
	assert.InDelta(t, 0.3, sel, 1e-9)
}

func TestStringFractionalOverlap(t *testing.T) {
	lo := value.NewString("apple")
	hi := value.NewString("banana")
	eff := value.NewString("avocado")
	frac := stringFractionalOverlap(lo, hi, lo, eff)
	assert.Greater(t, frac, 0.0)
	assert.Less(t, frac, 1.0)
}
