package stats

import (
	"testing"

	"github.com/janusql/planner/histogram"
	"github.com/janusql/planner/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultProviderHeuristics(t *testing.T) {
	d := NewDefaultProvider()
	assert.Equal(t, int64(1_000_000), d.RowCount("User"))
	assert.Equal(t, 0.30, d.RangeSelectivity("User", "age", nil, nil, false, false))
	assert.Equal(t, 0.05, d.NullSelectivity("User", "age", true))
}

func TestCollectedFallsThroughToDefault(t *testing.T) {
	c := NewCollectedStatisticsProvider()
	assert.Equal(t, int64(1_000_000), c.RowCount("User"))

	c.UpdateTableStats("User", 42)
	assert.Equal(t, int64(42), c.RowCount("User"))
}

func TestCollectedHistogramSelectivity(t *testing.T) {
	c := NewCollectedStatisticsProvider()
	h := &histogram.Histogram{
		TotalCount: 100,
		Buckets: []histogram.Bucket{
			{LowerBound: value.NewInt(0), UpperBound: value.NewInt(100), Count: 100, DistinctCount: 10},
		},
	}
	c.UpdateFieldStats("User", "age", 10, 5, h)

	sel := c.EqualitySelectivity("User", "age", value.NewInt(50))
	assert.InDelta(t, 0.1, sel, 1e-9)
}

func TestHistogramSnapshotRoundTrip(t *testing.T) {
	h := &histogram.Histogram{
		TotalCount: 100, NullCount: 3, DistinctCount: 20,
		Buckets: []histogram.Bucket{
			{LowerBound: value.NewInt(0), UpperBound: value.NewInt(50), Count: 50, DistinctCount: 10},
			{LowerBound: value.NewString("a"), UpperBound: value.NewString("z"), Count: 50, DistinctCount: 10},
		},
	}

	blob, err := EncodeHistogramSnapshot(h)
	require.NoError(t, err)

	got, err := DecodeHistogramSnapshot(blob)
	require.NoError(t, err)

	assert.Equal(t, h.TotalCount, got.TotalCount)
	assert.Equal(t, h.NullCount, got.NullCount)
	require.Len(t, got.Buckets, 2)
	assert.Equal(t, h.Buckets[0].Count, got.Buckets[0].Count)
}
