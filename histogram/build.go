package histogram

import (
	"math"
	"sort"
	"time"

	"github.com/janusql/planner/value"
)

// BuildEquiHeight constructs an equi-height histogram from sorted
// samples (spec §4.3): target valuesPerBucket = ceil(n/bucketCount) per
// bucket, then extend each bucket to swallow any trailing duplicates so
// equal values never straddle a bucket boundary. samples must already
// be sorted ascending by value.Compare; nullCount and totalCount (which
// may exceed len(samples) when samples are a subset of the full
// population) are supplied by the caller.
func BuildEquiHeight(samples []value.Value, bucketCount int, totalCount, nullCount, distinctCount int64) *Histogram {
	h := &Histogram{TotalCount: totalCount, NullCount: nullCount, DistinctCount: distinctCount, Timestamp: nowStamp()}

	n := len(samples)
	if n == 0 || bucketCount <= 0 {
		return h
	}

	valuesPerBucket := int(math.Ceil(float64(n) / float64(bucketCount)))
	if valuesPerBucket < 1 {
		valuesPerBucket = 1
	}

	scaleFactor := float64(totalCount) / float64(n)
	if scaleFactor <= 0 {
		scaleFactor = 1
	}

	i := 0
	for i < n {
		end := i + valuesPerBucket
		if end > n {
			end = n
		}
		// Extend to swallow trailing duplicates of samples[end-1].
		for end < n && value.Compare(samples[end], samples[end-1]) == 0 {
			end++
		}

		bucketSamples := samples[i:end]
		distinct := distinctValuesIn(bucketSamples)

		upper := bucketSamples[len(bucketSamples)-1]
		h.Buckets = append(h.Buckets, Bucket{
			LowerBound:    bucketSamples[0],
			UpperBound:    upper,
			Count:         int64(math.Round(float64(len(bucketSamples)) * scaleFactor)),
			DistinctCount: int64(distinct),
		})

		i = end
	}

	return h
}

func distinctValuesIn(samples []value.Value) int {
	if len(samples) == 0 {
		return 0
	}
	count := 1
	for i := 1; i < len(samples); i++ {
		if value.Compare(samples[i], samples[i-1]) != 0 {
			count++
		}
	}
	return count
}

// SortSamples sorts values ascending using value.Compare, a prerequisite
// for BuildEquiHeight.
func SortSamples(samples []value.Value) {
	sort.Slice(samples, func(i, j int) bool {
		return value.Compare(samples[i], samples[j]) < 0
	})
}

// nowStamp exists so tests can be deterministic about Timestamp without
// reaching for time.Now() scattered across the package.
var nowStamp = func() time.Time { return time.Now() }
