// Package histogram implements equi-height histograms and their
// selectivity estimation (spec §4.3), including the PostgreSQL
// convert-one-string-to-scalar interpolation algorithm for partial
// bucket overlap on string ranges.
//
// Nothing in the teacher repo estimates selectivity (Datalog has no
// cost-based statistics layer), so this package is new functionality
// built in the teacher's file-per-concern style (one algorithm, one
// file, paired with its _test.go), following
// datalog/planner/types.go's plain-struct-with-methods shape rather
// than an interface hierarchy.
package histogram

import (
	"time"

	"github.com/janusql/planner/value"
)

// Bucket is one equi-height bucket. UpperBound is exclusive except in
// the last bucket of a Histogram, where it is inclusive (spec §3).
type Bucket struct {
	LowerBound    value.Value
	UpperBound    value.Value
	Count         int64
	DistinctCount int64
}

// Histogram is an equi-height selectivity estimator over one field.
type Histogram struct {
	Buckets       []Bucket
	TotalCount    int64
	NullCount     int64
	DistinctCount int64
	Timestamp     time.Time

	// mcv holds most-common-value frequencies excluded from Buckets, per
	// spec §4.3's MCV/histogram composition rule. Nil when no MCV table
	// is present.
	mcv map[string]mcvEntry
}

type mcvEntry struct {
	value value.Value
	freq  float64
}

// SetMostCommonValues installs a most-common-values table. vals and
// freqs must be parallel slices; freqs are fractions of TotalCount.
// Buckets built by BuildEquiHeight should already exclude these values' samples,
// per spec §4.3.
func (h *Histogram) SetMostCommonValues(vals []value.Value, freqs []float64) {
	h.mcv = make(map[string]mcvEntry, len(vals))
	for i := range vals {
		h.mcv[vals[i].String()] = mcvEntry{value: vals[i], freq: freqs[i]}
	}
}

func (h *Histogram) mcvTotalFrequency() float64 {
	var total float64
	for _, e := range h.mcv {
		total += e.freq
	}
	return total
}

func (h *Histogram) mcvSelectivity(v value.Value) (float64, bool) {
	if h.mcv == nil {
		return 0, false
	}
	e, ok := h.mcv[v.String()]
	return e.freq, ok
}

// bucketFor locates the bucket containing v, or -1 if v falls outside
// all buckets. The last bucket treats UpperBound as inclusive.
func (h *Histogram) bucketFor(v value.Value) int {
	for i, b := range h.Buckets {
		lowCmp := value.Compare(v, b.LowerBound)
		if lowCmp < 0 {
			continue
		}
		highCmp := value.Compare(v, b.UpperBound)
		isLast := i == len(h.Buckets)-1
		if highCmp < 0 || (isLast && highCmp == 0) {
			return i
		}
		if !isLast && highCmp == 0 {
			// Repeated boundary values collapse into the preceding
			// bucket per spec §3; since buckets are built that way,
			// reaching here on a non-last bucket with exact equality
			// to UpperBound means the overlap continues into this
			// bucket is not expected, but treat inclusively as a safe
			// fallback for externally constructed histograms.
			return i
		}
	}
	return -1
}

// EqualsSelectivity implements spec §4.3's equality-selectivity rule,
// composed with any MCV table entry for v.
func (h *Histogram) EqualsSelectivity(v value.Value) float64 {
	if h.TotalCount <= 0 {
		return 0
	}
	if freq, ok := h.mcvSelectivity(v); ok {
		return clamp01(freq)
	}

	idx := h.bucketFor(v)
	if idx < 0 {
		return 0
	}
	b := h.Buckets[idx]
	distinct := b.DistinctCount
	if distinct < 1 {
		distinct = 1
	}
	histSel := (float64(b.Count) / float64(h.TotalCount)) / float64(distinct)

	if h.mcv != nil {
		histSel *= (1 - h.mcvTotalFrequency())
	}
	return clamp01(histSel)
}

// NullSelectivity returns the selectivity of IS NULL (isNull=true) or
// IS NOT NULL (isNull=false).
func (h *Histogram) NullSelectivity(isNull bool) float64 {
	if h.TotalCount <= 0 {
		return 0
	}
	frac := float64(h.NullCount) / float64(h.TotalCount)
	if isNull {
		return clamp01(frac)
	}
	return clamp01(1 - frac)
}

// RangeSelectivity implements spec §4.3's range-selectivity rule: sum
// over buckets of count*overlap(bucket,range), divided by TotalCount.
// min/max nil mean unbounded on that side.
func (h *Histogram) RangeSelectivity(min, max *value.Value, minInc, maxInc bool) float64 {
	if h.TotalCount <= 0 {
		return 0
	}

	var weighted float64
	for _, b := range h.Buckets {
		weighted += float64(b.Count) * bucketOverlap(b, min, max, minInc, maxInc)
	}

	sel := weighted / float64(h.TotalCount)
	if mcvSel, ok := h.mcvRangeSelectivity(min, max, minInc, maxInc); ok {
		sel = mcvSel + sel*(1-h.mcvTotalFrequency())
	}
	return clamp01(sel)
}

func (h *Histogram) mcvRangeSelectivity(min, max *value.Value, minInc, maxInc bool) (float64, bool) {
	if h.mcv == nil {
		return 0, false
	}
	var total float64
	for _, e := range h.mcv {
		if valueInRange(e.value, min, max, minInc, maxInc) {
			total += e.freq
		}
	}
	return total, true
}

func valueInRange(v value.Value, min, max *value.Value, minInc, maxInc bool) bool {
	if min != nil {
		cmp := value.Compare(v, *min)
		if cmp < 0 || (cmp == 0 && !minInc) {
			return false
		}
	}
	if max != nil {
		cmp := value.Compare(v, *max)
		if cmp > 0 || (cmp == 0 && !maxInc) {
			return false
		}
	}
	return true
}

// LessThanSelectivity is a convenience wrapper over RangeSelectivity for
// a one-sided upper bound.
func (h *Histogram) LessThanSelectivity(v value.Value, inclusive bool) float64 {
	return h.RangeSelectivity(nil, &v, false, inclusive)
}

// GreaterThanSelectivity is a convenience wrapper over RangeSelectivity
// for a one-sided lower bound.
func (h *Histogram) GreaterThanSelectivity(v value.Value, inclusive bool) float64 {
	return h.RangeSelectivity(&v, nil, inclusive, false)
}

// bucketOverlap returns the fraction of bucket b's value span that
// falls within [min,max] (honoring inclusivity), per spec §4.3:
// fully-inside -> 1.0, fully-outside -> 0.0, partial overlap ->
// numeric/timestamp linear interpolation or PostgreSQL string
// interpolation; any other type falls back to the conservative 0.5.
func bucketOverlap(b Bucket, min, max *value.Value, minInc, maxInc bool) float64 {
	lo, hi := b.LowerBound, b.UpperBound

	// Fully outside: bucket ends before range starts, or begins after
	// range ends.
	if min != nil {
		cmp := value.Compare(hi, *min)
		if cmp < 0 || (cmp == 0 && !minInc) {
			return 0
		}
	}
	if max != nil {
		cmp := value.Compare(lo, *max)
		if cmp > 0 || (cmp == 0 && !maxInc) {
			return 0
		}
	}

	// Fully inside.
	insideLow := min == nil || value.Compare(lo, *min) >= 0
	insideHigh := max == nil || value.Compare(hi, *max) <= 0
	if insideLow && insideHigh {
		return 1.0
	}

	// Clip bucket span to the range for partial overlap.
	effLo, effHi := lo, hi
	if min != nil && value.Compare(*min, lo) > 0 {
		effLo = *min
	}
	if max != nil && value.Compare(*max, hi) < 0 {
		effHi = *max
	}

	return fractionalOverlap(lo, hi, effLo, effHi)
}

// fractionalOverlap computes (effHi-effLo)/(hi-lo) in whatever scalar
// space is appropriate for the bucket's value tag.
func fractionalOverlap(lo, hi, effLo, effHi value.Value) float64 {
	if lo.Tag() == value.String && hi.Tag() == value.String {
		return stringFractionalOverlap(lo, hi, effLo, effHi)
	}

	loNum, loOK := scalarize(lo)
	hiNum, hiOK := scalarize(hi)
	effLoNum, effLoOK := scalarize(effLo)
	effHiNum, effHiOK := scalarize(effHi)
	if !(loOK && hiOK && effLoOK && effHiOK) {
		return 0.5
	}
	span := hiNum - loNum
	if span <= 0 {
		return 1.0
	}
	return clamp01((effHiNum - effLoNum) / span)
}

func scalarize(v value.Value) (float64, bool) {
	if n, ok := v.Numeric(); ok {
		return n, true
	}
	if ts, ok := v.AsTimestamp(); ok {
		return float64(ts.UnixNano()), true
	}
	return 0, false
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
