// Package stats implements the three-tier statistics provider of spec
// §4.4: a fixed-heuristic Default, an in-memory mutex-protected
// Collected provider, and an async Live provider backed by the kv
// abstraction for server-side range-size estimation.
//
// Generalized from janus-datalog's flat datalog/planner/types.go
// Statistics struct (AttributeCardinality map[string]int, EntityCount)
// into the capability-set interface spec §4.4 names, with the same
// sync.RWMutex-guarded map idiom the teacher uses in
// datalog/planner/cache.go.
package stats

import (
	"github.com/janusql/planner/histogram"
	"github.com/janusql/planner/value"
)

// Provider is the capability set spec §4.4 requires: row/distinct/null
// counts and selectivity estimates, keyed by record type name and field
// name.
type Provider interface {
	RowCount(typeName string) int64
	DistinctValues(typeName, field string) int64
	EqualitySelectivity(typeName, field string, v value.Value) float64
	RangeSelectivity(typeName, field string, min, max *value.Value, minInc, maxInc bool) float64
	NullSelectivity(typeName, field string, isNull bool) float64
	IndexEntries(indexName string) int64
}

// DefaultProvider is the fixed-heuristic, last-resort placeholder of
// spec §4.4: a fixed row count, 10% distinct ratio, 5% null ratio, and
// 30% flat range selectivity. It never errors and needs no backing
// store, so it also serves as the Provider callers fall back to when a
// LiveStatisticsProvider call returns ErrStatisticsUnavailable (spec
// §7's non-fatal StatisticsUnavailable recovery).
type DefaultProvider struct {
	FixedRowCount int64
}

// NewDefaultProvider creates a DefaultProvider with the conventional
// 1,000,000-row estimate (matching the teacher's own
// NewPlanner fallback: "Default estimate" of 1,000,000 entities).
func NewDefaultProvider() *DefaultProvider {
	return &DefaultProvider{FixedRowCount: 1_000_000}
}

func (d *DefaultProvider) RowCount(string) int64 { return d.FixedRowCount }

func (d *DefaultProvider) DistinctValues(_, _ string) int64 {
	return int64(float64(d.FixedRowCount) * 0.10)
}

func (d *DefaultProvider) EqualitySelectivity(_, _ string, _ value.Value) float64 {
	distinct := d.DistinctValues("", "")
	if distinct <= 0 {
		return 0.1
	}
	return 1.0 / float64(distinct)
}

func (d *DefaultProvider) RangeSelectivity(_, _ string, _, _ *value.Value, _, _ bool) float64 {
	return 0.30
}

func (d *DefaultProvider) NullSelectivity(_, _ string, isNull bool) float64 {
	if isNull {
		return 0.05
	}
	return 0.95
}

func (d *DefaultProvider) IndexEntries(string) int64 { return d.FixedRowCount }

// HistogramSource is implemented by providers (CollectedStatisticsProvider) that
// can hand back a built Histogram for a field, letting the index
// strategies and cost model call directly into histogram.Histogram's
// richer selectivity API when one is available.
type HistogramSource interface {
	Histogram(typeName, field string) (*histogram.Histogram, bool)
}
