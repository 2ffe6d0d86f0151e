package stats

import (
	"sync"

	"github.com/dgraph-io/ristretto"
	"github.com/janusql/planner/histogram"
	"github.com/janusql/planner/value"
)

// tableStats holds table-level cardinality.
type tableStats struct {
	rowCount int64
}

// fieldStats holds per-field distinct/null/histogram statistics.
type fieldStats struct {
	distinctCount int64
	nullCount     int64
	hist          *histogram.Histogram
}

// indexStats holds index entry counts.
type indexStats struct {
	entries int64
}

// CollectedStatisticsProvider is the in-memory, mutex-protected
// provider of spec §4.4: maps keyed by typeName and typeName.fieldName,
// falling through to the heuristic DefaultProvider on a miss. Grounded
// directly on datalog/planner/cache.go's sync.RWMutex-guarded map idiom
// (hits/misses counters, read-mostly access pattern).
type CollectedStatisticsProvider struct {
	mu      sync.RWMutex
	tables  map[string]*tableStats
	fields  map[string]*fieldStats
	indexes map[string]*indexStats

	fallback *DefaultProvider

	// distinctSketch is a ristretto cache keyed by "typeName.field".
	// UpdateFieldStats deletes a field's entry from it; no method of this
	// provider stores into it or reads from it, and DistinctValues
	// answers from the recorded field stats alone (see DESIGN.md's
	// stats/ entry for why ristretto is here rather than the plan cache).
	distinctSketch *ristretto.Cache
}

// NewCollectedStatisticsProvider creates an empty provider.
func NewCollectedStatisticsProvider() *CollectedStatisticsProvider {
	cache, _ := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	return &CollectedStatisticsProvider{
		tables:         make(map[string]*tableStats),
		fields:         make(map[string]*fieldStats),
		indexes:        make(map[string]*indexStats),
		fallback:       NewDefaultProvider(),
		distinctSketch: cache,
	}
}

func fieldKey(typeName, field string) string { return typeName + "." + field }

// UpdateTableStats records a table's row count.
func (c *CollectedStatisticsProvider) UpdateTableStats(typeName string, rowCount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tables[typeName] = &tableStats{rowCount: rowCount}
}

// UpdateFieldStats records a field's distinct/null counts and optional
// histogram.
func (c *CollectedStatisticsProvider) UpdateFieldStats(typeName, field string, distinctCount, nullCount int64, h *histogram.Histogram) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := fieldKey(typeName, field)
	c.fields[key] = &fieldStats{distinctCount: distinctCount, nullCount: nullCount, hist: h}
	if c.distinctSketch != nil {
		c.distinctSketch.Del(key)
	}
}

// UpdateIndexStats records an index's entry count.
func (c *CollectedStatisticsProvider) UpdateIndexStats(indexName string, entries int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes[indexName] = &indexStats{entries: entries}
}

func (c *CollectedStatisticsProvider) RowCount(typeName string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if t, ok := c.tables[typeName]; ok {
		return t.rowCount
	}
	return c.fallback.RowCount(typeName)
}

func (c *CollectedStatisticsProvider) DistinctValues(typeName, field string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f, ok := c.fields[fieldKey(typeName, field)]; ok {
		return f.distinctCount
	}
	return c.fallback.DistinctValues(typeName, field)
}

func (c *CollectedStatisticsProvider) EqualitySelectivity(typeName, field string, v value.Value) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f, ok := c.fields[fieldKey(typeName, field)]; ok && f.hist != nil {
		return f.hist.EqualsSelectivity(v)
	}
	return c.fallback.EqualitySelectivity(typeName, field, v)
}

func (c *CollectedStatisticsProvider) RangeSelectivity(typeName, field string, min, max *value.Value, minInc, maxInc bool) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f, ok := c.fields[fieldKey(typeName, field)]; ok && f.hist != nil {
		return f.hist.RangeSelectivity(min, max, minInc, maxInc)
	}
	return c.fallback.RangeSelectivity(typeName, field, min, max, minInc, maxInc)
}

func (c *CollectedStatisticsProvider) NullSelectivity(typeName, field string, isNull bool) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if f, ok := c.fields[fieldKey(typeName, field)]; ok && f.hist != nil {
		return f.hist.NullSelectivity(isNull)
	}
	if f, ok := c.fields[fieldKey(typeName, field)]; ok {
		total := f.distinctCount + f.nullCount
		if total > 0 {
			frac := float64(f.nullCount) / float64(total)
			if isNull {
				return frac
			}
			return 1 - frac
		}
	}
	return c.fallback.NullSelectivity(typeName, field, isNull)
}

func (c *CollectedStatisticsProvider) IndexEntries(indexName string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if idx, ok := c.indexes[indexName]; ok {
		return idx.entries
	}
	return c.fallback.IndexEntries(indexName)
}

// Histogram implements HistogramSource.
func (c *CollectedStatisticsProvider) Histogram(typeName, field string) (*histogram.Histogram, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.fields[fieldKey(typeName, field)]
	if !ok || f.hist == nil {
		return nil, false
	}
	return f.hist, true
}
