// Package adaptive implements the runtime-feedback loop of spec §4.10:
// RuntimeStatisticsTracker records actual execution outcomes against a
// plan's estimates, periodically folding aggregates back into a
// CollectedStatisticsProvider, and AdaptiveOptimizer watches per-plan
// estimation error and triggers a cooldown-gated re-plan when accuracy
// drifts too far.
//
// Nothing analogous exists in the teacher (Datalog's planner has no
// runtime-feedback loop), so this package is new, following the
// teacher's general mutex-protected-bounded-history idiom seen in
// datalog/planner/cache.go (map guarded by a single mutex, atomics for
// hot counters).
package adaptive

import (
	"sort"
	"sync"
	"time"

	"github.com/janusql/planner/plan"
	"github.com/janusql/planner/stats"
)

// maxHistoryPerType bounds RuntimeStatisticsTracker's per-type execution
// history (spec §4.10: "appends an execution record (bounded history)").
const maxHistoryPerType = 10_000

// ExecutionRecord captures one executed plan's estimate-vs-actual
// outcome.
type ExecutionRecord struct {
	PlanID        string
	EstimatedRows int64
	ActualRows    int64
	ExecutionTime time.Duration
	RecordedAt    time.Time
}

// relativeError computes |est-act|/max(1,act) (spec §4.10).
func (r ExecutionRecord) relativeError() float64 {
	diff := float64(r.EstimatedRows - r.ActualRows)
	if diff < 0 {
		diff = -diff
	}
	denom := float64(r.ActualRows)
	if denom < 1 {
		denom = 1
	}
	return diff / denom
}

// AccuracyReport is analyzeEstimationAccuracy's output.
type AccuracyReport struct {
	SampleCount  int
	AverageError float64
	MedianError  float64
}

// RuntimeStatisticsTracker records executions per record type and
// periodically aggregates them back into a CollectedStatisticsProvider
// (spec §4.10).
type RuntimeStatisticsTracker struct {
	mu              sync.Mutex
	history         map[string][]ExecutionRecord // typeName -> recent records, oldest trimmed first
	recordCount     map[string]int
	updateThreshold int
	provider        *stats.CollectedStatisticsProvider
}

// NewRuntimeStatisticsTracker creates a tracker that folds aggregates
// into provider every updateThreshold records per type. A non-positive
// updateThreshold falls back to 100.
func NewRuntimeStatisticsTracker(provider *stats.CollectedStatisticsProvider, updateThreshold int) *RuntimeStatisticsTracker {
	if updateThreshold <= 0 {
		updateThreshold = 100
	}
	return &RuntimeStatisticsTracker{
		history:         make(map[string][]ExecutionRecord),
		recordCount:     make(map[string]int),
		updateThreshold: updateThreshold,
		provider:        provider,
	}
}

// Record appends an execution outcome for typeName, trimming history to
// maxHistoryPerType and, every updateThreshold records, aggregating the
// type's recent row counts into the collected provider's table stats.
func (t *RuntimeStatisticsTracker) Record(typeName string, p *plan.Plan, actualRows int64, executionTime time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	estimated := int64(0)
	planID := ""
	if p != nil {
		planID = p.ID
		estimated = estimatedRowsFromPlan(p)
	}

	rec := ExecutionRecord{
		PlanID:        planID,
		EstimatedRows: estimated,
		ActualRows:    actualRows,
		ExecutionTime: executionTime,
		RecordedAt:    time.Now(),
	}

	h := append(t.history[typeName], rec)
	if len(h) > maxHistoryPerType {
		h = h[len(h)-maxHistoryPerType:]
	}
	t.history[typeName] = h

	t.recordCount[typeName]++
	if t.recordCount[typeName]%t.updateThreshold == 0 {
		t.aggregateLocked(typeName)
	}
}

// aggregateLocked folds typeName's most recent records' average actual
// row count into the collected provider's table-level row count.
func (t *RuntimeStatisticsTracker) aggregateLocked(typeName string) {
	if t.provider == nil {
		return
	}
	h := t.history[typeName]
	if len(h) == 0 {
		return
	}
	var sum int64
	for _, r := range h {
		sum += r.ActualRows
	}
	avg := sum / int64(len(h))
	t.provider.UpdateTableStats(typeName, avg)
}

// AnalyzeEstimationAccuracy computes average/median relative error
// across typeName's recorded history (spec §4.10).
func (t *RuntimeStatisticsTracker) AnalyzeEstimationAccuracy(typeName string) AccuracyReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	h := t.history[typeName]
	if len(h) == 0 {
		return AccuracyReport{}
	}

	errors := make([]float64, len(h))
	var sum float64
	for i, r := range h {
		e := r.relativeError()
		errors[i] = e
		sum += e
	}
	sort.Float64s(errors)

	return AccuracyReport{
		SampleCount:  len(h),
		AverageError: sum / float64(len(h)),
		MedianError:  medianOfSorted(errors),
	}
}

func medianOfSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// estimatedRowsFromPlan approximates a plan's expected row count as its
// cost model's RecordFetches (the scan-level row estimate before any
// filter selectivity is re-applied at the top), giving Record a single
// scalar to compare against actualRows without re-walking the operator
// tree's per-node EstimatedEntries.
func estimatedRowsFromPlan(p *plan.Plan) int64 {
	if p.Cost.RecordFetches > 0 {
		return p.Cost.RecordFetches
	}
	return p.Cost.IndexReads
}
