package adaptive

import (
	"sync"
	"time"

	"github.com/janusql/planner/plan"
	"github.com/janusql/planner/prepared"
)

// ringSize bounds the per-plan error-ratio history AdaptiveOptimizer
// keeps for drift detection (spec §4.10: "ring-buffer of last 100 error
// ratios").
const ringSize = 100

// AdaptivePlan wraps a base plan.Plan with the version counter spec
// §4.10 names: a re-plan increments Version while keeping the same ID,
// so callers can detect that a previously held plan has been
// superseded.
type AdaptivePlan struct {
	ID      string
	Version int
	Plan    *plan.Plan
}

// AdaptationEvent logs a single re-plan (spec §4.10): before/after cost,
// and the metrics history that triggered it — reset after the event
// per the open-question resolution (adaptive metrics reset on
// successful re-plan; the pre-reset counts are appended here so the
// evidence for the decision survives the reset).
type AdaptationEvent struct {
	PlanID            string
	FromVersion       int
	ToVersion         int
	BeforeCost        float64
	AfterCost         float64
	Timestamp         time.Time
	FinalSampleCount  int
	FinalAverageError float64
}

// baseReplan is the closure an AdaptiveOptimizer stores per plan id to
// re-invoke the underlying planner on drift, capturing whatever query,
// index set, and provider produced the original plan.
type baseReplan func() (*plan.Plan, error)

type planMetrics struct {
	errors     [ringSize]float64
	next       int
	count      int // total samples ever recorded, saturating display at ringSize in reports
	lastReplan time.Time
}

func (m *planMetrics) record(errRatio float64) {
	m.errors[m.next] = errRatio
	m.next = (m.next + 1) % ringSize
	m.count++
}

func (m *planMetrics) sampleCount() int {
	if m.count < ringSize {
		return m.count
	}
	return ringSize
}

func (m *planMetrics) average() float64 {
	n := m.sampleCount()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += m.errors[i]
	}
	return sum / float64(n)
}

func (m *planMetrics) reset() {
	*m = planMetrics{}
}

// AdaptiveOptimizer watches per-plan estimation accuracy and re-plans
// when it drifts past driftThreshold, subject to a per-plan cooldown
// (spec §4.10).
type AdaptiveOptimizer struct {
	mu             sync.Mutex
	plans          map[string]*AdaptivePlan
	replans        map[string]baseReplan
	fingerprints   map[string]prepared.QueryFingerprint
	metrics        map[string]*planMetrics
	cache          *prepared.PlanCache
	driftThreshold float64
	minSamples     int
	cooldown       time.Duration
	log            []AdaptationEvent
}

// NewAdaptiveOptimizer creates an optimizer with the given drift
// threshold (average relative error that triggers a re-plan),
// minimum-sample floor, and per-plan re-plan cooldown. cache may be nil
// if no prepared-plan cache backs this optimizer.
func NewAdaptiveOptimizer(cache *prepared.PlanCache, driftThreshold float64, minSamples int, cooldown time.Duration) *AdaptiveOptimizer {
	return &AdaptiveOptimizer{
		plans:          make(map[string]*AdaptivePlan),
		replans:        make(map[string]baseReplan),
		fingerprints:   make(map[string]prepared.QueryFingerprint),
		metrics:        make(map[string]*planMetrics),
		cache:          cache,
		driftThreshold: driftThreshold,
		minSamples:     minSamples,
		cooldown:       cooldown,
	}
}

// Plan builds a base plan via replan and wraps it in an AdaptivePlan at
// version 1, remembering replan so a later drift-triggered re-plan can
// invoke the same underlying planner call. fp identifies the cache
// entry (if any) that should be evicted when a re-plan happens.
func (o *AdaptiveOptimizer) Plan(id string, fp prepared.QueryFingerprint, replan func() (*plan.Plan, error)) (*AdaptivePlan, error) {
	base, err := replan()
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	ap := &AdaptivePlan{ID: id, Version: 1, Plan: base}
	o.plans[id] = ap
	o.replans[id] = replan
	o.fingerprints[id] = fp
	if _, ok := o.metrics[id]; !ok {
		o.metrics[id] = &planMetrics{}
	}
	return ap, nil
}

// RecordExecution folds one execution's estimate-vs-actual error ratio
// into id's metrics and, if the resulting average error exceeds
// driftThreshold with at least minSamples collected and the per-plan
// cooldown has elapsed, triggers a re-plan (spec §4.10).
func (o *AdaptiveOptimizer) RecordExecution(id string, estimatedRows, actualRows int64) (*AdaptivePlan, error) {
	o.mu.Lock()

	m, ok := o.metrics[id]
	if !ok {
		m = &planMetrics{}
		o.metrics[id] = m
	}
	m.record(relativeErrorOf(estimatedRows, actualRows))

	shouldReplan := m.average() > o.driftThreshold &&
		m.sampleCount() >= o.minSamples &&
		time.Since(m.lastReplan) >= o.cooldown

	if !shouldReplan {
		current := o.plans[id]
		o.mu.Unlock()
		return current, nil
	}

	replan := o.replans[id]
	current := o.plans[id]
	finalSamples := m.sampleCount()
	finalAverage := m.average()
	o.mu.Unlock()

	if replan == nil || current == nil {
		return current, nil
	}

	newBase, err := replan()
	if err != nil {
		return current, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	before := current.Plan.TotalCost
	updated := &AdaptivePlan{ID: id, Version: current.Version + 1, Plan: newBase}
	o.plans[id] = updated

	if o.cache != nil {
		if fp, ok := o.fingerprints[id]; ok {
			o.cache.Remove(fp)
		}
	}

	o.log = append(o.log, AdaptationEvent{
		PlanID:            id,
		FromVersion:       current.Version,
		ToVersion:         updated.Version,
		BeforeCost:        before,
		AfterCost:         newBase.TotalCost,
		Timestamp:         time.Now(),
		FinalSampleCount:  finalSamples,
		FinalAverageError: finalAverage,
	})

	if mm, ok := o.metrics[id]; ok {
		mm.reset()
		mm.lastReplan = time.Now()
	}

	return updated, nil
}

// Log returns a snapshot of recorded adaptation events.
func (o *AdaptiveOptimizer) Log() []AdaptationEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]AdaptationEvent, len(o.log))
	copy(out, o.log)
	return out
}

func relativeErrorOf(estimated, actual int64) float64 {
	diff := float64(estimated - actual)
	if diff < 0 {
		diff = -diff
	}
	denom := float64(actual)
	if denom < 1 {
		denom = 1
	}
	return diff / denom
}
