package index

import (
	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
)

// SortRequirement names one leading sort key the query requested, used
// by a strategy's MatchConditions to decide SatisfiesOrdering.
type SortRequirement = operator.SortDescriptor

// MatchResult is the outcome of a strategy's attempt to serve a
// condition list against one index (spec §4.5).
type MatchResult struct {
	SatisfiedConditions []string // condition identifiers fully served
	PartialConditions   []string // condition identifiers partially served (need post-filter)
	SatisfiesOrdering   bool
	ScanBounds          *predicate.Bounds
	Selectivity         float64
	EstimatedEntries    int64
}

// Matched reports whether the strategy found anything usable at all.
func (m MatchResult) Matched() bool {
	return len(m.SatisfiedConditions) > 0 || len(m.PartialConditions) > 0
}

// CostEstimate is a strategy's opinion of its own operator's cost
// components, consumed by the plan package's weighted cost model
// (spec §4.7). Strategies estimate in domain terms (index reads,
// record fetches); the plan package applies the configurable weights.
type CostEstimate struct {
	IndexReads     int64
	RecordFetches  int64
	AdditionalCost float64
}

// Strategy is registered per kindIdentifier (spec §4.5: "A strategy set
// is registered by kindIdentifier").
type Strategy interface {
	// MatchConditions takes sortRequirements in addition to the literal
	// spec §4.5 signature (index, conditions, stats) because
	// SatisfiesOrdering cannot be computed without knowing what order
	// the query asked for; see DESIGN.md's index/ entry.
	MatchConditions(idx IndexDescriptor, conditions []*condition.FieldCondition, provider stats.Provider, typeName string, sortRequirements []SortRequirement) MatchResult
	CreateOperator(idx IndexDescriptor, match MatchResult, conditions []*condition.FieldCondition) *operator.Operator
	EstimateCost(idx IndexDescriptor, match MatchResult) CostEstimate
}

// Registry maps kindIdentifier to its Strategy. Not safe for concurrent
// writes; strategies are expected to be registered once at startup
// (mirroring the teacher's package-level index-type constants, but as a
// mutable map so callers can plug in new index kinds without touching
// this package).
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry returns a Registry pre-populated with the four built-in
// strategies (scalar, full-text, vector, spatial).
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[string]Strategy)}
	r.Register(KindScalar, ScalarStrategy{})
	r.Register(KindFullText, FullTextStrategy{})
	r.Register(KindVector, VectorStrategy{})
	r.Register(KindSpatial, SpatialStrategy{})
	return r
}

// Register adds or replaces the strategy for kind.
func (r *Registry) Register(kind string, s Strategy) {
	r.strategies[kind] = s
}

// Get looks up the strategy for kind.
func (r *Registry) Get(kind string) (Strategy, bool) {
	s, ok := r.strategies[kind]
	return s, ok
}

// Built-in kindIdentifier values for the four strategies spec §4.5 names.
const (
	KindScalar   = "scalar"
	KindFullText = "fullText"
	KindVector   = "vector"
	KindSpatial  = "spatial"
)
