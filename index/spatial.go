package index

import (
	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/stats"
)

// SpatialStrategy matches any spatial-constraint variant on the indexed
// field (spec §4.5). Cost approximates R-tree traversal; ordering is
// never preserved.
type SpatialStrategy struct{}

func (SpatialStrategy) MatchConditions(idx IndexDescriptor, conditions []*condition.FieldCondition, provider stats.Provider, typeName string, _ []SortRequirement) MatchResult {
	if len(idx.KeyPaths) == 0 {
		return MatchResult{}
	}
	field := idx.KeyPaths[0]

	for _, c := range conditions {
		if c.Field != field || c.Family != condition.FamilySpatial {
			continue
		}
		selectivity := spatialSelectivityFor(c)
		entries := int64(selectivity * float64(provider.IndexEntries(idx.Name)))
		return MatchResult{
			SatisfiedConditions: []string{c.Identifier()},
			SatisfiesOrdering:   false,
			Selectivity:         selectivity,
			EstimatedEntries:    entries,
		}
	}
	return MatchResult{}
}

// spatialSelectivityFor has no histogram-backed geometry estimate, so it
// falls back to a flat heuristic per constraint shape: a bounded box or
// polygon is treated as more selective than an unbounded radius search.
func spatialSelectivityFor(c *condition.FieldCondition) float64 {
	switch c.SpatialKind {
	case condition.SpatialWithinBounds, condition.SpatialWithinPolygon:
		return 0.1
	default:
		return 0.2
	}
}

func (SpatialStrategy) CreateOperator(idx IndexDescriptor, match MatchResult, conditions []*condition.FieldCondition) *operator.Operator {
	return &operator.Operator{
		Kind:             operator.KindSpatialScan,
		IndexName:        idx.Name,
		SatisfiedIDs:     match.SatisfiedConditions,
		EstimatedEntries: match.EstimatedEntries,
	}
}

// EstimateCost approximates R-tree traversal: indexCost(2*entries) +
// fetchCost(entries) (spec §4.5).
func (SpatialStrategy) EstimateCost(idx IndexDescriptor, match MatchResult) CostEstimate {
	return CostEstimate{
		IndexReads:    2 * match.EstimatedEntries,
		RecordFetches: match.EstimatedEntries,
	}
}
