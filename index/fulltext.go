package index

import (
	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/stats"
)

// defaultFullTextSelectivity is the flat selectivity spec §4.5 assigns
// full-text matches when no richer scoring model is available ("≈ 0.05
// by default").
const defaultFullTextSelectivity = 0.05

// FullTextStrategy matches text-search or contains string-pattern
// conditions on the indexed field (spec §4.5). It never preserves
// ordering: matches are scored by relevance, not by key order.
type FullTextStrategy struct{}

func (FullTextStrategy) MatchConditions(idx IndexDescriptor, conditions []*condition.FieldCondition, provider stats.Provider, typeName string, _ []SortRequirement) MatchResult {
	if len(idx.KeyPaths) == 0 {
		return MatchResult{}
	}
	field := idx.KeyPaths[0]

	for _, c := range conditions {
		if c.Field != field {
			continue
		}
		if c.Family == condition.FamilyTextSearch {
			return fullTextMatch(c, provider, idx, typeName)
		}
		if c.Family == condition.FamilyStringPattern && c.PatternType == condition.PatternContains {
			return fullTextMatch(c, provider, idx, typeName)
		}
	}
	return MatchResult{}
}

func fullTextMatch(c *condition.FieldCondition, provider stats.Provider, idx IndexDescriptor, typeName string) MatchResult {
	selectivity := defaultFullTextSelectivity
	entries := int64(selectivity * float64(provider.IndexEntries(idx.Name)))
	return MatchResult{
		SatisfiedConditions: []string{c.Identifier()},
		SatisfiesOrdering:   false,
		Selectivity:         selectivity,
		EstimatedEntries:    entries,
	}
}

func (FullTextStrategy) CreateOperator(idx IndexDescriptor, match MatchResult, conditions []*condition.FieldCondition) *operator.Operator {
	c := conditionByID(conditions, match.SatisfiedConditions)
	op := &operator.Operator{
		Kind:             operator.KindFullTextScan,
		IndexName:        idx.Name,
		SatisfiedIDs:     match.SatisfiedConditions,
		EstimatedEntries: match.EstimatedEntries,
	}
	if c != nil {
		switch c.Family {
		case condition.FamilyTextSearch:
			op.SearchTerms = c.Terms
			op.MatchMode = c.MatchMode
		case condition.FamilyStringPattern:
			op.SearchTerms = []string{c.Pattern}
			op.MatchMode = condition.MatchAll
		}
	}
	return op
}

func (FullTextStrategy) EstimateCost(idx IndexDescriptor, match MatchResult) CostEstimate {
	return CostEstimate{IndexReads: match.EstimatedEntries, RecordFetches: match.EstimatedEntries}
}

func conditionByID(conditions []*condition.FieldCondition, ids []string) *condition.FieldCondition {
	if len(ids) == 0 {
		return nil
	}
	for _, c := range conditions {
		if c.Identifier() == ids[0] {
			return c
		}
	}
	return nil
}
