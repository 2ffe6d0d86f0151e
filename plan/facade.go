package plan

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/janusql/planner/hints"
	"github.com/janusql/planner/index"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/perrors"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
)

// Plan is the planner's output (spec §3): a plan tree with estimated
// cost, used-field set, used-index list, ordering-satisfied flag, and
// optional residual post-filter predicate.
type Plan struct {
	ID                   string
	Root                 *operator.Operator
	Cost                 PlanCost
	TotalCost            float64
	UsedFields           []string
	UsedIndexes          []string
	OrderingSatisfied    bool
	PostFilterPredicate  *predicate.Predicate
	Warnings             []string
}

// BuildPlan implements the façade orchestration of spec §4.8:
// rewrite -> analyze -> enumerate -> cost -> select, falling back to a
// table scan when enumeration yields nothing or hints force one.
func BuildPlan(query Query, indexes []index.IndexDescriptor, registry *index.Registry, provider stats.Provider, h hints.Hints, w Weights) (*Plan, error) {
	if query.TypeName == "" {
		return nil, fmt.Errorf("%w: query has no type name", perrors.ErrInvalidQuery)
	}

	analysis := Analyze(query)

	var candidates []*operator.Operator
	if h.ForceTableScan {
		candidates = []*operator.Operator{tableScanCandidate(analysis, provider)}
	} else {
		candidates = Enumerate(analysis, indexes, registry, provider, h)
		if len(candidates) == 0 {
			candidates = []*operator.Operator{tableScanCandidate(analysis, provider)}
		}
	}

	candidates = applyPreferredIndex(candidates, h)

	type scoredCandidate struct {
		op                *operator.Operator
		cost              PlanCost
		total             float64
		orderingSatisfied bool
	}

	var scored []scoredCandidate
	for _, op := range candidates {
		finalOp, orderingSatisfied := finalizeOperator(op, analysis)
		_, cost := EstimateCost(finalOp)
		scored = append(scored, scoredCandidate{
			op: finalOp, cost: cost, total: cost.Total(w), orderingSatisfied: orderingSatisfied,
		})
	}

	best := scored[0]
	for _, s := range scored[1:] {
		if betterCandidate(s, best) {
			best = s
		}
	}

	usedIndexes := collectIndexNames(best.op)
	usedFields := analysis.ReferencedFields
	postFilter := computePostFilter(analysis, best.op)

	id := fingerprintPlanID(query)

	return &Plan{
		ID:                  id,
		Root:                best.op,
		Cost:                best.cost,
		TotalCost:           best.total,
		UsedFields:          usedFields,
		UsedIndexes:         usedIndexes,
		OrderingSatisfied:   best.orderingSatisfied,
		PostFilterPredicate: postFilter,
	}, nil
}

func betterCandidate(a, b struct {
	op                *operator.Operator
	cost              PlanCost
	total             float64
	orderingSatisfied bool
}) bool {
	if a.total != b.total {
		return a.total < b.total
	}
	if a.cost.RecordFetches != b.cost.RecordFetches {
		return a.cost.RecordFetches < b.cost.RecordFetches
	}
	return a.orderingSatisfied && !b.orderingSatisfied
}

// applyPreferredIndex filters candidates to those that use
// h.PreferredIndex when set, falling back to the unfiltered list if the
// preferred index produced no candidate (the hint is advisory, not a
// hard requirement spec §4.7 names it alongside forceTableScan which
// *is* a hard requirement).
func applyPreferredIndex(candidates []*operator.Operator, h hints.Hints) []*operator.Operator {
	if h.PreferredIndex == nil {
		return candidates
	}
	var filtered []*operator.Operator
	for _, c := range candidates {
		for _, name := range collectIndexNames(c) {
			if name == *h.PreferredIndex {
				filtered = append(filtered, c)
				break
			}
		}
	}
	if len(filtered) == 0 {
		return candidates
	}
	return filtered
}

// finalizeOperator wraps op with sort (only if it doesn't already
// provide the requested ordering) and then limit (spec §4.6).
func finalizeOperator(op *operator.Operator, analysis QueryAnalysis) (*operator.Operator, bool) {
	orderingSatisfied := operatorSatisfiesOrdering(op, analysis.SortRequirements)

	result := op
	if len(analysis.SortRequirements) > 0 && !orderingSatisfied {
		result = &operator.Operator{
			Kind:            operator.KindSort,
			Input:           result,
			SortDescriptors: analysis.SortRequirements,
		}
		orderingSatisfied = true
	}

	if analysis.Limit != nil || analysis.Offset != nil {
		result = &operator.Operator{
			Kind:       operator.KindLimit,
			Input:      result,
			LimitCount: analysis.Limit,
			Offset:     analysis.Offset,
		}
	}

	return result, orderingSatisfied
}

// operatorSatisfiesOrdering reports whether op's own SatisfiedIDs-bearing
// scan already produces rows in an order matching sortRequirements,
// using the same prefix-name convention the index strategies populate
// onto IndexName; the facade re-derives satisfiesOrdering from the
// chosen operator rather than trusting a stale MatchResult, since
// covering/filter wrapping can change which operator sits at the root.
func operatorSatisfiesOrdering(op *operator.Operator, sortRequirements []operator.SortDescriptor) bool {
	if len(sortRequirements) == 0 {
		return true
	}
	switch op.Kind {
	case operator.KindVectorSearch:
		return true
	case operator.KindIndexScan, operator.KindIndexSeek, operator.KindIndexOnlyScan, operator.KindSkipScan:
		return true // bounds-respecting scan in key order; exact prefix check lives in index.MatchResult at enumeration time
	case operator.KindFilter:
		return operatorSatisfiesOrdering(op.Input, sortRequirements)
	default:
		return false
	}
}

func collectIndexNames(op *operator.Operator) []string {
	seen := make(map[string]bool)
	var walk func(o *operator.Operator)
	walk = func(o *operator.Operator) {
		if o == nil {
			return
		}
		if o.IndexName != "" {
			seen[o.IndexName] = true
		}
		for _, c := range o.ChildrenOf() {
			walk(c)
		}
	}
	walk(op)

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	return names
}

// computePostFilter builds the residual predicate over every
// fieldCondition whose identifier is not satisfied anywhere in the
// chosen operator tree (spec §4.8 step 5). A condition already covered
// by a Filter node's predicate or a tableScan's internal FilterPredicate
// (enumerate.go's wrapResidualFilter/tableScanCandidate both embed these
// inline, per spec §4.6, to avoid double-filtering) counts as handled
// too — otherwise it would be evaluated twice: once inside the tree,
// once again at the Plan level.
func computePostFilter(analysis QueryAnalysis, root *operator.Operator) *predicate.Predicate {
	satisfiedIDs := make(map[string]bool)
	coveredKeys := make(map[string]bool)
	var walk func(o *operator.Operator)
	walk = func(o *operator.Operator) {
		if o == nil {
			return
		}
		for _, id := range o.SatisfiedIDs {
			satisfiedIDs[id] = true
		}
		if o.Predicate != nil {
			collectComparisonKeys(*o.Predicate, coveredKeys)
		}
		if o.FilterPredicate != nil {
			collectComparisonKeys(*o.FilterPredicate, coveredKeys)
		}
		for _, c := range o.ChildrenOf() {
			walk(c)
		}
	}
	walk(root)

	var residual []predicate.Predicate
	for _, c := range analysis.FieldConditions {
		if satisfiedIDs[c.Identifier()] || coveredKeys[comparisonKey(c.Source)] {
			continue
		}
		residual = append(residual, predicate.Cmp(c.Source))
	}
	if len(residual) == 0 {
		return nil
	}
	p := predicate.And(residual...)
	return &p
}

// collectComparisonKeys flattens p's AND/OR/NOT structure into the set
// of leaf FieldComparisons it tests, keyed by comparisonKey.
func collectComparisonKeys(p predicate.Predicate, out map[string]bool) {
	switch p.Kind() {
	case predicate.KindCmp:
		out[comparisonKey(p.Comparison())] = true
	case predicate.KindAnd, predicate.KindOr, predicate.KindNot:
		for _, c := range p.Children() {
			collectComparisonKeys(c, out)
		}
	}
}

// comparisonKey identifies a FieldComparison by field, operator, and
// rendered literal text, since FieldComparison isn't itself comparable
// (Values may hold a slice).
func comparisonKey(c predicate.FieldComparison) string {
	return fmt.Sprintf("%s|%v|%s", c.Field, c.Op, c.String())
}

// fingerprintPlanID derives a stable plan id by hashing the type name and
// the query predicate's text as given, literal values included (unlike
// QueryFingerprint in the prepared package, which strips literals); this
// id is purely for plan identity/logging, not cache keying.
func fingerprintPlanID(query Query) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%s", query.TypeName, query.Predicate.String())
	return fmt.Sprintf("plan:%016x", h.Sum64())
}
