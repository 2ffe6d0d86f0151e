package plan

import (
	"sort"

	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/hints"
	"github.com/janusql/planner/index"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
	"github.com/janusql/planner/value"
)

// skipScanDistinctThreshold caps the leading-prefix cardinality a
// skip-scan plan will enumerate (spec §4.6 default: 50).
const skipScanDistinctThreshold = 50

// Enumerate produces the candidate operator list of spec §4.6: a table
// scan is always included; each index contributes a candidate via its
// registered strategy; composite, covering, intersection, union, and
// skip-scan families are added where applicable.
func Enumerate(analysis QueryAnalysis, indexes []index.IndexDescriptor, registry *index.Registry, provider stats.Provider, h hints.Hints) []*operator.Operator {
	var candidates []*operator.Operator

	if !h.Disabled(hints.PlanTableScan) {
		candidates = append(candidates, tableScanCandidate(analysis, provider))
	}

	for _, idx := range indexes {
		strategy, ok := registry.Get(idx.KindIdentifier)
		if !ok {
			continue
		}
		match := strategy.MatchConditions(idx, analysis.FieldConditions, provider, analysis.TypeName, analysis.SortRequirements)
		if !match.Matched() {
			continue
		}

		if len(idx.KeyPaths) > 1 {
			// Composite-index candidates are only worth considering in
			// their own right when they satisfy >=2 conditions; a
			// single-condition match on a composite index's leading
			// column is redundant with what a single-column index would
			// offer (spec §4.6).
			if h.Disabled(hints.PlanComposite) || len(match.SatisfiedConditions) < 2 {
				continue
			}
		} else if h.Disabled(hints.PlanIndexScan) {
			continue
		}

		op := strategy.CreateOperator(idx, match, analysis.FieldConditions)
		op = wrapResidualFilter(op, analysis.FieldConditions, match, provider, analysis.TypeName)
		candidates = append(candidates, op)

		if !h.Disabled(hints.PlanCovering) && idx.CoversFields(analysis.ReferencedFields) {
			if covering := asCoveringScan(op); covering != nil {
				candidates = append(candidates, covering)
			}
		}
	}

	if !h.Disabled(hints.PlanIntersection) {
		if inter := intersectionCandidate(analysis, indexes, provider, h); inter != nil {
			candidates = append(candidates, inter)
		}
	}

	if !h.Disabled(hints.PlanUnion) && analysis.NormalizedCondition.Kind() == predicate.KindOr {
		if u := unionCandidate(analysis, indexes, registry, provider); u != nil {
			candidates = append(candidates, u)
		}
	}

	if !h.Disabled(hints.PlanSkipScan) {
		candidates = append(candidates, skipScanCandidates(analysis, indexes, provider)...)
	}

	return candidates
}

func tableScanCandidate(analysis QueryAnalysis, provider stats.Provider) *operator.Operator {
	var filter *predicate.Predicate
	if analysis.OriginalPredicate.Kind() != predicate.KindTrue {
		f := predicate.Rewrite(analysis.OriginalPredicate)
		filter = &f
	}
	return &operator.Operator{
		Kind:             operator.KindTableScan,
		FilterPredicate:  filter,
		EstimatedEntries: provider.RowCount(analysis.TypeName),
	}
}

// wrapResidualFilter wraps op in a filter operator covering any
// fieldConditions the match did not fully satisfy (spec §4.6: "If
// conditions remain unsatisfied, wraps the operator in a filter whose
// selectivity is the product of the unsatisfied conditions' individual
// selectivities"). PartialConditions are narrowed by the scan's bounds
// but not eliminated by it (e.g. an over-threshold IN condition planned
// as a [min,max] range, spec §8 scenario F) so they still require the
// residual filter; only SatisfiedConditions are excluded from it.
func wrapResidualFilter(op *operator.Operator, conditions []*condition.FieldCondition, match index.MatchResult, provider stats.Provider, typeName string) *operator.Operator {
	satisfied := make(map[string]bool, len(match.SatisfiedConditions))
	for _, id := range match.SatisfiedConditions {
		satisfied[id] = true
	}

	var residual []predicate.Predicate
	selectivity := 1.0
	for _, c := range conditions {
		if satisfied[c.Identifier()] {
			continue
		}
		residual = append(residual, predicate.Cmp(c.Source))
		selectivity *= conditionSelectivity(c, provider, typeName)
	}
	if len(residual) == 0 {
		return op
	}

	p := predicate.And(residual...)
	return &operator.Operator{
		Kind:        operator.KindFilter,
		Input:       op,
		Predicate:   &p,
		Selectivity: selectivity,
	}
}

// asCoveringScan converts an indexScan/indexSeek operator into an
// indexOnlyScan candidate, dropping the record-fetch cost (spec §4.6).
// Other operator shapes (union-of-seeks, already-filtered) are left
// alone; a covering rewrite only makes sense for a bare scan/seek.
func asCoveringScan(op *operator.Operator) *operator.Operator {
	switch op.Kind {
	case operator.KindIndexScan, operator.KindIndexSeek:
		cp := *op
		cp.Kind = operator.KindIndexOnlyScan
		return &cp
	default:
		return nil
	}
}

// intersectionCandidate implements spec §4.6's intersection-plan family:
// for >=2 equality conditions, score each (condition, index) pairing by
// 100x(unique) x 10x(first-key match) x 1/selectivity, greedily assign
// the highest-scoring index per condition field without duplication,
// cap at h.IntersectionCap() indexes, and emit intersection(children)
// when >=2 were selected.
func intersectionCandidate(analysis QueryAnalysis, indexes []index.IndexDescriptor, provider stats.Provider, h hints.Hints) *operator.Operator {
	type candidate struct {
		field string
		idx   index.IndexDescriptor
		score float64
		value value.Value
	}

	var equalities []*condition.FieldCondition
	for _, c := range analysis.FieldConditions {
		if c.Family == condition.FamilyScalar && c.ScalarType == condition.ScalarEQ {
			equalities = append(equalities, c)
		}
	}
	if len(equalities) < 2 {
		return nil
	}

	var scored []candidate
	for _, c := range equalities {
		sel := provider.EqualitySelectivity(analysis.TypeName, c.Field, c.Values[0])
		if sel <= 0 {
			sel = 1e-6
		}
		for _, idx := range indexes {
			if len(idx.KeyPaths) == 0 || idx.KeyPaths[0] != c.Field {
				continue
			}
			score := 1.0
			if idx.IsUnique {
				score *= 100
			}
			score *= 10 // first-key match, guaranteed by the idx.KeyPaths[0]==c.Field check above
			score *= 1 / sel
			scored = append(scored, candidate{field: c.Field, idx: idx, score: score, value: c.Values[0]})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	used := make(map[string]bool)
	var children []*operator.Operator
	indexCap := h.IntersectionCap()
	for _, cand := range scored {
		if used[cand.field] {
			continue
		}
		if len(children) >= indexCap {
			break
		}
		used[cand.field] = true
		children = append(children, &operator.Operator{
			Kind:             operator.KindIndexSeek,
			IndexName:        cand.idx.Name,
			EstimatedEntries: int64(provider.EqualitySelectivity(analysis.TypeName, cand.field, cand.value) * float64(provider.IndexEntries(cand.idx.Name))),
		})
	}

	if len(children) < 2 {
		return nil
	}
	return &operator.Operator{Kind: operator.KindIntersection, Children: children}
}

// unionCandidate implements spec §4.6's union-plan family: when
// NormalizedCondition is a top-level disjunction, plan each disjunct
// independently (as its own flattened conjunction) and combine with a
// deduplicating union. Ordering, if required, is restored by a wrapping
// sort at the facade level, not here.
func unionCandidate(analysis QueryAnalysis, indexes []index.IndexDescriptor, registry *index.Registry, provider stats.Provider) *operator.Operator {
	disjuncts := analysis.NormalizedCondition.Children()
	if len(disjuncts) < 2 {
		return nil
	}

	var children []*operator.Operator
	for _, d := range disjuncts {
		subConditions := flattenConjunction(d)
		best := bestSingleIndexPlan(subConditions, indexes, registry, provider, analysis.TypeName)
		if best == nil {
			best = tableScanCandidate(QueryAnalysis{TypeName: analysis.TypeName, OriginalPredicate: d}, provider)
		}
		children = append(children, best)
	}

	return &operator.Operator{Kind: operator.KindUnion, Children: children, Deduplicate: true}
}

// bestSingleIndexPlan picks the lowest-cost single-index candidate for
// conditions, used by union-plan enumeration to plan each disjunct.
func bestSingleIndexPlan(conditions []*condition.FieldCondition, indexes []index.IndexDescriptor, registry *index.Registry, provider stats.Provider, typeName string) *operator.Operator {
	var best *operator.Operator
	var bestCost float64
	for _, idx := range indexes {
		strategy, ok := registry.Get(idx.KindIdentifier)
		if !ok {
			continue
		}
		match := strategy.MatchConditions(idx, conditions, provider, typeName, nil)
		if !match.Matched() {
			continue
		}
		op := strategy.CreateOperator(idx, match, conditions)
		op = wrapResidualFilter(op, conditions, match, provider, typeName)
		_, cost := EstimateCost(op)
		total := cost.Total(DefaultWeights())
		if best == nil || total < bestCost {
			best, bestCost = op, total
		}
	}
	return best
}

// skipScanCandidates implements spec §4.6's skip-scan family: for
// composite indexes whose leading column is unconstrained but a later
// column is, enumerate the (capped) leading-column distinct values and
// emit a skipScan operator; the concrete distinct values to scan over
// are an executor-time concern (outside the planner's scope per spec
// §1's "physical operator execution... specified only at their
// interface with the planner"), so SkipScanPrefixes is left for the
// executor to populate from live data at execution time.
func skipScanCandidates(analysis QueryAnalysis, indexes []index.IndexDescriptor, provider stats.Provider) []*operator.Operator {
	var out []*operator.Operator
	for _, idx := range indexes {
		if len(idx.KeyPaths) < 2 {
			continue
		}
		if findConditionFor(analysis.FieldConditions, idx.KeyPaths[0]) != nil {
			continue // leading column already constrained; handled by the scalar strategy
		}

		var laterMatched bool
		for _, field := range idx.KeyPaths[1:] {
			if findConditionFor(analysis.FieldConditions, field) != nil {
				laterMatched = true
				break
			}
		}
		if !laterMatched {
			continue
		}

		distinct := provider.DistinctValues(analysis.TypeName, idx.KeyPaths[0])
		if distinct <= 0 || distinct > skipScanDistinctThreshold {
			continue
		}

		entries := provider.IndexEntries(idx.Name) / maxInt64(1, distinct)
		skipScanCost := distinct * entries
		tableScanCost := provider.RowCount(analysis.TypeName)
		if skipScanCost >= tableScanCost {
			continue
		}

		out = append(out, &operator.Operator{
			Kind:             operator.KindSkipScan,
			IndexName:        idx.Name,
			EstimatedEntries: skipScanCost,
		})
	}
	return out
}

func findConditionFor(conditions []*condition.FieldCondition, field string) *condition.FieldCondition {
	for _, c := range conditions {
		if c.Field == field {
			return c
		}
	}
	return nil
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

// conditionSelectivity estimates a single condition's selectivity using
// provider where a histogram-backed estimate applies, falling back to
// the flat heuristics spec §4.5 assigns non-scalar families.
func conditionSelectivity(c *condition.FieldCondition, provider stats.Provider, typeName string) float64 {
	switch c.Family {
	case condition.FamilyScalar:
		switch c.ScalarType {
		case condition.ScalarEQ:
			return provider.EqualitySelectivity(typeName, c.Field, c.Values[0])
		case condition.ScalarNE:
			return 1 - provider.EqualitySelectivity(typeName, c.Field, c.Values[0])
		case condition.ScalarLT, condition.ScalarLE, condition.ScalarGT, condition.ScalarGE, condition.ScalarBetween:
			b := c.ToBounds()
			if b == nil {
				return 0.3
			}
			return provider.RangeSelectivity(typeName, c.Field, b.Lower, b.Upper, b.LowerInclusive, b.UpperInclusive)
		case condition.ScalarIn:
			eqSel := provider.EqualitySelectivity(typeName, c.Field, c.Values[0])
			sel := eqSel * float64(len(c.Values))
			if sel > 1 {
				sel = 1
			}
			return sel
		case condition.ScalarNotIn:
			eqSel := provider.EqualitySelectivity(typeName, c.Field, c.Values[0])
			sel := 1 - eqSel*float64(len(c.Values))
			if sel < 0 {
				sel = 0
			}
			return sel
		case condition.ScalarIsNull:
			return provider.NullSelectivity(typeName, c.Field, true)
		case condition.ScalarIsNotNull:
			return provider.NullSelectivity(typeName, c.Field, false)
		default:
			return 0.3
		}
	case condition.FamilyTextSearch:
		return 0.05
	case condition.FamilySpatial:
		return 0.15
	case condition.FamilyVector:
		return 0.01
	case condition.FamilyStringPattern:
		switch c.PatternType {
		case condition.PatternPrefix:
			return 0.1
		case condition.PatternContains:
			return 0.05
		default:
			return 0.2
		}
	default:
		return 0.3
	}
}
