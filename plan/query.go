// Package plan implements the plan enumerator, cost model, optimizer,
// and query-planner façade of spec §4.6-4.8: Analyze turns a rewritten
// predicate into a QueryAnalysis, Enumerate produces candidate operator
// trees, EstimateCost scores them, and BuildPlan orchestrates the whole
// pipeline end to end.
//
// Grounded on datalog/planner/planner.go's Plan() orchestration
// (rewrite -> plan phases -> cache) and datalog/planner/types.go's
// QueryPlan/Phase shape for the analysis and plan result types.
package plan

import (
	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/predicate"
)

// Query is the planner's input: a predicate tree over a record type,
// optional sort descriptors, limit, and offset (spec §4.2).
type Query struct {
	TypeName  string
	Predicate predicate.Predicate
	SortBy    []operator.SortDescriptor
	Limit     *int
	Offset    *int
}

// QueryAnalysis is the analyzer's output (spec §4.2).
type QueryAnalysis struct {
	TypeName            string
	OriginalPredicate    predicate.Predicate
	NormalizedCondition  predicate.Predicate
	FieldConditions      []*condition.FieldCondition
	SortRequirements     []operator.SortDescriptor
	Limit                *int
	Offset               *int
	ReferencedFields     []string
}

// Analyze rewrites query.Predicate and produces a QueryAnalysis: the
// top-level conjunction is flattened into fieldConditions keyed by
// identifier; any disjunction remains in NormalizedCondition for
// union-plan enumeration (spec §4.2).
func Analyze(query Query) QueryAnalysis {
	rewritten := predicate.Rewrite(query.Predicate)

	a := QueryAnalysis{
		TypeName:            query.TypeName,
		OriginalPredicate:   query.Predicate,
		NormalizedCondition: rewritten,
		SortRequirements:    query.SortBy,
		Limit:               query.Limit,
		Offset:              query.Offset,
	}

	a.FieldConditions = flattenConjunction(rewritten)

	fields := make(map[string]bool)
	collectFields(rewritten, fields)
	for _, s := range query.SortBy {
		fields[s.Field] = true
	}
	a.ReferencedFields = make([]string, 0, len(fields))
	for f := range fields {
		a.ReferencedFields = append(a.ReferencedFields, f)
	}

	return a
}

// flattenConjunction extracts a flat field-condition list from p's
// top-level conjuncts. A bare comparison or Not(comparison) is treated
// as a singleton conjunction. Nested disjunctions are left out of the
// list entirely — they remain only in NormalizedCondition, to be
// planned by union enumeration.
func flattenConjunction(p predicate.Predicate) []*condition.FieldCondition {
	var conjuncts []predicate.Predicate
	switch p.Kind() {
	case predicate.KindAnd:
		conjuncts = p.Children()
	case predicate.KindTrue, predicate.KindFalse, predicate.KindOr:
		return nil
	default:
		conjuncts = []predicate.Predicate{p}
	}

	var out []*condition.FieldCondition
	for _, c := range conjuncts {
		switch c.Kind() {
		case predicate.KindCmp:
			out = append(out, condition.FromComparison(c.Comparison()))
		case predicate.KindNot:
			if c.Children()[0].Kind() == predicate.KindCmp {
				if negated, ok := negateComparison(c.Children()[0].Comparison()); ok {
					out = append(out, condition.FromComparison(negated))
				}
			}
		}
		// Or/And/True/False conjuncts are not reducible to a single
		// field condition; they stay represented only in NormalizedCondition.
	}
	return out
}

// negateComparison inverts c's operator where that inversion is a plain
// operator swap, letting flattenConjunction turn not(cmp) into a usable
// FieldCondition without a general boolean-negation pass over Predicate.
func negateComparison(c predicate.FieldComparison) (predicate.FieldComparison, bool) {
	switch c.Op {
	case predicate.OpEQ:
		return predicate.FieldComparison{Field: c.Field, Op: predicate.OpNE, Value: c.Value}, true
	case predicate.OpNE:
		return predicate.FieldComparison{Field: c.Field, Op: predicate.OpEQ, Value: c.Value}, true
	case predicate.OpLT:
		return predicate.FieldComparison{Field: c.Field, Op: predicate.OpGE, Value: c.Value}, true
	case predicate.OpLE:
		return predicate.FieldComparison{Field: c.Field, Op: predicate.OpGT, Value: c.Value}, true
	case predicate.OpGT:
		return predicate.FieldComparison{Field: c.Field, Op: predicate.OpLE, Value: c.Value}, true
	case predicate.OpGE:
		return predicate.FieldComparison{Field: c.Field, Op: predicate.OpLT, Value: c.Value}, true
	case predicate.OpIsNull:
		return predicate.FieldComparison{Field: c.Field, Op: predicate.OpIsNotNull}, true
	case predicate.OpIsNotNull:
		return predicate.FieldComparison{Field: c.Field, Op: predicate.OpIsNull}, true
	default:
		return c, false
	}
}

func collectFields(p predicate.Predicate, out map[string]bool) {
	switch p.Kind() {
	case predicate.KindCmp:
		out[p.Comparison().Field] = true
	case predicate.KindNot, predicate.KindAnd, predicate.KindOr:
		for _, c := range p.Children() {
			collectFields(c, out)
		}
	}
}
