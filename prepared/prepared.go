package prepared

import (
	"fmt"

	"github.com/janusql/planner/hints"
	"github.com/janusql/planner/index"
	"github.com/janusql/planner/plan"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
	"github.com/janusql/planner/value"
)

// Prepare implements spec §4.9's `prepare(query)` entry point: build the
// query's fingerprint, consult cache, and on a miss (or a cache hit that
// Validate rejects because a used index was dropped), plan the query and
// store the result.
func Prepare(q plan.Query, indexes []index.IndexDescriptor, registry *index.Registry, provider stats.Provider, h hints.Hints, w plan.Weights, cache *PlanCache) (*PreparedPlan, error) {
	fp := QueryFingerprintBuilder{}.Build(q)

	currentIndexes := make(map[string]bool, len(indexes))
	for _, idx := range indexes {
		currentIndexes[idx.Name] = true
	}

	if cached, ok := cache.Get(fp); ok && cache.Validate(fp, currentIndexes) {
		return cached, nil
	}

	builtPlan, err := plan.BuildPlan(q, indexes, registry, provider, h, w)
	if err != nil {
		return nil, err
	}

	prepared := &PreparedPlan{
		ID:           fmt.Sprintf("prepared:%016x", fp.Hash()),
		Fingerprint:  fp,
		PlanTemplate: builtPlan,
		Bindings:     bindingsFor(q),
	}
	cache.Put(prepared)
	return prepared, nil
}

// bindingsFor extracts one ParameterBinding per comparison in
// q.Predicate, walking And/Or/Not children depth-first, in traversal order,
// so an execution-time caller can bind actual values by position into
// the plan template's stripped-out literals (spec §4.9).
func bindingsFor(q plan.Query) []ParameterBinding {
	var bindings []ParameterBinding
	position := 0
	var walk func(p predicate.Predicate)
	walk = func(p predicate.Predicate) {
		switch p.Kind() {
		case predicate.KindCmp:
			c := p.Comparison()
			bindings = append(bindings, ParameterBinding{
				Name:         fmt.Sprintf("p%d", position),
				FieldName:    c.Field,
				ExpectedType: tagName(c.Value.Tag()),
				Position:     position,
			})
			position++
		case predicate.KindAnd, predicate.KindOr, predicate.KindNot:
			for _, child := range p.Children() {
				walk(child)
			}
		}
	}
	walk(q.Predicate)
	return bindings
}

func tagName(t value.Tag) string {
	switch t {
	case value.Null:
		return "null"
	case value.Bool:
		return "bool"
	case value.Int:
		return "int"
	case value.Double:
		return "double"
	case value.String:
		return "string"
	case value.Timestamp:
		return "timestamp"
	case value.Bytes:
		return "bytes"
	default:
		return "unknown"
	}
}
