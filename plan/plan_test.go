package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusql/planner/hints"
	"github.com/janusql/planner/index"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
	"github.com/janusql/planner/value"
)

func eq(field string, v value.Value) predicate.Predicate {
	return predicate.Cmp(predicate.FieldComparison{Field: field, Op: predicate.OpEQ, Value: v})
}

func lt(field string, v value.Value) predicate.Predicate {
	return predicate.Cmp(predicate.FieldComparison{Field: field, Op: predicate.OpLT, Value: v})
}

func scalarIndexes() []index.IndexDescriptor {
	return []index.IndexDescriptor{
		{Name: "idx_user_email", KindIdentifier: index.KindScalar, KeyPaths: []string{"email"}, IsUnique: true},
		{Name: "idx_user_age", KindIdentifier: index.KindScalar, KeyPaths: []string{"age"}},
		{Name: "idx_user_status", KindIdentifier: index.KindScalar, KeyPaths: []string{"status"}},
	}
}

func TestAnalyzeFlattensConjunctionAndKeepsDisjunctionNormalized(t *testing.T) {
	q := Query{
		TypeName:  "User",
		Predicate: predicate.And(eq("status", value.NewString("active")), lt("age", value.NewInt(50))),
	}
	a := Analyze(q)
	require.Len(t, a.FieldConditions, 2)
	assert.ElementsMatch(t, []string{"status", "age"}, a.ReferencedFields)

	or := Query{TypeName: "User", Predicate: predicate.Or(eq("status", value.NewString("a")), eq("status", value.NewString("b")))}
	oa := Analyze(or)
	assert.Empty(t, oa.FieldConditions)
	assert.Equal(t, predicate.KindOr, oa.NormalizedCondition.Kind())
}

func TestBuildPlanPrefersIndexSeekOverTableScanForSelectiveEquality(t *testing.T) {
	q := Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))}
	p, err := BuildPlan(q, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, DefaultWeights())
	require.NoError(t, err)
	require.NotNil(t, p.Root)
	assert.Equal(t, operator.KindIndexSeek, p.Root.Kind)
	assert.Contains(t, p.UsedIndexes, "idx_user_email")
}

func TestBuildPlanForceTableScanHintShortCircuitsEnumeration(t *testing.T) {
	q := Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))}
	h := hints.Hints{ForceTableScan: true}
	p, err := BuildPlan(q, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), h, DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, operator.KindTableScan, p.Root.Kind)
}

func TestBuildPlanFallsBackToTableScanWhenNoIndexMatches(t *testing.T) {
	q := Query{TypeName: "User", Predicate: eq("unindexed_field", value.NewString("x"))}
	p, err := BuildPlan(q, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, operator.KindTableScan, p.Root.Kind)
	assert.NotNil(t, p.PostFilterPredicate)
}

func TestBuildPlanWrapsWithSortWhenIndexDoesNotProvideOrdering(t *testing.T) {
	q := Query{
		TypeName:  "User",
		Predicate: eq("email", value.NewString("a@example.com")),
		SortBy:    []operator.SortDescriptor{{Field: "age"}},
	}
	p, err := BuildPlan(q, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, DefaultWeights())
	require.NoError(t, err)
	assert.Equal(t, operator.KindSort, p.Root.Kind)
	assert.True(t, p.OrderingSatisfied)
}

func TestBuildPlanWrapsWithLimit(t *testing.T) {
	limit := 10
	q := Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com")), Limit: &limit}
	p, err := BuildPlan(q, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, DefaultWeights())
	require.NoError(t, err)
	require.Equal(t, operator.KindLimit, p.Root.Kind)
	assert.Equal(t, &limit, p.Root.LimitCount)
}

func TestBuildPlanRejectsEmptyTypeName(t *testing.T) {
	_, err := BuildPlan(Query{}, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, DefaultWeights())
	assert.Error(t, err)
}

func TestBuildPlanRespectsDisabledIndexScanHint(t *testing.T) {
	q := Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))}
	h := hints.Hints{DisabledPlans: map[hints.PlanKind]bool{hints.PlanIndexScan: true}}
	p, err := BuildPlan(q, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), h, DefaultWeights())
	require.NoError(t, err)
	// with the only matching single-key index pruned, enumeration falls
	// back to a table scan.
	assert.Equal(t, operator.KindTableScan, p.Root.Kind)
}

func TestEstimateCostIsMonotonicUnderAddedFilter(t *testing.T) {
	scan := &operator.Operator{Kind: operator.KindTableScan, EstimatedEntries: 1000}
	_, baseCost := EstimateCost(scan)

	pred := eq("status", value.NewString("active"))
	filtered := &operator.Operator{Kind: operator.KindFilter, Input: scan, Predicate: &pred, Selectivity: 0.1}
	_, filteredCost := EstimateCost(filtered)

	assert.Equal(t, baseCost.RecordFetches, filteredCost.RecordFetches)
	assert.Equal(t, filteredCost.PostFilterCount, int64(1))
}

func TestExplainProducesIndentedTreeWithIndexAnnotation(t *testing.T) {
	q := Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))}
	p, err := BuildPlan(q, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, DefaultWeights())
	require.NoError(t, err)

	out := Explain(p)
	assert.Contains(t, out, "indexSeek")
	assert.Contains(t, out, "[idx_user_email]")
}

func TestExplainJSONRoundTripsPlanShape(t *testing.T) {
	q := Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))}
	p, err := BuildPlan(q, scalarIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, DefaultWeights())
	require.NoError(t, err)

	result, err := ExplainJSON(p)
	require.NoError(t, err)
	assert.Equal(t, p.TotalCost, result.EstimatedCost)
	assert.Equal(t, "indexSeek", result.OperatorTree.Kind)
	assert.Contains(t, result.UsedIndexes, "idx_user_email")
}

func TestLoadWeightsFallsBackToDefaultsOnMissingFile(t *testing.T) {
	w, err := LoadWeights("/nonexistent/path/weights.yaml")
	assert.Error(t, err)
	assert.Equal(t, DefaultWeights(), w)
}
