package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusql/planner/condition"
	"github.com/janusql/planner/operator"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
	"github.com/janusql/planner/value"
)

func eqCondition(field string, v value.Value) *condition.FieldCondition {
	return condition.FromComparison(predicate.FieldComparison{Field: field, Op: predicate.OpEQ, Value: v})
}

func rangeCondition(field string, lt value.Value) *condition.FieldCondition {
	return condition.FromComparison(predicate.FieldComparison{Field: field, Op: predicate.OpLT, Value: lt})
}

func TestScalarStrategyFullKeyEqualityProducesSeek(t *testing.T) {
	idx := IndexDescriptor{Name: "idx_user_email", KindIdentifier: KindScalar, KeyPaths: []string{"email"}}
	conditions := []*condition.FieldCondition{eqCondition("email", value.NewString("a@example.com"))}
	provider := stats.NewDefaultProvider()

	s := ScalarStrategy{}
	match := s.MatchConditions(idx, conditions, provider, "User", nil)
	require.True(t, match.Matched())
	assert.Len(t, match.SatisfiedConditions, 1)

	op := s.CreateOperator(idx, match, conditions)
	assert.Equal(t, operator.KindIndexSeek, op.Kind)
}

func TestScalarStrategyRangeTerminatesPrefix(t *testing.T) {
	idx := IndexDescriptor{Name: "idx_user_age_name", KindIdentifier: KindScalar, KeyPaths: []string{"age", "name"}}
	conditions := []*condition.FieldCondition{
		rangeCondition("age", value.NewInt(30)),
		eqCondition("name", value.NewString("ada")),
	}
	provider := stats.NewDefaultProvider()

	s := ScalarStrategy{}
	match := s.MatchConditions(idx, conditions, provider, "User", nil)
	require.True(t, match.Matched())
	// only "age" should be matched; "name" never reached because range terminates prefix
	assert.Len(t, match.SatisfiedConditions, 1)

	op := s.CreateOperator(idx, match, conditions)
	assert.Equal(t, operator.KindIndexScan, op.Kind)
}

func TestScalarStrategyNoConditionOnLeadingKeyMatchesNothing(t *testing.T) {
	idx := IndexDescriptor{Name: "idx_user_age", KindIdentifier: KindScalar, KeyPaths: []string{"age"}}
	conditions := []*condition.FieldCondition{eqCondition("name", value.NewString("ada"))}
	provider := stats.NewDefaultProvider()

	s := ScalarStrategy{}
	match := s.MatchConditions(idx, conditions, provider, "User", nil)
	assert.False(t, match.Matched())
}

func TestScalarStrategyInExpandsToUnionOfSeeks(t *testing.T) {
	idx := IndexDescriptor{Name: "idx_user_status", KindIdentifier: KindScalar, KeyPaths: []string{"status"}}
	c := condition.FromComparison(predicate.FieldComparison{
		Field: "status", Op: predicate.OpIn,
		Values: []value.Value{value.NewString("a"), value.NewString("b"), value.NewString("c")},
	})
	conditions := []*condition.FieldCondition{c}
	provider := stats.NewDefaultProvider()

	s := ScalarStrategy{}
	match := s.MatchConditions(idx, conditions, provider, "User", nil)
	require.True(t, match.Matched())

	op := s.CreateOperator(idx, match, conditions)
	require.Equal(t, operator.KindUnion, op.Kind)
	assert.Len(t, op.Children, 3)
	assert.False(t, op.Deduplicate)
	for _, child := range op.Children {
		assert.Equal(t, operator.KindIndexSeek, child.Kind)
	}
}

func TestScalarStrategyInAboveThresholdFallsBackToRangeWithResidual(t *testing.T) {
	idx := IndexDescriptor{Name: "idx_user_category", KindIdentifier: KindScalar, KeyPaths: []string{"category"}}
	values := make([]value.Value, unionThreshold+1)
	for i := range values {
		values[i] = value.NewInt(int64(i))
	}
	c := condition.FromComparison(predicate.FieldComparison{Field: "category", Op: predicate.OpIn, Values: values})
	conditions := []*condition.FieldCondition{c}
	provider := stats.NewDefaultProvider()

	s := ScalarStrategy{}
	match := s.MatchConditions(idx, conditions, provider, "User", nil)
	require.True(t, match.Matched())
	assert.Empty(t, match.SatisfiedConditions)
	assert.Len(t, match.PartialConditions, 1)

	op := s.CreateOperator(idx, match, conditions)
	assert.Equal(t, operator.KindIndexScan, op.Kind)
}

func TestIndexPrefixSatisfiesOrderingRequiresLeadingMatch(t *testing.T) {
	idx := IndexDescriptor{KeyPaths: []string{"age", "name"}}
	ok := indexPrefixSatisfiesOrdering(idx, []SortRequirement{{Field: "age", Descending: false}})
	assert.True(t, ok)

	bad := indexPrefixSatisfiesOrdering(idx, []SortRequirement{{Field: "name", Descending: false}})
	assert.False(t, bad)
}

func TestRegistryResolvesBuiltinStrategies(t *testing.T) {
	r := NewRegistry()
	for _, kind := range []string{KindScalar, KindFullText, KindVector, KindSpatial} {
		_, ok := r.Get(kind)
		assert.True(t, ok, "expected strategy registered for kind %q", kind)
	}
	_, ok := r.Get("doesNotExist")
	assert.False(t, ok)
}

func TestVectorStrategyAlwaysSatisfiesOrdering(t *testing.T) {
	idx := IndexDescriptor{Name: "idx_embedding", KindIdentifier: KindVector, KeyPaths: []string{"embedding"}}
	c := &condition.FieldCondition{Field: "embedding", Family: condition.FamilyVector, K: 10}
	conditions := []*condition.FieldCondition{c}
	provider := stats.NewDefaultProvider()

	s := VectorStrategy{}
	match := s.MatchConditions(idx, conditions, provider, "Doc", nil)
	require.True(t, match.Matched())
	assert.True(t, match.SatisfiesOrdering)
	assert.EqualValues(t, 10, match.EstimatedEntries)
}
