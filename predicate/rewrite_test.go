package predicate

import (
	"testing"

	"github.com/janusql/planner/value"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gt(field string, v int64) Predicate {
	return Cmp(FieldComparison{Field: field, Op: OpGT, Value: value.NewInt(v)})
}
func lt(field string, v int64) Predicate {
	return Cmp(FieldComparison{Field: field, Op: OpLT, Value: value.NewInt(v)})
}
func ge(field string, v int64) Predicate {
	return Cmp(FieldComparison{Field: field, Op: OpGE, Value: value.NewInt(v)})
}

// Scenario A — range merging: age>18 AND age>21 AND age<30 -> age>21 AND age<30.
func TestScenarioA_RangeMerging(t *testing.T) {
	in := And(gt("age", 18), gt("age", 21), lt("age", 30))
	out := Rewrite(in)

	require.Equal(t, KindAnd, out.Kind())
	require.Len(t, out.Children(), 2)

	var sawGT21, sawLT30 bool
	for _, c := range out.Children() {
		cmp := c.Comparison()
		if cmp.Op == OpGT {
			v, _ := cmp.Value.AsInt()
			assert.Equal(t, int64(21), v)
			sawGT21 = true
		}
		if cmp.Op == OpLT {
			v, _ := cmp.Value.AsInt()
			assert.Equal(t, int64(30), v)
			sawLT30 = true
		}
	}
	assert.True(t, sawGT21)
	assert.True(t, sawLT30)
}

// Scenario B — contradiction: age>=5 AND age<5 -> false.
func TestScenarioB_Contradiction(t *testing.T) {
	in := And(ge("age", 5), lt("age", 5))
	out := Rewrite(in)
	assert.Equal(t, KindFalse, out.Kind())
}

func TestRewriteIdempotent(t *testing.T) {
	in := And(And(gt("age", 18), gt("age", 21)), lt("age", 30), gt("age", 21))
	once := Rewrite(in)
	twice := Rewrite(once)
	assert.Equal(t, once.String(), twice.String())
}

func TestSemanticPreservation(t *testing.T) {
	in := And(gt("age", 18), gt("age", 21), lt("age", 30))
	out := Rewrite(in)

	get := func(field string) (value.Value, bool) {
		if field == "age" {
			return value.NewInt(25), true
		}
		return value.Value{}, false
	}
	assert.Equal(t, Evaluate(in, get), Evaluate(out, get))

	get40 := func(field string) (value.Value, bool) {
		if field == "age" {
			return value.NewInt(40), true
		}
		return value.Value{}, false
	}
	assert.Equal(t, Evaluate(in, get40), Evaluate(out, get40))
}

func TestDeduplicate(t *testing.T) {
	eq := Cmp(FieldComparison{Field: "status", Op: OpEQ, Value: value.NewString("active")})
	in := And(eq, eq)
	out := Rewrite(in)
	assert.Equal(t, KindCmp, out.Kind())
}

func TestConstantFolding(t *testing.T) {
	assert.Equal(t, KindFalse, foldConstants(Not(True())).Kind())
	assert.Equal(t, KindTrue, foldConstants(Not(False())).Kind())
	inner := gt("age", 1)
	assert.Equal(t, inner.String(), foldConstants(Not(Not(inner))).String())
}

func TestFlattenNestedAnd(t *testing.T) {
	in := And(And(gt("a", 1), gt("b", 2)), gt("c", 3))
	out := flatten(in)
	assert.Len(t, out.Children(), 3)
}

func TestEqualityOutsideRangeContradiction(t *testing.T) {
	eq := Cmp(FieldComparison{Field: "age", Op: OpEQ, Value: value.NewInt(10)})
	in := And(eq, gt("age", 20))
	out := Rewrite(in)
	assert.Equal(t, KindFalse, out.Kind())
}

func TestDNFDistribution(t *testing.T) {
	in := And(Or(gt("a", 1), gt("b", 2)), gt("c", 3))
	out := RewriteToDNF(in)
	assert.Equal(t, KindOr, out.Kind())
	assert.Len(t, out.Children(), 2)
}
