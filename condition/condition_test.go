package condition

import (
	"testing"

	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/value"
	"github.com/stretchr/testify/assert"
)

func TestIdentifierDistinguishesComparisons(t *testing.T) {
	gt := FromComparison(predicate.FieldComparison{Field: "age", Op: predicate.OpGT, Value: value.NewInt(20)})
	lt := FromComparison(predicate.FieldComparison{Field: "age", Op: predicate.OpLT, Value: value.NewInt(50)})
	assert.NotEqual(t, gt.Identifier(), lt.Identifier())
}

func TestIdentifierStableForSameSource(t *testing.T) {
	a := FromComparison(predicate.FieldComparison{Field: "age", Op: predicate.OpGT, Value: value.NewInt(20)})
	b := FromComparison(predicate.FieldComparison{Field: "age", Op: predicate.OpGT, Value: value.NewInt(20)})
	assert.Equal(t, a.Identifier(), b.Identifier())
}

func TestFromComparisonPattern(t *testing.T) {
	c := FromComparison(predicate.FieldComparison{Field: "name", Op: predicate.OpHasPrefix, Value: value.NewString("Jo")})
	assert.Equal(t, FamilyStringPattern, c.Family)
	assert.Equal(t, PatternPrefix, c.PatternType)
	assert.Equal(t, "Jo", c.Pattern)
}

func TestToBoundsScalarRange(t *testing.T) {
	c := FromComparison(predicate.FieldComparison{Field: "age", Op: predicate.OpGE, Value: value.NewInt(18)})
	b := c.ToBounds()
	assert.NotNil(t, b)
	assert.True(t, b.LowerInclusive)
	lo, _ := b.Lower.AsInt()
	assert.Equal(t, int64(18), lo)
}

func TestSatisfiedBy(t *testing.T) {
	c := FromComparison(predicate.FieldComparison{Field: "age", Op: predicate.OpGT, Value: value.NewInt(20)})
	get := func(f string) (value.Value, bool) {
		if f == "age" {
			return value.NewInt(25), true
		}
		return value.Value{}, false
	}
	assert.True(t, c.SatisfiedBy(get))
}
