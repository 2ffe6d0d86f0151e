package prepared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusql/planner/hints"
	"github.com/janusql/planner/index"
	"github.com/janusql/planner/plan"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/stats"
	"github.com/janusql/planner/value"
)

func eq(field string, v value.Value) predicate.Predicate {
	return predicate.Cmp(predicate.FieldComparison{Field: field, Op: predicate.OpEQ, Value: v})
}

func testIndexes() []index.IndexDescriptor {
	return []index.IndexDescriptor{
		{Name: "idx_user_email", KindIdentifier: index.KindScalar, KeyPaths: []string{"email"}, IsUnique: true},
	}
}

func TestFingerprintIgnoresLiteralValuesButNotStructure(t *testing.T) {
	b := QueryFingerprintBuilder{}
	a := b.Build(plan.Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))})
	c := b.Build(plan.Query{TypeName: "User", Predicate: eq("email", value.NewString("different@example.com"))})
	assert.True(t, a.Equal(c))

	d := b.Build(plan.Query{TypeName: "User", Predicate: eq("age", value.NewInt(30))})
	assert.False(t, a.Equal(d))
}

func TestPlanCacheHitPromotesToMostRecentlyUsed(t *testing.T) {
	cache := NewPlanCache(2, 0)
	fp1 := QueryFingerprint{TypeName: "A"}
	fp1.hash = 1
	fp2 := QueryFingerprint{TypeName: "B"}
	fp2.hash = 2
	fp3 := QueryFingerprint{TypeName: "C"}
	fp3.hash = 3

	cache.Put(&PreparedPlan{Fingerprint: fp1})
	cache.Put(&PreparedPlan{Fingerprint: fp2})

	// touch fp1 so fp2 becomes the least-recently-used entry
	_, ok := cache.Get(fp1)
	require.True(t, ok)

	cache.Put(&PreparedPlan{Fingerprint: fp3})

	_, ok = cache.Get(fp2)
	assert.False(t, ok, "fp2 should have been evicted as the least-recently-used entry")
	_, ok = cache.Get(fp1)
	assert.True(t, ok)
	_, ok = cache.Get(fp3)
	assert.True(t, ok)
}

func TestPlanCacheExpiresEntriesPastTTL(t *testing.T) {
	cache := NewPlanCache(10, time.Nanosecond)
	fp := QueryFingerprint{TypeName: "A"}
	fp.hash = 42
	cache.Put(&PreparedPlan{Fingerprint: fp})

	time.Sleep(time.Millisecond)
	_, ok := cache.Get(fp)
	assert.False(t, ok)
}

func TestPlanCacheInvalidateDropsEntriesForType(t *testing.T) {
	cache := NewPlanCache(10, 0)
	fpA := QueryFingerprint{TypeName: "User"}
	fpA.hash = 1
	fpB := QueryFingerprint{TypeName: "Order"}
	fpB.hash = 2
	cache.Put(&PreparedPlan{Fingerprint: fpA})
	cache.Put(&PreparedPlan{Fingerprint: fpB})

	cache.Invalidate("User")

	_, ok := cache.Get(fpA)
	assert.False(t, ok)
	_, ok = cache.Get(fpB)
	assert.True(t, ok)
}

func TestPlanCacheValidateEvictsOnDroppedIndex(t *testing.T) {
	cache := NewPlanCache(10, 0)
	q := plan.Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))}
	builtPlan, err := plan.BuildPlan(q, testIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, plan.DefaultWeights())
	require.NoError(t, err)

	fp := QueryFingerprintBuilder{}.Build(q)
	cache.Put(&PreparedPlan{Fingerprint: fp, PlanTemplate: builtPlan})

	assert.True(t, cache.Validate(fp, map[string]bool{"idx_user_email": true}))
	assert.False(t, cache.Validate(fp, map[string]bool{}))

	_, ok := cache.Get(fp)
	assert.False(t, ok, "validate should have evicted the entry referencing a dropped index")
}

func TestPrepareReusesCachedPlanOnSecondCall(t *testing.T) {
	cache := NewPlanCache(10, 0)
	q1 := plan.Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))}
	q2 := plan.Query{TypeName: "User", Predicate: eq("email", value.NewString("b@example.com"))}

	p1, err := Prepare(q1, testIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, plan.DefaultWeights(), cache)
	require.NoError(t, err)

	_, missesBefore, _ := cache.Stats()

	p2, err := Prepare(q2, testIndexes(), index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, plan.DefaultWeights(), cache)
	require.NoError(t, err)

	assert.Equal(t, p1.ID, p2.ID)
	hitsAfter, missesAfter, _ := cache.Stats()
	assert.Equal(t, missesBefore, missesAfter)
	assert.GreaterOrEqual(t, hitsAfter, int64(1))
}

func TestBindingsForAssignsPositionsInTraversalOrder(t *testing.T) {
	q := plan.Query{
		TypeName: "User",
		Predicate: predicate.And(
			eq("status", value.NewString("active")),
			eq("age", value.NewInt(30)),
		),
	}
	bindings := bindingsFor(q)
	require.Len(t, bindings, 2)
	assert.Equal(t, "status", bindings[0].FieldName)
	assert.Equal(t, 0, bindings[0].Position)
	assert.Equal(t, "age", bindings[1].FieldName)
	assert.Equal(t, "int", bindings[1].ExpectedType)
}
