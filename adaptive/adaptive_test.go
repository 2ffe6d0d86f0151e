package adaptive

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janusql/planner/hints"
	"github.com/janusql/planner/index"
	"github.com/janusql/planner/plan"
	"github.com/janusql/planner/predicate"
	"github.com/janusql/planner/prepared"
	"github.com/janusql/planner/stats"
	"github.com/janusql/planner/value"
)

func eq(field string, v value.Value) predicate.Predicate {
	return predicate.Cmp(predicate.FieldComparison{Field: field, Op: predicate.OpEQ, Value: v})
}

func buildTestPlan(t *testing.T) *plan.Plan {
	t.Helper()
	q := plan.Query{TypeName: "User", Predicate: eq("email", value.NewString("a@example.com"))}
	idx := []index.IndexDescriptor{
		{Name: "idx_user_email", KindIdentifier: index.KindScalar, KeyPaths: []string{"email"}, IsUnique: true},
	}
	p, err := plan.BuildPlan(q, idx, index.NewRegistry(), stats.NewDefaultProvider(), hints.Hints{}, plan.DefaultWeights())
	require.NoError(t, err)
	return p
}

func TestRuntimeStatisticsTrackerAggregatesAfterThreshold(t *testing.T) {
	provider := stats.NewCollectedStatisticsProvider()
	tracker := NewRuntimeStatisticsTracker(provider, 2)
	p := buildTestPlan(t)

	tracker.Record("User", p, 100, time.Millisecond)
	tracker.Record("User", p, 200, time.Millisecond)

	report := tracker.AnalyzeEstimationAccuracy("User")
	assert.Equal(t, 2, report.SampleCount)
	assert.GreaterOrEqual(t, report.AverageError, 0.0)
}

func TestRuntimeStatisticsTrackerBoundsHistoryLength(t *testing.T) {
	provider := stats.NewCollectedStatisticsProvider()
	tracker := NewRuntimeStatisticsTracker(provider, 1_000_000)
	p := buildTestPlan(t)

	for i := 0; i < maxHistoryPerType+50; i++ {
		tracker.Record("User", p, int64(i), time.Microsecond)
	}

	report := tracker.AnalyzeEstimationAccuracy("User")
	assert.Equal(t, maxHistoryPerType, report.SampleCount)
}

func TestRuntimeStatisticsTrackerEmptyHistoryReportsZeroSamples(t *testing.T) {
	tracker := NewRuntimeStatisticsTracker(nil, 10)
	report := tracker.AnalyzeEstimationAccuracy("Nonexistent")
	assert.Equal(t, 0, report.SampleCount)
}

func TestAdaptiveOptimizerPlanStartsAtVersionOne(t *testing.T) {
	opt := NewAdaptiveOptimizer(nil, 0.5, 5, time.Hour)
	basePlan := buildTestPlan(t)

	ap, err := opt.Plan("q1", prepared.QueryFingerprint{}, func() (*plan.Plan, error) {
		return basePlan, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, ap.Version)
	assert.Same(t, basePlan, ap.Plan)
}

func TestAdaptiveOptimizerTriggersReplanOnSustainedDrift(t *testing.T) {
	opt := NewAdaptiveOptimizer(nil, 0.2, 3, 0)
	basePlan := buildTestPlan(t)
	replanCalls := 0

	_, err := opt.Plan("q1", prepared.QueryFingerprint{}, func() (*plan.Plan, error) {
		replanCalls++
		return basePlan, nil
	})
	require.NoError(t, err)

	var last *AdaptivePlan
	for i := 0; i < 3; i++ {
		last, err = opt.RecordExecution("q1", 10, 1000)
		require.NoError(t, err)
	}

	assert.Equal(t, 2, last.Version, "three badly-mispredicted executions past minSamples should trigger exactly one re-plan")
	assert.Equal(t, 2, replanCalls, "replan should be invoked once for the initial plan and once for the drift re-plan")

	log := opt.Log()
	require.Len(t, log, 1)
	assert.Equal(t, 1, log[0].FromVersion)
	assert.Equal(t, 2, log[0].ToVersion)
	assert.Equal(t, 3, log[0].FinalSampleCount)
}

func TestAdaptiveOptimizerRespectsLowErrorNoReplan(t *testing.T) {
	opt := NewAdaptiveOptimizer(nil, 0.5, 3, 0)
	basePlan := buildTestPlan(t)
	replanCalls := 0

	_, err := opt.Plan("q1", prepared.QueryFingerprint{}, func() (*plan.Plan, error) {
		replanCalls++
		return basePlan, nil
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = opt.RecordExecution("q1", 100, 101)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, replanCalls, "accurate estimates should never trigger a re-plan")
	assert.Empty(t, opt.Log())
}

func TestAdaptiveOptimizerCooldownSuppressesImmediateSecondReplan(t *testing.T) {
	opt := NewAdaptiveOptimizer(nil, 0.1, 2, time.Hour)
	basePlan := buildTestPlan(t)

	_, err := opt.Plan("q1", prepared.QueryFingerprint{}, func() (*plan.Plan, error) {
		return basePlan, nil
	})
	require.NoError(t, err)

	var last *AdaptivePlan
	for i := 0; i < 2; i++ {
		last, err = opt.RecordExecution("q1", 10, 1000)
		require.NoError(t, err)
	}
	require.Equal(t, 2, last.Version)

	for i := 0; i < 2; i++ {
		last, err = opt.RecordExecution("q1", 10, 1000)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, last.Version, "cooldown should suppress a second re-plan immediately after the first")
	assert.Len(t, opt.Log(), 1)
}

func TestAdaptiveOptimizerEvictsCacheEntryOnReplan(t *testing.T) {
	cache := prepared.NewPlanCache(10, 0)
	fp := prepared.QueryFingerprintBuilder{}.Build(plan.Query{TypeName: "User", Predicate: eq("email", value.NewString("x"))})
	basePlan := buildTestPlan(t)
	cache.Put(&prepared.PreparedPlan{Fingerprint: fp, PlanTemplate: basePlan})

	opt := NewAdaptiveOptimizer(cache, 0.1, 1, 0)
	_, err := opt.Plan("q1", fp, func() (*plan.Plan, error) {
		return basePlan, nil
	})
	require.NoError(t, err)

	_, ok := cache.Get(fp)
	require.True(t, ok)

	_, err = opt.RecordExecution("q1", 10, 1000)
	require.NoError(t, err)

	_, ok = cache.Get(fp)
	assert.False(t, ok, "a drift-triggered re-plan should evict the stale cache entry")
}
