package threshold_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/threshold"
)

func TestDefaults(t *testing.T) {
	defaults := threshold.Defaults()

	assert.Equal(t, 0.70, defaults[memory.ContextConversation])
	assert.Equal(t, 0.60, defaults[memory.ContextDocument])
	assert.Equal(t, 0.80, defaults[memory.ContextTask])
	assert.Equal(t, 0.75, defaults[memory.ContextQuery])
	assert.Equal(t, 0.65, defaults[memory.ContextMixed])
}

func TestGetUnknownTypeFallsBackToMixed(t *testing.T) {
	m := threshold.NewManager()
	assert.Equal(t, m.Get(memory.ContextMixed), m.Get("nonsense"))
}

func TestSetBounds(t *testing.T) {
	m := threshold.NewManager()

	require.NoError(t, m.Set(memory.ContextQuery, 0.50))
	assert.Equal(t, 0.50, m.Get(memory.ContextQuery))

	for _, v := range []float64{0.05, 0.99, -1, 2} {
		err := m.Set(memory.ContextQuery, v)
		require.Error(t, err, "value %v", v)
		assert.True(t, errors.Is(err, memory.ErrValidation))
	}
	assert.Equal(t, 0.50, m.Get(memory.ContextQuery), "failed Set must not change the threshold")
}

func TestAdaptRaisesOnHighFalsePositives(t *testing.T) {
	m := threshold.NewManager()
	before := m.Get(memory.ContextConversation)

	adjustments, err := m.Adapt(memory.UsageAnalytics{
		RetrievalSuccessRate:   0.8,
		FalsePositiveRate:      0.40,
		AverageActivationScore: 0.6,
	})
	require.NoError(t, err)
	require.NotEmpty(t, adjustments)

	after := m.Get(memory.ContextConversation)
	assert.Greater(t, after, before, "noisy retrievals should raise the gate")
	// Adaptation is gradual: 10% of the way toward current+0.10.
	assert.InDelta(t, before+0.10*0.10, after, 1e-9)
}

func TestAdaptLowersOnHighFalseNegatives(t *testing.T) {
	m := threshold.NewManager()
	before := m.Get(memory.ContextTask)

	_, err := m.Adapt(memory.UsageAnalytics{
		RetrievalSuccessRate:   0.8,
		FalseNegativeRate:      0.40,
		AverageActivationScore: 0.6,
	})
	require.NoError(t, err)

	assert.Less(t, m.Get(memory.ContextTask), before, "missed memories should lower the gate")
}

func TestAdaptLowSuccessMovesTowardAverage(t *testing.T) {
	m := threshold.NewManager()
	before := m.Get(memory.ContextQuery) // 0.75

	_, err := m.Adapt(memory.UsageAnalytics{
		RetrievalSuccessRate:   0.30,
		AverageActivationScore: 0.40,
	})
	require.NoError(t, err)

	after := m.Get(memory.ContextQuery)
	assert.Less(t, after, before)
	assert.InDelta(t, before+0.10*(0.40-before), after, 1e-9)
}

func TestAdaptValidatesAnalytics(t *testing.T) {
	m := threshold.NewManager()

	_, err := m.Adapt(memory.UsageAnalytics{FalsePositiveRate: 1.3})
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrValidation))
}

func TestAdaptRecordsHistory(t *testing.T) {
	m := threshold.NewManager()

	adjustments, err := m.Adapt(memory.UsageAnalytics{
		RetrievalSuccessRate:   0.9,
		AverageActivationScore: 0.5,
	})
	require.NoError(t, err)

	history := m.History()
	assert.Equal(t, len(adjustments), len(history))
	for _, adj := range history {
		assert.NotZero(t, adj.Time)
		assert.NotEmpty(t, adj.Reason)
		assert.NotEqual(t, adj.Old, adj.New)
	}
}

func TestHistoryBounded(t *testing.T) {
	m := threshold.NewManager()

	// Alternate analytics so every round changes all five thresholds.
	for i := 0; i < 30; i++ {
		analytics := memory.UsageAnalytics{RetrievalSuccessRate: 0.9, AverageActivationScore: 0.2}
		if i%2 == 1 {
			analytics.AverageActivationScore = 0.9
		}
		_, err := m.Adapt(analytics)
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, len(m.History()), 50)
}

func TestEnforceConsistencyPullsGroupsTogether(t *testing.T) {
	m := threshold.NewManager()
	require.NoError(t, m.Set(memory.ContextConversation, 0.40))
	require.NoError(t, m.Set(memory.ContextQuery, 0.90))

	adjustments := m.EnforceConsistency()
	require.NotEmpty(t, adjustments)

	gap := math.Abs(m.Get(memory.ContextConversation) - m.Get(memory.ContextQuery))
	assert.Less(t, gap, 0.90-0.40, "the group spread must shrink")

	for _, adj := range adjustments {
		assert.Equal(t, "cross-type consistency", adj.Reason)
	}
}

func TestEnforceConsistencyLeavesCloseGroupsAlone(t *testing.T) {
	m := threshold.NewManager()
	// Defaults: conversation 0.70 vs query 0.75, document 0.60 vs task
	// 0.80. Only the second group exceeds the 0.15 gap.
	adjustments := m.EnforceConsistency()

	for _, adj := range adjustments {
		assert.Contains(t, []memory.ContextType{memory.ContextDocument, memory.ContextTask}, adj.ContextType)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := threshold.NewManager()
	snap := m.Snapshot()
	snap[memory.ContextQuery] = 0.11

	assert.Equal(t, 0.75, m.Get(memory.ContextQuery))
}
