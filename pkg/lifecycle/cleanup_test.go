package lifecycle_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlens/memlens-go/pkg/lifecycle"
	"github.com/memlens/memlens-go/pkg/memory"
)

func TestPressureLevels(t *testing.T) {
	c := lifecycle.NewCleanup(lifecycle.CleanupConfig{})

	cases := []struct {
		usedMB float64
		want   lifecycle.PressureLevel
	}{
		{95, lifecycle.PressureCritical},
		{90, lifecycle.PressureCritical},
		{75, lifecycle.PressureHigh},
		{70, lifecycle.PressureHigh},
		{55, lifecycle.PressureMedium},
		{52.5, lifecycle.PressureMedium},
		{30, lifecycle.PressureLow},
		{0, lifecycle.PressureLow},
	}
	for _, tc := range cases {
		got := c.Pressure(lifecycle.StorageStats{UsedMB: tc.usedMB, CapacityMB: 100})
		assert.Equal(t, tc.want, got, "used %v MB", tc.usedMB)
	}

	assert.Equal(t, lifecycle.PressureLow,
		c.Pressure(lifecycle.StorageStats{UsedMB: 500, CapacityMB: 0}),
		"unknown capacity never reports pressure")
}

func TestRecommendUnderCriticalPressure(t *testing.T) {
	now := time.Now()
	c := lifecycle.NewCleanup(lifecycle.CleanupConfig{})

	forgotten := activeMemory("forgotten", 1, now.Add(-400*24*time.Hour))
	forgotten.Metadata.Importance = 0.2

	big := activeMemory("big", 10, now.Add(-time.Hour))
	big.Content = strings.Repeat("x", 4096)
	big.Summary = memory.Summary{Content: "a long transcript"}

	flagged := activeMemory("flagged", 0, now.Add(-100*24*time.Hour))
	candidates := []lifecycle.ArchivalCandidate{
		{MemoryID: "flagged", Score: 0.8, Reasons: []string{"not accessed for 100 days (limit 90)"}},
	}

	recs := c.Recommend([]*memory.Memory{forgotten, big, flagged}, candidates, lifecycle.PressureCritical, now)
	require.Len(t, recs, 3)

	byMemory := make(map[string]lifecycle.CleanupRecommendation)
	for _, r := range recs {
		byMemory[r.MemoryID] = r
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.Reasoning)
	}

	del := byMemory["forgotten"]
	assert.Equal(t, lifecycle.ActionDelete, del.Action)
	assert.Equal(t, 9, del.Priority)
	assert.NotEqual(t, lifecycle.RiskLow, del.RiskLevel, "deleting is never low risk")

	arch := byMemory["flagged"]
	assert.Equal(t, lifecycle.ActionArchive, arch.Action)
	assert.Equal(t, 8, arch.Priority)
	assert.Equal(t, lifecycle.RiskLow, arch.RiskLevel)

	comp := byMemory["big"]
	assert.Equal(t, lifecycle.ActionCompress, comp.Action)
	assert.Equal(t, 6, comp.Priority)
	assert.Greater(t, comp.EstimatedSpaceSavingMB, 0.0)

	// Sorted by priority descending.
	assert.Equal(t, lifecycle.ActionDelete, recs[0].Action)
	assert.Equal(t, lifecycle.ActionArchive, recs[1].Action)
	assert.Equal(t, lifecycle.ActionCompress, recs[2].Action)
}

func TestRecommendImportantMemoriesAreHighRiskDeletes(t *testing.T) {
	now := time.Now()
	c := lifecycle.NewCleanup(lifecycle.CleanupConfig{})

	important := activeMemory("important", 0, now.Add(-400*24*time.Hour))
	important.Metadata.Importance = 0.8

	recs := c.Recommend([]*memory.Memory{important}, nil, lifecycle.PressureCritical, now)
	require.Len(t, recs, 1)
	assert.Equal(t, lifecycle.ActionDelete, recs[0].Action)
	assert.Equal(t, lifecycle.RiskHigh, recs[0].RiskLevel)
}

func TestRecommendMediumPressureArchivesOnly(t *testing.T) {
	now := time.Now()
	c := lifecycle.NewCleanup(lifecycle.CleanupConfig{})

	forgotten := activeMemory("forgotten", 0, now.Add(-400*24*time.Hour))
	candidates := []lifecycle.ArchivalCandidate{
		{MemoryID: "forgotten", Score: 0.9, Reasons: []string{"stale"}},
	}

	recs := c.Recommend([]*memory.Memory{forgotten}, candidates, lifecycle.PressureMedium, now)
	require.Len(t, recs, 1)
	assert.Equal(t, lifecycle.ActionArchive, recs[0].Action)
	assert.Equal(t, 5, recs[0].Priority)
}

func TestRecommendLowPressureMetadataMaintenance(t *testing.T) {
	now := time.Now()
	c := lifecycle.NewCleanup(lifecycle.CleanupConfig{})

	stale := activeMemory("stale", 3, now.Add(-200*24*time.Hour))
	stale.Metadata.Importance = 0.8
	fresh := activeMemory("fresh", 3, now.Add(-time.Hour))
	fresh.Metadata.Importance = 0.8

	recs := c.Recommend([]*memory.Memory{stale, fresh}, nil, lifecycle.PressureLow, now)
	require.Len(t, recs, 1)
	assert.Equal(t, "stale", recs[0].MemoryID)
	assert.Equal(t, lifecycle.ActionUpdateMetadata, recs[0].Action)
	assert.Equal(t, lifecycle.RiskLow, recs[0].RiskLevel)
}

func TestRecommendDeduplicatesPerMemory(t *testing.T) {
	now := time.Now()
	c := lifecycle.NewCleanup(lifecycle.CleanupConfig{})

	// Eligible for delete (stale, unused) AND flagged for archival: only
	// the higher-priority delete survives.
	m := activeMemory("m1", 0, now.Add(-400*24*time.Hour))
	candidates := []lifecycle.ArchivalCandidate{
		{MemoryID: "m1", Score: 1.0, Reasons: []string{"stale"}},
	}

	recs := c.Recommend([]*memory.Memory{m}, candidates, lifecycle.PressureCritical, now)
	require.Len(t, recs, 1)
	assert.Equal(t, lifecycle.ActionDelete, recs[0].Action)
}

func TestExecutionOrderSafestFirstWithinPriority(t *testing.T) {
	recs := []lifecycle.CleanupRecommendation{
		{ID: "risky", Priority: 8, RiskLevel: lifecycle.RiskHigh},
		{ID: "safe", Priority: 8, RiskLevel: lifecycle.RiskLow},
		{ID: "top", Priority: 9, RiskLevel: lifecycle.RiskMedium},
	}

	ordered := lifecycle.ExecutionOrder(recs)
	assert.Equal(t, "top", ordered[0].ID)
	assert.Equal(t, "safe", ordered[1].ID)
	assert.Equal(t, "risky", ordered[2].ID)

	// The input slice is untouched.
	assert.Equal(t, "risky", recs[0].ID)
}

func TestEstimateImpact(t *testing.T) {
	empty := lifecycle.EstimateImpact(nil)
	assert.False(t, empty.PotentialDataLoss)
	assert.Equal(t, 1.0, empty.ReversibilityScore)

	impact := lifecycle.EstimateImpact([]lifecycle.CleanupRecommendation{
		{Action: lifecycle.ActionDelete, EstimatedSpaceSavingMB: 2, RiskLevel: lifecycle.RiskMedium},
		{Action: lifecycle.ActionArchive, EstimatedSpaceSavingMB: 1, RiskLevel: lifecycle.RiskLow},
	})
	assert.True(t, impact.PotentialDataLoss)
	assert.InDelta(t, 3.0, impact.TotalSpaceSavingMB, 1e-9)
	assert.InDelta(t, (0.0+0.9)/2, impact.ReversibilityScore, 1e-9)
	assert.Equal(t, 1, impact.ActionCounts[lifecycle.ActionDelete])
	assert.Equal(t, 1, impact.ActionCounts[lifecycle.ActionArchive])
}

func TestReversibilityScores(t *testing.T) {
	assert.Equal(t, 0.0, lifecycle.ReversibilityScore(lifecycle.ActionDelete))
	assert.Equal(t, 0.3, lifecycle.ReversibilityScore(lifecycle.ActionMerge))
	assert.Equal(t, 0.8, lifecycle.ReversibilityScore(lifecycle.ActionCompress))
	assert.Equal(t, 0.9, lifecycle.ReversibilityScore(lifecycle.ActionArchive))
	assert.Equal(t, 1.0, lifecycle.ReversibilityScore(lifecycle.ActionUpdateMetadata))
}
