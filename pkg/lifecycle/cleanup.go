package lifecycle

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/memlens/memlens-go/pkg/memory"
)

// CleanupConfig configures storage pressure derivation.
type CleanupConfig struct {
	// TargetUtilizationPercent is the utilization above which pressure is
	// high.
	TargetUtilizationPercent float64 `json:"target_utilization_percent"`

	// CriticalUtilizationPercent is the utilization above which pressure
	// is critical.
	CriticalUtilizationPercent float64 `json:"critical_utilization_percent"`
}

// DefaultCleanupConfig returns the default pressure configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		TargetUtilizationPercent:   70,
		CriticalUtilizationPercent: 90,
	}
}

// Cleanup turns usage patterns and storage pressure into prioritized,
// risk-annotated cleanup recommendations.
type Cleanup struct {
	cfg CleanupConfig
}

// NewCleanup creates a Cleanup system. A zero-value config is replaced by
// the defaults.
func NewCleanup(cfg CleanupConfig) *Cleanup {
	if cfg == (CleanupConfig{}) {
		cfg = DefaultCleanupConfig()
	}
	return &Cleanup{cfg: cfg}
}

// Pressure derives the storage pressure level from observed utilization.
func (c *Cleanup) Pressure(stats StorageStats) PressureLevel {
	if stats.CapacityMB <= 0 {
		return PressureLow
	}
	utilization := stats.UsedMB / stats.CapacityMB * 100

	switch {
	case utilization >= c.cfg.CriticalUtilizationPercent:
		return PressureCritical
	case utilization >= c.cfg.TargetUtilizationPercent:
		return PressureHigh
	case utilization >= c.cfg.TargetUtilizationPercent*0.75:
		return PressureMedium
	default:
		return PressureLow
	}
}

// Staleness bounds used when grading delete risk and maintenance targets.
const (
	deleteAfterDays       = 365
	deleteMaxAccessCount  = 1
	compressMinContentLen = 2048
	staleMetadataDays     = 180
)

// Recommend maps the pressure level to an action mix over the given
// memories and archival candidates:
//
//	critical: delete stale unused memories, archive candidates aggressively
//	high:     archive candidates, compress large content
//	medium:   archive candidates only
//	low:      metadata maintenance only
//
// Recommendations are deduplicated per memory (highest priority wins) and
// sorted by (priority desc, confidence desc).
func (c *Cleanup) Recommend(mems []*memory.Memory, candidates []ArchivalCandidate, pressure PressureLevel, now time.Time) []CleanupRecommendation {
	byID := make(map[string]*memory.Memory, len(mems))
	for _, m := range mems {
		byID[m.ID] = m
	}

	var recs []CleanupRecommendation

	switch pressure {
	case PressureCritical:
		recs = append(recs, c.deleteRecommendations(mems, now)...)
		recs = append(recs, c.archiveRecommendations(candidates, byID, 8)...)
		recs = append(recs, c.compressRecommendations(mems, 6)...)
	case PressureHigh:
		recs = append(recs, c.archiveRecommendations(candidates, byID, 7)...)
		recs = append(recs, c.compressRecommendations(mems, 5)...)
	case PressureMedium:
		recs = append(recs, c.archiveRecommendations(candidates, byID, 5)...)
	case PressureLow:
		recs = append(recs, c.maintenanceRecommendations(mems, now)...)
	}

	recs = dedupePerMemory(recs)

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return recs[i].Confidence > recs[j].Confidence
	})
	return recs
}

func (c *Cleanup) deleteRecommendations(mems []*memory.Memory, now time.Time) []CleanupRecommendation {
	var recs []CleanupRecommendation
	for _, m := range mems {
		days := m.DaysSinceAccess(now)
		if days <= deleteAfterDays || m.AccessCount > deleteMaxAccessCount {
			continue
		}

		// Deleting is never low risk: even a long-unused memory may hold
		// the only copy of a fact.
		risk := RiskMedium
		confidence := 0.8
		if m.Metadata.Importance >= 0.5 {
			risk = RiskHigh
			confidence = 0.6
		}

		recs = append(recs, CleanupRecommendation{
			ID:                     uuid.NewString(),
			MemoryID:               m.ID,
			Action:                 ActionDelete,
			Priority:               9,
			Confidence:             confidence,
			Reasoning:              fmt.Sprintf("unused for %.0f days with %d accesses under critical storage pressure", days, m.AccessCount),
			EstimatedSpaceSavingMB: estimateSizeMB(m),
			RiskLevel:              risk,
		})
	}
	return recs
}

func (c *Cleanup) archiveRecommendations(candidates []ArchivalCandidate, byID map[string]*memory.Memory, priority int) []CleanupRecommendation {
	var recs []CleanupRecommendation
	for _, cand := range candidates {
		m, ok := byID[cand.MemoryID]
		if !ok {
			continue
		}
		recs = append(recs, CleanupRecommendation{
			ID:                     uuid.NewString(),
			MemoryID:               cand.MemoryID,
			Action:                 ActionArchive,
			Priority:               priority,
			Confidence:             cand.Score,
			Reasoning:              fmt.Sprintf("archival criteria matched: %v", cand.Reasons),
			EstimatedSpaceSavingMB: estimateSizeMB(m) * 0.5,
			RiskLevel:              RiskLow,
		})
	}
	return recs
}

func (c *Cleanup) compressRecommendations(mems []*memory.Memory, priority int) []CleanupRecommendation {
	var recs []CleanupRecommendation
	for _, m := range mems {
		if len(m.Content) < compressMinContentLen || m.Summary.Content == "" {
			continue
		}
		recs = append(recs, CleanupRecommendation{
			ID:                     uuid.NewString(),
			MemoryID:               m.ID,
			Action:                 ActionCompress,
			Priority:               priority,
			Confidence:             0.7,
			Reasoning:              fmt.Sprintf("content is %d bytes and a summary exists", len(m.Content)),
			EstimatedSpaceSavingMB: estimateSizeMB(m) * 0.6,
			RiskLevel:              RiskMedium,
		})
	}
	return recs
}

func (c *Cleanup) maintenanceRecommendations(mems []*memory.Memory, now time.Time) []CleanupRecommendation {
	var recs []CleanupRecommendation
	for _, m := range mems {
		if m.DaysSinceAccess(now) < staleMetadataDays || m.Metadata.Importance < 0.5 {
			continue
		}
		recs = append(recs, CleanupRecommendation{
			ID:         uuid.NewString(),
			MemoryID:   m.ID,
			Action:     ActionUpdateMetadata,
			Priority:   2,
			Confidence: 0.6,
			Reasoning:  fmt.Sprintf("importance %.2f looks stale after %.0f days without access", m.Metadata.Importance, m.DaysSinceAccess(now)),
			RiskLevel:  RiskLow,
		})
	}
	return recs
}

// dedupePerMemory keeps a single recommendation per memory: the one with
// the highest (priority, confidence).
func dedupePerMemory(recs []CleanupRecommendation) []CleanupRecommendation {
	best := make(map[string]CleanupRecommendation, len(recs))
	var order []string
	for _, r := range recs {
		cur, seen := best[r.MemoryID]
		if !seen {
			best[r.MemoryID] = r
			order = append(order, r.MemoryID)
			continue
		}
		if r.Priority > cur.Priority || (r.Priority == cur.Priority && r.Confidence > cur.Confidence) {
			best[r.MemoryID] = r
		}
	}

	out := make([]CleanupRecommendation, 0, len(best))
	for _, id := range order {
		out = append(out, best[id])
	}
	return out
}

// ExecutionOrder orders recommendations by (priority desc, risk asc) so
// the safest high-value actions run first.
func ExecutionOrder(recs []CleanupRecommendation) []CleanupRecommendation {
	out := make([]CleanupRecommendation, len(recs))
	copy(out, recs)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return riskRank(out[i].RiskLevel) < riskRank(out[j].RiskLevel)
	})
	return out
}

// EstimateImpact reports what executing the recommendations would do:
// total estimated saving, whether any data loss is possible, and an
// averaged reversibility score.
func EstimateImpact(recs []CleanupRecommendation) CleanupImpact {
	impact := CleanupImpact{
		ActionCounts:       make(map[CleanupAction]int),
		ReversibilityScore: 1.0,
	}
	if len(recs) == 0 {
		return impact
	}

	totalReversibility := 0.0
	for _, r := range recs {
		impact.TotalSpaceSavingMB += r.EstimatedSpaceSavingMB
		impact.ActionCounts[r.Action]++
		totalReversibility += ReversibilityScore(r.Action)
		if r.Action == ActionDelete || r.RiskLevel == RiskHigh {
			impact.PotentialDataLoss = true
		}
	}
	impact.ReversibilityScore = totalReversibility / float64(len(recs))
	return impact
}

// estimateSizeMB estimates the in-memory footprint of a record from its
// content and embedding.
func estimateSizeMB(m *memory.Memory) float64 {
	bytes := len(m.Content) + len(m.Summary.Content) + 8*len(m.Embedding.Vector)
	return float64(bytes) / (1024 * 1024)
}
