// Package lifecycle manages the long-term fate of memories: decay,
// archival analysis, relevance pattern detection, and cleanup
// recommendations, orchestrated on a schedule or on demand.
package lifecycle

import (
	"time"
)

// CleanupAction is the action a cleanup recommendation proposes.
type CleanupAction string

const (
	// ActionArchive soft-removes the memory from active scans.
	ActionArchive CleanupAction = "archive"

	// ActionDelete hard-deletes the memory and purges its index entries.
	ActionDelete CleanupAction = "delete"

	// ActionCompress replaces the content with its summary.
	ActionCompress CleanupAction = "compress"

	// ActionMerge folds the memory into a near-duplicate.
	ActionMerge CleanupAction = "merge"

	// ActionUpdateMetadata refreshes metadata without touching content.
	ActionUpdateMetadata CleanupAction = "update_metadata"

	// ActionNoAction records that the memory was considered and kept.
	ActionNoAction CleanupAction = "no_action"
)

// ReversibilityScore maps an action to how recoverable it is after
// execution: delete is final, a metadata update is fully reversible.
func ReversibilityScore(a CleanupAction) float64 {
	switch a {
	case ActionDelete:
		return 0.0
	case ActionMerge:
		return 0.3
	case ActionCompress:
		return 0.8
	case ActionArchive:
		return 0.9
	case ActionUpdateMetadata, ActionNoAction:
		return 1.0
	default:
		return 0.5
	}
}

// RiskLevel grades how likely an action is to destroy something still
// useful.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// riskRank orders risk levels for execution ordering (safest first).
func riskRank(r RiskLevel) int {
	switch r {
	case RiskLow:
		return 0
	case RiskMedium:
		return 1
	case RiskHigh:
		return 2
	default:
		return 3
	}
}

// PressureLevel grades storage pressure, driving which cleanup actions are
// recommended.
type PressureLevel string

const (
	PressureLow      PressureLevel = "low"
	PressureMedium   PressureLevel = "medium"
	PressureHigh     PressureLevel = "high"
	PressureCritical PressureLevel = "critical"
)

// CleanupRecommendation is one prioritized, risk-annotated cleanup action.
type CleanupRecommendation struct {
	// ID uniquely identifies the recommendation within a report.
	ID string `json:"id"`

	// MemoryID is the memory the action applies to.
	MemoryID string `json:"memory_id"`

	// Action is the proposed cleanup action.
	Action CleanupAction `json:"action"`

	// Priority orders recommendations; higher runs first.
	Priority int `json:"priority"`

	// Confidence is how certain the system is that the action is right
	// (0.0-1.0).
	Confidence float64 `json:"confidence"`

	// Reasoning is the human-readable justification.
	Reasoning string `json:"reasoning"`

	// EstimatedSpaceSavingMB estimates the space the action frees.
	EstimatedSpaceSavingMB float64 `json:"estimated_space_saving_mb"`

	// RiskLevel grades the chance of losing something still useful.
	RiskLevel RiskLevel `json:"risk_level"`

	// Dependencies lists recommendation IDs that must run first.
	Dependencies []string `json:"dependencies,omitempty"`
}

// CleanupImpact summarizes what executing a recommendation set would do.
type CleanupImpact struct {
	// TotalSpaceSavingMB is the summed estimated saving.
	TotalSpaceSavingMB float64 `json:"total_space_saving_mb"`

	// PotentialDataLoss is true when any delete or high-risk action is
	// present.
	PotentialDataLoss bool `json:"potential_data_loss"`

	// ReversibilityScore averages per-action reversibility (1.0 = fully
	// reversible).
	ReversibilityScore float64 `json:"reversibility_score"`

	// ActionCounts counts recommendations per action.
	ActionCounts map[CleanupAction]int `json:"action_counts"`
}

// ArchivalCriteria configures what makes a memory an archival candidate.
type ArchivalCriteria struct {
	// MinActivation: recent average activation below this counts toward
	// archival.
	MinActivation float64 `json:"min_activation"`

	// MaxDaysSinceAccess: longer access gaps count toward archival.
	MaxDaysSinceAccess float64 `json:"max_days_since_access"`

	// MinAccessCount: fewer lifetime accesses count toward archival.
	MinAccessCount int `json:"min_access_count"`

	// LowScoreWindow is how many consecutive recent observations must fall
	// below LowScoreCeiling to count as consistently low.
	LowScoreWindow int `json:"low_score_window"`

	// LowScoreCeiling is the consistent-low-score bound.
	LowScoreCeiling float64 `json:"low_score_ceiling"`
}

// DefaultArchivalCriteria returns the default archival criteria.
func DefaultArchivalCriteria() ArchivalCriteria {
	return ArchivalCriteria{
		MinActivation:      0.30,
		MaxDaysSinceAccess: 90,
		MinAccessCount:     2,
		LowScoreWindow:     5,
		LowScoreCeiling:    0.35,
	}
}

// ArchivalCandidate is a memory flagged for archival with the reasons why.
type ArchivalCandidate struct {
	// MemoryID is the flagged memory.
	MemoryID string `json:"memory_id"`

	// Score is the fraction of criteria the memory matched (0.0-1.0).
	Score float64 `json:"score"`

	// Reasons are the human-readable criteria matches.
	Reasons []string `json:"reasons"`
}

// PatternKind names a detected relevance pattern change.
type PatternKind string

const (
	// PatternRelevanceIncrease: recent activations run well above the
	// historical average.
	PatternRelevanceIncrease PatternKind = "relevance_increase"

	// PatternRelevanceDecrease: recent activations run well below the
	// historical average.
	PatternRelevanceDecrease PatternKind = "relevance_decrease"

	// PatternContextShift: recent activations vary widely, suggesting the
	// memory's representation no longer matches how it is queried.
	PatternContextShift PatternKind = "context_shift"
)

// FollowUpAction is the suggested response to a pattern change.
type FollowUpAction string

const (
	FollowUpUpdateMetadata    FollowUpAction = "update_metadata"
	FollowUpRegenerateSummary FollowUpAction = "regenerate_summary"
	FollowUpNone              FollowUpAction = "no_action"
)

// PatternChange is one detected relevance pattern shift.
type PatternChange struct {
	// MemoryID is the affected memory.
	MemoryID string `json:"memory_id"`

	// Kind names the shift.
	Kind PatternKind `json:"kind"`

	// Magnitude is the recent/historical activation ratio for relevance
	// shifts, or the recent standard deviation for context shifts.
	Magnitude float64 `json:"magnitude"`

	// SuggestedAction is the recommended follow-up.
	SuggestedAction FollowUpAction `json:"suggested_action"`
}

// StorageStats is the observed storage utilization.
type StorageStats struct {
	// UsedMB is the current utilization.
	UsedMB float64 `json:"used_mb"`

	// CapacityMB is the configured capacity.
	CapacityMB float64 `json:"capacity_mb"`
}

// DecayResults summarizes the decay step of a maintenance run.
type DecayResults struct {
	// Evaluated is the number of active memories considered.
	Evaluated int `json:"evaluated"`

	// Updated is the number whose importance actually changed.
	Updated int `json:"updated"`

	// AverageFactor is the mean decay factor applied.
	AverageFactor float64 `json:"average_factor"`
}

// Report is the outcome of one maintenance run.
type Report struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Pressure is the storage pressure observed during the run.
	Pressure PressureLevel `json:"pressure"`

	// DecayResults summarizes the decay step.
	DecayResults DecayResults `json:"decay_results"`

	// ArchivalCandidates are the memories flagged for archival.
	ArchivalCandidates []ArchivalCandidate `json:"archival_candidates"`

	// PatternChanges are the detected relevance shifts.
	PatternChanges []PatternChange `json:"pattern_changes"`

	// Recommendations are the generated cleanup actions, sorted by
	// priority then confidence.
	Recommendations []CleanupRecommendation `json:"recommendations"`

	// Executed lists the recommendation IDs executed during the run.
	Executed []string `json:"executed,omitempty"`

	// Summary is a one-line human-readable digest.
	Summary string `json:"summary"`
}
