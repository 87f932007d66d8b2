// Package scoring combines similarity signals into bounded activation
// scores and ranks memories by configurable strategies.
package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/memlens/memlens-go/pkg/memory"
)

// Strategy selects how candidates are ordered by Rank.
type Strategy string

const (
	// StrategyActivation orders by activation score.
	StrategyActivation Strategy = "activation_score"

	// StrategyRecency orders by time since last access.
	StrategyRecency Strategy = "recency"

	// StrategyAccessFrequency orders by access count.
	StrategyAccessFrequency Strategy = "access_frequency"

	// StrategyCombined blends activation (0.6), a 30-day recency decay
	// (0.25), and normalized access count (0.15).
	StrategyCombined Strategy = "combined"

	// StrategyRelevanceBoost multiplies activation by a per-candidate
	// boost, capped at 1.0.
	StrategyRelevanceBoost Strategy = "relevance_boost"
)

// Combined strategy weights.
const (
	combinedActivationWeight = 0.60
	combinedRecencyWeight    = 0.25
	combinedFrequencyWeight  = 0.15
	combinedRecencyHalfLife  = 30.0 // days
)

// DecayFunc evaluates a decay factor for an age in days.
//
// Implementations must return a factor in [0, 1]; ApplyDecay verifies this
// and surfaces a violation as an error, because a broken decay function
// indicates a caller bug worth surfacing rather than silently clamping.
type DecayFunc func(ageDays float64) (float64, error)

// NormalizeWeights validates weights and normalizes them to sum to 1.
//
// Negative weights are a validation error. If all four weights are zero,
// equal weights are substituted; this fallback is the only documented
// coercion.
func NormalizeWeights(w memory.ScoringWeights) (memory.ScoringWeights, error) {
	if w.Embedding < 0 || w.Metadata < 0 || w.Summary < 0 || w.Temporal < 0 {
		return memory.ScoringWeights{}, memory.NewError("NormalizeWeights",
			fmt.Errorf("weights must be non-negative: %w", memory.ErrValidation))
	}

	sum := w.Embedding + w.Metadata + w.Summary + w.Temporal
	if sum == 0 {
		return memory.ScoringWeights{Embedding: 0.25, Metadata: 0.25, Summary: 0.25, Temporal: 0.25}, nil
	}

	return memory.ScoringWeights{
		Embedding: w.Embedding / sum,
		Metadata:  w.Metadata / sum,
		Summary:   w.Summary / sum,
		Temporal:  w.Temporal / sum,
	}, nil
}

// Activation combines similarity dimensions into one activation score in
// [0, 1].
//
// The raw cosine embedding similarity is clamped to [0, 1] before
// weighting; the weighted sum is clamped as a final guard.
func Activation(s memory.SimilarityScores, w memory.ScoringWeights) (float64, error) {
	norm, err := NormalizeWeights(w)
	if err != nil {
		return 0, err
	}

	score := norm.Embedding*clamp01(s.EmbeddingSimilarity) +
		norm.Metadata*clamp01(s.MetadataSimilarity) +
		norm.Summary*clamp01(s.SummarySimilarity) +
		norm.Temporal*clamp01(s.TemporalRelevance)

	return clamp01(score), nil
}

// ApplyDecay multiplies a score by the decay factor for the given age.
//
// Negative age is a hard error. A decay function returning a factor
// outside [0, 1] raises an error rather than clamping.
func ApplyDecay(score float64, ageDays float64, fn DecayFunc) (float64, error) {
	if ageDays < 0 {
		return 0, memory.NewError("ApplyDecay", memory.ErrNegativeAge)
	}

	factor, err := fn(ageDays)
	if err != nil {
		return 0, memory.NewError("ApplyDecay", err)
	}
	if factor < 0 || factor > 1 || math.IsNaN(factor) {
		return 0, memory.NewError("ApplyDecay",
			fmt.Errorf("decay factor %v outside [0,1]: %w", factor, memory.ErrValidation))
	}

	return score * factor, nil
}

// PresetWeights returns the default scoring weights for a context type.
//
// Query contexts weigh embedding similarity highest; task contexts weigh
// metadata overlap highest; mixed contexts weigh all dimensions equally.
func PresetWeights(t memory.ContextType) memory.ScoringWeights {
	switch t {
	case memory.ContextConversation:
		return memory.ScoringWeights{Embedding: 0.30, Metadata: 0.30, Summary: 0.25, Temporal: 0.15}
	case memory.ContextDocument:
		return memory.ScoringWeights{Embedding: 0.35, Metadata: 0.30, Summary: 0.25, Temporal: 0.10}
	case memory.ContextTask:
		return memory.ScoringWeights{Embedding: 0.25, Metadata: 0.40, Summary: 0.20, Temporal: 0.15}
	case memory.ContextQuery:
		return memory.ScoringWeights{Embedding: 0.45, Metadata: 0.25, Summary: 0.20, Temporal: 0.10}
	default:
		return memory.ScoringWeights{Embedding: 0.25, Metadata: 0.25, Summary: 0.25, Temporal: 0.25}
	}
}

// Candidate pairs a memory with its activation score for ranking.
type Candidate struct {
	// Memory is the scored record.
	Memory *memory.Memory

	// Activation is the combined activation score in [0, 1].
	Activation float64

	// Boost is the multiplicative factor applied by the relevance_boost
	// strategy. Zero means no boost (treated as 1.0).
	Boost float64
}

// Rank orders candidates by the given strategy, highest first.
//
// Sorting is stable: ties are broken by input order. The input slice is
// not modified.
func Rank(cands []Candidate, strategy Strategy, now time.Time) ([]Candidate, error) {
	out := make([]Candidate, len(cands))
	copy(out, cands)

	key, err := rankKey(out, strategy, now)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		return key[i] > key[j]
	})
	return out, nil
}

func rankKey(cands []Candidate, strategy Strategy, now time.Time) ([]float64, error) {
	key := make([]float64, len(cands))

	switch strategy {
	case StrategyActivation:
		for i, c := range cands {
			key[i] = c.Activation
		}

	case StrategyRecency:
		for i, c := range cands {
			key[i] = -c.Memory.DaysSinceAccess(now)
		}

	case StrategyAccessFrequency:
		for i, c := range cands {
			key[i] = float64(c.Memory.AccessCount)
		}

	case StrategyCombined:
		maxAccess := 0
		for _, c := range cands {
			if c.Memory.AccessCount > maxAccess {
				maxAccess = c.Memory.AccessCount
			}
		}
		for i, c := range cands {
			recency := math.Pow(0.5, c.Memory.DaysSinceAccess(now)/combinedRecencyHalfLife)
			frequency := 0.0
			if maxAccess > 0 {
				frequency = float64(c.Memory.AccessCount) / float64(maxAccess)
			}
			key[i] = combinedActivationWeight*c.Activation +
				combinedRecencyWeight*recency +
				combinedFrequencyWeight*frequency
		}

	case StrategyRelevanceBoost:
		for i, c := range cands {
			boost := c.Boost
			if boost == 0 {
				boost = 1.0
			}
			key[i] = math.Min(1.0, c.Activation*boost)
		}

	default:
		return nil, memory.NewError("Rank",
			fmt.Errorf("unknown ranking strategy %q: %w", strategy, memory.ErrValidation))
	}

	return key, nil
}

// Boosted returns the relevance_boost score for a single candidate,
// capped at 1.0.
func Boosted(activation, boost float64) float64 {
	if boost == 0 {
		boost = 1.0
	}
	return math.Min(1.0, activation*boost)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
