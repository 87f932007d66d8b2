package core

import (
	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/scoring"
)

// AwarenessOption is a function type for configuring awareness scans.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type AwarenessOption func(*AwarenessOptions)

// AwarenessOptions contains configuration options for awareness scans.
type AwarenessOptions struct {
	// ContextType forces the context type instead of classifying it.
	ContextType memory.ContextType

	// Weights overrides the preset scoring weights for the context type.
	Weights *memory.ScoringWeights

	// MaxResults caps the number of awareness entries returned. Zero means
	// no cap.
	MaxResults int
}

// WithContextType forces the context type for an awareness scan, skipping
// classification.
//
// Example:
//
//	aw, _ := client.GetMemoryAwareness(ctx, qctx, core.WithContextType(memory.ContextTask))
func WithContextType(t memory.ContextType) AwarenessOption {
	return func(opts *AwarenessOptions) {
		opts.ContextType = t
	}
}

// WithWeights overrides the preset scoring weights for an awareness scan.
func WithWeights(w memory.ScoringWeights) AwarenessOption {
	return func(opts *AwarenessOptions) {
		opts.Weights = &w
	}
}

// WithMaxAwareness caps the number of awareness entries returned.
func WithMaxAwareness(n int) AwarenessOption {
	return func(opts *AwarenessOptions) {
		opts.MaxResults = n
	}
}

// RetrievalOption is a function type for configuring selective retrieval.
type RetrievalOption func(*RetrievalOptions)

// RetrievalOptions contains configuration options for selective retrieval.
type RetrievalOptions struct {
	// MinScore drops candidates whose activation falls below it.
	MinScore float64

	// RelevanceType keeps only candidates whose dominant relevance matches.
	// Empty keeps all.
	RelevanceType memory.RelevanceType

	// MaxResults caps the number of memories returned. Zero means no cap.
	MaxResults int

	// Strategy selects the ranking strategy. Defaults to activation score.
	Strategy scoring.Strategy

	// DiversityPenalty reduces the effective score of candidates sharing
	// topics or entities with already-selected ones (0.0 disables, typical
	// 0.2-0.5).
	DiversityPenalty float64
}

// WithMinScore drops retrieval candidates below an activation score.
//
// Example:
//
//	mems, _ := client.RequestSelectiveRetrieval(ctx, qctx, core.WithMinScore(0.5))
func WithMinScore(min float64) RetrievalOption {
	return func(opts *RetrievalOptions) {
		opts.MinScore = min
	}
}

// WithRelevanceType keeps only candidates whose dominant relevance
// dimension matches.
func WithRelevanceType(t memory.RelevanceType) RetrievalOption {
	return func(opts *RetrievalOptions) {
		opts.RelevanceType = t
	}
}

// WithMaxResults caps the number of memories returned by a retrieval.
func WithMaxResults(n int) RetrievalOption {
	return func(opts *RetrievalOptions) {
		opts.MaxResults = n
	}
}

// WithStrategy selects the ranking strategy for a retrieval.
func WithStrategy(s scoring.Strategy) RetrievalOption {
	return func(opts *RetrievalOptions) {
		opts.Strategy = s
	}
}

// WithDiversity penalizes candidates that share topics or entities with
// already-selected results, trading raw relevance for coverage.
func WithDiversity(penalty float64) RetrievalOption {
	return func(opts *RetrievalOptions) {
		opts.DiversityPenalty = penalty
	}
}
