// Package representation defines providers that turn raw content into the
// three representations the activation engine scores against: structured
// metadata, a condensed summary, and a dense embedding.
package representation

import (
	"context"
	"fmt"

	"github.com/memlens/memlens-go/pkg/memory"
)

// Representation bundles the three derived views of one piece of content.
type Representation struct {
	// Metadata is the structured extraction (topics, entities, concepts,
	// relationships, importance).
	Metadata memory.Metadata `json:"metadata"`

	// Summary is the condensed representation.
	Summary memory.Summary `json:"summary"`

	// Embedding is the dense vector representation.
	Embedding memory.Embedding `json:"embedding"`
}

// Provider defines the interface for representation providers.
//
// All implementations (OpenAI, deterministic mock, etc.) must implement
// this interface.
type Provider interface {
	// Generate derives metadata, summary, and embedding for the content.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - content: The raw text to represent
	//
	// Returns the bundled representation and any error.
	Generate(ctx context.Context, content string) (*Representation, error)

	// Dimensions returns the dimension of embedding vectors produced by
	// this provider.
	Dimensions() int

	// Close closes the provider and releases resources.
	Close() error
}

// Validate checks a representation for internal consistency: the embedding
// must honor its declared dimensions and importance must be in [0,1].
func Validate(r *Representation) error {
	if r == nil {
		return memory.NewError("representation.Validate",
			fmt.Errorf("nil representation: %w", memory.ErrValidation))
	}
	if len(r.Embedding.Vector) != r.Embedding.Dimensions {
		return memory.NewError("representation.Validate",
			fmt.Errorf("vector length %d does not match dimensions %d: %w",
				len(r.Embedding.Vector), r.Embedding.Dimensions, memory.ErrDimensionMismatch))
	}
	if r.Metadata.Importance < 0 || r.Metadata.Importance > 1 {
		return memory.NewError("representation.Validate",
			fmt.Errorf("importance %v outside [0,1]: %w", r.Metadata.Importance, memory.ErrValidation))
	}
	return nil
}
