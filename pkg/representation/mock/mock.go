// Package mock provides a deterministic, offline representation provider
// for tests and examples. Embeddings are derived by hashing tokens into a
// fixed number of buckets, so similar texts get similar vectors without
// any network calls.
package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sort"
	"strings"

	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/representation"
)

// DefaultDimensions is the vector size the mock produces unless overridden.
const DefaultDimensions = 64

// Provider is a deterministic representation provider.
// It implements the representation.Provider interface.
type Provider struct {
	dimensions int
}

// New creates a mock provider. A non-positive dimensions falls back to
// DefaultDimensions.
func New(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &Provider{dimensions: dimensions}
}

// Generate derives a representation from the content alone:
//
//   - embedding: token-hash buckets, L2-normalized
//   - topics/concepts: the most frequent long tokens
//   - summary: the first sentence
//   - importance: scaled by content length, capped at 0.9
//
// The same content always yields the same representation.
func (p *Provider) Generate(_ context.Context, content string) (*representation.Representation, error) {
	tokens := tokenize(content)

	rep := &representation.Representation{
		Metadata: memory.Metadata{
			Topics:     topTokens(tokens, 3, 5),
			Concepts:   topTokens(tokens, 4, 8),
			Importance: importanceFor(content),
		},
		Summary: memory.Summary{
			Content: firstSentence(content),
		},
		Embedding: memory.Embedding{
			Vector:     p.embed(tokens),
			Dimensions: p.dimensions,
		},
	}
	return rep, nil
}

func (p *Provider) embed(tokens []string) []float64 {
	vec := make([]float64, p.dimensions)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%p.dimensions]++
	}

	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func tokenize(content string) []string {
	return strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
}

// topTokens returns up to max distinct tokens of at least minLen runes,
// most frequent first, ties broken alphabetically for determinism.
func topTokens(tokens []string, minLen, max int) []string {
	counts := make(map[string]int)
	for _, t := range tokens {
		if len(t) >= minLen {
			counts[t]++
		}
	}

	distinct := make([]string, 0, len(counts))
	for t := range counts {
		distinct = append(distinct, t)
	}
	sort.Slice(distinct, func(i, j int) bool {
		if counts[distinct[i]] != counts[distinct[j]] {
			return counts[distinct[i]] > counts[distinct[j]]
		}
		return distinct[i] < distinct[j]
	})

	if len(distinct) > max {
		distinct = distinct[:max]
	}
	return distinct
}

func firstSentence(content string) string {
	content = strings.TrimSpace(content)
	for _, sep := range []string{". ", "! ", "? ", "\n"} {
		if idx := strings.Index(content, sep); idx >= 0 {
			return content[:idx+1]
		}
	}
	return content
}

func importanceFor(content string) float64 {
	imp := float64(len(content)) / 1000
	if imp > 0.9 {
		imp = 0.9
	}
	if imp < 0.1 {
		imp = 0.1
	}
	return imp
}

// Dimensions returns the vector dimensions.
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// Close is a no-op.
func (p *Provider) Close() error {
	return nil
}
