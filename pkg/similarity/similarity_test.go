package similarity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/similarity"
)

func embedding(vals ...float64) memory.Embedding {
	return memory.Embedding{Vector: vals, Dimensions: len(vals)}
}

func TestEmbeddingIdenticalVectors(t *testing.T) {
	a := embedding(0.5, 0.3, 0.8)

	sim, err := similarity.Embedding(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestEmbeddingSymmetric(t *testing.T) {
	a := embedding(0.9, 0.1, 0.2)
	b := embedding(0.1, 0.8, 0.3)

	ab, err := similarity.Embedding(a, b)
	require.NoError(t, err)
	ba, err := similarity.Embedding(b, a)
	require.NoError(t, err)
	assert.Equal(t, ab, ba)
}

func TestEmbeddingOppositeVectors(t *testing.T) {
	a := embedding(1, 0)
	b := embedding(-1, 0)

	sim, err := similarity.Embedding(a, b)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-9)
}

func TestEmbeddingZeroVectorConventions(t *testing.T) {
	zero := embedding(0, 0, 0)
	nonZero := embedding(0.1, 0.2, 0.3)

	both, err := similarity.Embedding(zero, zero)
	require.NoError(t, err)
	assert.Equal(t, 1.0, both, "two zero vectors are defined as identical")

	one, err := similarity.Embedding(zero, nonZero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, one, "a zero vector shares nothing with a non-zero one")
}

func TestEmbeddingDimensionMismatch(t *testing.T) {
	a := embedding(1, 2, 3)
	b := embedding(1, 2)

	_, err := similarity.Embedding(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrDimensionMismatch))

	// Declared dimensions must match the actual vector length too.
	bad := memory.Embedding{Vector: []float64{1, 2, 3}, Dimensions: 4}
	_, err = similarity.Embedding(bad, a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrDimensionMismatch))
}

func TestMetadataReflexive(t *testing.T) {
	md := memory.Metadata{
		Topics:     []string{"programming", "preferences"},
		Concepts:   []string{"typescript", "static typing"},
		Entities:   []memory.Entity{{Name: "TypeScript", Type: "technology"}},
		Importance: 0.7,
	}

	assert.InDelta(t, 1.0, similarity.Metadata(md, md), 1e-9)

	// Reflexivity must hold for sparsely annotated records as well.
	sparse := memory.Metadata{Importance: 0.2}
	assert.InDelta(t, 1.0, similarity.Metadata(sparse, sparse), 1e-9)
}

func TestMetadataSymmetric(t *testing.T) {
	a := memory.Metadata{Topics: []string{"go", "testing"}, Importance: 0.5}
	b := memory.Metadata{Topics: []string{"go", "deployment"}, Importance: 0.9}

	assert.Equal(t, similarity.Metadata(a, b), similarity.Metadata(b, a))
}

func TestMetadataEntityMatchingIsCaseInsensitive(t *testing.T) {
	a := memory.Metadata{Entities: []memory.Entity{{Name: "TypeScript", Type: "Technology"}}}
	b := memory.Metadata{Entities: []memory.Entity{{Name: "typescript", Type: "technology"}}}
	c := memory.Metadata{Entities: []memory.Entity{{Name: "typescript", Type: "person"}}}

	assert.Greater(t, similarity.Metadata(a, b), similarity.Metadata(a, c),
		"same name with same type must outscore same name with different type")
}

func TestMetadataDisjointScoresLow(t *testing.T) {
	a := memory.Metadata{
		Topics:     []string{"cooking"},
		Concepts:   []string{"pasta"},
		Importance: 0.9,
	}
	b := memory.Metadata{
		Topics:     []string{"kubernetes"},
		Concepts:   []string{"ingress"},
		Importance: 0.1,
	}

	// Disjoint topics and concepts leave only entity/relationship (both
	// empty, similarity 1) and importance closeness.
	score := similarity.Metadata(a, b)
	assert.Less(t, score, 0.5)
}

func TestSummaryReflexiveAndSymmetric(t *testing.T) {
	a := memory.Summary{
		Content:             "User prefers TypeScript for backend work.",
		KeyInsights:         []string{"strong typing preference"},
		ContextualRelevance: []string{"language choice"},
	}
	b := memory.Summary{Content: "User asked about deployment targets."}

	assert.InDelta(t, 1.0, similarity.Summary(a, a), 1e-9)
	assert.Equal(t, similarity.Summary(a, b), similarity.Summary(b, a))
}

func TestSummaryWordOverlap(t *testing.T) {
	base := memory.Summary{Content: "the user prefers typescript"}
	near := memory.Summary{Content: "the user prefers typescript strongly"}
	far := memory.Summary{Content: "deployment uses a single vps"}

	assert.Greater(t, similarity.Summary(base, near), similarity.Summary(base, far))
}

func TestOverlapSharedTopics(t *testing.T) {
	a := memory.Metadata{Topics: []string{"kubernetes", "ingress"}}
	b := memory.Metadata{Topics: []string{"Kubernetes", "ingress"}}
	c := memory.Metadata{Topics: []string{"billing"}}

	assert.Equal(t, 1.0, similarity.Overlap(a, b), "topic matching is case-insensitive")
	assert.Equal(t, 0.0, similarity.Overlap(a, c))
}

func TestOverlapEmptySetsShareNothing(t *testing.T) {
	// Unlike Metadata, which treats two empty feature sets as trivially
	// similar, Overlap treats them as sharing nothing.
	assert.Equal(t, 0.0, similarity.Overlap(memory.Metadata{}, memory.Metadata{}))
	assert.Equal(t, 0.0, similarity.Overlap(memory.Metadata{}, memory.Metadata{Topics: []string{"go"}}))
}

func TestOverlapEntitiesCountWithoutSharedTopics(t *testing.T) {
	a := memory.Metadata{Entities: []memory.Entity{{Name: "Stripe", Type: "organization"}}}
	b := memory.Metadata{
		Topics:   []string{"payments"},
		Entities: []memory.Entity{{Name: "Stripe", Type: "organization"}},
	}

	assert.Equal(t, 1.0, similarity.Overlap(a, b))
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, similarity.ClampUnit(-0.4))
	assert.Equal(t, 1.0, similarity.ClampUnit(1.7))
	assert.Equal(t, 0.3, similarity.ClampUnit(0.3))
}

// A memory about language preferences should score clearly higher against
// a language-choice context than a memory about infrastructure.
func TestPreferenceScenarioOrdering(t *testing.T) {
	ctxMD := memory.Metadata{
		Topics:     []string{"programming", "language"},
		Concepts:   []string{"typescript", "javascript"},
		Importance: 0.6,
	}
	prefMD := memory.Metadata{
		Topics:     []string{"programming", "preferences"},
		Concepts:   []string{"typescript", "static typing"},
		Importance: 0.7,
	}
	infraMD := memory.Metadata{
		Topics:     []string{"infrastructure"},
		Concepts:   []string{"vps", "debian"},
		Importance: 0.5,
	}

	assert.Greater(t, similarity.Metadata(ctxMD, prefMD), similarity.Metadata(ctxMD, infraMD))
}
