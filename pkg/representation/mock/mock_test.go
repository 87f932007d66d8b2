package mock_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlens/memlens-go/pkg/representation"
	"github.com/memlens/memlens-go/pkg/representation/mock"
	"github.com/memlens/memlens-go/pkg/similarity"
)

func TestGenerateIsDeterministic(t *testing.T) {
	p := mock.New(0)
	assert.Equal(t, mock.DefaultDimensions, p.Dimensions())

	content := "The user prefers TypeScript over JavaScript for backend services."
	a, err := p.Generate(context.Background(), content)
	require.NoError(t, err)
	b, err := p.Generate(context.Background(), content)
	require.NoError(t, err)

	assert.Equal(t, a.Embedding.Vector, b.Embedding.Vector)
	assert.Equal(t, a.Metadata.Topics, b.Metadata.Topics)
	assert.Equal(t, a.Summary.Content, b.Summary.Content)
	require.NoError(t, representation.Validate(a))
}

func TestGenerateEmbeddingIsNormalized(t *testing.T) {
	p := mock.New(16)

	rep, err := p.Generate(context.Background(), "kubernetes ingress controllers and load balancing")
	require.NoError(t, err)
	require.Len(t, rep.Embedding.Vector, 16)

	norm := 0.0
	for _, v := range rep.Embedding.Vector {
		norm += v * v
	}
	assert.InDelta(t, 1.0, norm, 1e-9)
}

func TestSimilarTextsScoreCloserThanUnrelated(t *testing.T) {
	p := mock.New(64)
	ctx := context.Background()

	base, err := p.Generate(ctx, "the user prefers typescript for backend services")
	require.NoError(t, err)
	near, err := p.Generate(ctx, "the user strongly prefers typescript for backend work")
	require.NoError(t, err)
	far, err := p.Generate(ctx, "production runs on a hetzner vps with debian")
	require.NoError(t, err)

	simNear, err := similarity.Embedding(base.Embedding, near.Embedding)
	require.NoError(t, err)
	simFar, err := similarity.Embedding(base.Embedding, far.Embedding)
	require.NoError(t, err)
	assert.Greater(t, simNear, simFar)
}

func TestGenerateSummaryAndTopics(t *testing.T) {
	p := mock.New(32)

	rep, err := p.Generate(context.Background(),
		"TypeScript adoption is growing. The team migrated every service last quarter.")
	require.NoError(t, err)

	assert.Equal(t, "TypeScript adoption is growing.", rep.Summary.Content)
	assert.NotEmpty(t, rep.Metadata.Topics)
	assert.LessOrEqual(t, len(rep.Metadata.Topics), 5)
	assert.LessOrEqual(t, len(rep.Metadata.Concepts), 8)
	assert.GreaterOrEqual(t, rep.Metadata.Importance, 0.1)
	assert.LessOrEqual(t, rep.Metadata.Importance, 0.9)
}
