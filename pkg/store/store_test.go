package store_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlens/memlens-go/pkg/index"
	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New()
	require.NoError(t, err)
	return s
}

func record(id string) *memory.Memory {
	return &memory.Memory{
		ID:        id,
		Content:   "User prefers TypeScript for backend work.",
		Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Metadata: memory.Metadata{
			Topics:     []string{"programming", "preferences"},
			Concepts:   []string{"typescript"},
			Entities:   []memory.Entity{{Name: "TypeScript", Type: "technology"}},
			Importance: 0.7,
		},
		Summary:   memory.Summary{Content: "Prefers TypeScript."},
		Embedding: memory.Embedding{Vector: []float64{0.1, 0.2, 0.3}, Dimensions: 3},
	}
}

func TestPutGeneratesIDWhenEmpty(t *testing.T) {
	s := newStore(t)

	m := record("")
	id, err := s.Put(m)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	other, err := s.Put(record(""))
	require.NoError(t, err)
	assert.NotEqual(t, id, other, "generated ids must be unique")
}

func TestPutValidation(t *testing.T) {
	s := newStore(t)

	_, err := s.Put(nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrValidation))

	empty := record("m1")
	empty.Content = ""
	_, err = s.Put(empty)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrValidation))

	mismatch := record("m1")
	mismatch.Embedding.Dimensions = 5
	_, err = s.Put(mismatch)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrDimensionMismatch))

	outOfRange := record("m1")
	outOfRange.Metadata.Importance = 1.2
	_, err = s.Put(outOfRange)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrValidation))

	assert.Zero(t, s.Len(), "rejected records must not be stored")
}

func TestPutStoresACopy(t *testing.T) {
	s := newStore(t)

	m := record("m1")
	_, err := s.Put(m)
	require.NoError(t, err)

	m.Metadata.Topics[0] = "mutated"
	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, "programming", got.Metadata.Topics[0])
}

func TestGetReturnsCloneAndNotFound(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	got, err := s.Get("m1")
	require.NoError(t, err)
	got.Content = "mutated"

	again, err := s.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, "User prefers TypeScript for backend work.", again.Content)

	_, err = s.Get("absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrNotFound))
}

func TestPutReplacesAndReindexes(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	updated := record("m1")
	updated.Metadata.Topics = []string{"infrastructure"}
	_, err = s.Put(updated)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len())

	hits, err := s.SearchByTopics([]string{"programming"})
	require.NoError(t, err)
	assert.Empty(t, hits, "stale index entries must be removed on replace")

	hits, err = s.SearchByTopics([]string{"infrastructure"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m1", hits[0].ID)
}

func TestTouchBumpsAccessCounters(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, s.Touch("m1"))
	require.NoError(t, s.Touch("m1"))

	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	assert.False(t, got.LastAccessed.Before(before))

	err = s.Touch("absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrNotFound))
}

func TestUpdateRepresentationsPreservesIdentity(t *testing.T) {
	s := newStore(t)
	orig := record("m1")
	_, err := s.Put(orig)
	require.NoError(t, err)
	require.NoError(t, s.Touch("m1"))

	md := &memory.Metadata{Topics: []string{"deployment"}, Importance: 0.4}
	sum := &memory.Summary{Content: "Deploys to a single VPS."}
	require.NoError(t, s.UpdateRepresentations("m1", md, sum, nil))

	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, orig.Content, got.Content)
	assert.Equal(t, orig.Timestamp, got.Timestamp)
	assert.Equal(t, 1, got.AccessCount)
	assert.Equal(t, []string{"deployment"}, got.Metadata.Topics)
	assert.Equal(t, "Deploys to a single VPS.", got.Summary.Content)
	assert.Equal(t, orig.Embedding, got.Embedding, "nil embedding argument leaves the vector untouched")

	// Old feature keys must no longer resolve.
	hits, err := s.SearchByTopics([]string{"programming"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpdateRepresentationsValidates(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	err = s.UpdateRepresentations("m1", nil, nil, &memory.Embedding{Vector: []float64{1}, Dimensions: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrDimensionMismatch))

	err = s.UpdateRepresentations("m1", &memory.Metadata{Importance: -0.1}, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrValidation))

	err = s.UpdateRepresentations("absent", nil, &memory.Summary{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrNotFound))
}

func TestPatchMetadataAppliesDelta(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	imp := 0.9
	err = s.PatchMetadata("m1", store.MetadataPatch{
		AddTopics:    []string{"architecture", "Programming"}, // duplicate, case-insensitive
		RemoveTopics: []string{"preferences"},
		AddConcepts:  []string{"static typing"},
		AddEntities:  []memory.Entity{{Name: "Go", Type: "technology"}},
		Importance:   &imp,
	})
	require.NoError(t, err)

	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, []string{"programming", "architecture"}, got.Metadata.Topics)
	assert.Equal(t, []string{"typescript", "static typing"}, got.Metadata.Concepts)
	assert.Len(t, got.Metadata.Entities, 2)
	assert.Equal(t, 0.9, got.Metadata.Importance)

	// Content, summary, and embedding are untouched by the patch path.
	assert.Equal(t, "User prefers TypeScript for backend work.", got.Content)
	assert.Equal(t, "Prefers TypeScript.", got.Summary.Content)
	assert.Equal(t, 3, got.Embedding.Dimensions)

	hits, err := s.SearchByTopics([]string{"architecture"})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = s.SearchByTopics([]string{"preferences"})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPatchMetadataValidatesImportance(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	bad := 1.5
	err = s.PatchMetadata("m1", store.MetadataPatch{Importance: &bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrValidation))

	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.Equal(t, 0.7, got.Metadata.Importance, "failed patch must not change the record")
}

func TestArchiveExcludesFromActiveMemories(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)
	_, err = s.Put(record("m2"))
	require.NoError(t, err)

	require.NoError(t, s.Archive("m1"))

	active := s.ActiveMemories()
	require.Len(t, active, 1)
	assert.Equal(t, "m2", active[0].ID)
	assert.Len(t, s.All(), 2, "archived memories stay in the arena")

	// Archived memories remain retrievable by id.
	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.True(t, got.Archived)

	require.NoError(t, s.Restore("m1"))
	assert.Len(t, s.ActiveMemories(), 2)
}

func TestArchiveValidatesAllIDsFirst(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	err = s.Archive("m1", "absent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrNotFound))

	got, err := s.Get("m1")
	require.NoError(t, err)
	assert.False(t, got.Archived, "a failed batch must not flag any member")
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	removed, err := s.Delete("m1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete("m1")
	require.NoError(t, err)
	assert.False(t, removed, "deleting an absent id is not an error")

	hits, err := s.SearchByTopics([]string{"programming"})
	require.NoError(t, err)
	assert.Empty(t, hits, "deleted memories must leave no index entries")
	require.NoError(t, s.VerifyIndex())
}

func TestComplexSearch(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)

	infra := record("m2")
	infra.Metadata.Topics = []string{"programming", "infrastructure"}
	infra.Metadata.Concepts = []string{"vps"}
	_, err = s.Put(infra)
	require.NoError(t, err)

	hits, err := s.ComplexSearch(index.Criteria{
		Topics:   []string{"programming"},
		Concepts: []string{"typescript"},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m1", hits[0].ID)

	hits, err = s.SearchByConcepts([]string{"vps"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "m2", hits[0].ID)
}

func TestVerifyIndexAfterMutationSequence(t *testing.T) {
	s := newStore(t)
	_, err := s.Put(record("m1"))
	require.NoError(t, err)
	_, err = s.Put(record("m2"))
	require.NoError(t, err)

	imp := 0.3
	require.NoError(t, s.PatchMetadata("m1", store.MetadataPatch{Importance: &imp}))
	require.NoError(t, s.UpdateRepresentations("m2", &memory.Metadata{Topics: []string{"ops"}, Importance: 0.5}, nil, nil))
	_, err = s.Delete("m1")
	require.NoError(t, err)

	require.NoError(t, s.VerifyIndex())
}
