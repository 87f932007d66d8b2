package index_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlens/memlens-go/pkg/index"
	"github.com/memlens/memlens-go/pkg/memory"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func sample(id string) *memory.Memory {
	return &memory.Memory{
		ID:        id,
		Content:   "content " + id,
		Timestamp: day("2026-08-01"),
		Metadata: memory.Metadata{
			Topics:   []string{"Programming", "preferences"},
			Concepts: []string{"typescript"},
			Entities: []memory.Entity{{Name: "TypeScript", Type: "technology"}},
			Relationships: []memory.Relationship{
				{Source: "user", Target: "typescript", Type: "prefers"},
			},
			Importance: 0.75,
		},
	}
}

func TestAddAndSearch(t *testing.T) {
	ix := index.NewIndexer()
	ix.Add(sample("m1"))

	assert.Equal(t, []string{"m1"}, ix.SearchByTopics([]string{"programming"}))
	assert.Equal(t, []string{"m1"}, ix.SearchByTopics([]string{"PROGRAMMING"}), "topic matching is case-insensitive")
	assert.Equal(t, []string{"m1"}, ix.SearchByConcepts([]string{"typescript"}))
	assert.Equal(t, []string{"m1"}, ix.SearchByEntities([]memory.Entity{{Name: "typescript", Type: "Technology"}}))
	assert.Equal(t, []string{"m1"}, ix.SearchByRelationships([]memory.Relationship{
		{Source: "User", Target: "TypeScript", Type: "prefers"},
	}))
	assert.Empty(t, ix.SearchByTopics([]string{"cooking"}))
}

func TestRemoveIsSymmetric(t *testing.T) {
	ix := index.NewIndexer()
	m := sample("m1")

	ix.Add(m)
	ix.Remove(m)

	assert.Empty(t, ix.SearchByTopics([]string{"programming"}))
	for kind, count := range ix.BucketCounts() {
		assert.Zero(t, count, "index %s must have no dangling buckets", kind)
	}
}

func TestRemoveKeepsOtherMembers(t *testing.T) {
	ix := index.NewIndexer()
	m1, m2 := sample("m1"), sample("m2")
	ix.Add(m1)
	ix.Add(m2)

	ix.Remove(m1)

	assert.Equal(t, []string{"m2"}, ix.SearchByTopics([]string{"programming"}))
}

func TestSearchByTimeRange(t *testing.T) {
	ix := index.NewIndexer()
	early := sample("early")
	early.Timestamp = day("2026-07-01")
	late := sample("late")
	late.Timestamp = day("2026-08-15")
	ix.Add(early)
	ix.Add(late)

	ids := ix.SearchByTimeRange(day("2026-06-25"), day("2026-07-10"))
	assert.Equal(t, []string{"early"}, ids)

	ids = ix.SearchByTimeRange(day("2026-06-01"), day("2026-09-01"))
	assert.ElementsMatch(t, []string{"early", "late"}, ids)
}

func TestSearchByImportanceRange(t *testing.T) {
	ix := index.NewIndexer()
	lowImp := sample("low")
	lowImp.Metadata.Importance = 0.15
	highImp := sample("high")
	highImp.Metadata.Importance = 0.95
	ix.Add(lowImp)
	ix.Add(highImp)

	assert.Equal(t, []string{"low"}, ix.SearchByImportanceRange(0.10, 0.30))
	assert.Equal(t, []string{"high"}, ix.SearchByImportanceRange(0.90, 1.0))
}

func TestImportanceDecileClamps(t *testing.T) {
	assert.Equal(t, 9, index.ImportanceDecile(1.0))
	assert.Equal(t, 9, index.ImportanceDecile(2.0))
	assert.Equal(t, 0, index.ImportanceDecile(-0.5))
	assert.Equal(t, 7, index.ImportanceDecile(0.75))
}

func TestComplexSearchIntersects(t *testing.T) {
	ix := index.NewIndexer()
	m1 := sample("m1") // programming + typescript
	m2 := sample("m2")
	m2.Metadata.Topics = []string{"programming"}
	m2.Metadata.Concepts = []string{"rust"}
	ix.Add(m1)
	ix.Add(m2)

	ids := ix.ComplexSearch(index.Criteria{
		Topics:   []string{"programming"},
		Concepts: []string{"typescript"},
	})
	assert.Equal(t, []string{"m1"}, ids, "criteria combine with AND semantics")
}

func TestComplexSearchIgnoresAbsentCriteria(t *testing.T) {
	ix := index.NewIndexer()
	ix.Add(sample("m1"))
	ix.Add(sample("m2"))

	ids := ix.ComplexSearch(index.Criteria{})
	assert.ElementsMatch(t, []string{"m1", "m2"}, ids, "no criteria means every memory matches")
}

func TestVerifyDetectsDanglingIDs(t *testing.T) {
	ix := index.NewIndexer()
	ix.Add(sample("ghost"))

	err := ix.Verify(func(id string) bool { return false })
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrIndexInconsistent))

	require.NoError(t, ix.Verify(func(id string) bool { return id == "ghost" }))
}

func TestEntityAndRelationshipKeys(t *testing.T) {
	assert.Equal(t, "technology:typescript",
		index.EntityKey(memory.Entity{Name: " TypeScript ", Type: "Technology"}))
	assert.Equal(t, "user:prefers:typescript",
		index.RelationshipKey(memory.Relationship{Source: "User", Type: "Prefers", Target: "TypeScript"}))
}
