// Package similarity computes the independent similarity signals between a
// context and a memory.
//
// All functions are stateless and pure. Every similarity is symmetric
// (sim(a,b) == sim(b,a)) and reflexive (sim(a,a) == 1); rank stability
// depends on both properties.
package similarity

import (
	"math"
	"strings"

	"github.com/memlens/memlens-go/pkg/index"
	"github.com/memlens/memlens-go/pkg/memory"
)

// Weights of the metadata similarity dimensions.
const (
	topicWeight        = 0.30
	conceptWeight      = 0.25
	entityWeight       = 0.20
	relationshipWeight = 0.15
	importanceWeight   = 0.10
)

// Weights of the summary similarity dimensions.
const (
	summaryContentWeight   = 0.50
	keyInsightWeight       = 0.30
	contextRelevanceWeight = 0.20
)

// Embedding returns the cosine similarity of two embeddings in [-1, 1].
//
// A dimension mismatch, between the two vectors or between a vector and
// its declared dimensions, is a hard error, never silently truncated.
// All-zero vectors are defined as similarity 1.0 when both are zero and
// 0.0 when only one is, to avoid NaN propagation.
func Embedding(a, b memory.Embedding) (float64, error) {
	if len(a.Vector) != a.Dimensions || len(b.Vector) != b.Dimensions {
		return 0, memory.NewError("Embedding", memory.ErrDimensionMismatch)
	}
	if len(a.Vector) != len(b.Vector) {
		return 0, memory.NewError("Embedding", memory.ErrDimensionMismatch)
	}

	var dot, normA, normB float64
	for i := range a.Vector {
		dot += a.Vector[i] * b.Vector[i]
		normA += a.Vector[i] * a.Vector[i]
		normB += b.Vector[i] * b.Vector[i]
	}

	if normA == 0 && normB == 0 {
		return 1.0, nil
	}
	if normA == 0 || normB == 0 {
		return 0.0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// Metadata returns the weighted metadata similarity in [0, 1].
//
// The score combines Jaccard similarity over topics (0.3) and concepts
// (0.25), normalized-key Jaccard over entities (0.2) and relationships
// (0.15), and importance closeness 1-|a-b| (0.1).
func Metadata(a, b memory.Metadata) float64 {
	score := topicWeight * jaccardStrings(a.Topics, b.Topics)
	score += conceptWeight * jaccardStrings(a.Concepts, b.Concepts)
	score += entityWeight * jaccardKeys(entityKeys(a.Entities), entityKeys(b.Entities))
	score += relationshipWeight * jaccardKeys(relationshipKeys(a.Relationships), relationshipKeys(b.Relationships))
	score += importanceWeight * (1.0 - math.Abs(a.Importance-b.Importance))
	return clamp01(score)
}

// Summary returns the weighted summary similarity in [0, 1].
//
// The score combines word-overlap Jaccard over the summary content (0.5),
// the key insights (0.3), and the contextual-relevance tags (0.2).
func Summary(a, b memory.Summary) float64 {
	score := summaryContentWeight * wordJaccard(a.Content, b.Content)
	score += keyInsightWeight * wordJaccard(strings.Join(a.KeyInsights, " "), strings.Join(b.KeyInsights, " "))
	score += contextRelevanceWeight * wordJaccard(strings.Join(a.ContextualRelevance, " "), strings.Join(b.ContextualRelevance, " "))
	return clamp01(score)
}

// Overlap returns how much two metadata records share topics and entities,
// in [0, 1]: the larger of the topic Jaccard and the entity-key Jaccard.
// Unlike Metadata, empty feature sets count as no overlap here, so sparsely
// annotated records are never treated as near-duplicates.
func Overlap(a, b memory.Metadata) float64 {
	topics := overlapSets(normalizedSet(a.Topics), normalizedSet(b.Topics))
	entities := overlapSets(keySet(entityKeys(a.Entities)), keySet(entityKeys(b.Entities)))
	return math.Max(topics, entities)
}

// ClampUnit clamps a raw cosine similarity into [0, 1] for use as a
// probability-like weight.
func ClampUnit(v float64) float64 {
	return clamp01(v)
}

func entityKeys(entities []memory.Entity) []string {
	keys := make([]string, len(entities))
	for i, e := range entities {
		keys[i] = index.EntityKey(e)
	}
	return keys
}

func relationshipKeys(rels []memory.Relationship) []string {
	keys := make([]string, len(rels))
	for i, r := range rels {
		keys[i] = index.RelationshipKey(r)
	}
	return keys
}

// jaccardStrings computes Jaccard similarity over two string sets after
// lowercasing and trimming. Two empty sets are defined as similarity 1 so
// that reflexivity holds for sparsely annotated records.
func jaccardStrings(a, b []string) float64 {
	return jaccardSets(normalizedSet(a), normalizedSet(b))
}

// jaccardKeys computes Jaccard similarity over pre-normalized keys.
func jaccardKeys(a, b []string) float64 {
	return jaccardSets(keySet(a), keySet(b))
}

func normalizedSet(ss []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return set
}

func keySet(ss []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		set[s] = struct{}{}
	}
	return set
}

func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

// overlapSets is the Jaccard variant used for duplicate detection: an
// empty set shares nothing, so the result is 0 rather than 1.
func overlapSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	return float64(intersection) / float64(len(a)+len(b)-intersection)
}

// wordJaccard computes Jaccard similarity over the word sets of two texts.
func wordJaccard(a, b string) float64 {
	return jaccardSets(wordSet(a), wordSet(b))
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, field := range strings.Fields(strings.ToLower(text)) {
		word := strings.Trim(field, ".,!?;:\"'()[]{}")
		if word != "" {
			set[word] = struct{}{}
		}
	}
	return set
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
