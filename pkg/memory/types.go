// Package memory defines the shared data model for the memlens engine.
//
// The types here are plain records passed between the index, store, scoring,
// and lifecycle packages. Two deliberately distinct views exist for a stored
// memory:
//   - Memory: the full owning record, including content
//   - Awareness: a read-only relevance view that never carries content
//
// Keeping these as separate types is what enforces the
// "awareness never implies auto-load" guarantee at the type level.
package memory

import "time"

// ContextType classifies the query context a caller presents.
//
// The type selects both the activation threshold and the default scoring
// weights used when ranking memories against the context.
type ContextType string

const (
	// ContextConversation is an ongoing chat exchange.
	ContextConversation ContextType = "conversation"

	// ContextDocument is a document-centric context (reading, summarizing).
	ContextDocument ContextType = "document"

	// ContextTask is a goal-directed context (implementing, fixing, planning).
	ContextTask ContextType = "task"

	// ContextQuery is an explicit retrieval question.
	ContextQuery ContextType = "query"

	// ContextMixed is used when classification is ambiguous.
	ContextMixed ContextType = "mixed"
)

// ContextTypes lists every valid context type.
var ContextTypes = []ContextType{
	ContextConversation,
	ContextDocument,
	ContextTask,
	ContextQuery,
	ContextMixed,
}

// RelevanceType names the dominant reason a memory is considered relevant.
type RelevanceType string

const (
	// RelevanceSemantic means embedding similarity dominated the score.
	RelevanceSemantic RelevanceType = "semantic"

	// RelevanceContextual means metadata or summary overlap dominated.
	RelevanceContextual RelevanceType = "contextual"

	// RelevanceTemporal means recency dominated.
	RelevanceTemporal RelevanceType = "temporal"

	// RelevanceMixed means no single dimension clearly dominated.
	RelevanceMixed RelevanceType = "mixed"
)

// Entity is a named entity extracted from memory content.
//
// Entities are compared by normalized name and type, never by identity.
type Entity struct {
	// Name is the surface form of the entity.
	Name string `json:"name"`

	// Type is the entity category (e.g., "person", "technology").
	Type string `json:"type"`

	// Confidence is the extraction confidence (0.0-1.0).
	Confidence float64 `json:"confidence"`
}

// Relationship is a typed edge between two entities.
//
// Relationships are compared by normalized source/type/target, never by
// identity.
type Relationship struct {
	// Source is the origin entity name.
	Source string `json:"source"`

	// Target is the destination entity name.
	Target string `json:"target"`

	// Type is the relationship kind (e.g., "prefers", "works_on").
	Type string `json:"type"`

	// Strength is the relationship strength (0.0-1.0).
	Strength float64 `json:"strength"`
}

// Metadata is the structured annotation attached to a memory or context.
type Metadata struct {
	// Topics are coarse subject tags.
	Topics []string `json:"topics,omitempty"`

	// Entities are extracted named entities.
	Entities []Entity `json:"entities,omitempty"`

	// Concepts are finer-grained notions mentioned in the content.
	Concepts []string `json:"concepts,omitempty"`

	// Relationships are typed edges between entities.
	Relationships []Relationship `json:"relationships,omitempty"`

	// Importance is the assessed importance of the content (0.0-1.0).
	Importance float64 `json:"importance"`

	// Intent is the caller-declared intent of a query context.
	// It is only meaningful on Context metadata and drives context-type
	// classification; it is ignored on stored memories.
	Intent string `json:"intent,omitempty"`
}

// Summary is the condensed representation of memory content.
type Summary struct {
	// Content is the summary text.
	Content string `json:"content"`

	// KeyInsights are the main takeaways.
	KeyInsights []string `json:"key_insights,omitempty"`

	// ContextualRelevance are tags describing when the memory matters.
	ContextualRelevance []string `json:"contextual_relevance,omitempty"`
}

// Embedding is a dense vector representation of content.
//
// Invariant: len(Vector) == Dimensions. The store rejects records that
// violate it.
type Embedding struct {
	// Vector is the embedding values.
	Vector []float64 `json:"vector"`

	// Model is the model that produced the vector.
	Model string `json:"model"`

	// Dimensions is the expected vector length.
	Dimensions int `json:"dimensions"`
}

// Memory is a single stored memory record.
//
// A memory is created from a fully-formed representation (content, metadata,
// summary, embedding) supplied by collaborators. It is mutated in place by
// incremental metadata patches, decay-driven importance updates, and
// access bumps on retrieval.
type Memory struct {
	// ID is the opaque unique identifier of the memory.
	ID string `json:"id"`

	// Content is the text content. It is owned by the store and never
	// exposed on the awareness path.
	Content string `json:"content"`

	// Timestamp is when the memory was created.
	Timestamp time.Time `json:"timestamp"`

	// Metadata is the structured annotation of the content.
	Metadata Metadata `json:"metadata"`

	// Summary is the condensed representation of the content.
	Summary Summary `json:"summary"`

	// Embedding is the vector representation of the content.
	Embedding Embedding `json:"embedding"`

	// AccessCount is the number of explicit retrievals.
	AccessCount int `json:"access_count"`

	// LastAccessed is when the memory was last retrieved (zero if never).
	LastAccessed time.Time `json:"last_accessed,omitempty"`

	// Archived marks the memory as soft-removed: excluded from awareness
	// scans but retained for audit and restore.
	Archived bool `json:"archived,omitempty"`
}

// Age returns the memory's age in days at the given instant.
func (m *Memory) Age(now time.Time) float64 {
	return now.Sub(m.Timestamp).Hours() / 24.0
}

// DaysSinceAccess returns days since the last retrieval, falling back to
// the creation timestamp when the memory has never been accessed.
func (m *Memory) DaysSinceAccess(now time.Time) float64 {
	ref := m.LastAccessed
	if ref.IsZero() {
		ref = m.Timestamp
	}
	return now.Sub(ref).Hours() / 24.0
}

// Clone returns a deep copy of the memory.
func (m *Memory) Clone() *Memory {
	if m == nil {
		return nil
	}
	out := *m
	out.Metadata = m.Metadata.Clone()
	out.Summary = m.Summary.Clone()
	out.Embedding = m.Embedding.Clone()
	return &out
}

// Clone returns a deep copy of the metadata.
func (md Metadata) Clone() Metadata {
	out := md
	out.Topics = append([]string(nil), md.Topics...)
	out.Concepts = append([]string(nil), md.Concepts...)
	out.Entities = append([]Entity(nil), md.Entities...)
	out.Relationships = append([]Relationship(nil), md.Relationships...)
	return out
}

// Clone returns a deep copy of the summary.
func (s Summary) Clone() Summary {
	out := s
	out.KeyInsights = append([]string(nil), s.KeyInsights...)
	out.ContextualRelevance = append([]string(nil), s.ContextualRelevance...)
	return out
}

// Clone returns a deep copy of the embedding.
func (e Embedding) Clone() Embedding {
	out := e
	out.Vector = append([]float64(nil), e.Vector...)
	return out
}

// Context is the ephemeral query-time analogue of a Memory.
//
// Contexts are never persisted by the engine.
type Context struct {
	// Content is the context text.
	Content string `json:"content"`

	// Metadata annotates the context; Metadata.Intent drives context-type
	// classification.
	Metadata Metadata `json:"metadata"`

	// Summary is an optional condensed form of the context.
	Summary Summary `json:"summary"`

	// Embedding is the vector representation of the context.
	Embedding Embedding `json:"embedding"`

	// Timestamp is when the context was observed. Zero means "now".
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// SimilarityScores holds the independent similarity signals between a
// context and a memory.
//
// EmbeddingSimilarity is raw cosine similarity in [-1, 1]; callers must
// clamp it before using it as a probability-like weight. The other three
// dimensions lie in [0, 1].
type SimilarityScores struct {
	EmbeddingSimilarity float64 `json:"embedding_similarity"`
	MetadataSimilarity  float64 `json:"metadata_similarity"`
	SummarySimilarity   float64 `json:"summary_similarity"`
	TemporalRelevance   float64 `json:"temporal_relevance"`
}

// ScoringWeights weights the four similarity dimensions when combining
// them into one activation score.
//
// Weights must be non-negative. The scorer normalizes them to sum to 1
// before use; if all four are zero, equal weights are substituted.
type ScoringWeights struct {
	Embedding float64 `json:"embedding"`
	Metadata  float64 `json:"metadata"`
	Summary   float64 `json:"summary"`
	Temporal  float64 `json:"temporal"`
}

// Awareness is a read-only view telling the caller that a memory is
// relevant, without exposing its content.
//
// It is a view, not an owning reference: it carries the summary and score
// only. Full content requires an explicit retrieval call.
type Awareness struct {
	// MemoryID identifies the relevant memory.
	MemoryID string `json:"memory_id"`

	// ActivationScore is the bounded [0,1] relevance of the memory to the
	// presented context.
	ActivationScore float64 `json:"activation_score"`

	// RelevanceType names the dominant reason for relevance.
	RelevanceType RelevanceType `json:"relevance_type"`

	// Summary is the memory's condensed representation.
	Summary Summary `json:"summary"`

	// Confidence expresses how much the similarity dimensions agree
	// (0.0-1.0). High variance across dimensions lowers it.
	Confidence float64 `json:"confidence"`
}

// RelevanceExplanation is the full breakdown behind an awareness decision.
type RelevanceExplanation struct {
	// MemoryID identifies the explained memory.
	MemoryID string `json:"memory_id"`

	// ContextType is the classified type of the presented context.
	ContextType ContextType `json:"context_type"`

	// Scores is the recomputed similarity breakdown.
	Scores SimilarityScores `json:"scores"`

	// ActivationScore is the combined score.
	ActivationScore float64 `json:"activation_score"`

	// Threshold is the activation threshold applied for the context type.
	Threshold float64 `json:"threshold"`

	// AboveThreshold reports whether the memory would be surfaced.
	AboveThreshold bool `json:"above_threshold"`

	// RelevanceType names the dominant dimension.
	RelevanceType RelevanceType `json:"relevance_type"`

	// Reasons are human-readable explanations for the score.
	Reasons []string `json:"reasons"`

	// Confidence expresses cross-dimension agreement (0.0-1.0).
	Confidence float64 `json:"confidence"`
}

// UsageAnalytics is the feedback signal consumed by threshold adaptation
// and lifecycle management.
type UsageAnalytics struct {
	// RetrievalSuccessRate is the fraction of surfaced memories the host
	// judged useful (0.0-1.0).
	RetrievalSuccessRate float64 `json:"retrieval_success_rate"`

	// FalsePositiveRate is the fraction of surfaced memories that were
	// irrelevant (0.0-1.0).
	FalsePositiveRate float64 `json:"false_positive_rate"`

	// FalseNegativeRate is the fraction of relevant memories that were not
	// surfaced (0.0-1.0).
	FalseNegativeRate float64 `json:"false_negative_rate"`

	// AverageActivationScore is the observed mean activation score.
	AverageActivationScore float64 `json:"average_activation_score"`

	// MemoryAccessPatterns counts explicit retrievals per memory id.
	MemoryAccessPatterns map[string]int `json:"memory_access_patterns,omitempty"`
}
