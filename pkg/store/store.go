// Package store owns the in-memory arena of memory records and delegates
// feature indexing to the metadata indexer.
//
// Mutating operations are serialized behind a write lock; awareness scans
// take a read lock and may run concurrently. Every metadata mutation is
// bracketed by an index Remove/Add pair under the same lock, so a memory
// is never findable by stale index keys or missing from new ones.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/memlens/memlens-go/pkg/index"
	"github.com/memlens/memlens-go/pkg/memory"
)

// nowFunc returns the current time. Tests override it to pin access
// timestamps.
var nowFunc = time.Now

// Store is the indexed in-memory memory store.
type Store struct {
	mu      sync.RWMutex
	records map[string]*memory.Memory
	index   *index.Indexer
	node    *snowflake.Node
}

// New creates an empty Store.
func New() (*Store, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, memory.NewError("New", err)
	}
	return &Store{
		records: make(map[string]*memory.Memory),
		index:   index.NewIndexer(),
		node:    node,
	}, nil
}

// Put stores a fully-formed memory and indexes it.
//
// If the id is empty, a new opaque id is generated. On id collision the
// record is replaced (last write wins) and always re-indexed: the old
// index entries are removed before the new ones are added. The store keeps
// its own deep copy; later caller mutations of m are not observed.
//
// Incomplete representations are rejected: the embedding vector length
// must equal its declared dimensions and importance must lie in [0, 1].
func (s *Store) Put(m *memory.Memory) (string, error) {
	if err := validateRecord(m); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := m.Clone()
	if rec.ID == "" {
		rec.ID = s.node.Generate().String()
	}

	if old, ok := s.records[rec.ID]; ok {
		s.index.Remove(old)
	}
	s.records[rec.ID] = rec
	s.index.Add(rec)

	return rec.ID, nil
}

func validateRecord(m *memory.Memory) error {
	if m == nil {
		return memory.NewError("Put", fmt.Errorf("nil memory: %w", memory.ErrValidation))
	}
	if m.Content == "" {
		return memory.NewError("Put", fmt.Errorf("empty content: %w", memory.ErrValidation))
	}
	if m.Embedding.Dimensions <= 0 || len(m.Embedding.Vector) != m.Embedding.Dimensions {
		return memory.NewError("Put", memory.ErrDimensionMismatch)
	}
	if m.Metadata.Importance < 0 || m.Metadata.Importance > 1 {
		return memory.NewError("Put",
			fmt.Errorf("importance %v outside [0,1]: %w", m.Metadata.Importance, memory.ErrValidation))
	}
	return nil
}

// Get returns a copy of the memory with the given id.
//
// Archived memories remain retrievable by id for audit and restore.
func (s *Store) Get(id string) (*memory.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, memory.NewError("Get", memory.ErrNotFound)
	}
	return rec.Clone(), nil
}

// Touch bumps the access count and last-accessed time of a memory.
func (s *Store) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return memory.NewError("Touch", memory.ErrNotFound)
	}
	rec.AccessCount++
	rec.LastAccessed = nowFunc()
	return nil
}

// UpdateRepresentations replaces the summary, metadata, and/or embedding
// of a memory while preserving its id, content, timestamp, and access
// counters.
//
// Nil arguments leave the corresponding representation untouched. The old
// index entries are removed before the new ones are added, never
// append-only.
func (s *Store) UpdateRepresentations(id string, md *memory.Metadata, sum *memory.Summary, emb *memory.Embedding) error {
	if emb != nil && (emb.Dimensions <= 0 || len(emb.Vector) != emb.Dimensions) {
		return memory.NewError("UpdateRepresentations", memory.ErrDimensionMismatch)
	}
	if md != nil && (md.Importance < 0 || md.Importance > 1) {
		return memory.NewError("UpdateRepresentations",
			fmt.Errorf("importance %v outside [0,1]: %w", md.Importance, memory.ErrValidation))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return memory.NewError("UpdateRepresentations", memory.ErrNotFound)
	}

	s.index.Remove(rec)
	if md != nil {
		rec.Metadata = md.Clone()
	}
	if sum != nil {
		rec.Summary = sum.Clone()
	}
	if emb != nil {
		rec.Embedding = emb.Clone()
	}
	s.index.Add(rec)

	return nil
}

// MetadataPatch is a typed add/remove delta applied by PatchMetadata.
type MetadataPatch struct {
	AddTopics           []string
	RemoveTopics        []string
	AddConcepts         []string
	RemoveConcepts      []string
	AddEntities         []memory.Entity
	RemoveEntities      []memory.Entity
	AddRelationships    []memory.Relationship
	RemoveRelationships []memory.Relationship

	// Importance, when non-nil, replaces the importance score.
	Importance *float64
}

// PatchMetadata applies an incremental metadata delta without touching
// content, summary, or embedding.
//
// This is the cheap update path used by lifecycle decay, so importance
// drift does not re-trigger representation pipelines.
func (s *Store) PatchMetadata(id string, patch MetadataPatch) error {
	if patch.Importance != nil && (*patch.Importance < 0 || *patch.Importance > 1) {
		return memory.NewError("PatchMetadata",
			fmt.Errorf("importance %v outside [0,1]: %w", *patch.Importance, memory.ErrValidation))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return memory.NewError("PatchMetadata", memory.ErrNotFound)
	}

	s.index.Remove(rec)

	md := rec.Metadata
	md.Topics = patchStrings(md.Topics, patch.AddTopics, patch.RemoveTopics)
	md.Concepts = patchStrings(md.Concepts, patch.AddConcepts, patch.RemoveConcepts)
	md.Entities = patchEntities(md.Entities, patch.AddEntities, patch.RemoveEntities)
	md.Relationships = patchRelationships(md.Relationships, patch.AddRelationships, patch.RemoveRelationships)
	if patch.Importance != nil {
		md.Importance = *patch.Importance
	}
	rec.Metadata = md

	s.index.Add(rec)
	return nil
}

func patchStrings(current, add, remove []string) []string {
	seen := make(map[string]struct{}, len(current))
	var out []string
	removed := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		removed[normKey(r)] = struct{}{}
	}
	for _, v := range append(append([]string{}, current...), add...) {
		key := normKey(v)
		if _, drop := removed[key]; drop {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

func patchEntities(current, add, remove []memory.Entity) []memory.Entity {
	seen := make(map[string]struct{}, len(current))
	removed := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		removed[index.EntityKey(r)] = struct{}{}
	}
	var out []memory.Entity
	for _, e := range append(append([]memory.Entity{}, current...), add...) {
		key := index.EntityKey(e)
		if _, drop := removed[key]; drop {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

func patchRelationships(current, add, remove []memory.Relationship) []memory.Relationship {
	seen := make(map[string]struct{}, len(current))
	removed := make(map[string]struct{}, len(remove))
	for _, r := range remove {
		removed[index.RelationshipKey(r)] = struct{}{}
	}
	var out []memory.Relationship
	for _, r := range append(append([]memory.Relationship{}, current...), add...) {
		key := index.RelationshipKey(r)
		if _, drop := removed[key]; drop {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

func normKey(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// Archive flags memories as archived: excluded from awareness scans but
// retained with their index entries for audit and restore.
//
// Unknown ids are a not-found error; no flags are changed in that case.
func (s *Store) Archive(ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.records[id]; !ok {
			return memory.NewError("Archive",
				fmt.Errorf("id %s: %w", id, memory.ErrNotFound))
		}
	}
	for _, id := range ids {
		s.records[id].Archived = true
	}
	return nil
}

// Restore clears the archived flag of the given memories.
func (s *Store) Restore(ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, ok := s.records[id]; !ok {
			return memory.NewError("Restore",
				fmt.Errorf("id %s: %w", id, memory.ErrNotFound))
		}
	}
	for _, id := range ids {
		s.records[id].Archived = false
	}
	return nil
}

// Delete purges a memory and its index entries.
//
// Returns false (not an error) if the id is absent.
func (s *Store) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false, nil
	}

	s.index.Remove(rec)
	delete(s.records, id)
	return true, nil
}

// ActiveMemories returns copies of all non-archived memories.
func (s *Store) ActiveMemories() []*memory.Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*memory.Memory, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Archived {
			continue
		}
		out = append(out, rec.Clone())
	}
	return out
}

// All returns copies of every memory, archived included.
func (s *Store) All() []*memory.Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*memory.Memory, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Len returns the number of stored memories, archived included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// SearchByTopics returns the memories tagged with any of the given topics.
func (s *Store) SearchByTopics(topics []string) ([]*memory.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve("SearchByTopics", s.index.SearchByTopics(topics))
}

// SearchByConcepts returns the memories tagged with any of the given
// concepts.
func (s *Store) SearchByConcepts(concepts []string) ([]*memory.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve("SearchByConcepts", s.index.SearchByConcepts(concepts))
}

// ComplexSearch intersects per-criterion index results (AND semantics) and
// resolves them to memories.
func (s *Store) ComplexSearch(c index.Criteria) ([]*memory.Memory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolve("ComplexSearch", s.index.ComplexSearch(c))
}

// resolve maps index hits to record copies. An indexed id missing from the
// arena is an add/remove pairing bug and fails loudly.
func (s *Store) resolve(op string, ids []string) ([]*memory.Memory, error) {
	out := make([]*memory.Memory, 0, len(ids))
	for _, id := range ids {
		rec, ok := s.records[id]
		if !ok {
			return nil, memory.NewError(op,
				fmt.Errorf("indexed id %s missing from store: %w", id, memory.ErrIndexInconsistent))
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}

// VerifyIndex checks every indexed id against the arena, failing loudly on
// inconsistency.
func (s *Store) VerifyIndex() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.index.Verify(func(id string) bool {
		_, ok := s.records[id]
		return ok
	})
}
