// Package index maintains inverted indexes over memory metadata.
//
// The Indexer owns six maps from feature to set of memory ids: topic,
// concept, entity, relationship, time bucket (day), and importance decile.
// Add and Remove must be called symmetrically around every metadata change;
// the index sets must always equal the union of current memories' metadata
// fields. The indexer has no side effects beyond the six maps and performs
// no I/O.
package index

import (
	"fmt"
	"strings"
	"time"

	"github.com/memlens/memlens-go/pkg/memory"
)

// idSet is a set of memory ids.
type idSet map[string]struct{}

// Indexer maintains the six inverted indexes.
//
// Indexer is not safe for concurrent use; the owning store serializes
// access.
type Indexer struct {
	topics        map[string]idSet
	concepts      map[string]idSet
	entities      map[string]idSet
	relationships map[string]idSet
	timeBuckets   map[string]idSet
	importance    map[int]idSet
}

// NewIndexer creates an empty Indexer.
func NewIndexer() *Indexer {
	return &Indexer{
		topics:        make(map[string]idSet),
		concepts:      make(map[string]idSet),
		entities:      make(map[string]idSet),
		relationships: make(map[string]idSet),
		timeBuckets:   make(map[string]idSet),
		importance:    make(map[int]idSet),
	}
}

// EntityKey returns the normalized "type:name" key for an entity.
//
// Entities are compared by normalized name and type, never by identity.
func EntityKey(e memory.Entity) string {
	return normalize(e.Type) + ":" + normalize(e.Name)
}

// RelationshipKey returns the normalized "source:type:target" key for a
// relationship.
func RelationshipKey(r memory.Relationship) string {
	return normalize(r.Source) + ":" + normalize(r.Type) + ":" + normalize(r.Target)
}

// DayBucket returns the UTC day bucket for a timestamp.
func DayBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ImportanceDecile maps an importance score in [0,1] to a decile 0-9.
func ImportanceDecile(importance float64) int {
	d := int(importance * 10)
	if d > 9 {
		d = 9
	}
	if d < 0 {
		d = 0
	}
	return d
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Add indexes a memory under every feature derived from its metadata.
func (ix *Indexer) Add(m *memory.Memory) {
	for _, t := range m.Metadata.Topics {
		addTo(ix.topics, normalize(t), m.ID)
	}
	for _, c := range m.Metadata.Concepts {
		addTo(ix.concepts, normalize(c), m.ID)
	}
	for _, e := range m.Metadata.Entities {
		addTo(ix.entities, EntityKey(e), m.ID)
	}
	for _, r := range m.Metadata.Relationships {
		addTo(ix.relationships, RelationshipKey(r), m.ID)
	}
	addTo(ix.timeBuckets, DayBucket(m.Timestamp), m.ID)
	addToInt(ix.importance, ImportanceDecile(m.Metadata.Importance), m.ID)
}

// Remove drops a memory from every feature bucket derived from its
// metadata. Empty buckets are deleted, never left dangling.
//
// Remove must be called with the memory's metadata as it was indexed;
// callers bracket every metadata mutation with a Remove/Add pair.
func (ix *Indexer) Remove(m *memory.Memory) {
	for _, t := range m.Metadata.Topics {
		removeFrom(ix.topics, normalize(t), m.ID)
	}
	for _, c := range m.Metadata.Concepts {
		removeFrom(ix.concepts, normalize(c), m.ID)
	}
	for _, e := range m.Metadata.Entities {
		removeFrom(ix.entities, EntityKey(e), m.ID)
	}
	for _, r := range m.Metadata.Relationships {
		removeFrom(ix.relationships, RelationshipKey(r), m.ID)
	}
	removeFrom(ix.timeBuckets, DayBucket(m.Timestamp), m.ID)
	removeFromInt(ix.importance, ImportanceDecile(m.Metadata.Importance), m.ID)
}

func addTo(m map[string]idSet, key, id string) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set[id] = struct{}{}
}

func addToInt(m map[int]idSet, key int, id string) {
	set, ok := m[key]
	if !ok {
		set = make(idSet)
		m[key] = set
	}
	set[id] = struct{}{}
}

func removeFrom(m map[string]idSet, key, id string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}

func removeFromInt(m map[int]idSet, key int, id string) {
	set, ok := m[key]
	if !ok {
		return
	}
	delete(set, id)
	if len(set) == 0 {
		delete(m, key)
	}
}

// SearchByTopics returns the ids of memories tagged with any of the given
// topics.
func (ix *Indexer) SearchByTopics(topics []string) []string {
	return union(ix.topics, topics, normalize)
}

// SearchByConcepts returns the ids of memories tagged with any of the
// given concepts.
func (ix *Indexer) SearchByConcepts(concepts []string) []string {
	return union(ix.concepts, concepts, normalize)
}

// SearchByEntities returns the ids of memories mentioning any of the given
// entities (matched by normalized type and name).
func (ix *Indexer) SearchByEntities(entities []memory.Entity) []string {
	keys := make([]string, len(entities))
	for i, e := range entities {
		keys[i] = EntityKey(e)
	}
	return union(ix.entities, keys, func(s string) string { return s })
}

// SearchByRelationships returns the ids of memories carrying any of the
// given relationships (matched by normalized source, type, and target).
func (ix *Indexer) SearchByRelationships(rels []memory.Relationship) []string {
	keys := make([]string, len(rels))
	for i, r := range rels {
		keys[i] = RelationshipKey(r)
	}
	return union(ix.relationships, keys, func(s string) string { return s })
}

// SearchByTimeRange returns the ids of memories created within [from, to].
func (ix *Indexer) SearchByTimeRange(from, to time.Time) []string {
	result := make(idSet)
	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to); day = day.Add(24 * time.Hour) {
		for id := range ix.timeBuckets[DayBucket(day)] {
			result[id] = struct{}{}
		}
	}
	return setToSlice(result)
}

// SearchByImportanceRange returns the ids of memories whose importance
// decile falls within the deciles spanned by [min, max].
func (ix *Indexer) SearchByImportanceRange(min, max float64) []string {
	result := make(idSet)
	for d := ImportanceDecile(min); d <= ImportanceDecile(max); d++ {
		for id := range ix.importance[d] {
			result[id] = struct{}{}
		}
	}
	return setToSlice(result)
}

func union(m map[string]idSet, keys []string, norm func(string) string) []string {
	result := make(idSet)
	for _, k := range keys {
		for id := range m[norm(k)] {
			result[id] = struct{}{}
		}
	}
	return setToSlice(result)
}

func setToSlice(s idSet) []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}

// TimeRange bounds a ComplexSearch criterion on creation time.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// ImportanceRange bounds a ComplexSearch criterion on importance.
type ImportanceRange struct {
	Min float64
	Max float64
}

// Criteria is the multi-criterion query evaluated by ComplexSearch.
//
// An absent (zero) criterion is ignored, not treated as "match nothing".
type Criteria struct {
	Topics          []string
	Concepts        []string
	Entities        []memory.Entity
	Relationships   []memory.Relationship
	TimeRange       *TimeRange
	ImportanceRange *ImportanceRange
}

// ComplexSearch intersects the per-criterion result sets (AND semantics).
//
// When no criterion is present, every indexed memory matches: every memory
// occupies a time bucket, so the union of the time-bucket index is the full
// id universe.
func (ix *Indexer) ComplexSearch(c Criteria) []string {
	var sets [][]string

	if len(c.Topics) > 0 {
		sets = append(sets, ix.SearchByTopics(c.Topics))
	}
	if len(c.Concepts) > 0 {
		sets = append(sets, ix.SearchByConcepts(c.Concepts))
	}
	if len(c.Entities) > 0 {
		sets = append(sets, ix.SearchByEntities(c.Entities))
	}
	if len(c.Relationships) > 0 {
		sets = append(sets, ix.SearchByRelationships(c.Relationships))
	}
	if c.TimeRange != nil {
		sets = append(sets, ix.SearchByTimeRange(c.TimeRange.From, c.TimeRange.To))
	}
	if c.ImportanceRange != nil {
		sets = append(sets, ix.SearchByImportanceRange(c.ImportanceRange.Min, c.ImportanceRange.Max))
	}

	if len(sets) == 0 {
		return ix.allIDs()
	}

	result := make(idSet)
	for _, id := range sets[0] {
		result[id] = struct{}{}
	}
	for _, set := range sets[1:] {
		next := make(idSet)
		for _, id := range set {
			if _, ok := result[id]; ok {
				next[id] = struct{}{}
			}
		}
		result = next
	}
	return setToSlice(result)
}

func (ix *Indexer) allIDs() []string {
	result := make(idSet)
	for _, set := range ix.timeBuckets {
		for id := range set {
			result[id] = struct{}{}
		}
	}
	return setToSlice(result)
}

// Verify checks that every indexed id satisfies the exists predicate.
//
// A failure means an Add/Remove pairing bug and returns
// memory.ErrIndexInconsistent naming the offending bucket.
func (ix *Indexer) Verify(exists func(id string) bool) error {
	check := func(kind, key string, set idSet) error {
		for id := range set {
			if !exists(id) {
				return memory.NewError("Verify",
					fmt.Errorf("%s bucket %q holds unknown id %s: %w", kind, key, id, memory.ErrIndexInconsistent))
			}
		}
		return nil
	}

	for key, set := range ix.topics {
		if err := check("topic", key, set); err != nil {
			return err
		}
	}
	for key, set := range ix.concepts {
		if err := check("concept", key, set); err != nil {
			return err
		}
	}
	for key, set := range ix.entities {
		if err := check("entity", key, set); err != nil {
			return err
		}
	}
	for key, set := range ix.relationships {
		if err := check("relationship", key, set); err != nil {
			return err
		}
	}
	for key, set := range ix.timeBuckets {
		if err := check("time", key, set); err != nil {
			return err
		}
	}
	for key, set := range ix.importance {
		if err := check("importance", fmt.Sprintf("%d", key), set); err != nil {
			return err
		}
	}
	return nil
}

// BucketCounts reports the number of non-empty buckets per index, useful
// for diagnostics.
func (ix *Indexer) BucketCounts() map[string]int {
	return map[string]int{
		"topics":        len(ix.topics),
		"concepts":      len(ix.concepts),
		"entities":      len(ix.entities),
		"relationships": len(ix.relationships),
		"time_buckets":  len(ix.timeBuckets),
		"importance":    len(ix.importance),
	}
}
