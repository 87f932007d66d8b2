package core

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/memlens/memlens-go/pkg/decay"
	"github.com/memlens/memlens-go/pkg/lifecycle"
	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/persistence"
	"github.com/memlens/memlens-go/pkg/persistence/oceanbase"
	"github.com/memlens/memlens-go/pkg/persistence/postgres"
	"github.com/memlens/memlens-go/pkg/persistence/sqlite"
	"github.com/memlens/memlens-go/pkg/representation"
	"github.com/memlens/memlens-go/pkg/representation/mock"
	openaiprov "github.com/memlens/memlens-go/pkg/representation/openai"
	"github.com/memlens/memlens-go/pkg/scoring"
	"github.com/memlens/memlens-go/pkg/similarity"
	"github.com/memlens/memlens-go/pkg/store"
	"github.com/memlens/memlens-go/pkg/threshold"
)

// relevanceMargin is the minimum lead the dominant similarity dimension
// needs over the runner-up before the relevance type is considered
// unambiguous.
const relevanceMargin = 0.1

// reinforcementBump is added to importance on explicit retrieval when
// reinforcement is enabled.
const reinforcementBump = 0.02

// Explanation reason thresholds: a dimension above strongContribution is
// called out as strong, above moderateContribution as moderate.
const (
	strongContribution   = 0.8
	moderateContribution = 0.6
)

// Client is the main entry point for memlens.
//
// It owns the in-memory store and coordinates representation generation,
// awareness scanning, explicit retrieval, threshold adaptation, and
// lifecycle management.
//
// Example:
//
//	client, err := core.NewClient(core.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	mem, _ := client.StoreMemory(ctx, "The user prefers TypeScript over JavaScript.")
//	awareness, _ := client.GetMemoryAwareness(ctx, memory.Context{Content: "Which language should I use?"})
type Client struct {
	mu sync.RWMutex

	cfg        *Config
	store      *store.Store
	provider   representation.Provider
	thresholds *threshold.Manager
	decaySet   *decay.Set
	weights    map[memory.ContextType]memory.ScoringWeights
	archival   *lifecycle.Archival
	manager    *lifecycle.Manager
	archive    persistence.ArchiveStore
	logger     *slog.Logger
}

// NewClient creates a new memlens client from a configuration.
//
// Parameters:
//   - cfg: Complete client configuration (nil uses DefaultConfig)
//
// Returns the client, or an error when the configuration is invalid or a
// backend fails to initialize. When a lifecycle interval is configured the
// maintenance scheduler starts immediately.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider, err := initProvider(cfg.Representation)
	if err != nil {
		return nil, err
	}

	archive, err := initArchive(cfg.Archive)
	if err != nil {
		return nil, err
	}

	thresholds := threshold.NewManager()
	for t, v := range cfg.Thresholds {
		if err := thresholds.Set(t, v); err != nil {
			return nil, err
		}
	}

	st, err := store.New()
	if err != nil {
		return nil, err
	}
	archival := lifecycle.NewArchival(lifecycle.ArchivalCriteria{})
	cleanup := lifecycle.NewCleanup(lifecycle.CleanupConfig{})
	logger := slog.Default().With("component", "memlens")

	var managerOpts []lifecycle.ManagerOption
	managerOpts = append(managerOpts, lifecycle.WithLogger(logger))
	if archive != nil {
		managerOpts = append(managerOpts, lifecycle.WithArchiveStore(archive))
	}
	manager := lifecycle.NewManager(st, archival, cleanup, lifecycle.ManagerConfig{
		Automation: cfg.Lifecycle.Automation,
		CapacityMB: cfg.Lifecycle.CapacityMB,
		Interval:   cfg.Lifecycle.Interval(),
	}, managerOpts...)

	client := &Client{
		cfg:        cfg,
		store:      st,
		provider:   provider,
		thresholds: thresholds,
		decaySet:   decay.DefaultSet(),
		weights:    make(map[memory.ContextType]memory.ScoringWeights),
		archival:   archival,
		manager:    manager,
		archive:    archive,
		logger:     logger,
	}

	if cfg.Lifecycle.Interval() > 0 {
		manager.StartScheduler()
	}
	return client, nil
}

func initProvider(cfg RepresentationConfig) (representation.Provider, error) {
	switch cfg.Provider {
	case "mock":
		return mock.New(cfg.Dimensions), nil
	case "openai":
		return openaiprov.NewClient(&openaiprov.Config{
			APIKey:     cfg.APIKey,
			ChatModel:  cfg.ChatModel,
			BaseURL:    cfg.BaseURL,
			Dimensions: cfg.Dimensions,
		})
	default:
		return nil, memory.NewError("initProvider",
			fmt.Errorf("unknown representation provider %q: %w", cfg.Provider, memory.ErrInvalidConfig))
	}
}

func initArchive(cfg ArchiveConfig) (persistence.ArchiveStore, error) {
	switch cfg.Provider {
	case "":
		return nil, nil
	case "sqlite":
		return sqlite.NewClient(&sqlite.Config{DBPath: cfg.DBPath, TableName: cfg.TableName})
	case "postgres":
		return postgres.NewClient(&postgres.Config{DSN: cfg.DSN, TableName: cfg.TableName})
	case "oceanbase":
		return oceanbase.NewClient(&oceanbase.Config{DSN: cfg.DSN, TableName: cfg.TableName})
	default:
		return nil, memory.NewError("initArchive",
			fmt.Errorf("unknown archive provider %q: %w", cfg.Provider, memory.ErrInvalidConfig))
	}
}

// StoreMemory generates a representation for the content and stores it as
// a new memory.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - content: The raw text to remember
//
// Returns the stored memory (including its generated ID), or an error when
// representation generation or validation fails.
func (c *Client) StoreMemory(ctx context.Context, content string) (*memory.Memory, error) {
	rep, err := c.provider.Generate(ctx, content)
	if err != nil {
		return nil, err
	}
	if err := representation.Validate(rep); err != nil {
		return nil, err
	}

	m := &memory.Memory{
		Content:   content,
		Timestamp: time.Now(),
		Metadata:  rep.Metadata,
		Summary:   rep.Summary,
		Embedding: rep.Embedding,
	}
	id, err := c.store.Put(m)
	if err != nil {
		return nil, err
	}
	m.ID = id

	c.logger.Debug("memory stored", "memory_id", id, "topics", m.Metadata.Topics)
	return m, nil
}

// PutMemory stores a fully-formed memory whose representations were
// produced elsewhere. An empty ID gets one generated.
func (c *Client) PutMemory(_ context.Context, m *memory.Memory) (string, error) {
	return c.store.Put(m)
}

// GetMemoryAwareness scans active memories against the presented context
// and returns awareness entries for those whose activation meets the
// context type's threshold, sorted by activation descending.
//
// The returned entries never carry memory content; use
// RequestMemoryRetrieval to obtain it.
func (c *Client) GetMemoryAwareness(ctx context.Context, qctx memory.Context, opts ...AwarenessOption) ([]memory.Awareness, error) {
	options := applyAwarenessOptions(opts)

	scored, ctxType, err := c.scan(ctx, qctx, options)
	if err != nil {
		return nil, err
	}

	gate := c.thresholds.Get(ctxType)
	var out []memory.Awareness
	for _, s := range scored {
		if s.activation >= gate {
			out = append(out, s.awareness())
		}
	}
	if options.MaxResults > 0 && len(out) > options.MaxResults {
		out = out[:options.MaxResults]
	}
	return out, nil
}

// GetAllCandidateMemories returns awareness entries for every active
// memory regardless of threshold, sorted by activation descending. It is
// the diagnostic, ungated variant of GetMemoryAwareness.
func (c *Client) GetAllCandidateMemories(ctx context.Context, qctx memory.Context, opts ...AwarenessOption) ([]memory.Awareness, error) {
	options := applyAwarenessOptions(opts)

	scored, _, err := c.scan(ctx, qctx, options)
	if err != nil {
		return nil, err
	}

	out := make([]memory.Awareness, 0, len(scored))
	for _, s := range scored {
		out = append(out, s.awareness())
	}
	if options.MaxResults > 0 && len(out) > options.MaxResults {
		out = out[:options.MaxResults]
	}
	return out, nil
}

// ExplainRelevance recomputes the full scoring breakdown of one memory
// against a context: per-dimension similarities, the combined activation,
// the applied threshold, and human-readable reasons.
func (c *Client) ExplainRelevance(ctx context.Context, memoryID string, qctx memory.Context) (*memory.RelevanceExplanation, error) {
	m, err := c.store.Get(memoryID)
	if err != nil {
		return nil, err
	}

	qctx, err = c.completeContext(ctx, qctx)
	if err != nil {
		return nil, err
	}
	ctxType := ClassifyContextType(qctx)

	s, err := c.scoreOne(qctx, m, c.weightsFor(ctxType), c.decayFor(ctxType), time.Now())
	if err != nil {
		return nil, err
	}

	gate := c.thresholds.Get(ctxType)
	expl := &memory.RelevanceExplanation{
		MemoryID:        memoryID,
		ContextType:     ctxType,
		Scores:          s.scores,
		ActivationScore: s.activation,
		Threshold:       gate,
		AboveThreshold:  s.activation >= gate,
		RelevanceType:   s.relevance,
		Confidence:      s.confidence,
		Reasons:         explainReasons(s, gate),
	}
	return expl, nil
}

// RequestMemoryRetrieval returns the full memory (content included) and
// records the access: the access count is bumped and, when reinforcement
// is enabled, importance is nudged upward.
//
// This is the only sanctioned path from an awareness entry to content.
func (c *Client) RequestMemoryRetrieval(_ context.Context, memoryID string) (*memory.Memory, error) {
	if err := c.store.Touch(memoryID); err != nil {
		return nil, err
	}
	m, err := c.store.Get(memoryID)
	if err != nil {
		return nil, err
	}

	if c.reinforcementEnabled() {
		next := math.Min(1.0, m.Metadata.Importance+reinforcementBump)
		if next != m.Metadata.Importance {
			if err := c.store.PatchMetadata(memoryID, store.MetadataPatch{Importance: &next}); err != nil {
				return nil, err
			}
			m.Metadata.Importance = next
		}
	}
	return m, nil
}

// RequestSelectiveRetrieval scores active memories against the context and
// returns full memories filtered by the retrieval options: minimum score,
// relevance type, ranking strategy, diversity, and result cap.
//
// Every returned memory counts as an explicit retrieval (access bump and
// optional reinforcement).
func (c *Client) RequestSelectiveRetrieval(ctx context.Context, qctx memory.Context, opts ...RetrievalOption) ([]*memory.Memory, error) {
	options := RetrievalOptions{Strategy: scoring.StrategyActivation}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Strategy == "" {
		options.Strategy = scoring.StrategyActivation
	}

	scored, _, err := c.scan(ctx, qctx, AwarenessOptions{})
	if err != nil {
		return nil, err
	}

	var cands []scoring.Candidate
	byID := make(map[string]scoredMemory, len(scored))
	for _, s := range scored {
		if s.activation < options.MinScore {
			continue
		}
		if options.RelevanceType != "" && s.relevance != options.RelevanceType {
			continue
		}
		cands = append(cands, scoring.Candidate{Memory: s.mem, Activation: s.activation})
		byID[s.mem.ID] = s
	}

	ranked, err := scoring.Rank(cands, options.Strategy, time.Now())
	if err != nil {
		return nil, err
	}

	if options.DiversityPenalty > 0 {
		ranked = diversify(ranked, options.DiversityPenalty)
	}
	if options.MaxResults > 0 && len(ranked) > options.MaxResults {
		ranked = ranked[:options.MaxResults]
	}

	out := make([]*memory.Memory, 0, len(ranked))
	for _, cand := range ranked {
		m, err := c.RequestMemoryRetrieval(ctx, cand.Memory.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// RuntimeUpdate is an all-or-nothing configuration change applied to a
// running client.
type RuntimeUpdate struct {
	// Thresholds replaces activation thresholds for the named context
	// types.
	Thresholds map[memory.ContextType]float64 `json:"thresholds,omitempty"`

	// Weights overrides the preset scoring weights for the named context
	// types. Overrides are normalized at scoring time like presets.
	Weights map[memory.ContextType]memory.ScoringWeights `json:"weights,omitempty"`

	// Decay replaces the decay configuration for the named context types.
	Decay map[memory.ContextType]decay.Config `json:"decay,omitempty"`

	// ArchivalCriteria replaces the archival criteria.
	ArchivalCriteria *lifecycle.ArchivalCriteria `json:"archival_criteria,omitempty"`

	// ReinforcementEnabled toggles retrieval reinforcement.
	ReinforcementEnabled *bool `json:"reinforcement_enabled,omitempty"`
}

// UpdateConfiguration applies a runtime update atomically: everything is
// validated first, and on any validation failure nothing changes.
func (c *Client) UpdateConfiguration(update RuntimeUpdate) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for t, v := range update.Thresholds {
		if !validContextType(t) {
			return memory.NewError("UpdateConfiguration",
				fmt.Errorf("unknown context type %q: %w", t, memory.ErrValidation))
		}
		if v < threshold.MinThreshold || v > threshold.MaxThreshold {
			return memory.NewError("UpdateConfiguration",
				fmt.Errorf("threshold %v for %q outside [%v, %v]: %w",
					v, t, threshold.MinThreshold, threshold.MaxThreshold, memory.ErrValidation))
		}
	}
	for t, w := range update.Weights {
		if !validContextType(t) {
			return memory.NewError("UpdateConfiguration",
				fmt.Errorf("unknown context type %q: %w", t, memory.ErrValidation))
		}
		if _, err := scoring.NormalizeWeights(w); err != nil {
			return memory.NewError("UpdateConfiguration",
				fmt.Errorf("weights for %q: %w", t, err))
		}
	}
	for t, dcfg := range update.Decay {
		if !validContextType(t) {
			return memory.NewError("UpdateConfiguration",
				fmt.Errorf("unknown context type %q: %w", t, memory.ErrValidation))
		}
		if err := dcfg.Validate(); err != nil {
			return memory.NewError("UpdateConfiguration",
				fmt.Errorf("decay for %q: %w", t, err))
		}
	}
	if crit := update.ArchivalCriteria; crit != nil {
		if crit.MinActivation < 0 || crit.MinActivation > 1 ||
			crit.MaxDaysSinceAccess < 0 || crit.MinAccessCount < 0 ||
			crit.LowScoreWindow < 0 || crit.LowScoreCeiling < 0 || crit.LowScoreCeiling > 1 {
			return memory.NewError("UpdateConfiguration",
				fmt.Errorf("invalid archival criteria: %w", memory.ErrValidation))
		}
	}

	for t, v := range update.Thresholds {
		if err := c.thresholds.Set(t, v); err != nil {
			return err
		}
	}
	for t, w := range update.Weights {
		c.weights[t] = w
	}
	if len(update.Decay) > 0 {
		next := c.decaySet.Clone()
		for t, dcfg := range update.Decay {
			if err := next.Set(t, dcfg); err != nil {
				return err
			}
		}
		c.decaySet = next
	}
	if update.ArchivalCriteria != nil {
		c.archival.SetCriteria(*update.ArchivalCriteria)
	}
	if update.ReinforcementEnabled != nil {
		c.cfg.ReinforcementEnabled = *update.ReinforcementEnabled
	}
	return nil
}

// AdaptThresholds feeds usage analytics into threshold adaptation and then
// enforces cross-type consistency. All resulting adjustments are returned
// in order.
func (c *Client) AdaptThresholds(analytics memory.UsageAnalytics) ([]threshold.Adjustment, error) {
	adjustments, err := c.thresholds.Adapt(analytics)
	if err != nil {
		return nil, err
	}
	adjustments = append(adjustments, c.thresholds.EnforceConsistency()...)
	return adjustments, nil
}

// Thresholds returns the current activation thresholds per context type.
func (c *Client) Thresholds() map[memory.ContextType]float64 {
	return c.thresholds.Snapshot()
}

// ThresholdHistory returns the recorded threshold adjustments, oldest
// first.
func (c *Client) ThresholdHistory() []threshold.Adjustment {
	return c.thresholds.History()
}

// RunLifecycle performs one maintenance run and returns its report.
func (c *Client) RunLifecycle(ctx context.Context) (*lifecycle.Report, error) {
	return c.manager.RunMaintenance(ctx)
}

// ExecuteRecommendations executes cleanup recommendations, including
// deletions, and returns the IDs of those that succeeded.
func (c *Client) ExecuteRecommendations(ctx context.Context, recs []lifecycle.CleanupRecommendation) ([]string, error) {
	return c.manager.Execute(ctx, recs)
}

// ArchiveMemory soft-removes a memory from awareness scans.
func (c *Client) ArchiveMemory(ctx context.Context, id string) error {
	if c.archive != nil {
		m, err := c.store.Get(id)
		if err != nil {
			return err
		}
		if err := c.archive.Save(ctx, &persistence.ArchivedMemory{
			Memory:     m,
			ArchivedAt: time.Now(),
			Reason:     "manual archive",
		}); err != nil {
			return err
		}
	}
	return c.store.Archive(id)
}

// RestoreMemory returns an archived memory to active scanning.
func (c *Client) RestoreMemory(ctx context.Context, id string) error {
	return c.manager.Restore(ctx, id)
}

// DeleteMemory hard-deletes a memory. Deleting an absent memory is not an
// error; the returned bool reports whether anything was removed.
func (c *Client) DeleteMemory(_ context.Context, id string) (bool, error) {
	removed, err := c.store.Delete(id)
	if err != nil {
		return false, err
	}
	if removed {
		c.archival.ForgetHistory(id)
	}
	return removed, nil
}

// GetMemory returns a memory by ID without counting an access.
func (c *Client) GetMemory(_ context.Context, id string) (*memory.Memory, error) {
	return c.store.Get(id)
}

// Len returns the number of stored memories, archived included.
func (c *Client) Len() int {
	return c.store.Len()
}

// Close stops the lifecycle scheduler and releases provider and archive
// resources.
func (c *Client) Close() error {
	c.manager.Stop()

	var firstErr error
	if err := c.provider.Close(); err != nil {
		firstErr = err
	}
	if c.archive != nil {
		if err := c.archive.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (c *Client) reinforcementEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg.ReinforcementEnabled
}

// weightsFor returns the runtime weight override for a context type, or
// the preset weights when none is set.
func (c *Client) weightsFor(t memory.ContextType) memory.ScoringWeights {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if w, ok := c.weights[t]; ok {
		return w
	}
	return scoring.PresetWeights(t)
}

// decayFor returns the current decay configuration for a context type.
func (c *Client) decayFor(t memory.ContextType) decay.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.decaySet.ForContextType(t)
}

// scoredMemory is one memory scored against a context.
type scoredMemory struct {
	mem        *memory.Memory
	scores     memory.SimilarityScores
	activation float64
	relevance  memory.RelevanceType
	confidence float64
}

func (s scoredMemory) awareness() memory.Awareness {
	return memory.Awareness{
		MemoryID:        s.mem.ID,
		ActivationScore: s.activation,
		RelevanceType:   s.relevance,
		Summary:         s.mem.Summary,
		Confidence:      s.confidence,
	}
}

// scan scores every active memory against the context, records the
// activations for pattern detection, and returns the results sorted by
// activation descending along with the classified context type.
func (c *Client) scan(ctx context.Context, qctx memory.Context, options AwarenessOptions) ([]scoredMemory, memory.ContextType, error) {
	qctx, err := c.completeContext(ctx, qctx)
	if err != nil {
		return nil, "", err
	}

	ctxType := options.ContextType
	if ctxType == "" {
		ctxType = ClassifyContextType(qctx)
	}

	weights := c.weightsFor(ctxType)
	if options.Weights != nil {
		weights = *options.Weights
	}
	dcfg := c.decayFor(ctxType)

	now := time.Now()
	active := c.store.ActiveMemories()
	scored := make([]scoredMemory, 0, len(active))
	for _, m := range active {
		s, err := c.scoreOne(qctx, m, weights, dcfg, now)
		if err != nil {
			return nil, "", err
		}
		c.archival.RecordActivation(m.ID, s.activation, now)
		scored = append(scored, s)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].activation > scored[j].activation
	})
	return scored, ctxType, nil
}

// completeContext fills in a missing context embedding (and empty metadata
// and summary) by running the context content through the representation
// provider. A caller-declared Intent is always preserved.
func (c *Client) completeContext(ctx context.Context, qctx memory.Context) (memory.Context, error) {
	if len(qctx.Embedding.Vector) > 0 || qctx.Content == "" {
		return qctx, nil
	}

	rep, err := c.provider.Generate(ctx, qctx.Content)
	if err != nil {
		return qctx, err
	}

	intent := qctx.Metadata.Intent
	if len(qctx.Metadata.Topics) == 0 && len(qctx.Metadata.Concepts) == 0 {
		qctx.Metadata = rep.Metadata
		qctx.Metadata.Intent = intent
	}
	if qctx.Summary.Content == "" {
		qctx.Summary = rep.Summary
	}
	qctx.Embedding = rep.Embedding
	return qctx, nil
}

func (c *Client) scoreOne(qctx memory.Context, m *memory.Memory, weights memory.ScoringWeights, dcfg decay.Config, now time.Time) (scoredMemory, error) {
	var scores memory.SimilarityScores

	if len(qctx.Embedding.Vector) > 0 && len(m.Embedding.Vector) > 0 {
		sim, err := similarity.Embedding(qctx.Embedding, m.Embedding)
		if err != nil {
			return scoredMemory{}, err
		}
		scores.EmbeddingSimilarity = sim
	}
	scores.MetadataSimilarity = similarity.Metadata(qctx.Metadata, m.Metadata)
	scores.SummarySimilarity = similarity.Summary(qctx.Summary, m.Summary)

	age := m.Age(now)
	if age < 0 {
		age = 0
	}
	factor, err := dcfg.Factor(age)
	if err != nil {
		return scoredMemory{}, err
	}
	scores.TemporalRelevance = factor

	activation, err := scoring.Activation(scores, weights)
	if err != nil {
		return scoredMemory{}, err
	}

	return scoredMemory{
		mem:        m,
		scores:     scores,
		activation: activation,
		relevance:  dominantRelevance(scores),
		confidence: scoreConfidence(scores),
	}, nil
}

// dominantRelevance maps the similarity breakdown to a relevance type:
// the strongest dimension wins unless its lead over the runner-up is
// within relevanceMargin, in which case the relevance is mixed.
func dominantRelevance(s memory.SimilarityScores) memory.RelevanceType {
	semantic := similarity.ClampUnit(s.EmbeddingSimilarity)
	contextual := math.Max(s.MetadataSimilarity, s.SummarySimilarity)
	temporal := s.TemporalRelevance

	type dim struct {
		t memory.RelevanceType
		v float64
	}
	dims := []dim{
		{memory.RelevanceSemantic, semantic},
		{memory.RelevanceContextual, contextual},
		{memory.RelevanceTemporal, temporal},
	}
	sort.SliceStable(dims, func(i, j int) bool { return dims[i].v > dims[j].v })

	if dims[0].v-dims[1].v < relevanceMargin {
		return memory.RelevanceMixed
	}
	return dims[0].t
}

// scoreConfidence expresses cross-dimension agreement: the mean of the
// four dimensions, discounted by their spread.
func scoreConfidence(s memory.SimilarityScores) float64 {
	vals := []float64{
		similarity.ClampUnit(s.EmbeddingSimilarity),
		s.MetadataSimilarity,
		s.SummarySimilarity,
		s.TemporalRelevance,
	}

	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))

	variance := 0.0
	for _, v := range vals {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(vals))

	return similarity.ClampUnit(mean * (1 - math.Sqrt(variance)))
}

func explainReasons(s scoredMemory, gate float64) []string {
	var reasons []string

	describe := func(name string, v float64) {
		switch {
		case v >= strongContribution:
			reasons = append(reasons, fmt.Sprintf("strong %s similarity (%.2f)", name, v))
		case v >= moderateContribution:
			reasons = append(reasons, fmt.Sprintf("moderate %s similarity (%.2f)", name, v))
		}
	}
	describe("embedding", similarity.ClampUnit(s.scores.EmbeddingSimilarity))
	describe("metadata", s.scores.MetadataSimilarity)
	describe("summary", s.scores.SummarySimilarity)
	describe("temporal", s.scores.TemporalRelevance)

	if len(reasons) == 0 {
		reasons = append(reasons, "no similarity dimension contributed strongly")
	}
	if s.activation >= gate {
		reasons = append(reasons, fmt.Sprintf("activation %.2f meets threshold %.2f", s.activation, gate))
	} else {
		reasons = append(reasons, fmt.Sprintf("activation %.2f below threshold %.2f", s.activation, gate))
	}
	return reasons
}

// diversify greedily reorders ranked candidates, penalizing each remaining
// candidate by its topic and entity overlap with the already-selected set.
func diversify(ranked []scoring.Candidate, penalty float64) []scoring.Candidate {
	if len(ranked) <= 1 {
		return ranked
	}

	remaining := append([]scoring.Candidate(nil), ranked...)
	out := make([]scoring.Candidate, 0, len(ranked))

	for len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)
		for i, cand := range remaining {
			score := cand.Activation
			for _, sel := range out {
				score -= penalty * similarity.Overlap(cand.Memory.Metadata, sel.Memory.Metadata)
			}
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		out = append(out, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return out
}

func applyAwarenessOptions(opts []AwarenessOption) AwarenessOptions {
	var options AwarenessOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
