package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/memlens/memlens-go/pkg/decay"
	"github.com/memlens/memlens-go/pkg/memory"
	"github.com/memlens/memlens-go/pkg/persistence"
	"github.com/memlens/memlens-go/pkg/store"
)

// AutomationLevel controls how much of a maintenance run executes without
// human approval.
type AutomationLevel string

const (
	// AutomationManual only reports; nothing is executed.
	AutomationManual AutomationLevel = "manual"

	// AutomationSemiAutomatic executes low-risk, highly reversible actions
	// (archive, metadata updates) and reports the rest.
	AutomationSemiAutomatic AutomationLevel = "semi_automatic"

	// AutomationAutomatic executes archive and metadata actions regardless
	// of risk. Deletion still requires an explicit Execute call.
	AutomationAutomatic AutomationLevel = "automatic"
)

// importanceEpsilon is the smallest importance change worth persisting
// during a decay pass.
const importanceEpsilon = 1e-4

// ManagerConfig configures the lifecycle manager.
type ManagerConfig struct {
	// Automation gates execution during maintenance runs.
	Automation AutomationLevel `json:"automation"`

	// CapacityMB is the storage capacity used for pressure derivation when
	// no stats function is provided.
	CapacityMB float64 `json:"capacity_mb"`

	// Interval is the scheduler period. Zero disables the scheduler.
	Interval time.Duration `json:"interval"`
}

// DefaultManagerConfig returns a manual-automation config with a 512 MB
// capacity and hourly maintenance.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Automation: AutomationManual,
		CapacityMB: 512,
		Interval:   time.Hour,
	}
}

// Manager orchestrates the memory lifecycle: importance decay, archival
// analysis, pattern detection, and cleanup recommendation, with
// automation-gated execution.
//
// A Manager is safe for concurrent use. RunMaintenance may be called
// directly or driven by StartScheduler.
type Manager struct {
	cfg      ManagerConfig
	store    *store.Store
	archival *Archival
	cleanup  *Cleanup
	decaySet *decay.Set
	archive  persistence.ArchiveStore
	statsFn  func() StorageStats
	logger   *slog.Logger

	mu      sync.Mutex
	lastRun time.Time

	stopOnce sync.Once
	started  atomic.Bool
	stopCh   chan struct{}
	done     chan struct{}
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithArchiveStore sets the snapshot store used on archive and before
// delete. Without one, archive and delete execute without snapshots.
func WithArchiveStore(as persistence.ArchiveStore) ManagerOption {
	return func(m *Manager) { m.archive = as }
}

// WithStorageStats overrides how storage utilization is observed.
func WithStorageStats(fn func() StorageStats) ManagerOption {
	return func(m *Manager) { m.statsFn = fn }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithDecaySet overrides the per-context-type decay configurations.
func WithDecaySet(s *decay.Set) ManagerOption {
	return func(m *Manager) { m.decaySet = s }
}

// NewManager creates a lifecycle manager over a store. A zero-value config
// is replaced by the defaults.
func NewManager(st *store.Store, archival *Archival, cleanup *Cleanup, cfg ManagerConfig, opts ...ManagerOption) *Manager {
	if cfg == (ManagerConfig{}) {
		cfg = DefaultManagerConfig()
	}
	if cfg.Automation == "" {
		cfg.Automation = AutomationManual
	}
	m := &Manager{
		cfg:      cfg,
		store:    st,
		archival: archival,
		cleanup:  cleanup,
		decaySet: decay.DefaultSet(),
		logger:   slog.Default(),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.statsFn == nil {
		m.statsFn = m.estimatedStats
	}
	return m
}

// Automation returns the configured automation level.
func (m *Manager) Automation() AutomationLevel { return m.cfg.Automation }

// RunMaintenance performs one full maintenance pass:
//
//  1. decay importance of active memories
//  2. analyze archival candidates and detect pattern changes
//  3. apply automation-gated pattern follow-ups
//  4. derive storage pressure and generate cleanup recommendations
//  5. execute the recommendations the automation level allows
//
// The returned report describes everything that was found and done.
func (m *Manager) RunMaintenance(ctx context.Context) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	report := &Report{
		ID:        uuid.NewString(),
		StartedAt: now,
	}

	decayRes, err := m.applyDecay(now)
	if err != nil {
		return nil, memory.NewError("RunMaintenance", err)
	}
	report.DecayResults = decayRes

	active := m.store.ActiveMemories()
	report.ArchivalCandidates = m.archival.Analyze(active, now)
	report.PatternChanges = m.archival.DetectPatternChanges()

	if m.cfg.Automation != AutomationManual {
		m.applyPatternFollowUps(report.PatternChanges)
	}

	stats := m.statsFn()
	report.Pressure = m.cleanup.Pressure(stats)
	report.Recommendations = m.cleanup.Recommend(active, report.ArchivalCandidates, report.Pressure, now)

	if execable := m.executableNow(report.Recommendations); len(execable) > 0 {
		executed, err := m.execute(ctx, execable)
		if err != nil {
			return nil, memory.NewError("RunMaintenance", err)
		}
		report.Executed = executed
	}

	m.lastRun = now
	report.FinishedAt = time.Now()
	report.Summary = fmt.Sprintf(
		"decayed %d/%d memories, %d archival candidates, %d pattern changes, %d recommendations (%d executed) under %s pressure",
		decayRes.Updated, decayRes.Evaluated,
		len(report.ArchivalCandidates), len(report.PatternChanges),
		len(report.Recommendations), len(report.Executed), report.Pressure)

	m.logger.Info("maintenance run finished",
		"report_id", report.ID,
		"pressure", string(report.Pressure),
		"decayed", decayRes.Updated,
		"candidates", len(report.ArchivalCandidates),
		"recommendations", len(report.Recommendations),
		"executed", len(report.Executed))

	return report, nil
}

// applyDecay multiplies each active memory's importance by the decay
// factor for the interval since the previous run. The first run is a
// baseline and decays nothing.
func (m *Manager) applyDecay(now time.Time) (DecayResults, error) {
	var res DecayResults
	if m.lastRun.IsZero() {
		res.AverageFactor = 1.0
		return res, nil
	}

	intervalDays := now.Sub(m.lastRun).Hours() / 24
	if intervalDays < 0 {
		intervalDays = 0
	}
	cfg := m.decaySet.ForContextType(memory.ContextMixed)

	factorSum := 0.0
	for _, mem := range m.store.ActiveMemories() {
		res.Evaluated++
		factor, err := cfg.Factor(intervalDays)
		if err != nil {
			return res, fmt.Errorf("decay factor: %w", err)
		}
		factorSum += factor

		next := mem.Metadata.Importance * factor
		if math.Abs(next-mem.Metadata.Importance) < importanceEpsilon {
			continue
		}
		if err := m.store.PatchMetadata(mem.ID, store.MetadataPatch{Importance: &next}); err != nil {
			return res, fmt.Errorf("patch importance: %w", err)
		}
		res.Updated++
	}
	if res.Evaluated > 0 {
		res.AverageFactor = factorSum / float64(res.Evaluated)
	} else {
		res.AverageFactor = 1.0
	}
	return res, nil
}

// applyPatternFollowUps nudges importance for relevance shifts. Summary
// regeneration needs a representation provider and is left to the caller.
func (m *Manager) applyPatternFollowUps(changes []PatternChange) {
	for _, ch := range changes {
		if ch.SuggestedAction != FollowUpUpdateMetadata {
			continue
		}
		mem, err := m.store.Get(ch.MemoryID)
		if err != nil {
			m.logger.Warn("pattern follow-up skipped", "memory_id", ch.MemoryID, "error", err)
			continue
		}

		next := mem.Metadata.Importance
		switch ch.Kind {
		case PatternRelevanceIncrease:
			next = math.Min(1.0, next*1.1)
		case PatternRelevanceDecrease:
			next = math.Max(0.0, next*0.9)
		default:
			continue
		}
		if err := m.store.PatchMetadata(ch.MemoryID, store.MetadataPatch{Importance: &next}); err != nil {
			m.logger.Warn("pattern follow-up failed", "memory_id", ch.MemoryID, "error", err)
		}
	}
}

// executableNow filters recommendations down to what the automation level
// permits during a maintenance run. Deletion never executes here.
func (m *Manager) executableNow(recs []CleanupRecommendation) []CleanupRecommendation {
	var out []CleanupRecommendation
	for _, r := range recs {
		if r.Action != ActionArchive && r.Action != ActionUpdateMetadata {
			continue
		}
		switch m.cfg.Automation {
		case AutomationAutomatic:
			out = append(out, r)
		case AutomationSemiAutomatic:
			if r.RiskLevel == RiskLow {
				out = append(out, r)
			}
		}
	}
	return out
}

// Execute runs the given recommendations in execution order (priority
// descending, risk ascending) and returns the IDs of those that
// succeeded. Memories are snapshotted to the archive store before archive
// and delete when one is configured.
//
// Execute is the only path that deletes: maintenance runs never hard-delete
// regardless of automation level.
func (m *Manager) Execute(ctx context.Context, recs []CleanupRecommendation) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.execute(ctx, recs)
}

func (m *Manager) execute(ctx context.Context, recs []CleanupRecommendation) ([]string, error) {
	var executed []string
	for _, r := range ExecutionOrder(recs) {
		select {
		case <-ctx.Done():
			return executed, ctx.Err()
		default:
		}

		if err := m.executeOne(ctx, r); err != nil {
			m.logger.Warn("cleanup action failed",
				"recommendation_id", r.ID, "memory_id", r.MemoryID,
				"action", string(r.Action), "error", err)
			continue
		}
		executed = append(executed, r.ID)
	}
	return executed, nil
}

func (m *Manager) executeOne(ctx context.Context, r CleanupRecommendation) error {
	switch r.Action {
	case ActionArchive:
		if err := m.snapshot(ctx, r.MemoryID, r.Reasoning); err != nil {
			return err
		}
		return m.store.Archive(r.MemoryID)

	case ActionDelete:
		if err := m.snapshot(ctx, r.MemoryID, r.Reasoning); err != nil {
			return err
		}
		if _, err := m.store.Delete(r.MemoryID); err != nil {
			return err
		}
		m.archival.ForgetHistory(r.MemoryID)
		return nil

	case ActionUpdateMetadata:
		mem, err := m.store.Get(r.MemoryID)
		if err != nil {
			return err
		}
		cfg := m.decaySet.ForContextType(memory.ContextMixed)
		factor, err := cfg.Factor(mem.DaysSinceAccess(time.Now()))
		if err != nil {
			return err
		}
		next := mem.Metadata.Importance * factor
		return m.store.PatchMetadata(r.MemoryID, store.MetadataPatch{Importance: &next})

	case ActionNoAction:
		return nil

	default:
		// Compress and merge need a representation provider to rebuild
		// content; they stay recommendation-only.
		return fmt.Errorf("action %q requires manual handling: %w", r.Action, memory.ErrValidation)
	}
}

// snapshot saves the memory to the archive store when one is configured.
func (m *Manager) snapshot(ctx context.Context, id, reason string) error {
	if m.archive == nil {
		return nil
	}
	mem, err := m.store.Get(id)
	if err != nil {
		return err
	}
	return m.archive.Save(ctx, &persistence.ArchivedMemory{
		Memory:     mem,
		ArchivedAt: time.Now(),
		Reason:     reason,
	})
}

// Restore un-archives memories in the active store and drops their
// snapshots from the archive store.
func (m *Manager) Restore(ctx context.Context, ids ...string) error {
	if err := m.store.Restore(ids...); err != nil {
		return err
	}
	if m.archive == nil {
		return nil
	}
	for _, id := range ids {
		if err := m.archive.Delete(ctx, id); err != nil {
			m.logger.Warn("archive snapshot cleanup failed", "memory_id", id, "error", err)
		}
	}
	return nil
}

// StartScheduler launches a background goroutine that runs maintenance
// every config interval until Stop is called. It is a no-op when the
// interval is zero or negative, or when the scheduler is already running.
func (m *Manager) StartScheduler() {
	if m.cfg.Interval <= 0 {
		return
	}
	if !m.started.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(m.cfg.Interval)
		defer ticker.Stop()

		m.logger.Info("lifecycle scheduler started", "interval", m.cfg.Interval.String())
		for {
			select {
			case <-m.stopCh:
				m.logger.Info("lifecycle scheduler stopped")
				return
			case <-ticker.C:
				if _, err := m.RunMaintenance(context.Background()); err != nil {
					m.logger.Error("scheduled maintenance failed", "error", err)
				}
			}
		}
	}()
}

// Stop terminates the scheduler goroutine and waits for it to exit. It
// returns immediately when the scheduler never started. Safe to call
// multiple times.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	if !m.started.Load() {
		return
	}
	select {
	case <-m.done:
	case <-time.After(5 * time.Second):
	}
}

// estimatedStats derives utilization from the in-memory footprint of all
// records against the configured capacity.
func (m *Manager) estimatedStats() StorageStats {
	used := 0.0
	for _, mem := range m.store.All() {
		used += estimateSizeMB(mem)
	}
	return StorageStats{UsedMB: used, CapacityMB: m.cfg.CapacityMB}
}
