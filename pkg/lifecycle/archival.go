package lifecycle

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/memlens/memlens-go/pkg/memory"
)

// historyWindow bounds the per-memory activation history kept for pattern
// detection.
const historyWindow = 20

// Pattern detection constants.
const (
	// patternMinObservations is the minimum history length before any
	// pattern is reported.
	patternMinObservations = 6

	// patternRecentCount is how many trailing observations form the
	// "recent" window.
	patternRecentCount = 3

	// increaseRatio and decreaseRatio bound the recent/historical average
	// ratio for relevance shifts.
	increaseRatio = 1.5
	decreaseRatio = 0.5

	// shiftStdDev is the recent standard deviation above which a context
	// shift is reported.
	shiftStdDev = 0.25
)

type observation struct {
	score float64
	at    time.Time
}

// Archival analyzes memories against archival criteria and detects
// relevance pattern changes from the recorded activation history.
//
// Archival is safe for concurrent use: awareness scans record activations
// while maintenance runs analyze them.
type Archival struct {
	mu       sync.RWMutex
	criteria ArchivalCriteria
	history  map[string][]observation
}

// NewArchival creates an Archival analyzer. A zero-value criteria is
// replaced by the defaults.
func NewArchival(criteria ArchivalCriteria) *Archival {
	if criteria == (ArchivalCriteria{}) {
		criteria = DefaultArchivalCriteria()
	}
	return &Archival{
		criteria: criteria,
		history:  make(map[string][]observation),
	}
}

// Criteria returns the active criteria.
func (a *Archival) Criteria() ArchivalCriteria {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.criteria
}

// SetCriteria replaces the active criteria.
func (a *Archival) SetCriteria(c ArchivalCriteria) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.criteria = c
}

// RecordActivation appends a scored awareness observation for a memory.
// The per-memory history is bounded; old observations roll off.
func (a *Archival) RecordActivation(id string, score float64, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	h := append(a.history[id], observation{score: score, at: at})
	if len(h) > historyWindow {
		h = h[len(h)-historyWindow:]
	}
	a.history[id] = h
}

// ForgetHistory drops the recorded history of a memory, used after hard
// deletion.
func (a *Archival) ForgetHistory(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.history, id)
}

// Analyze scores each memory against the archival criteria and flags
// candidates with human-readable reasons.
//
// A memory is flagged when at least half of the evaluated criteria match.
func (a *Archival) Analyze(mems []*memory.Memory, now time.Time) []ArchivalCandidate {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var candidates []ArchivalCandidate
	for _, m := range mems {
		reasons, evaluated := a.evaluate(m, now)
		if evaluated == 0 {
			continue
		}
		score := float64(len(reasons)) / float64(evaluated)
		if score >= 0.5 && len(reasons) > 0 {
			candidates = append(candidates, ArchivalCandidate{
				MemoryID: m.ID,
				Score:    score,
				Reasons:  reasons,
			})
		}
	}
	return candidates
}

func (a *Archival) evaluate(m *memory.Memory, now time.Time) (reasons []string, evaluated int) {
	history := a.history[m.ID]

	// Recent average activation.
	if len(history) > 0 {
		evaluated++
		avg := 0.0
		for _, o := range history {
			avg += o.score
		}
		avg /= float64(len(history))
		if avg < a.criteria.MinActivation {
			reasons = append(reasons,
				fmt.Sprintf("average activation %.2f below minimum %.2f", avg, a.criteria.MinActivation))
		}
	}

	// Days since last access.
	evaluated++
	if days := m.DaysSinceAccess(now); days > a.criteria.MaxDaysSinceAccess {
		reasons = append(reasons,
			fmt.Sprintf("not accessed for %.0f days (limit %.0f)", days, a.criteria.MaxDaysSinceAccess))
	}

	// Lifetime access count.
	evaluated++
	if m.AccessCount < a.criteria.MinAccessCount {
		reasons = append(reasons,
			fmt.Sprintf("accessed %d times (minimum %d)", m.AccessCount, a.criteria.MinAccessCount))
	}

	// Consistently low recent scores.
	if a.criteria.LowScoreWindow > 0 && len(history) >= a.criteria.LowScoreWindow {
		evaluated++
		window := history[len(history)-a.criteria.LowScoreWindow:]
		allLow := true
		for _, o := range window {
			if o.score >= a.criteria.LowScoreCeiling {
				allLow = false
				break
			}
		}
		if allLow {
			reasons = append(reasons,
				fmt.Sprintf("last %d activations all below %.2f", a.criteria.LowScoreWindow, a.criteria.LowScoreCeiling))
		}
	}

	return reasons, evaluated
}

// DetectPatternChanges compares recent activations against the historical
// average per memory and reports relevance increases, decreases, and
// context shifts, each with a suggested follow-up action.
func (a *Archival) DetectPatternChanges() []PatternChange {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var changes []PatternChange
	for id, history := range a.history {
		if len(history) < patternMinObservations {
			continue
		}

		recent := history[len(history)-patternRecentCount:]
		older := history[:len(history)-patternRecentCount]

		recentAvg := meanScore(recent)
		olderAvg := meanScore(older)

		// Context shift first: a wildly varying recent window makes the
		// ratio meaningless.
		if sd := stdDevScore(recent, recentAvg); sd > shiftStdDev {
			changes = append(changes, PatternChange{
				MemoryID:        id,
				Kind:            PatternContextShift,
				Magnitude:       sd,
				SuggestedAction: FollowUpRegenerateSummary,
			})
			continue
		}

		if olderAvg <= 0 {
			continue
		}
		ratio := recentAvg / olderAvg
		switch {
		case ratio > increaseRatio:
			changes = append(changes, PatternChange{
				MemoryID:        id,
				Kind:            PatternRelevanceIncrease,
				Magnitude:       ratio,
				SuggestedAction: FollowUpUpdateMetadata,
			})
		case ratio < decreaseRatio:
			changes = append(changes, PatternChange{
				MemoryID:        id,
				Kind:            PatternRelevanceDecrease,
				Magnitude:       ratio,
				SuggestedAction: FollowUpUpdateMetadata,
			})
		}
	}
	return changes
}

func meanScore(obs []observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range obs {
		sum += o.score
	}
	return sum / float64(len(obs))
}

func stdDevScore(obs []observation, mean float64) float64 {
	if len(obs) < 2 {
		return 0
	}
	variance := 0.0
	for _, o := range obs {
		d := o.score - mean
		variance += d * d
	}
	variance /= float64(len(obs))
	return math.Sqrt(variance)
}
