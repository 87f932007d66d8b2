// Package threshold manages per-context-type activation thresholds.
//
// Thresholds gate which scored memories are surfaced by the awareness
// interface. They adapt gradually from usage analytics and are pulled back
// toward consistency across related context types, so the same underlying
// query is not treated differently because of classification noise.
package threshold

import (
	"fmt"
	"sync"
	"time"

	"github.com/memlens/memlens-go/pkg/memory"
)

// Threshold bounds and adaptation constants.
const (
	// MinThreshold is the lowest allowed threshold.
	MinThreshold = 0.10

	// MaxThreshold is the highest allowed threshold.
	MaxThreshold = 0.95

	// adaptFraction is how far a threshold moves toward its recommended
	// value per adaptation round.
	adaptFraction = 0.10

	// consistencyGap is the maximum allowed spread within a related
	// context group before EnforceConsistency intervenes.
	consistencyGap = 0.15

	// maxHistory bounds the audit history of adjustments.
	maxHistory = 50

	// Analytics rule cut-offs.
	highFalsePositiveRate = 0.25
	highFalseNegativeRate = 0.25
	lowSuccessRate        = 0.50
)

// relatedGroups are context types that should stay consistent with each
// other: a conversational question and an explicit query are often the
// same underlying request, as are document and task contexts.
var relatedGroups = [][]memory.ContextType{
	{memory.ContextConversation, memory.ContextQuery},
	{memory.ContextDocument, memory.ContextTask},
}

// Adjustment is one audited threshold change.
type Adjustment struct {
	// Time is when the adjustment happened.
	Time time.Time `json:"time"`

	// ContextType is the adjusted type.
	ContextType memory.ContextType `json:"context_type"`

	// Old and New are the threshold values before and after.
	Old float64 `json:"old"`
	New float64 `json:"new"`

	// Recommended is the rule-derived target the threshold moved toward.
	Recommended float64 `json:"recommended"`

	// Reason names the rule that fired.
	Reason string `json:"reason"`
}

// Manager holds one threshold per context type.
//
// Manager is safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	thresholds map[memory.ContextType]float64
	history    []Adjustment
}

// Defaults returns the default threshold per context type.
func Defaults() map[memory.ContextType]float64 {
	return map[memory.ContextType]float64{
		memory.ContextConversation: 0.70,
		memory.ContextDocument:     0.60,
		memory.ContextTask:         0.80,
		memory.ContextQuery:        0.75,
		memory.ContextMixed:        0.65,
	}
}

// NewManager creates a Manager with the default thresholds.
func NewManager() *Manager {
	return &Manager{thresholds: Defaults()}
}

// Get returns the threshold for a context type, falling back to the mixed
// threshold for unknown types.
func (m *Manager) Get(t memory.ContextType) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if v, ok := m.thresholds[t]; ok {
		return v
	}
	return m.thresholds[memory.ContextMixed]
}

// Set installs a threshold for a context type.
//
// Values outside [MinThreshold, MaxThreshold] are a validation error and
// leave the current threshold unchanged.
func (m *Manager) Set(t memory.ContextType, v float64) error {
	if v < MinThreshold || v > MaxThreshold {
		return memory.NewError("Set",
			fmt.Errorf("threshold %v outside [%v, %v]: %w", v, MinThreshold, MaxThreshold, memory.ErrValidation))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[t] = v
	return nil
}

// Snapshot returns a copy of the current thresholds.
func (m *Manager) Snapshot() map[memory.ContextType]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[memory.ContextType]float64, len(m.thresholds))
	for t, v := range m.thresholds {
		out[t] = v
	}
	return out
}

// Adapt moves every threshold a fixed fraction toward a recommended value
// derived from usage analytics.
//
// Rules, in order of precedence:
//   - high false-positive rate: too much noise is surfaced, raise
//   - high false-negative rate: relevant memories are missed, lower
//   - low success rate with a low average score: lower toward the
//     observed average
//   - otherwise: drift toward the midpoint of the current threshold and
//     the observed average score
//
// Every change is appended to the bounded audit history. The returned
// adjustments describe this round only.
func (m *Manager) Adapt(a memory.UsageAnalytics) ([]Adjustment, error) {
	if err := validateAnalytics(a); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var round []Adjustment

	for t, current := range m.thresholds {
		recommended, reason := recommend(current, a)
		next := clampThreshold(current + adaptFraction*(recommended-current))
		if next == current {
			continue
		}

		m.thresholds[t] = next
		adj := Adjustment{
			Time:        now,
			ContextType: t,
			Old:         current,
			New:         next,
			Recommended: recommended,
			Reason:      reason,
		}
		round = append(round, adj)
		m.appendHistory(adj)
	}

	return round, nil
}

func recommend(current float64, a memory.UsageAnalytics) (float64, string) {
	switch {
	case a.FalsePositiveRate > highFalsePositiveRate:
		return clampThreshold(current + 0.10), "high false-positive rate"
	case a.FalseNegativeRate > highFalseNegativeRate:
		return clampThreshold(current - 0.10), "high false-negative rate"
	case a.RetrievalSuccessRate < lowSuccessRate && a.AverageActivationScore < current:
		return clampThreshold(a.AverageActivationScore), "low success rate with low average score"
	default:
		return clampThreshold((current + a.AverageActivationScore) / 2), "drift toward observed average"
	}
}

func validateAnalytics(a memory.UsageAnalytics) error {
	rates := map[string]float64{
		"retrieval_success_rate":   a.RetrievalSuccessRate,
		"false_positive_rate":      a.FalsePositiveRate,
		"false_negative_rate":      a.FalseNegativeRate,
		"average_activation_score": a.AverageActivationScore,
	}
	for name, v := range rates {
		if v < 0 || v > 1 {
			return memory.NewError("Adapt",
				fmt.Errorf("%s %v outside [0,1]: %w", name, v, memory.ErrValidation))
		}
	}
	return nil
}

// EnforceConsistency pulls thresholds of related context groups halfway
// toward their group average whenever any pair in the group differs by
// more than the consistency gap.
func (m *Manager) EnforceConsistency() []Adjustment {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var round []Adjustment

	for _, group := range relatedGroups {
		var min, max, sum float64
		min, max = 1.0, 0.0
		for _, t := range group {
			v := m.thresholds[t]
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
			sum += v
		}
		if max-min <= consistencyGap {
			continue
		}

		avg := sum / float64(len(group))
		for _, t := range group {
			current := m.thresholds[t]
			next := clampThreshold((current + avg) / 2)
			if next == current {
				continue
			}
			m.thresholds[t] = next
			adj := Adjustment{
				Time:        now,
				ContextType: t,
				Old:         current,
				New:         next,
				Recommended: avg,
				Reason:      "cross-type consistency",
			}
			round = append(round, adj)
			m.appendHistory(adj)
		}
	}

	return round
}

// History returns a copy of the audit history, oldest first.
func (m *Manager) History() []Adjustment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Adjustment(nil), m.history...)
}

func (m *Manager) appendHistory(adj Adjustment) {
	m.history = append(m.history, adj)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

func clampThreshold(v float64) float64 {
	if v < MinThreshold {
		return MinThreshold
	}
	if v > MaxThreshold {
		return MaxThreshold
	}
	return v
}
