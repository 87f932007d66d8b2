// Package decay provides pure temporal decay-factor functions,
// parameterized per context class.
//
// A decay factor is a multiplicative value in [0, 1] reducing a score as a
// function of memory age. Age is measured in days. Every decay type yields
// factor 1.0 at age 0, and factors never increase with age.
package decay

import (
	"fmt"
	"math"
	"sort"

	"github.com/memlens/memlens-go/pkg/memory"
)

// Type selects the decay curve.
type Type string

const (
	// Exponential decays as 0.5^(age/halfLife).
	Exponential Type = "exponential"

	// Linear decays as max(0, 1 - age*rate).
	Linear Type = "linear"

	// Logarithmic decays as 1/(1 + log_base(age+1)).
	Logarithmic Type = "logarithmic"

	// Step holds a constant factor between configured age steps.
	Step Type = "step"
)

// AgeStep is one entry of a step decay table: at ages >= AgeDays the factor
// becomes Factor, until the next step.
type AgeStep struct {
	// AgeDays is the age at which this step takes effect.
	AgeDays float64 `json:"age_days"`

	// Factor is the decay factor held from this step on.
	Factor float64 `json:"factor"`
}

// Config parameterizes one decay curve.
//
// Only the fields relevant to the selected Type are consulted. Configs are
// validated at set time so that an invalid curve is never evaluated.
type Config struct {
	// Type selects the curve.
	Type Type `json:"type"`

	// HalfLifeDays is the exponential half-life. Must be > 0.
	HalfLifeDays float64 `json:"half_life_days,omitempty"`

	// Rate is the linear decay per day. Must be >= 0.
	Rate float64 `json:"rate,omitempty"`

	// LogBase is the logarithm base. Must be > 1.
	LogBase float64 `json:"log_base,omitempty"`

	// Steps is the ordered age→factor table for step decay.
	Steps []AgeStep `json:"steps,omitempty"`
}

// Validate checks the configuration for the selected decay type.
//
// Step tables must be strictly increasing in age with factors in [0, 1]
// and non-increasing, so that decay never raises a score as age grows.
func (c Config) Validate() error {
	switch c.Type {
	case Exponential:
		if c.HalfLifeDays <= 0 {
			return memory.NewError("Validate",
				fmt.Errorf("exponential half-life must be > 0, got %v: %w", c.HalfLifeDays, memory.ErrInvalidConfig))
		}
	case Linear:
		if c.Rate < 0 {
			return memory.NewError("Validate",
				fmt.Errorf("linear rate must be >= 0, got %v: %w", c.Rate, memory.ErrInvalidConfig))
		}
	case Logarithmic:
		if c.LogBase <= 1 {
			return memory.NewError("Validate",
				fmt.Errorf("logarithm base must be > 1, got %v: %w", c.LogBase, memory.ErrInvalidConfig))
		}
	case Step:
		if len(c.Steps) == 0 {
			return memory.NewError("Validate",
				fmt.Errorf("step decay requires at least one step: %w", memory.ErrInvalidConfig))
		}
		// Age 0 must yield 1.0, so the first step has to start after it.
		if c.Steps[0].AgeDays <= 0 {
			return memory.NewError("Validate",
				fmt.Errorf("first step age must be > 0: %w", memory.ErrInvalidConfig))
		}
		prevAge := 0.0
		prevFactor := 1.0
		for i, s := range c.Steps {
			if s.AgeDays <= prevAge {
				return memory.NewError("Validate",
					fmt.Errorf("step %d: ages must be strictly increasing: %w", i, memory.ErrInvalidConfig))
			}
			if s.Factor < 0 || s.Factor > 1 {
				return memory.NewError("Validate",
					fmt.Errorf("step %d: factor %v outside [0,1]: %w", i, s.Factor, memory.ErrInvalidConfig))
			}
			if s.Factor > prevFactor {
				return memory.NewError("Validate",
					fmt.Errorf("step %d: factors must be non-increasing: %w", i, memory.ErrInvalidConfig))
			}
			prevAge = s.AgeDays
			prevFactor = s.Factor
		}
	default:
		return memory.NewError("Validate",
			fmt.Errorf("unknown decay type %q: %w", c.Type, memory.ErrInvalidConfig))
	}
	return nil
}

// Factor evaluates the decay factor for a memory of the given age in days.
//
// Negative age is a hard error. Age 0 yields 1.0 for every type.
func (c Config) Factor(ageDays float64) (float64, error) {
	if ageDays < 0 {
		return 0, memory.NewError("Factor", memory.ErrNegativeAge)
	}

	switch c.Type {
	case Exponential:
		return math.Pow(0.5, ageDays/c.HalfLifeDays), nil
	case Linear:
		f := 1.0 - ageDays*c.Rate
		if f < 0 {
			f = 0
		}
		return f, nil
	case Logarithmic:
		return 1.0 / (1.0 + math.Log(ageDays+1)/math.Log(c.LogBase)), nil
	case Step:
		// 1.0 before the first step; the factor of the last step whose age
		// has been reached holds until the next.
		i := sort.Search(len(c.Steps), func(i int) bool { return c.Steps[i].AgeDays > ageDays })
		if i == 0 {
			return 1.0, nil
		}
		return c.Steps[i-1].Factor, nil
	default:
		return 0, memory.NewError("Factor",
			fmt.Errorf("unknown decay type %q: %w", c.Type, memory.ErrInvalidConfig))
	}
}

// Set holds one validated decay configuration per context type.
type Set struct {
	configs map[memory.ContextType]Config
}

// DefaultSet returns the default per-context decay configurations.
//
// Query contexts favor very recent memories; document contexts decay
// slowly and logarithmically; task contexts decay linearly over ninety
// days; conversation and mixed contexts use a thirty-day half-life.
func DefaultSet() *Set {
	return &Set{configs: map[memory.ContextType]Config{
		memory.ContextConversation: {Type: Exponential, HalfLifeDays: 30},
		memory.ContextDocument:     {Type: Logarithmic, LogBase: 10},
		memory.ContextTask:         {Type: Linear, Rate: 1.0 / 90.0},
		memory.ContextQuery:        {Type: Exponential, HalfLifeDays: 7},
		memory.ContextMixed:        {Type: Exponential, HalfLifeDays: 30},
	}}
}

// ForContextType returns the decay configuration for a context type,
// falling back to the mixed configuration for unknown types.
func (s *Set) ForContextType(t memory.ContextType) Config {
	if cfg, ok := s.configs[t]; ok {
		return cfg
	}
	return s.configs[memory.ContextMixed]
}

// Set validates and installs a decay configuration for a context type.
// An invalid configuration is rejected without replacing the current one.
func (s *Set) Set(t memory.ContextType, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.configs[t] = cfg
	return nil
}

// Clone returns an independent copy of the set.
func (s *Set) Clone() *Set {
	out := &Set{configs: make(map[memory.ContextType]Config, len(s.configs))}
	for t, cfg := range s.configs {
		cfgCopy := cfg
		cfgCopy.Steps = append([]AgeStep(nil), cfg.Steps...)
		out.configs[t] = cfgCopy
	}
	return out
}
