package decay_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memlens/memlens-go/pkg/decay"
	"github.com/memlens/memlens-go/pkg/memory"
)

func TestFactorAtAgeZeroIsOne(t *testing.T) {
	configs := []decay.Config{
		{Type: decay.Exponential, HalfLifeDays: 30},
		{Type: decay.Linear, Rate: 0.01},
		{Type: decay.Logarithmic, LogBase: 10},
		{Type: decay.Step, Steps: []decay.AgeStep{{AgeDays: 7, Factor: 0.5}}},
	}

	for _, cfg := range configs {
		require.NoError(t, cfg.Validate(), "type %s", cfg.Type)
		f, err := cfg.Factor(0)
		require.NoError(t, err, "type %s", cfg.Type)
		assert.Equal(t, 1.0, f, "type %s must not decay at age 0", cfg.Type)
	}
}

func TestFactorMonotonicNonIncreasing(t *testing.T) {
	configs := []decay.Config{
		{Type: decay.Exponential, HalfLifeDays: 30},
		{Type: decay.Linear, Rate: 1.0 / 90.0},
		{Type: decay.Logarithmic, LogBase: 10},
		{Type: decay.Step, Steps: []decay.AgeStep{
			{AgeDays: 7, Factor: 0.8},
			{AgeDays: 30, Factor: 0.5},
			{AgeDays: 90, Factor: 0.2},
		}},
	}

	ages := []float64{0, 1, 7, 15, 30, 60, 90, 180, 365}
	for _, cfg := range configs {
		prev := 1.0
		for _, age := range ages {
			f, err := cfg.Factor(age)
			require.NoError(t, err)
			assert.LessOrEqual(t, f, prev, "type %s at age %v", cfg.Type, age)
			assert.GreaterOrEqual(t, f, 0.0)
			assert.LessOrEqual(t, f, 1.0)
			prev = f
		}
	}
}

func TestExponentialHalfLife(t *testing.T) {
	cfg := decay.Config{Type: decay.Exponential, HalfLifeDays: 30}

	f, err := cfg.Factor(30)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, f, 1e-9)

	f, err = cfg.Factor(60)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, f, 1e-9)
}

func TestLinearReachesZero(t *testing.T) {
	cfg := decay.Config{Type: decay.Linear, Rate: 1.0 / 90.0}

	f, err := cfg.Factor(90)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, f, 1e-9)

	f, err = cfg.Factor(500)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f, "linear decay must clamp at zero")
}

func TestStepTableLookup(t *testing.T) {
	cfg := decay.Config{Type: decay.Step, Steps: []decay.AgeStep{
		{AgeDays: 7, Factor: 0.8},
		{AgeDays: 30, Factor: 0.5},
	}}
	require.NoError(t, cfg.Validate())

	cases := map[float64]float64{
		0:  1.0,
		6:  1.0,
		7:  0.8,
		29: 0.8,
		30: 0.5,
		99: 0.5,
	}
	for age, want := range cases {
		f, err := cfg.Factor(age)
		require.NoError(t, err)
		assert.Equal(t, want, f, "age %v", age)
	}
}

func TestNegativeAgeIsError(t *testing.T) {
	cfg := decay.Config{Type: decay.Exponential, HalfLifeDays: 30}

	_, err := cfg.Factor(-1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, memory.ErrNegativeAge))
	assert.True(t, errors.Is(err, memory.ErrValidation))
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	bad := []decay.Config{
		{Type: decay.Exponential, HalfLifeDays: 0},
		{Type: decay.Exponential, HalfLifeDays: -5},
		{Type: decay.Linear, Rate: -0.1},
		{Type: decay.Logarithmic, LogBase: 1},
		{Type: decay.Step},
		{Type: decay.Step, Steps: []decay.AgeStep{{AgeDays: 0, Factor: 0.5}}},
		{Type: decay.Step, Steps: []decay.AgeStep{{AgeDays: 7, Factor: 1.5}}},
		{Type: decay.Step, Steps: []decay.AgeStep{
			{AgeDays: 7, Factor: 0.5},
			{AgeDays: 7, Factor: 0.4},
		}},
		{Type: decay.Step, Steps: []decay.AgeStep{
			{AgeDays: 7, Factor: 0.5},
			{AgeDays: 30, Factor: 0.9},
		}},
		{Type: "unknown"},
	}

	for i, cfg := range bad {
		err := cfg.Validate()
		require.Error(t, err, "case %d", i)
		assert.True(t, errors.Is(err, memory.ErrInvalidConfig), "case %d", i)
	}
}

func TestDefaultSetCoversAllContextTypes(t *testing.T) {
	set := decay.DefaultSet()

	for _, ct := range memory.ContextTypes {
		cfg := set.ForContextType(ct)
		require.NoError(t, cfg.Validate(), "context type %s", ct)
	}

	// Unknown types fall back to the mixed configuration.
	fallback := set.ForContextType("nonsense")
	assert.Equal(t, set.ForContextType(memory.ContextMixed), fallback)
}

func TestSetRejectsInvalidWithoutReplacing(t *testing.T) {
	set := decay.DefaultSet()
	before := set.ForContextType(memory.ContextQuery)

	err := set.Set(memory.ContextQuery, decay.Config{Type: decay.Exponential, HalfLifeDays: -1})
	require.Error(t, err)
	assert.Equal(t, before, set.ForContextType(memory.ContextQuery))
}

func TestQueryDecaysFasterThanConversation(t *testing.T) {
	set := decay.DefaultSet()

	q, err := set.ForContextType(memory.ContextQuery).Factor(14)
	require.NoError(t, err)
	c, err := set.ForContextType(memory.ContextConversation).Factor(14)
	require.NoError(t, err)

	assert.Less(t, q, c, "query contexts should prefer fresher memories")
}
