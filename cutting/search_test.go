package cutting

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qirin-io/qirin/quantum"
)

func TestFindCutsNoOp(t *testing.T) {
	c := quantum.EfficientSU2(3, 1)

	sol, err := FindCuts(c, 3, SearchOptions{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, sol.Actions)
	assert.Equal(t, 1.0, sol.SamplingOverhead)
	assert.True(t, sol.MinimumReached)
}

func TestFindCutsInvalidBudget(t *testing.T) {
	c := quantum.EfficientSU2(3, 1)
	_, err := FindCuts(c, 0, SearchOptions{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestFindCutsSingleGate(t *testing.T) {
	c := quantum.New(2).H(0).CX(0, 1)

	sol, err := FindCuts(c, 1, SearchOptions{}, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, sol.Actions, 1)
	assert.Equal(t, GateCut, sol.Actions[0].Kind)
	assert.Equal(t, 1, sol.Actions[0].Instruction)
	assert.Equal(t, 9.0, sol.SamplingOverhead)
	assert.True(t, sol.MinimumReached)
}

func TestFindCutsSevenQubitAnsatz(t *testing.T) {
	c := quantum.EfficientSU2(7, 2)

	sol, err := FindCuts(c, 4, SearchOptions{Seed: 1}, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, sol.MinimumReached)
	assert.Equal(t, 81.0, sol.SamplingOverhead)
	require.Len(t, sol.Actions, 2)
	for _, act := range sol.Actions {
		assert.Equal(t, GateCut, act.Kind)
		assert.Equal(t, "cx", c.Instructions[act.Instruction].Name)
	}
}

func TestFindCutsFeasibility(t *testing.T) {
	for _, budget := range []int{2, 3, 4, 5} {
		c := quantum.EfficientSU2(6, 1)
		sol, err := FindCuts(c, budget, SearchOptions{}, zerolog.Nop())
		require.NoError(t, err)

		d, err := Decompose(c, sol.Actions)
		require.NoError(t, err)
		for _, frag := range d.Fragments {
			assert.LessOrEqual(t, frag.Circuit.NumQubits, budget,
				"fragment %s exceeds budget %d", frag.Label, budget)
		}
	}
}

func TestFindCutsDeterministic(t *testing.T) {
	c := quantum.EfficientSU2(5, 2)

	first, err := FindCuts(c, 3, SearchOptions{Seed: 42}, zerolog.Nop())
	require.NoError(t, err)
	second, err := FindCuts(c, 3, SearchOptions{Seed: 42}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different seed may traverse differently but never finds a worse
	// proven-optimal solution.
	other, err := FindCuts(c, 3, SearchOptions{Seed: 7}, zerolog.Nop())
	require.NoError(t, err)
	if first.MinimumReached && other.MinimumReached {
		assert.Equal(t, first.SamplingOverhead, other.SamplingOverhead)
	}
}

func TestFindCutsBackjumpBudget(t *testing.T) {
	c := quantum.EfficientSU2(7, 2)

	sol, err := FindCuts(c, 4, SearchOptions{MaxBackjumps: 3}, zerolog.Nop())
	if err != nil {
		// A tiny budget may abort before any complete solution.
		assert.ErrorIs(t, err, ErrInfeasible)
		return
	}
	assert.False(t, sol.MinimumReached)
}
