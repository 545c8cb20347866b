package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/qirin-io/qirin/quantum"
)

// isingEnergy evaluates a diagonal observable on a computational basis state.
func isingEnergy(t *testing.T, obs *quantum.Observable, bits string) float64 {
	t.Helper()
	var total float64
	for _, term := range obs.Terms {
		sign := 1.0
		for q := 0; q < obs.NumQubits; q++ {
			if term.At(q) == 'Z' {
				set, err := BitAt(bits, q)
				require.NoError(t, err)
				if set {
					sign = -sign
				}
			} else {
				require.Equal(t, byte('I'), term.At(q), "ising observables are diagonal")
			}
		}
		total += sign * term.Coeff
	}
	return total
}

func allBitStrings(n int) []string {
	out := make([]string, 0, 1<<n)
	for v := 0; v < 1<<n; v++ {
		out = append(out, fmt.Sprintf("%0*b", n, v))
	}
	return out
}

func TestBitAt(t *testing.T) {
	set, err := BitAt("10", 0)
	require.NoError(t, err)
	assert.False(t, set)
	set, err = BitAt("10", 1)
	require.NoError(t, err)
	assert.True(t, set)
	_, err = BitAt("10", 2)
	assert.Error(t, err)
}

func TestMaxcutNodesSorted(t *testing.T) {
	m := NewMaxcut().AddEdge("c", "a", 1).AddEdge("b", "a", 1)
	assert.Equal(t, []string{"a", "b", "c"}, m.Nodes())
}

func TestMaxcutObservableEnergy(t *testing.T) {
	// Weighted triangle with a pendant node. The Ising energy of any
	// assignment is the negated cut weight.
	m := NewMaxcut().
		AddEdge("a", "b", 1).
		AddEdge("b", "c", 2).
		AddEdge("a", "c", 0.5).
		AddEdge("c", "d", 3)
	obs, err := m.Observable()
	require.NoError(t, err)
	assert.Equal(t, 4, obs.NumQubits)

	for _, bits := range allBitStrings(4) {
		weight, err := m.CutWeight(bits)
		require.NoError(t, err)
		assert.InDelta(t, -weight, isingEnergy(t, obs, bits), 1e-12, "bits %s", bits)
	}
}

func TestMaxcutInterpret(t *testing.T) {
	m := NewMaxcut().AddEdge("a", "b", 1).AddEdge("b", "c", 1)
	// Qubit order a=0, b=1, c=2; rightmost bit is qubit 0.
	v, err := m.Interpret("101")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, v)

	v, err = m.Interpret("000")
	require.NoError(t, err)
	assert.Equal(t, []string{}, v)

	_, err = m.Interpret("01")
	assert.Error(t, err)
}

func TestMaxcutValidation(t *testing.T) {
	_, err := NewMaxcut().Observable()
	assert.Error(t, err, "a graph without edges has nothing to cut")

	_, err = NewMaxcut().AddEdge("a", "a", 1).Observable()
	assert.Error(t, err, "self-loops never cross a cut")
}

func TestQuboObservableEnergy(t *testing.T) {
	q := mat.NewSymDense(3, []float64{
		-1, 2, 0,
		2, 3, -0.5,
		0, -0.5, 1,
	})
	problem := NewQubo(q)
	obs, err := problem.Observable()
	require.NoError(t, err)
	assert.Equal(t, 3, obs.NumQubits)

	for _, bits := range allBitStrings(3) {
		want, err := problem.Evaluate(bits)
		require.NoError(t, err)
		assert.InDelta(t, want, isingEnergy(t, obs, bits), 1e-12, "bits %s", bits)
	}
}

func TestQuboInterpret(t *testing.T) {
	q := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	problem := NewQubo(q)

	v, err := problem.Interpret("10")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, v)

	_, err = problem.Interpret("1")
	assert.Error(t, err)
}

func TestQuboEmptyMatrix(t *testing.T) {
	_, err := NewQubo(&mat.SymDense{}).Observable()
	assert.Error(t, err)
}

func TestNewBuilderLoadsProblem(t *testing.T) {
	m := NewMaxcut().AddEdge("a", "b", 1)
	b, err := NewBuilder(m)
	require.NoError(t, err)
	assert.NotNil(t, b)

	_, err = NewBuilder(NewMaxcut())
	assert.Error(t, err)
}
