package quantum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParametersFirstAppearanceOrder(t *testing.T) {
	c := New(2).
		RYParam(0, "b").
		RZParam(1, "a").
		RYParam(0, "b").
		RXParam(1, "c")

	assert.Equal(t, []Parameter{"b", "a", "c"}, c.Parameters())
	assert.Equal(t, 3, c.NumParameters())
}

func TestBind(t *testing.T) {
	c := New(1).RYParam(0, "t0").RZ(0, 0.5)

	bound, err := c.Bind(map[Parameter]float64{"t0": math.Pi})
	require.NoError(t, err)
	assert.Equal(t, Parameter(""), bound.Instructions[0].Param)
	assert.Equal(t, math.Pi, bound.Instructions[0].Value)

	// The original stays parameterized.
	assert.Equal(t, Parameter("t0"), c.Instructions[0].Param)

	_, err = c.Bind(map[Parameter]float64{"wrong": 1})
	assert.Error(t, err)
}

func TestMeasureAll(t *testing.T) {
	c := New(3).H(0).CX(0, 1)
	m := c.MeasureAll()

	assert.Equal(t, 3, m.NumClbits)
	assert.Len(t, m.Instructions, 5)
	for q := 0; q < 3; q++ {
		ins := m.Instructions[2+q]
		assert.Equal(t, "measure", ins.Name)
		assert.Equal(t, []int{q}, ins.Qubits)
		assert.Equal(t, []int{q}, ins.Clbits)
	}
	// The original is untouched.
	assert.Len(t, c.Instructions, 2)
	assert.Equal(t, 0, c.NumClbits)
}

func TestValidate(t *testing.T) {
	c := New(2).CX(0, 1)
	require.NoError(t, c.Validate())

	bad := New(2).CX(0, 2)
	assert.Error(t, bad.Validate())

	badClbit := New(1)
	badClbit.Instructions = append(badClbit.Instructions, Instruction{
		Name: "measure", Qubits: []int{0}, Clbits: []int{3},
	})
	assert.Error(t, badClbit.Validate())
}

func TestEfficientSU2(t *testing.T) {
	c := EfficientSU2(4, 2)

	assert.Equal(t, 4, c.NumQubits)
	// 2 * numQubits * (reps + 1) rotation parameters.
	assert.Equal(t, 24, c.NumParameters())
	require.NoError(t, c.Validate())

	var entanglers int
	for _, ins := range c.Instructions {
		if ins.Name == "cx" {
			entanglers++
		}
	}
	assert.Equal(t, 6, entanglers)
}

func TestObservableValidation(t *testing.T) {
	_, err := NewObservable(2, []PauliTerm{{Paulis: "ZZZ", Coeff: 1}})
	assert.Error(t, err, "term length must match qubit count")

	_, err = NewObservable(2, []PauliTerm{{Paulis: "ZQ", Coeff: 1}})
	assert.Error(t, err, "invalid pauli character")

	_, err = NewObservable(2, nil)
	assert.Error(t, err, "at least one term required")

	obs, err := NewObservable(2, []PauliTerm{{Paulis: "ZI", Coeff: -0.5}})
	require.NoError(t, err)
	assert.Equal(t, byte('Z'), obs.Terms[0].At(1))
	assert.Equal(t, byte('I'), obs.Terms[0].At(0))
}
