package cutting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qirin-io/qirin/quantum"
)

func TestApplyGateCut(t *testing.T) {
	c := quantum.New(2).H(0).CX(0, 1).H(1)

	marked, cuts, err := Apply(c, []CutAction{{Kind: GateCut, Instruction: 1}})
	require.NoError(t, err)
	require.Len(t, cuts, 1)
	assert.Equal(t, Cut{Kind: GateCut, Gate: "cx"}, cuts[0])
	assert.Equal(t, "qpd_cx", marked.Instructions[1].Name)
	// Gate cuts do not shift instruction indices.
	assert.Len(t, marked.Instructions, 3)
	// The original is untouched.
	assert.Equal(t, "cx", c.Instructions[1].Name)
}

func TestApplyWireCutOffsets(t *testing.T) {
	c := quantum.New(3).CX(0, 1).CX(1, 2).CX(0, 1)

	marked, cuts, err := Apply(c, []CutAction{
		{Kind: WireCut, Instruction: 0, Wires: []int{1}},
		{Kind: WireCut, Instruction: 1, Wires: []int{1}},
	})
	require.NoError(t, err)
	require.Len(t, cuts, 2)

	names := make([]string, len(marked.Instructions))
	for i, ins := range marked.Instructions {
		names[i] = ins.Name
	}
	// Each insertion shifts later indices by one.
	assert.Equal(t, []string{"cx", "cut_wire", "cx", "cut_wire", "cx"}, names)
	assert.Equal(t, []int{1}, marked.Instructions[1].Qubits)
	assert.Equal(t, []int{2}, marked.Instructions[3].Qubits)
}

func TestApplyDoubleWireCut(t *testing.T) {
	c := quantum.New(3).CX(0, 1).CX(0, 1).CX(1, 2)

	marked, cuts, err := Apply(c, []CutAction{
		{Kind: DoubleWireCut, Instruction: 0, Wires: []int{0, 1}},
	})
	require.NoError(t, err)
	require.Len(t, cuts, 2)
	assert.Equal(t, WireCut, cuts[0].Kind)
	assert.Equal(t, WireCut, cuts[1].Kind)
	assert.Equal(t, "cut_wire", marked.Instructions[1].Name)
	assert.Equal(t, []int{0}, marked.Instructions[1].Qubits)
	assert.Equal(t, "cut_wire", marked.Instructions[2].Name)
	assert.Equal(t, []int{1}, marked.Instructions[2].Qubits)
}

func TestApplyBounds(t *testing.T) {
	c := quantum.New(2).CX(0, 1)

	_, _, err := Apply(c, []CutAction{{Kind: GateCut, Instruction: 5}})
	assert.Error(t, err, "instruction index out of range")

	_, _, err = Apply(c, []CutAction{{Kind: WireCut, Instruction: 0, Wires: []int{2}}})
	assert.Error(t, err, "wire slot out of range")

	_, _, err = Apply(c, []CutAction{{Kind: GateCut, Instruction: 0}, {Kind: GateCut, Instruction: 0}})
	assert.Error(t, err, "an instruction cannot be gate-cut twice")

	_, _, err = Apply(quantum.New(2).H(0).CX(0, 1), []CutAction{{Kind: GateCut, Instruction: 0}})
	assert.Error(t, err, "only two-qubit gates can be gate-cut")
}

func TestPartitionGateCut(t *testing.T) {
	c := quantum.New(2).H(0).CX(0, 1).H(1)

	d, err := Decompose(c, []CutAction{{Kind: GateCut, Instruction: 1}})
	require.NoError(t, err)
	require.Len(t, d.Fragments, 2)
	assert.Equal(t, "A", d.Fragments[0].Label)
	assert.Equal(t, "B", d.Fragments[1].Label)
	assert.Equal(t, 1, d.Fragments[0].Circuit.NumQubits)
	assert.Equal(t, 1, d.Fragments[1].Circuit.NumQubits)
	assert.Equal(t, 9.0, d.Overhead())

	// One placeholder per gate half.
	require.Len(t, d.Fragments[0].Placeholders, 1)
	require.Len(t, d.Fragments[1].Placeholders, 1)
	assert.Equal(t, RoleGateA, d.Fragments[0].Placeholders[0].Role)
	assert.Equal(t, RoleGateB, d.Fragments[1].Placeholders[0].Role)

	assert.Equal(t, QubitRef{Fragment: 0, Qubit: 0}, d.FinalWires[0])
	assert.Equal(t, QubitRef{Fragment: 1, Qubit: 0}, d.FinalWires[1])
}

func TestPartitionWireCut(t *testing.T) {
	// Cutting qubit 1 after the first gate separates {q0, q1-early} from
	// {q1-late, q2}.
	c := quantum.New(3).H(0).CX(0, 1).CX(1, 2)

	d, err := Decompose(c, []CutAction{{Kind: WireCut, Instruction: 1, Wires: []int{1}}})
	require.NoError(t, err)
	require.Len(t, d.Fragments, 2)
	assert.Equal(t, 2, d.Fragments[0].Circuit.NumQubits)
	assert.Equal(t, 2, d.Fragments[1].Circuit.NumQubits)
	assert.Equal(t, 16.0, d.Overhead())

	assert.Equal(t, RoleWireMeas, d.Fragments[0].Placeholders[0].Role)
	assert.Equal(t, RoleWirePrep, d.Fragments[1].Placeholders[0].Role)

	// Qubit 1's final wire lives in the downstream fragment.
	assert.Equal(t, 0, d.FinalWires[0].Fragment)
	assert.Equal(t, 1, d.FinalWires[1].Fragment)
	assert.Equal(t, 1, d.FinalWires[2].Fragment)
}

func TestDecomposeIdempotence(t *testing.T) {
	c := quantum.EfficientSU2(4, 1)
	actions := []CutAction{{Kind: GateCut, Instruction: 9}}
	require.Equal(t, "cx", c.Instructions[9].Name)

	first, err := Decompose(c, actions)
	require.NoError(t, err)
	second, err := Decompose(c, actions)
	require.NoError(t, err)

	require.Len(t, second.Fragments, len(first.Fragments))
	for i := range first.Fragments {
		assert.Equal(t, first.Fragments[i].Label, second.Fragments[i].Label)
		assert.Equal(t, first.Fragments[i].Circuit, second.Fragments[i].Circuit)
		assert.Equal(t, first.Fragments[i].Placeholders, second.Fragments[i].Placeholders)
	}
}

func TestPartitionKeepsMeasurements(t *testing.T) {
	c := quantum.New(2).H(0).CX(0, 1).MeasureAll()

	d, err := Decompose(c, []CutAction{{Kind: GateCut, Instruction: 1}})
	require.NoError(t, err)
	require.Len(t, d.Fragments, 2)
	for f, frag := range d.Fragments {
		assert.Equal(t, 2, frag.Circuit.NumClbits)
		var measured []int
		for _, ins := range frag.Circuit.Instructions {
			if ins.Name == "measure" {
				measured = append(measured, ins.Clbits[0])
			}
		}
		assert.Equal(t, []int{f}, measured, "each fragment keeps its original clbit")
	}
}
