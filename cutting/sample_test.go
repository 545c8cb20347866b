package cutting

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qirin-io/qirin/backend"
	"github.com/qirin-io/qirin/quantum"
)

func TestSampleCutBell(t *testing.T) {
	bell := quantum.New(2).H(0).CX(0, 1).MeasureAll()
	d, err := Decompose(bell, []CutAction{{Kind: GateCut, Instruction: 1}})
	require.NoError(t, err)

	be := backend.NewLocal(29, zerolog.Nop())
	quasi, err := SampleCut(context.Background(), be, d, nil,
		ExperimentOptions{Shots: 8192}, zerolog.Nop())
	require.NoError(t, err)

	var total float64
	for _, p := range quasi {
		total += p
	}
	assert.InDelta(t, 1.0, total, 0.1, "quasi-distribution sums to about one")
	assert.InDelta(t, 0.5, quasi["00"], 0.1)
	assert.InDelta(t, 0.5, quasi["11"], 0.1)
	assert.InDelta(t, 0.0, quasi["01"], 0.1)
	assert.InDelta(t, 0.0, quasi["10"], 0.1)
}

func TestSampleCutWire(t *testing.T) {
	c := quantum.New(2).X(0).CX(0, 1).MeasureAll()
	d, err := Decompose(c, []CutAction{{Kind: WireCut, Instruction: 1, Wires: []int{0}}})
	require.NoError(t, err)

	be := backend.NewLocal(31, zerolog.Nop())
	quasi, err := SampleCut(context.Background(), be, d, nil,
		ExperimentOptions{Shots: 8192}, zerolog.Nop())
	require.NoError(t, err)

	// The uncut circuit deterministically measures 11.
	assert.InDelta(t, 1.0, quasi["11"], 0.1)
	for key, p := range quasi {
		if key != "11" {
			assert.InDelta(t, 0.0, p, 0.1, "key %s", key)
		}
	}
}

func TestSampleCutRequiresMeasurements(t *testing.T) {
	c := quantum.New(2).H(0).CX(0, 1)
	d, err := Decompose(c, []CutAction{{Kind: GateCut, Instruction: 1}})
	require.NoError(t, err)

	be := backend.NewLocal(1, zerolog.Nop())
	_, err = SampleCut(context.Background(), be, d, nil, ExperimentOptions{Shots: 128}, zerolog.Nop())
	assert.Error(t, err)
}
