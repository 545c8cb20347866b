package backend

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qirin-io/qirin/quantum"
)

func TestEstimateBellState(t *testing.T) {
	be := NewLocal(1, zerolog.Nop())
	bell := quantum.New(2).H(0).CX(0, 1)

	tests := []struct {
		pauli string
		want  float64
	}{
		{"ZZ", 1},
		{"XX", 1},
		{"ZI", 0},
		{"IZ", 0},
		{"YY", -1},
	}
	for _, tt := range tests {
		t.Run(tt.pauli, func(t *testing.T) {
			obs := quantum.MustObservable(2, []quantum.PauliTerm{{Paulis: tt.pauli, Coeff: 1}})
			results, err := be.Estimate(context.Background(), []EstimatePub{{Circuit: bell, Observable: obs}})
			require.NoError(t, err)
			assert.InDelta(t, tt.want, results[0].Ev, 1e-9)
		})
	}
}

func TestEstimateBindsParameters(t *testing.T) {
	be := NewLocal(1, zerolog.Nop())
	c := quantum.New(1).RYParam(0, "t0")
	obs := quantum.MustObservable(1, []quantum.PauliTerm{{Paulis: "Z", Coeff: 1}})

	results, err := be.Estimate(context.Background(), []EstimatePub{{
		Circuit:    c,
		Observable: obs,
		Bindings:   map[quantum.Parameter]float64{"t0": math.Pi},
	}})
	require.NoError(t, err)
	// RY(pi)|0> = |1>, so <Z> = -1.
	assert.InDelta(t, -1, results[0].Ev, 1e-9)

	_, err = be.Estimate(context.Background(), []EstimatePub{{Circuit: c, Observable: obs}})
	assert.Error(t, err, "unbound parameter must fail")
}

func TestEstimateRejectsMeasurement(t *testing.T) {
	be := NewLocal(1, zerolog.Nop())
	c := quantum.New(1).H(0).Measure(0, 0)
	obs := quantum.MustObservable(1, []quantum.PauliTerm{{Paulis: "Z", Coeff: 1}})

	_, err := be.Estimate(context.Background(), []EstimatePub{{Circuit: c, Observable: obs}})
	assert.Error(t, err)
}

func TestSampleDeterministicCircuit(t *testing.T) {
	be := NewLocal(1, zerolog.Nop())
	c := quantum.New(2).X(0).MeasureAll()

	results, err := be.Sample(context.Background(), []SamplePub{{Circuit: c}}, 100)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"01": 100}, results[0].Counts)
	assert.Equal(t, 100, results[0].Shots)
}

func TestSampleBellCorrelations(t *testing.T) {
	be := NewLocal(7, zerolog.Nop())
	c := quantum.New(2).H(0).CX(0, 1).MeasureAll()

	results, err := be.Sample(context.Background(), []SamplePub{{Circuit: c}}, 4096)
	require.NoError(t, err)

	counts := results[0].Counts
	assert.Zero(t, counts["01"])
	assert.Zero(t, counts["10"])
	total := counts["00"] + counts["11"]
	assert.Equal(t, 4096, total)
	assert.InDelta(t, 2048, counts["00"], 300)
}

func TestSampleMidCircuitMeasurement(t *testing.T) {
	be := NewLocal(3, zerolog.Nop())
	// Measure |+>, then flip conditioned on nothing: outcome is copied to the
	// classical bit and the state collapses before the second measurement.
	c := quantum.New(1).H(0).Measure(0, 0).Measure(0, 1)

	results, err := be.Sample(context.Background(), []SamplePub{{Circuit: c}}, 2048)
	require.NoError(t, err)
	for key, n := range results[0].Counts {
		assert.Contains(t, []string{"00", "11"}, key, "both measurements must agree")
		assert.Positive(t, n)
	}
}
