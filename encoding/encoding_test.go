package encoding

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qirin-io/qirin/backend"
	"github.com/qirin-io/qirin/quantum"
	"github.com/qirin-io/qirin/vqe"
)

type nopBackend struct{}

func (nopBackend) Estimate(_ context.Context, pubs []backend.EstimatePub) ([]backend.EstimateResult, error) {
	return make([]backend.EstimateResult, len(pubs)), nil
}

func (nopBackend) Sample(_ context.Context, pubs []backend.SamplePub, _ int) ([]backend.SampleResult, error) {
	return make([]backend.SampleResult, len(pubs)), nil
}

func TestCircuitRoundTrip(t *testing.T) {
	c := quantum.New(3).
		H(0).
		RYParam(1, "t0").
		RZ(2, 0.25).
		CX(0, 1).
		Measure(1, 0)

	enc, err := EncodeCircuit(c)
	require.NoError(t, err)
	assert.Equal(t, CircuitEncoding, enc.Encoding)

	got, err := enc.Decode()
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestCircuitUnknownEncoding(t *testing.T) {
	enc, err := EncodeCircuit(quantum.New(1).H(0))
	require.NoError(t, err)
	enc.Encoding = "pickle"
	_, err = enc.Decode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pickle")
}

func TestCircuitCorruptPayload(t *testing.T) {
	enc := Circuit{Encoding: CircuitEncoding, Base64: "not base64!"}
	_, err := enc.Decode()
	assert.Error(t, err)
}

func TestArrayRoundTrip(t *testing.T) {
	for _, x := range [][]float64{
		{},
		{0},
		{1.5, -2.25, 3.141592653589793, 1e-300},
	} {
		enc, err := EncodeArray(x)
		require.NoError(t, err)
		got, err := enc.Decode()
		require.NoError(t, err)
		assert.Equal(t, x, got)
	}
}

func TestArrayUnknownEncoding(t *testing.T) {
	enc, err := EncodeArray([]float64{1})
	require.NoError(t, err)
	enc.Encoding = "csv"
	_, err = enc.Decode()
	assert.Error(t, err)
}

func TestObservableRoundTrip(t *testing.T) {
	obs := quantum.MustObservable(3, []quantum.PauliTerm{
		{Paulis: "ZZI", Coeff: 0.5},
		{Paulis: "IXX", Coeff: -1.25},
	})
	enc := EncodeObservable(obs)
	assert.Equal(t, ObservableEncoding, enc.Encoding)

	got, err := enc.Decode()
	require.NoError(t, err)
	assert.Equal(t, obs, got)
}

func TestObservableTermJSON(t *testing.T) {
	term := ObservableTerm{Pauli: "ZZ", Coeff: -0.5}
	raw, err := json.Marshal(term)
	require.NoError(t, err)
	assert.JSONEq(t, `["ZZ", -0.5]`, string(raw))

	var back ObservableTerm
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, term, back)
}

func TestObservableUnknownEncoding(t *testing.T) {
	enc := EncodeObservable(quantum.MustObservable(1, []quantum.PauliTerm{{Paulis: "Z", Coeff: 1}}))
	enc.Encoding = "matrix"
	_, err := enc.Decode()
	assert.Error(t, err)
}

func TestOptimizerRoundTrip(t *testing.T) {
	enc := EncodeOptimizer(vqe.BFGS())
	got, err := enc.Decode()
	require.NoError(t, err)
	assert.Equal(t, "bfgs", got.Name())

	_, err = Optimizer{Name: "spsa"}.Decode()
	assert.Error(t, err)
}

func TestVQERoundTrip(t *testing.T) {
	ansatz := quantum.New(2).RYParam(0, "a").RYParam(1, "b").CX(0, 1)
	obs := quantum.MustObservable(2, []quantum.PauliTerm{{Paulis: "ZZ", Coeff: 1}})
	v, err := vqe.New().
		Ansatz(ansatz).
		Observable(obs).
		Backend(nopBackend{}).
		InitialParams([]float64{0.1, 0.2}).
		Optimizer(vqe.BFGS()).
		MaxIter(40).
		Build()
	require.NoError(t, err)

	enc, err := EncodeVQE(v)
	require.NoError(t, err)

	// The envelope must survive JSON transport intact.
	raw, err := json.Marshal(enc)
	require.NoError(t, err)
	var wire VQE
	require.NoError(t, json.Unmarshal(raw, &wire))

	builder, err := wire.Decode()
	require.NoError(t, err)
	back, err := builder.Backend(nopBackend{}).Build()
	require.NoError(t, err)

	assert.Equal(t, ansatz, back.Ansatz())
	assert.Equal(t, obs, back.Observable())
	assert.Equal(t, []float64{0.1, 0.2}, back.InitialParams())
	assert.Equal(t, "bfgs", back.Optimizer().Name())
	assert.Equal(t, 40, back.MaxIter())
}

func TestResultRoundTrip(t *testing.T) {
	in := &vqe.Result{
		BestParams: []float64{3.1, -0.5},
		BestCost:   -1.75,
		HasBest:    true,
		Iterations: 42,
		Reason:     vqe.HaltTolerance,
		Counts:     map[string]int{"01": 30, "10": 12},
		Interpreted: []vqe.InterpretedCount{
			{Value: json.RawMessage(`["n01"]`), Count: 30},
		},
	}
	enc, err := EncodeResult(in)
	require.NoError(t, err)
	require.NotNil(t, enc.BestParams)
	require.NotNil(t, enc.BestCost)

	raw, err := json.Marshal(enc)
	require.NoError(t, err)
	var wire Result
	require.NoError(t, json.Unmarshal(raw, &wire))

	got, err := wire.Decode()
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestResultRoundTripNoBest(t *testing.T) {
	in := &vqe.Result{Iterations: 0, Reason: vqe.HaltInterrupted}
	enc, err := EncodeResult(in)
	require.NoError(t, err)
	assert.Nil(t, enc.BestParams)
	assert.Nil(t, enc.BestCost)

	got, err := enc.Decode()
	require.NoError(t, err)
	assert.False(t, got.HasBest)
	assert.Equal(t, in, got)
}

func TestResultUnknownReason(t *testing.T) {
	enc := &Result{Reason: "exploded"}
	_, err := enc.Decode()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exploded")
}
