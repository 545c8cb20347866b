// Package encoding is the transport envelope: every domain object encodes to
// a flat, self-describing record that survives a process or network boundary
// and decodes back to a structurally equal object. Records carry explicit
// encoding discriminators; an unknown discriminator is a fatal decode error.
package encoding

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/qirin-io/qirin/quantum"
	"github.com/qirin-io/qirin/vqe"
)

// Encoding discriminator values.
const (
	CircuitEncoding    = "msgpack"
	ArrayEncoding      = "msgpack"
	ObservableEncoding = "pauli"
)

// Circuit is an encoded circuit: a msgpack blob in base64.
type Circuit struct {
	Encoding string `json:"encoding"`
	Base64   string `json:"base64"`
}

type circuitBlob struct {
	NumQubits    int               `msgpack:"num_qubits"`
	NumClbits    int               `msgpack:"num_clbits"`
	Instructions []instructionBlob `msgpack:"instructions"`
}

type instructionBlob struct {
	Name   string  `msgpack:"name"`
	Qubits []int   `msgpack:"qubits"`
	Clbits []int   `msgpack:"clbits,omitempty"`
	Param  string  `msgpack:"param,omitempty"`
	Value  float64 `msgpack:"value,omitempty"`
}

// EncodeCircuit encodes a circuit.
func EncodeCircuit(c *quantum.Circuit) (Circuit, error) {
	blob := circuitBlob{
		NumQubits:    c.NumQubits,
		NumClbits:    c.NumClbits,
		Instructions: make([]instructionBlob, len(c.Instructions)),
	}
	for i, ins := range c.Instructions {
		blob.Instructions[i] = instructionBlob{
			Name:   ins.Name,
			Qubits: ins.Qubits,
			Clbits: ins.Clbits,
			Param:  string(ins.Param),
			Value:  ins.Value,
		}
	}
	raw, err := msgpack.Marshal(blob)
	if err != nil {
		return Circuit{}, fmt.Errorf("encode circuit: %w", err)
	}
	return Circuit{Encoding: CircuitEncoding, Base64: base64.StdEncoding.EncodeToString(raw)}, nil
}

// Decode rebuilds the circuit.
func (e Circuit) Decode() (*quantum.Circuit, error) {
	if e.Encoding != CircuitEncoding {
		return nil, fmt.Errorf("unsupported circuit encoding %q", e.Encoding)
	}
	raw, err := base64.StdEncoding.DecodeString(e.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode circuit payload: %w", err)
	}
	var blob circuitBlob
	if err := msgpack.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("decode circuit blob: %w", err)
	}
	c := &quantum.Circuit{NumQubits: blob.NumQubits, NumClbits: blob.NumClbits}
	for _, ins := range blob.Instructions {
		c.Instructions = append(c.Instructions, quantum.Instruction{
			Name:   ins.Name,
			Qubits: ins.Qubits,
			Clbits: ins.Clbits,
			Param:  quantum.Parameter(ins.Param),
			Value:  ins.Value,
		})
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("decoded circuit: %w", err)
	}
	return c, nil
}

// Array is an encoded numeric array: shape, dtype and raw little-endian bytes
// as a msgpack blob in base64.
type Array struct {
	Encoding string `json:"encoding"`
	Base64   string `json:"base64"`
}

type arrayBlob struct {
	Shape []int  `msgpack:"shape"`
	DType string `msgpack:"dtype"`
	Data  []byte `msgpack:"data"`
}

// EncodeArray encodes a float64 vector.
func EncodeArray(x []float64) (Array, error) {
	data := make([]byte, 8*len(x))
	for i, v := range x {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	raw, err := msgpack.Marshal(arrayBlob{Shape: []int{len(x)}, DType: "float64", Data: data})
	if err != nil {
		return Array{}, fmt.Errorf("encode array: %w", err)
	}
	return Array{Encoding: ArrayEncoding, Base64: base64.StdEncoding.EncodeToString(raw)}, nil
}

// Decode rebuilds the vector.
func (e Array) Decode() ([]float64, error) {
	if e.Encoding != ArrayEncoding {
		return nil, fmt.Errorf("unsupported array encoding %q", e.Encoding)
	}
	raw, err := base64.StdEncoding.DecodeString(e.Base64)
	if err != nil {
		return nil, fmt.Errorf("decode array payload: %w", err)
	}
	var blob arrayBlob
	if err := msgpack.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("decode array blob: %w", err)
	}
	if blob.DType != "float64" {
		return nil, fmt.Errorf("unsupported array dtype %q", blob.DType)
	}
	if len(blob.Shape) != 1 {
		return nil, fmt.Errorf("expected a 1-d array, got shape %v", blob.Shape)
	}
	n := blob.Shape[0]
	if len(blob.Data) != 8*n {
		return nil, fmt.Errorf("array data has %d bytes, shape %v needs %d", len(blob.Data), blob.Shape, 8*n)
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob.Data[8*i:]))
	}
	return out, nil
}

// ObservableTerm is one encoded Pauli term, serialized as a [string, number]
// pair.
type ObservableTerm struct {
	Pauli string
	Coeff float64
}

// MarshalJSON encodes the term as a two-element array.
func (t ObservableTerm) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{t.Pauli, t.Coeff})
}

// UnmarshalJSON decodes a two-element array.
func (t *ObservableTerm) UnmarshalJSON(data []byte) error {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if err := json.Unmarshal(pair[0], &t.Pauli); err != nil {
		return fmt.Errorf("observable term pauli: %w", err)
	}
	if err := json.Unmarshal(pair[1], &t.Coeff); err != nil {
		return fmt.Errorf("observable term coefficient: %w", err)
	}
	return nil
}

// Observable is an encoded observable: a canonical list of (pauli string,
// coefficient) pairs.
type Observable struct {
	Encoding  string           `json:"encoding"`
	NumQubits int              `json:"num_qubits"`
	Terms     []ObservableTerm `json:"terms"`
}

// EncodeObservable encodes an observable.
func EncodeObservable(o *quantum.Observable) Observable {
	terms := make([]ObservableTerm, len(o.Terms))
	for i, t := range o.Terms {
		terms[i] = ObservableTerm{Pauli: t.Paulis, Coeff: t.Coeff}
	}
	return Observable{Encoding: ObservableEncoding, NumQubits: o.NumQubits, Terms: terms}
}

// Decode rebuilds the observable.
func (e Observable) Decode() (*quantum.Observable, error) {
	if e.Encoding != ObservableEncoding {
		return nil, fmt.Errorf("unsupported observable encoding %q", e.Encoding)
	}
	terms := make([]quantum.PauliTerm, len(e.Terms))
	for i, t := range e.Terms {
		terms[i] = quantum.PauliTerm{Paulis: t.Pauli, Coeff: t.Coeff}
	}
	return quantum.NewObservable(e.NumQubits, terms)
}

// Optimizer is an encoded optimizer choice.
type Optimizer struct {
	Name string `json:"name"`
}

// EncodeOptimizer encodes an optimizer by name.
func EncodeOptimizer(o vqe.Optimizer) Optimizer {
	return Optimizer{Name: o.Name()}
}

// Decode resolves the optimizer; an unknown name is a fatal error.
func (e Optimizer) Decode() (vqe.Optimizer, error) {
	return vqe.OptimizerFromName(e.Name)
}

// VQE is an encoded optimization problem, the payload of a job submission.
type VQE struct {
	Ansatz     Circuit    `json:"ansatz"`
	Observable Observable `json:"observable"`
	Initial    Array      `json:"initial_params"`
	Optimizer  Optimizer  `json:"optimizer"`
	MaxIter    int        `json:"maxiter,omitempty"`
}

// EncodeVQE encodes a built problem.
func EncodeVQE(v *vqe.VQE) (*VQE, error) {
	ansatz, err := EncodeCircuit(v.Ansatz())
	if err != nil {
		return nil, err
	}
	initial, err := EncodeArray(v.InitialParams())
	if err != nil {
		return nil, err
	}
	return &VQE{
		Ansatz:     ansatz,
		Observable: EncodeObservable(v.Observable()),
		Initial:    initial,
		Optimizer:  EncodeOptimizer(v.Optimizer()),
		MaxIter:    v.MaxIter(),
	}, nil
}

// Decode rebuilds the problem as a preloaded builder; the caller attaches an
// execution backend and builds.
func (e *VQE) Decode() (*vqe.Builder, error) {
	ansatz, err := e.Ansatz.Decode()
	if err != nil {
		return nil, err
	}
	observable, err := e.Observable.Decode()
	if err != nil {
		return nil, err
	}
	initial, err := e.Initial.Decode()
	if err != nil {
		return nil, err
	}
	optimizer, err := e.Optimizer.Decode()
	if err != nil {
		return nil, err
	}
	return vqe.New().
		Ansatz(ansatz).
		Observable(observable).
		InitialParams(initial).
		Optimizer(optimizer).
		MaxIter(e.MaxIter), nil
}

// Result is an encoded terminal run record. Optional fields are explicitly
// nullable.
type Result struct {
	BestParams  *Array                 `json:"best_params,omitempty"`
	BestCost    *float64               `json:"best_cost,omitempty"`
	Iterations  int                    `json:"iterations"`
	Reason      string                 `json:"reason"`
	Counts      map[string]int         `json:"counts,omitempty"`
	Interpreted []vqe.InterpretedCount `json:"interpreted,omitempty"`
}

// EncodeResult encodes a run result.
func EncodeResult(r *vqe.Result) (*Result, error) {
	out := &Result{
		Iterations:  r.Iterations,
		Reason:      string(r.Reason),
		Counts:      r.Counts,
		Interpreted: r.Interpreted,
	}
	if r.HasBest {
		params, err := EncodeArray(r.BestParams)
		if err != nil {
			return nil, err
		}
		cost := r.BestCost
		out.BestParams = &params
		out.BestCost = &cost
	}
	return out, nil
}

// Decode rebuilds the run result.
func (e *Result) Decode() (*vqe.Result, error) {
	reason := vqe.HaltReason(e.Reason)
	switch reason {
	case vqe.HaltTolerance, vqe.HaltMaxIterations, vqe.HaltInterrupted:
	default:
		return nil, fmt.Errorf("unknown halt reason %q", e.Reason)
	}
	out := &vqe.Result{
		Iterations:  e.Iterations,
		Reason:      reason,
		Counts:      e.Counts,
		Interpreted: e.Interpreted,
	}
	if e.BestParams != nil {
		params, err := e.BestParams.Decode()
		if err != nil {
			return nil, err
		}
		out.BestParams = params
		out.HasBest = true
	}
	if e.BestCost != nil {
		out.BestCost = *e.BestCost
		out.HasBest = true
	}
	return out, nil
}
