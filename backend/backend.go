// Package backend defines the execution backend capability consumed by the
// experiment runner and the VQE driver, plus a local statevector backend used
// for tests and local runs. A backend executes a batch of circuits submitted
// in one call and returns results in submission order.
package backend

import (
	"context"

	"github.com/qirin-io/qirin/quantum"
)

// EstimatePub is one estimation submission: a circuit, the observable to
// estimate on its final state and the parameter values to bind.
type EstimatePub struct {
	Circuit    *quantum.Circuit
	Observable *quantum.Observable
	Bindings   map[quantum.Parameter]float64
}

// EstimateResult is an expectation value with its standard deviation.
type EstimateResult struct {
	Ev  float64 `json:"ev"`
	Std float64 `json:"std"`
}

// SamplePub is one sampling submission: a circuit containing measurements and
// the parameter values to bind.
type SamplePub struct {
	Circuit  *quantum.Circuit
	Bindings map[quantum.Parameter]float64
}

// SampleResult is a bit-string count table. Keys are strings over the
// circuit's classical bits with the rightmost character holding clbit 0.
type SampleResult struct {
	Counts map[string]int `json:"counts"`
	Shots  int            `json:"shots"`
}

// Estimator evaluates expectation values for a batch of circuits.
type Estimator interface {
	Estimate(ctx context.Context, pubs []EstimatePub) ([]EstimateResult, error)
}

// Sampler measures bit-string counts for a batch of circuits.
type Sampler interface {
	Sample(ctx context.Context, pubs []SamplePub, shots int) ([]SampleResult, error)
}

// Backend is an execution backend supporting both result kinds.
type Backend interface {
	Estimator
	Sampler
}
