package vqe

import (
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// Optimizer names the classical minimizer driving the loop. The zero value is
// not valid; use one of the constructors or FromName.
type Optimizer struct {
	name string
}

// NelderMead is the default derivative-free simplex method.
func NelderMead() Optimizer { return Optimizer{name: "nelder-mead"} }

// BFGS is a quasi-Newton method; gradients are estimated by finite
// differences of the cost function.
func BFGS() Optimizer { return Optimizer{name: "bfgs"} }

// OptimizerFromName resolves an optimizer by its encoded name.
func OptimizerFromName(name string) (Optimizer, error) {
	switch name {
	case "nelder-mead":
		return NelderMead(), nil
	case "bfgs":
		return BFGS(), nil
	}
	return Optimizer{}, fmt.Errorf("unknown optimizer %q", name)
}

// Name returns the encoded name of the optimizer.
func (o Optimizer) Name() string { return o.name }

// method returns a fresh minimizer instance and whether it needs gradients.
func (o Optimizer) method() (optimize.Method, bool, error) {
	switch o.name {
	case "", "nelder-mead":
		return &optimize.NelderMead{}, false, nil
	case "bfgs":
		return &optimize.BFGS{}, true, nil
	}
	return nil, false, fmt.Errorf("unknown optimizer %q", o.name)
}
