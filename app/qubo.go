package app

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/qirin-io/qirin/quantum"
)

// Qubo is a quadratic unconstrained binary optimization problem: minimize
// x^T Q x over binary vectors x, with Q a symmetric matrix.
type Qubo struct {
	q *mat.SymDense
}

// NewQubo wraps a symmetric coefficient matrix.
func NewQubo(q *mat.SymDense) *Qubo {
	return &Qubo{q: q}
}

// Observable builds the Ising form of the objective under the substitution
// x_i = (1 - Z_i) / 2.
func (q *Qubo) Observable() (*quantum.Observable, error) {
	n := q.q.SymmetricDim()
	if n == 0 {
		return nil, fmt.Errorf("qubo matrix is empty")
	}
	var constant float64
	single := make([]float64, n)
	var terms []quantum.PauliTerm
	for i := 0; i < n; i++ {
		d := q.q.At(i, i)
		constant += d / 2
		single[i] -= d / 2
		for j := i + 1; j < n; j++ {
			w := q.q.At(i, j)
			if w == 0 {
				continue
			}
			constant += w / 2
			single[i] -= w / 2
			single[j] -= w / 2
			terms = append(terms, quantum.PauliTerm{Paulis: pauliZ(n, i, j), Coeff: w / 2})
		}
	}
	for i, c := range single {
		if c != 0 {
			terms = append(terms, quantum.PauliTerm{Paulis: pauliZ(n, i), Coeff: c})
		}
	}
	terms = append(terms, quantum.PauliTerm{Paulis: identity(n), Coeff: constant})
	return quantum.NewObservable(n, terms)
}

// Interpret returns the binary assignment as a 0/1 vector in qubit order.
func (q *Qubo) Interpret(bits string) (any, error) {
	n := q.q.SymmetricDim()
	if len(bits) < n {
		return nil, fmt.Errorf("bit-string has %d bits, qubo has %d variables", len(bits), n)
	}
	x := make([]int, n)
	for i := range x {
		set, err := BitAt(bits, i)
		if err != nil {
			return nil, err
		}
		if set {
			x[i] = 1
		}
	}
	return x, nil
}

// Evaluate computes x^T Q x for the assignment described by a bit-string.
func (q *Qubo) Evaluate(bits string) (float64, error) {
	v, err := q.Interpret(bits)
	if err != nil {
		return 0, err
	}
	x := v.([]int)
	n := len(x)
	var total float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			total += q.q.At(i, j) * float64(x[i]) * float64(x[j])
		}
	}
	return total, nil
}
