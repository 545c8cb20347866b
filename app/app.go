// Package app provides ready-made problem encodings for the optimizer: graph
// max-cut and QUBO objectives mapped onto Ising observables, paired with
// interpreters that turn measured bit-strings back into domain values.
package app

import (
	"fmt"

	"github.com/qirin-io/qirin/quantum"
	"github.com/qirin-io/qirin/vqe"
)

// Problem is an application-level objective: it yields the observable to
// minimize and interprets measured bit-strings.
type Problem interface {
	Observable() (*quantum.Observable, error)
	vqe.Interpreter
}

// NewBuilder returns a VQE builder preloaded with the problem's observable
// and interpreter.
func NewBuilder(p Problem) (*vqe.Builder, error) {
	obs, err := p.Observable()
	if err != nil {
		return nil, err
	}
	return vqe.New().Observable(obs).Interpreter(p), nil
}

// BitAt reads qubit i's outcome from a measured bit-string, where the
// rightmost character holds qubit 0.
func BitAt(bits string, i int) (bool, error) {
	if i < 0 || i >= len(bits) {
		return false, fmt.Errorf("bit %d out of range for %d-bit string", i, len(bits))
	}
	return bits[len(bits)-1-i] == '1', nil
}

// identity returns an all-I Pauli string over n qubits.
func identity(n int) string {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 'I'
	}
	return string(buf)
}

// pauliZ returns a Pauli string with Z on the given qubits.
func pauliZ(n int, qubits ...int) string {
	buf := []byte(identity(n))
	for _, q := range qubits {
		buf[n-1-q] = 'Z'
	}
	return string(buf)
}
