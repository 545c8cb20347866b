package quantum

import (
	"fmt"
	"strings"
)

// PauliTerm is one weighted Pauli string. The string uses the conventional
// ordering where the leftmost character acts on the highest-index qubit, so
// "ZI" is Z on qubit 1 of a 2-qubit system.
type PauliTerm struct {
	Paulis string
	Coeff  float64
}

// At returns the Pauli character acting on qubit q.
func (t PauliTerm) At(q int) byte {
	return t.Paulis[len(t.Paulis)-1-q]
}

// Observable is a weighted sum of Pauli terms over a fixed qubit count.
type Observable struct {
	NumQubits int
	Terms     []PauliTerm
}

// NewObservable builds an observable from a term list, validating that every
// term has the right length and only I, X, Y, Z characters.
func NewObservable(numQubits int, terms []PauliTerm) (*Observable, error) {
	if numQubits <= 0 {
		return nil, fmt.Errorf("observable requires a positive qubit count, got %d", numQubits)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("observable requires at least one term")
	}
	for i, t := range terms {
		if len(t.Paulis) != numQubits {
			return nil, fmt.Errorf("term %d: pauli string %q has length %d, want %d", i, t.Paulis, len(t.Paulis), numQubits)
		}
		if j := strings.IndexFunc(t.Paulis, func(r rune) bool {
			return r != 'I' && r != 'X' && r != 'Y' && r != 'Z'
		}); j >= 0 {
			return nil, fmt.Errorf("term %d: invalid pauli character %q in %q", i, t.Paulis[j], t.Paulis)
		}
	}
	out := &Observable{NumQubits: numQubits, Terms: make([]PauliTerm, len(terms))}
	copy(out.Terms, terms)
	return out, nil
}

// MustObservable is NewObservable that panics on invalid input. Intended for
// literals in tests and examples.
func MustObservable(numQubits int, terms []PauliTerm) *Observable {
	obs, err := NewObservable(numQubits, terms)
	if err != nil {
		panic(err)
	}
	return obs
}

// Clone returns a deep copy of the observable.
func (o *Observable) Clone() *Observable {
	out := &Observable{NumQubits: o.NumQubits, Terms: make([]PauliTerm, len(o.Terms))}
	copy(out.Terms, o.Terms)
	return out
}
