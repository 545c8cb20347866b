package quantum

import "fmt"

// EfficientSU2 builds a hardware-efficient ansatz: a layer of RY and RZ
// rotations on every qubit, then reps repetitions of a linear CX entangler
// followed by another rotation layer. Parameters are named t0, t1, ... in
// circuit order; the total count is 2*numQubits*(reps+1).
func EfficientSU2(numQubits, reps int) *Circuit {
	c := New(numQubits)
	next := 0
	param := func() Parameter {
		p := Parameter(fmt.Sprintf("t%d", next))
		next++
		return p
	}
	rotationLayer := func() {
		for q := 0; q < numQubits; q++ {
			c.RYParam(q, param())
		}
		for q := 0; q < numQubits; q++ {
			c.RZParam(q, param())
		}
	}
	rotationLayer()
	for r := 0; r < reps; r++ {
		for q := 0; q < numQubits-1; q++ {
			c.CX(q, q+1)
		}
		rotationLayer()
	}
	return c
}
