// Package quantum provides the immutable circuit and observable model used by
// the cutting engine and the VQE driver. Circuits are built once through the
// fluent gate methods and treated as read-only afterwards; every transform
// (Bind, MeasureAll, Clone) returns a fresh circuit.
package quantum

import (
	"fmt"
)

// Parameter is the name of a free circuit parameter.
type Parameter string

// Instruction is a single operation in a circuit. A rotation carries either a
// bound angle in Value or a free Parameter name, never both.
type Instruction struct {
	Name   string
	Qubits []int
	Clbits []int
	Param  Parameter
	Value  float64
}

// Circuit is an ordered instruction sequence over a fixed qubit count.
type Circuit struct {
	NumQubits    int
	NumClbits    int
	Instructions []Instruction
}

// New creates an empty circuit over the given number of qubits.
func New(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// Clone returns a deep copy of the circuit.
func (c *Circuit) Clone() *Circuit {
	out := &Circuit{
		NumQubits:    c.NumQubits,
		NumClbits:    c.NumClbits,
		Instructions: make([]Instruction, len(c.Instructions)),
	}
	for i, ins := range c.Instructions {
		out.Instructions[i] = cloneInstruction(ins)
	}
	return out
}

func cloneInstruction(ins Instruction) Instruction {
	out := ins
	out.Qubits = append([]int(nil), ins.Qubits...)
	out.Clbits = append([]int(nil), ins.Clbits...)
	return out
}

func (c *Circuit) add(ins Instruction) *Circuit {
	c.Instructions = append(c.Instructions, ins)
	return c
}

// H appends a Hadamard gate.
func (c *Circuit) H(q int) *Circuit { return c.add(Instruction{Name: "h", Qubits: []int{q}}) }

// X appends a Pauli-X gate.
func (c *Circuit) X(q int) *Circuit { return c.add(Instruction{Name: "x", Qubits: []int{q}}) }

// Y appends a Pauli-Y gate.
func (c *Circuit) Y(q int) *Circuit { return c.add(Instruction{Name: "y", Qubits: []int{q}}) }

// Z appends a Pauli-Z gate.
func (c *Circuit) Z(q int) *Circuit { return c.add(Instruction{Name: "z", Qubits: []int{q}}) }

// S appends a phase gate.
func (c *Circuit) S(q int) *Circuit { return c.add(Instruction{Name: "s", Qubits: []int{q}}) }

// Sdg appends an inverse phase gate.
func (c *Circuit) Sdg(q int) *Circuit { return c.add(Instruction{Name: "sdg", Qubits: []int{q}}) }

// RX appends an X rotation with a bound angle.
func (c *Circuit) RX(q int, theta float64) *Circuit {
	return c.add(Instruction{Name: "rx", Qubits: []int{q}, Value: theta})
}

// RY appends a Y rotation with a bound angle.
func (c *Circuit) RY(q int, theta float64) *Circuit {
	return c.add(Instruction{Name: "ry", Qubits: []int{q}, Value: theta})
}

// RZ appends a Z rotation with a bound angle.
func (c *Circuit) RZ(q int, theta float64) *Circuit {
	return c.add(Instruction{Name: "rz", Qubits: []int{q}, Value: theta})
}

// RXParam appends an X rotation with a free parameter.
func (c *Circuit) RXParam(q int, p Parameter) *Circuit {
	return c.add(Instruction{Name: "rx", Qubits: []int{q}, Param: p})
}

// RYParam appends a Y rotation with a free parameter.
func (c *Circuit) RYParam(q int, p Parameter) *Circuit {
	return c.add(Instruction{Name: "ry", Qubits: []int{q}, Param: p})
}

// RZParam appends a Z rotation with a free parameter.
func (c *Circuit) RZParam(q int, p Parameter) *Circuit {
	return c.add(Instruction{Name: "rz", Qubits: []int{q}, Param: p})
}

// CX appends a controlled-X gate.
func (c *Circuit) CX(control, target int) *Circuit {
	return c.add(Instruction{Name: "cx", Qubits: []int{control, target}})
}

// CZ appends a controlled-Z gate.
func (c *Circuit) CZ(a, b int) *Circuit {
	return c.add(Instruction{Name: "cz", Qubits: []int{a, b}})
}

// Measure appends a measurement of qubit q into classical bit cb, growing the
// classical register if needed.
func (c *Circuit) Measure(q, cb int) *Circuit {
	if cb >= c.NumClbits {
		c.NumClbits = cb + 1
	}
	return c.add(Instruction{Name: "measure", Qubits: []int{q}, Clbits: []int{cb}})
}

// Parameters returns the free parameters of the circuit in order of first
// appearance. The order defines how a flat parameter vector maps onto the
// circuit.
func (c *Circuit) Parameters() []Parameter {
	seen := make(map[Parameter]bool)
	var out []Parameter
	for _, ins := range c.Instructions {
		if ins.Param != "" && !seen[ins.Param] {
			seen[ins.Param] = true
			out = append(out, ins.Param)
		}
	}
	return out
}

// NumParameters returns the number of distinct free parameters.
func (c *Circuit) NumParameters() int { return len(c.Parameters()) }

// Bind returns a copy of the circuit with every free parameter replaced by its
// value from the given bindings. A parameter missing from the bindings is an
// error.
func (c *Circuit) Bind(bindings map[Parameter]float64) (*Circuit, error) {
	out := c.Clone()
	for i := range out.Instructions {
		p := out.Instructions[i].Param
		if p == "" {
			continue
		}
		v, ok := bindings[p]
		if !ok {
			return nil, fmt.Errorf("unbound parameter %q", p)
		}
		out.Instructions[i].Param = ""
		out.Instructions[i].Value = v
	}
	return out, nil
}

// MeasureAll returns a copy of the circuit with a terminal measurement of
// every qubit into the classical bit of the same index.
func (c *Circuit) MeasureAll() *Circuit {
	out := c.Clone()
	if out.NumClbits < out.NumQubits {
		out.NumClbits = out.NumQubits
	}
	for q := 0; q < out.NumQubits; q++ {
		out.Instructions = append(out.Instructions, Instruction{
			Name:   "measure",
			Qubits: []int{q},
			Clbits: []int{q},
		})
	}
	return out
}

// Validate checks that every instruction references qubits and classical bits
// inside the circuit's registers.
func (c *Circuit) Validate() error {
	for i, ins := range c.Instructions {
		for _, q := range ins.Qubits {
			if q < 0 || q >= c.NumQubits {
				return fmt.Errorf("instruction %d (%s): qubit %d out of range [0,%d)", i, ins.Name, q, c.NumQubits)
			}
		}
		for _, cb := range ins.Clbits {
			if cb < 0 || cb >= c.NumClbits {
				return fmt.Errorf("instruction %d (%s): clbit %d out of range [0,%d)", i, ins.Name, cb, c.NumClbits)
			}
		}
	}
	return nil
}
