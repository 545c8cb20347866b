// Package cutting implements circuit cutting: a bounded combinatorial search
// for cut points under a device qubit budget, decomposition of a circuit into
// independent fragments, and weighted reconstruction of expectation values or
// bit-string distributions from fragment executions.
package cutting

import "fmt"

// CutKind distinguishes the cut action variants.
type CutKind int

const (
	// GateCut severs a two-qubit gate into two single-qubit halves.
	GateCut CutKind = iota
	// WireCut severs one wire immediately after the named instruction.
	WireCut
	// DoubleWireCut severs both wires of a two-qubit instruction immediately
	// after it.
	DoubleWireCut
)

func (k CutKind) String() string {
	switch k {
	case GateCut:
		return "gate"
	case WireCut:
		return "wire"
	case DoubleWireCut:
		return "double-wire"
	}
	return fmt.Sprintf("CutKind(%d)", int(k))
}

// CutAction designates one cut point in a circuit. Instruction is an index
// into the original circuit's instruction list. For wire cuts, Wires holds
// slot indices into that instruction's qubit list; the cut falls on the wire
// immediately after the instruction.
type CutAction struct {
	Kind        CutKind `json:"kind"`
	Instruction int     `json:"instruction"`
	Wires       []int   `json:"wires,omitempty"`
}

// FoundCutSolution is the output of the cut search: an ordered action list,
// the sampling overhead it incurs (the square of the quasi-probability
// one-norm) and whether the search proved the solution optimal.
type FoundCutSolution struct {
	SamplingOverhead float64     `json:"sampling_overhead"`
	MinimumReached   bool        `json:"minimum_reached"`
	Actions          []CutAction `json:"actions"`
}
