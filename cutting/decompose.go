package cutting

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/qirin-io/qirin/quantum"
)

// Cut is one cut point materialized by Apply, in circuit order. A
// DoubleWireCut action materializes as two consecutive WireCut entries.
type Cut struct {
	Kind CutKind
	Gate string // original gate name, gate cuts only
}

// PlaceholderRole identifies which end of a cut a placeholder stands for.
type PlaceholderRole int

const (
	// RoleGateA is the half of a cut gate on the instruction's first qubit.
	RoleGateA PlaceholderRole = iota
	// RoleGateB is the half on the second qubit.
	RoleGateB
	// RoleWireMeas is the upstream, measured end of a cut wire.
	RoleWireMeas
	// RoleWirePrep is the downstream, freshly prepared end of a cut wire.
	RoleWirePrep
)

// Placeholder marks a fragment instruction that gets replaced by the channel
// operations of its cut when an experiment variant is built.
type Placeholder struct {
	Cut      int             // index into Decomposition.Cuts
	Role     PlaceholderRole
	Qubit    int             // local qubit in the fragment
	Position int             // instruction index of the marker in the fragment
}

// Fragment is one independently executable piece of a cut circuit. Its
// circuit contains "qpd" marker instructions at the placeholder positions.
type Fragment struct {
	Label        string
	Circuit      *quantum.Circuit
	Placeholders []Placeholder
}

// QubitRef locates a wire inside a decomposition.
type QubitRef struct {
	Fragment int
	Qubit    int
}

// Decomposition is the result of cutting a circuit: the cut-marked circuit,
// the materialized cuts in circuit order, the fragments, and the location of
// every original qubit's final wire segment.
type Decomposition struct {
	Circuit    *quantum.Circuit
	Cuts       []Cut
	Fragments  []Fragment
	FinalWires []QubitRef // indexed by original qubit
}

// Overhead returns the sampling overhead of the decomposition, the squared
// product of the per-cut one-norms.
func (d *Decomposition) Overhead() float64 {
	gamma := 1.0
	for _, cut := range d.Cuts {
		if cut.Kind == GateCut {
			gamma *= gammaGate
		} else {
			gamma *= gammaWire
		}
	}
	return gamma * gamma
}

// Apply marks the cut actions in a copy of the circuit. Gate cuts rename the
// instruction with a "qpd_" prefix; wire cuts insert a "cut_wire" marker on
// the wire immediately after the instruction. Actions must be ordered by
// ascending instruction index.
func Apply(c *quantum.Circuit, actions []CutAction) (*quantum.Circuit, []Cut, error) {
	out := c.Clone()
	var cuts []Cut
	offset := 0
	prev := -1
	for n, act := range actions {
		if act.Instruction < 0 || act.Instruction >= len(c.Instructions) {
			return nil, nil, fmt.Errorf("action %d: instruction %d out of range [0,%d)", n, act.Instruction, len(c.Instructions))
		}
		if act.Instruction < prev {
			return nil, nil, fmt.Errorf("action %d: actions must be ordered by instruction index", n)
		}
		prev = act.Instruction
		ins := &out.Instructions[act.Instruction+offset]
		switch act.Kind {
		case GateCut:
			if ins.Name != "cx" && ins.Name != "cz" {
				return nil, nil, fmt.Errorf("action %d: cannot gate-cut %q", n, ins.Name)
			}
			cuts = append(cuts, Cut{Kind: GateCut, Gate: ins.Name})
			ins.Name = "qpd_" + ins.Name
		case WireCut, DoubleWireCut:
			if len(act.Wires) == 0 {
				return nil, nil, fmt.Errorf("action %d: wire cut without wire slots", n)
			}
			wires := append([]int(nil), act.Wires...)
			sort.Ints(wires)
			base := act.Instruction + offset
			for k, w := range wires {
				if w < 0 || w >= len(ins.Qubits) {
					return nil, nil, fmt.Errorf("action %d: wire slot %d out of range for %q", n, w, ins.Name)
				}
				if k > 0 && wires[k-1] == w {
					return nil, nil, fmt.Errorf("action %d: duplicate wire slot %d", n, w)
				}
				marker := quantum.Instruction{Name: "cut_wire", Qubits: []int{ins.Qubits[w]}}
				at := base + 1 + k
				out.Instructions = append(out.Instructions, quantum.Instruction{})
				copy(out.Instructions[at+1:], out.Instructions[at:])
				out.Instructions[at] = marker
				offset++
				ins = &out.Instructions[base]
				cuts = append(cuts, Cut{Kind: WireCut})
			}
		default:
			return nil, nil, fmt.Errorf("action %d: unknown cut kind %d", n, act.Kind)
		}
	}
	return out, cuts, nil
}

// isCutMarker reports whether an instruction stands for a cut.
func isCutMarker(ins quantum.Instruction) bool {
	return ins.Name == "cut_wire" || strings.HasPrefix(ins.Name, "qpd_")
}

// Partition splits a cut-marked circuit into fragments. Wires are tracked as
// segments: a wire cut ends one segment and starts a fresh one, a cut gate
// does not connect its two qubits, every other multi-qubit instruction merges
// the segments it touches into one component. Each connected component of
// segments becomes a fragment, labeled A, B, ... by its lowest segment id.
func Partition(c *quantum.Circuit, cuts []Cut) (*Decomposition, error) {
	n := c.NumQubits
	seg := make([]int, n)
	for q := range seg {
		seg[q] = q
	}
	comp := newDSU(n)

	// Pass 1: record the segment of every qubit at each instruction and build
	// the component structure.
	snaps := make([][]int, len(c.Instructions))
	cutIdx := 0
	for i, ins := range c.Instructions {
		snap := make([]int, len(ins.Qubits))
		for k, q := range ins.Qubits {
			snap[k] = seg[q]
		}
		switch {
		case ins.Name == "cut_wire":
			if cutIdx >= len(cuts) || cuts[cutIdx].Kind != WireCut {
				return nil, fmt.Errorf("instruction %d: wire marker does not match cut list", i)
			}
			fresh := comp.newSet()
			seg[ins.Qubits[0]] = fresh
			snap = append(snap, fresh)
			cutIdx++
		case strings.HasPrefix(ins.Name, "qpd_"):
			if cutIdx >= len(cuts) || cuts[cutIdx].Kind != GateCut {
				return nil, fmt.Errorf("instruction %d: gate marker does not match cut list", i)
			}
			cutIdx++
		default:
			for k := 1; k < len(snap); k++ {
				comp.union(snap[0], snap[k], math.MaxInt)
			}
		}
		snaps[i] = snap
	}
	if cutIdx != len(cuts) {
		return nil, fmt.Errorf("circuit has %d cut markers, cut list has %d entries", cutIdx, len(cuts))
	}

	// Group segments into fragments ordered by lowest segment id, and assign
	// local qubit indices by ascending segment id.
	total := len(comp.parent)
	groups := make(map[int][]int)
	for s := 0; s < total; s++ {
		r := comp.find(s)
		groups[r] = append(groups[r], s)
	}
	roots := make([]int, 0, len(groups))
	for r := range groups {
		roots = append(roots, r)
	}
	sort.Slice(roots, func(i, j int) bool { return groups[roots[i]][0] < groups[roots[j]][0] })

	segFrag := make([]int, total)
	segLocal := make([]int, total)
	fragments := make([]Fragment, len(roots))
	for f, r := range roots {
		segs := groups[r]
		for local, s := range segs {
			segFrag[s] = f
			segLocal[s] = local
		}
		circ := quantum.New(len(segs))
		circ.NumClbits = c.NumClbits
		fragments[f] = Fragment{Label: fragmentLabel(f), Circuit: circ}
	}

	// Pass 2: emit instructions into their fragments.
	cutIdx = 0
	for i, ins := range c.Instructions {
		snap := snaps[i]
		switch {
		case ins.Name == "cut_wire":
			old, fresh := snap[0], snap[1]
			addPlaceholder(&fragments[segFrag[old]], cutIdx, RoleWireMeas, segLocal[old])
			addPlaceholder(&fragments[segFrag[fresh]], cutIdx, RoleWirePrep, segLocal[fresh])
			cutIdx++
		case strings.HasPrefix(ins.Name, "qpd_"):
			addPlaceholder(&fragments[segFrag[snap[0]]], cutIdx, RoleGateA, segLocal[snap[0]])
			addPlaceholder(&fragments[segFrag[snap[1]]], cutIdx, RoleGateB, segLocal[snap[1]])
			cutIdx++
		default:
			f := segFrag[snap[0]]
			emitted := cloneForFragment(ins, snap, segLocal)
			fragments[f].Circuit.Instructions = append(fragments[f].Circuit.Instructions, emitted)
		}
	}

	final := make([]QubitRef, n)
	for q := 0; q < n; q++ {
		final[q] = QubitRef{Fragment: segFrag[seg[q]], Qubit: segLocal[seg[q]]}
	}
	return &Decomposition{Circuit: c, Cuts: cuts, Fragments: fragments, FinalWires: final}, nil
}

// Decompose applies the cut actions and partitions the result.
func Decompose(c *quantum.Circuit, actions []CutAction) (*Decomposition, error) {
	marked, cuts, err := Apply(c, actions)
	if err != nil {
		return nil, err
	}
	return Partition(marked, cuts)
}

func addPlaceholder(f *Fragment, cut int, role PlaceholderRole, local int) {
	f.Circuit.Instructions = append(f.Circuit.Instructions, quantum.Instruction{
		Name:   "qpd",
		Qubits: []int{local},
	})
	f.Placeholders = append(f.Placeholders, Placeholder{
		Cut:      cut,
		Role:     role,
		Qubit:    local,
		Position: len(f.Circuit.Instructions) - 1,
	})
}

func cloneForFragment(ins quantum.Instruction, snap, segLocal []int) quantum.Instruction {
	out := ins
	out.Qubits = make([]int, len(ins.Qubits))
	for k := range ins.Qubits {
		out.Qubits[k] = segLocal[snap[k]]
	}
	out.Clbits = append([]int(nil), ins.Clbits...)
	return out
}

func fragmentLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("F%d", i)
}
