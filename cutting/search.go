package cutting

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/qirin-io/qirin/quantum"
)

// Per-cut quasi-probability one-norms. A gate cut of a CX/CZ costs gamma 3, a
// single wire cut costs 4, cutting both wires of a gate costs 4*4.
const (
	gammaGate     = 3.0
	gammaWire     = 4.0
	gammaBothWire = 16.0
)

// SearchOptions bound the cut search.
type SearchOptions struct {
	// MaxBackjumps caps the number of backtracking steps before the search
	// returns its best solution so far. Zero means DefaultMaxBackjumps.
	MaxBackjumps int
	// Seed makes the traversal order reproducible. The traversal is
	// deterministic for a fixed seed.
	Seed int64
}

// DefaultMaxBackjumps is the search budget used when none is configured.
const DefaultMaxBackjumps = 10000

// ErrInfeasible reports that no cut set satisfying the qubit budget was found.
var ErrInfeasible = fmt.Errorf("no feasible cut under the qubit budget")

// searchGate is one two-qubit instruction considered by the search.
type searchGate struct {
	idx      int // instruction index in the circuit
	a, b     int // qubits
	cuttable bool
	laterA   bool // qubit a participates in a later two-qubit gate
	laterB   bool
	swapWire bool // seeded tie-break: try the b-wire cut before the a-wire cut
}

// FindCuts searches for a minimal-overhead set of cut actions that makes every
// fragment of the circuit fit within qubitBudget qubits. It runs a bounded
// branch-and-bound over per-gate choices (keep, gate cut, wire cuts), pruning
// branches whose partial overhead already exceeds the best complete solution.
func FindCuts(c *quantum.Circuit, qubitBudget int, opts SearchOptions, log zerolog.Logger) (*FoundCutSolution, error) {
	if qubitBudget < 1 {
		return nil, fmt.Errorf("qubit budget must be at least 1, got %d", qubitBudget)
	}
	if c.NumQubits <= qubitBudget {
		return &FoundCutSolution{SamplingOverhead: 1.0, MinimumReached: true}, nil
	}
	for i, ins := range c.Instructions {
		if len(ins.Qubits) > 2 {
			return nil, fmt.Errorf("instruction %d (%s): cannot cut circuits with >2-qubit gates", i, ins.Name)
		}
	}
	if opts.MaxBackjumps <= 0 {
		opts.MaxBackjumps = DefaultMaxBackjumps
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	var gates []searchGate
	for i, ins := range c.Instructions {
		if len(ins.Qubits) == 2 {
			gates = append(gates, searchGate{
				idx:      i,
				a:        ins.Qubits[0],
				b:        ins.Qubits[1],
				cuttable: ins.Name == "cx" || ins.Name == "cz",
				swapWire: rng.Intn(2) == 1,
			})
		}
	}
	for k := range gates {
		for _, later := range gates[k+1:] {
			if later.a == gates[k].a || later.b == gates[k].a {
				gates[k].laterA = true
			}
			if later.a == gates[k].b || later.b == gates[k].b {
				gates[k].laterB = true
			}
		}
	}

	s := &searcher{
		gates:        gates,
		budget:       qubitBudget,
		maxBackjumps: opts.MaxBackjumps,
		cur:          make([]int, c.NumQubits),
		dsu:          newDSU(c.NumQubits),
		bestGamma:    math.Inf(1),
	}
	for q := range s.cur {
		s.cur[q] = q
	}
	s.dfs(0, 1.0, nil)

	if math.IsInf(s.bestGamma, 1) {
		return nil, ErrInfeasible
	}
	sol := &FoundCutSolution{
		SamplingOverhead: s.bestGamma * s.bestGamma,
		MinimumReached:   !s.exhausted,
		Actions:          s.best,
	}
	log.Debug().
		Float64("overhead", sol.SamplingOverhead).
		Bool("minimum_reached", sol.MinimumReached).
		Int("actions", len(sol.Actions)).
		Int("backjumps", s.backjumps).
		Msg("cut search finished")
	return sol, nil
}

type searcher struct {
	gates        []searchGate
	budget       int
	maxBackjumps int
	backjumps    int
	exhausted    bool

	cur []int // current wire segment per qubit
	dsu *dsu

	bestGamma float64
	best      []CutAction
}

// choice identifiers for one gate.
const (
	chKeep = iota
	chGate
	chWireA
	chWireB
	chBoth
)

func (s *searcher) dfs(k int, gamma float64, actions []CutAction) {
	if s.exhausted {
		return
	}
	if k == len(s.gates) {
		if gamma < s.bestGamma {
			s.bestGamma = gamma
			s.best = append([]CutAction(nil), actions...)
		}
		return
	}
	g := s.gates[k]
	order := []int{chKeep, chGate, chWireA, chWireB, chBoth}
	if g.swapWire {
		order[2], order[3] = order[3], order[2]
	}
	for _, ch := range order {
		chGamma, ok := s.choiceGamma(g, ch)
		if !ok || gamma*chGamma >= s.bestGamma {
			continue
		}
		mark := s.dsu.mark()
		savedA, savedB := s.cur[g.a], s.cur[g.b]
		act, ok := s.applyChoice(g, ch)
		if ok {
			if act.Kind == CutKind(-1) {
				s.dfs(k+1, gamma*chGamma, actions)
			} else {
				s.dfs(k+1, gamma*chGamma, append(actions, act))
			}
		}
		s.dsu.rollback(mark)
		s.cur[g.a], s.cur[g.b] = savedA, savedB
		s.backjumps++
		if s.backjumps > s.maxBackjumps {
			s.exhausted = true
			return
		}
	}
}

func (s *searcher) choiceGamma(g searchGate, ch int) (float64, bool) {
	switch ch {
	case chKeep:
		return 1.0, true
	case chGate:
		return gammaGate, g.cuttable
	case chWireA:
		return gammaWire, g.laterA
	case chWireB:
		return gammaWire, g.laterB
	case chBoth:
		return gammaBothWire, g.laterA && g.laterB
	}
	return 0, false
}

// applyChoice mutates the segment/component state for one choice. The
// returned action has Kind -1 for choices that cut nothing. ok is false when
// the implied segment merge would exceed the qubit budget.
func (s *searcher) applyChoice(g searchGate, ch int) (CutAction, bool) {
	none := CutAction{Kind: CutKind(-1)}
	if ch == chGate {
		// The gate halves stay with their own segments; no merge happens.
		return CutAction{Kind: GateCut, Instruction: g.idx}, true
	}
	if !s.dsu.union(s.cur[g.a], s.cur[g.b], s.budget) {
		return none, false
	}
	switch ch {
	case chKeep:
		return none, true
	case chWireA:
		s.cur[g.a] = s.dsu.newSet()
		return CutAction{Kind: WireCut, Instruction: g.idx, Wires: []int{0}}, true
	case chWireB:
		s.cur[g.b] = s.dsu.newSet()
		return CutAction{Kind: WireCut, Instruction: g.idx, Wires: []int{1}}, true
	case chBoth:
		s.cur[g.a] = s.dsu.newSet()
		s.cur[g.b] = s.dsu.newSet()
		return CutAction{Kind: DoubleWireCut, Instruction: g.idx, Wires: []int{0, 1}}, true
	}
	return none, false
}

// dsu is a union-find over wire segments with rollback support. Path
// compression is omitted so that unions can be undone cheaply.
type dsu struct {
	parent []int
	size   []int
	undo   []int // roots whose parent was changed, in order
}

func newDSU(n int) *dsu {
	d := &dsu{parent: make([]int, n), size: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}
	return d
}

func (d *dsu) newSet() int {
	id := len(d.parent)
	d.parent = append(d.parent, id)
	d.size = append(d.size, 1)
	return id
}

func (d *dsu) find(x int) int {
	for d.parent[x] != x {
		x = d.parent[x]
	}
	return x
}

// union merges the sets of a and b unless the merged segment count would
// exceed budget. Already-joined sets always succeed.
func (d *dsu) union(a, b, budget int) bool {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return true
	}
	if d.size[ra]+d.size[rb] > budget {
		return false
	}
	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}
	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
	d.undo = append(d.undo, rb)
	return true
}

// mark captures the current state for a later rollback.
func (d *dsu) mark() [2]int {
	return [2]int{len(d.undo), len(d.parent)}
}

// rollback undoes every union and set creation since mark.
func (d *dsu) rollback(m [2]int) {
	for len(d.undo) > m[0] {
		rb := d.undo[len(d.undo)-1]
		d.undo = d.undo[:len(d.undo)-1]
		ra := d.parent[rb]
		d.size[ra] -= d.size[rb]
		d.parent[rb] = rb
	}
	d.parent = d.parent[:m[1]]
	d.size = d.size[:m[1]]
}
