package cutting

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/qirin-io/qirin/backend"
	"github.com/qirin-io/qirin/quantum"
)

// WeightKind tells whether a reconstruction coefficient comes from the full
// channel expansion or from a truncated one.
type WeightKind int

const (
	// WeightExact means every channel combination is present.
	WeightExact WeightKind = iota
	// WeightSampled means the combination list was truncated to a cap.
	WeightSampled
)

func (k WeightKind) String() string {
	if k == WeightSampled {
		return "sampled"
	}
	return "exact"
}

// Coefficient is one reconstruction weight: the product of the channel
// coefficients chosen at each cut.
type Coefficient struct {
	Value float64    `json:"value"`
	Kind  WeightKind `json:"kind"`
}

// ExperimentOptions control sub-experiment generation and execution.
type ExperimentOptions struct {
	// Shots per sub-experiment. Zero means DefaultShots.
	Shots int
	// SampleCap truncates the channel combination list to this many entries,
	// keeping a deterministic prefix. Zero means no cap; generation fails if
	// the full expansion exceeds MaxExactCombinations.
	SampleCap int
}

// DefaultShots is the per-experiment shot count used when none is configured.
const DefaultShots = 4096

// MaxExactCombinations bounds the uncapped channel expansion.
const MaxExactCombinations = 1 << 20

// ExperimentSet holds the generated sub-experiments for one cut circuit and
// observable, plus the bookkeeping needed to reconstruct the expectation
// value from their results.
type ExperimentSet struct {
	Decomp  *Decomposition
	Obs     *quantum.Observable
	Weights []Coefficient
	Pubs    []backend.SamplePub

	combos   [][]int
	frags    []fragMeta
	meta     []pubMeta
	pubIndex map[[3]int]int // fragment, combo, group
}

type pubMeta struct {
	frag, combo, group int
	signBits           []int
}

type finalWire struct {
	orig  int // original qubit
	local int // qubit in the fragment
}

type fragMeta struct {
	finals    []finalWire // ascending by original qubit; clbit = slice index
	termBasis []string    // per observable term, basis over finals
	groupOf   []int       // per observable term, measurement group
	groups    []string    // merged basis per group
}

// GenerateExperiments expands the cuts of a decomposition into weighted
// channel combinations and builds one sampling sub-experiment per
// (combination, fragment, measurement basis group). Observable terms whose
// restrictions to a fragment are qubit-wise compatible share a basis group.
func GenerateExperiments(d *Decomposition, obs *quantum.Observable, bindings map[quantum.Parameter]float64, opts ExperimentOptions) (*ExperimentSet, error) {
	if obs.NumQubits != d.Circuit.NumQubits {
		return nil, fmt.Errorf("observable has %d qubits, circuit has %d", obs.NumQubits, d.Circuit.NumQubits)
	}
	channels := make([][]qpdChannel, len(d.Cuts))
	for i, cut := range d.Cuts {
		chs, err := channelsFor(cut)
		if err != nil {
			return nil, fmt.Errorf("cut %d: %w", i, err)
		}
		channels[i] = chs
	}
	weights, combos, err := expandWeights(channels, opts.SampleCap)
	if err != nil {
		return nil, err
	}

	set := &ExperimentSet{
		Decomp:   d,
		Obs:      obs,
		Weights:  weights,
		combos:   combos,
		frags:    make([]fragMeta, len(d.Fragments)),
		pubIndex: make(map[[3]int]int),
	}
	for f := range d.Fragments {
		set.frags[f] = buildFragMeta(d, obs, f)
	}
	for t := range combos {
		for f := range d.Fragments {
			fm := &set.frags[f]
			for g, basis := range fm.groups {
				circ, signBits, err := buildVariant(&d.Fragments[f], channels, combos[t], fm.finals, basis)
				if err != nil {
					return nil, fmt.Errorf("fragment %s: %w", d.Fragments[f].Label, err)
				}
				set.pubIndex[[3]int{f, t, g}] = len(set.Pubs)
				set.Pubs = append(set.Pubs, backend.SamplePub{Circuit: circ, Bindings: bindings})
				set.meta = append(set.meta, pubMeta{frag: f, combo: t, group: g, signBits: signBits})
			}
		}
	}
	return set, nil
}

// Bind returns the sub-experiment pubs with a parameter binding applied. The
// circuits are shared; only the bindings differ between calls.
func (s *ExperimentSet) Bind(bindings map[quantum.Parameter]float64) []backend.SamplePub {
	pubs := make([]backend.SamplePub, len(s.Pubs))
	copy(pubs, s.Pubs)
	for i := range pubs {
		pubs[i].Bindings = bindings
	}
	return pubs
}

// expandWeights enumerates channel index combinations across all cuts in
// lexicographic order. Channel coefficients all share the same magnitude, so
// a truncated prefix is a deterministic top-weight selection.
func expandWeights(channels [][]qpdChannel, cap int) ([]Coefficient, [][]int, error) {
	total := 1.0
	for _, chs := range channels {
		total *= float64(len(chs))
	}
	truncated := cap > 0 && total > float64(cap)
	if !truncated && total > MaxExactCombinations {
		return nil, nil, fmt.Errorf("channel expansion has %.0f combinations, set a sample cap", total)
	}
	kind := WeightExact
	limit := int(total)
	if truncated {
		kind = WeightSampled
		limit = cap
	}

	var weights []Coefficient
	var combos [][]int
	combo := make([]int, len(channels))
	for len(combos) < limit {
		w := 1.0
		for i, ch := range combo {
			w *= channels[i][ch].coeff
		}
		weights = append(weights, Coefficient{Value: w, Kind: kind})
		combos = append(combos, append([]int(nil), combo...))
		// Advance the odometer.
		i := len(combo) - 1
		for ; i >= 0; i-- {
			combo[i]++
			if combo[i] < len(channels[i]) {
				break
			}
			combo[i] = 0
		}
		if i < 0 {
			break
		}
	}
	return weights, combos, nil
}

func buildFragMeta(d *Decomposition, obs *quantum.Observable, f int) fragMeta {
	var fm fragMeta
	for q := 0; q < d.Circuit.NumQubits; q++ {
		if d.FinalWires[q].Fragment == f {
			fm.finals = append(fm.finals, finalWire{orig: q, local: d.FinalWires[q].Qubit})
		}
	}
	fm.termBasis = make([]string, len(obs.Terms))
	fm.groupOf = make([]int, len(obs.Terms))
	for k, term := range obs.Terms {
		basis := make([]byte, len(fm.finals))
		for i, fw := range fm.finals {
			basis[i] = term.At(fw.orig)
		}
		fm.termBasis[k] = string(basis)
		fm.groupOf[k] = mergeIntoGroup(&fm.groups, string(basis))
	}
	if len(fm.groups) == 0 {
		fm.groups = []string{""}
	}
	return fm
}

// mergeIntoGroup places a basis string into the first compatible group,
// treating I as a wildcard, and returns the group index.
func mergeIntoGroup(groups *[]string, basis string) int {
	for g, cur := range *groups {
		merged := []byte(cur)
		ok := true
		for i := 0; i < len(basis); i++ {
			switch {
			case basis[i] == 'I':
			case cur[i] == 'I' || cur[i] == basis[i]:
				merged[i] = basis[i]
			default:
				ok = false
			}
			if !ok {
				break
			}
		}
		if ok {
			(*groups)[g] = string(merged)
			return g
		}
	}
	*groups = append(*groups, basis)
	return len(*groups) - 1
}

// buildVariant instantiates one fragment for one channel combination and one
// measurement basis: placeholder markers become the channel operations of
// their cut, final wires get basis rotations and terminal measurements.
// Classical bits 0..len(finals)-1 hold the observable outcomes, one bit per
// measurable placeholder follows. The returned signBits are the classical
// bits whose outcome flips the term sign under this combination.
func buildVariant(frag *Fragment, channels [][]qpdChannel, combo []int, finals []finalWire, basis string) (*quantum.Circuit, []int, error) {
	out := quantum.New(frag.Circuit.NumQubits)
	out.NumClbits = len(finals)

	// One reserved classical bit per placeholder that can measure, in
	// placeholder order, so the layout is identical across combinations.
	qpdClbit := make(map[int]int, len(frag.Placeholders))
	next := len(finals)
	for p, ph := range frag.Placeholders {
		if ph.Role != RoleWirePrep {
			qpdClbit[p] = next
			next++
		}
	}

	var signBits []int
	phIdx := 0
	for pos, ins := range frag.Circuit.Instructions {
		if phIdx < len(frag.Placeholders) && frag.Placeholders[phIdx].Position == pos {
			ph := frag.Placeholders[phIdx]
			ch := channels[ph.Cut][combo[ph.Cut]]
			side := ch.a
			if ph.Role == RoleGateB || ph.Role == RoleWirePrep {
				side = ch.b
			}
			emitOps(out, ph.Qubit, side.pre)
			if side.meas {
				cb, ok := qpdClbit[phIdx]
				if !ok {
					return nil, nil, fmt.Errorf("placeholder %d: measurement on a prepare end", phIdx)
				}
				out.Measure(ph.Qubit, cb)
				if side.sign {
					signBits = append(signBits, cb)
				}
			}
			emitOps(out, ph.Qubit, side.post)
			phIdx++
			continue
		}
		if ins.Name == "measure" {
			return nil, nil, fmt.Errorf("fragment already contains a measurement at %d", pos)
		}
		out.Instructions = append(out.Instructions, ins)
	}

	for i, fw := range finals {
		switch basis[i] {
		case 'X':
			out.H(fw.local)
		case 'Y':
			out.Sdg(fw.local)
			out.H(fw.local)
		}
		out.Measure(fw.local, i)
	}
	if out.NumClbits < next {
		out.NumClbits = next
	}
	return out, signBits, nil
}

func emitOps(c *quantum.Circuit, q int, ops []gateOp) {
	for _, op := range ops {
		c.Instructions = append(c.Instructions, quantum.Instruction{
			Name:   op.name,
			Qubits: []int{q},
			Value:  op.value,
		})
	}
}

// Reconstruct folds sub-experiment results back into the expectation value of
// the full observable: for each term, the weighted sum over channel
// combinations of the product of per-fragment eigenvalue means.
func Reconstruct(set *ExperimentSet, results []backend.SampleResult) (float64, error) {
	if len(results) != len(set.Pubs) {
		return 0, fmt.Errorf("got %d results for %d experiments", len(results), len(set.Pubs))
	}
	// Per-pub, per-term eigenvalue means, computed on demand.
	mu := make([]map[int]float64, len(results))

	var ev float64
	for k, term := range set.Obs.Terms {
		var sum float64
		for t := range set.combos {
			prod := set.Weights[t].Value
			for f := range set.Decomp.Fragments {
				fm := &set.frags[f]
				p := set.pubIndex[[3]int{f, t, fm.groupOf[k]}]
				if mu[p] == nil {
					mu[p] = make(map[int]float64)
				}
				m, ok := mu[p][k]
				if !ok {
					m = eigenvalueMean(results[p], fm.termBasis[k], set.meta[p].signBits)
					mu[p][k] = m
				}
				prod *= m
			}
			sum += prod
		}
		ev += term.Coeff * sum
	}
	return ev, nil
}

// eigenvalueMean is the counts-weighted mean of the +-1 eigenvalue read off a
// result: parity over the observable bits the term acts on, times parity over
// the sign-carrying decomposition bits. Keys are folded in sorted order so the
// accumulation order is identical across runs.
func eigenvalueMean(res backend.SampleResult, termBasis string, signBits []int) float64 {
	keys := make([]string, 0, len(res.Counts))
	for key := range res.Counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	vals := make([]float64, 0, len(res.Counts))
	weights := make([]float64, 0, len(res.Counts))
	for _, key := range keys {
		cnt := res.Counts[key]
		v := 1.0
		for i := 0; i < len(termBasis); i++ {
			if termBasis[i] != 'I' && bitAt(key, i) {
				v = -v
			}
		}
		for _, cb := range signBits {
			if bitAt(key, cb) {
				v = -v
			}
		}
		vals = append(vals, v)
		weights = append(weights, float64(cnt))
	}
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, weights)
}

// bitAt reads classical bit cb from a counts key, where the rightmost
// character holds bit 0.
func bitAt(key string, cb int) bool {
	return key[len(key)-1-cb] == '1'
}

// EstimateCut generates the sub-experiments for a cut circuit, runs them as
// one batch and reconstructs the observable's expectation value.
func EstimateCut(ctx context.Context, sampler backend.Sampler, d *Decomposition, obs *quantum.Observable, bindings map[quantum.Parameter]float64, opts ExperimentOptions, log zerolog.Logger) (float64, error) {
	set, err := GenerateExperiments(d, obs, bindings, opts)
	if err != nil {
		return 0, fmt.Errorf("generate experiments: %w", err)
	}
	shots := opts.Shots
	if shots <= 0 {
		shots = DefaultShots
	}
	log.Debug().
		Int("fragments", len(d.Fragments)).
		Int("combinations", len(set.Weights)).
		Int("experiments", len(set.Pubs)).
		Int("shots", shots).
		Msg("running cut experiments")
	results, err := sampler.Sample(ctx, set.Pubs, shots)
	if err != nil {
		return 0, fmt.Errorf("run experiments: %w", err)
	}
	return Reconstruct(set, results)
}
