package cutting

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/qirin-io/qirin/backend"
	"github.com/qirin-io/qirin/quantum"
)

// SampleCut reconstructs a quasi-probability distribution over the original
// circuit's classical bits from fragment executions. The decomposition must
// come from a circuit that already contains its terminal measurements. Entries
// can be slightly negative; the distribution sums to approximately one.
func SampleCut(ctx context.Context, sampler backend.Sampler, d *Decomposition, bindings map[quantum.Parameter]float64, opts ExperimentOptions, log zerolog.Logger) (map[string]float64, error) {
	if d.Circuit.NumClbits == 0 {
		return nil, fmt.Errorf("circuit has no measurements to sample")
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
	shots := opts.Shots
	if shots <= 0 {
		shots = DefaultShots
	}

	// One pub per (combination, fragment), in that nesting order.
	var pubs []backend.SamplePub
	signBits := make([][]int, 0, len(combos)*len(d.Fragments))
	for _, combo := range combos {
		for f := range d.Fragments {
			circ, signs, err := sampleVariant(&d.Fragments[f], channels, combo)
			if err != nil {
				return nil, fmt.Errorf("fragment %s: %w", d.Fragments[f].Label, err)
			}
			pubs = append(pubs, backend.SamplePub{Circuit: circ, Bindings: bindings})
			signBits = append(signBits, signs)
		}
	}
	log.Debug().
		Int("fragments", len(d.Fragments)).
		Int("combinations", len(combos)).
		Int("experiments", len(pubs)).
		Int("shots", shots).
		Msg("running cut sampling experiments")
	results, err := sampler.Sample(ctx, pubs, shots)
	if err != nil {
		return nil, fmt.Errorf("run experiments: %w", err)
	}

	// Keys are folded in sorted order so the accumulation order is identical
	// across runs.
	zero := strings.Repeat("0", d.Circuit.NumClbits)
	quasi := make(map[string]float64)
	for t := range combos {
		// Signed distribution per fragment over the original classical bits.
		acc := map[string]float64{zero: 1.0}
		for f := range d.Fragments {
			p := t*len(d.Fragments) + f
			dist := projectSigned(results[p], d.Circuit.NumClbits, signBits[p])
			next := make(map[string]float64, len(acc)*len(dist))
			for _, k1 := range sortedKeys(acc) {
				for _, k2 := range sortedKeys(dist) {
					next[mergeBits(k1, k2)] += acc[k1] * dist[k2]
				}
			}
			acc = next
		}
		for _, key := range sortedKeys(acc) {
			quasi[key] += weights[t].Value * acc[key]
		}
	}
	return quasi, nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// sampleVariant instantiates one fragment for one channel combination,
// keeping the fragment's own measurements on their original classical bits
// and appending one bit per measurable placeholder.
func sampleVariant(frag *Fragment, channels [][]qpdChannel, combo []int) (*quantum.Circuit, []int, error) {
	out := quantum.New(frag.Circuit.NumQubits)
	out.NumClbits = frag.Circuit.NumClbits

	qpdClbit := make(map[int]int, len(frag.Placeholders))
	next := frag.Circuit.NumClbits
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
		out.Instructions = append(out.Instructions, ins)
	}
	if out.NumClbits < next {
		out.NumClbits = next
	}
	return out, signBits, nil
}

// projectSigned strips the decomposition bits off a result's keys and folds
// their sign into the probabilities, yielding a signed distribution over the
// first numClbits classical bits.
func projectSigned(res backend.SampleResult, numClbits int, signBits []int) map[string]float64 {
	keys := make([]string, 0, len(res.Counts))
	for key := range res.Counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	out := make(map[string]float64, len(res.Counts))
	for _, key := range keys {
		p := float64(res.Counts[key]) / float64(res.Shots)
		for _, cb := range signBits {
			if bitAt(key, cb) {
				p = -p
			}
		}
		out[key[len(key)-numClbits:]] += p
	}
	return out
}

// mergeBits ORs two equal-length bit strings. Fragments write disjoint
// classical bits, so this reassembles the full outcome.
func mergeBits(a, b string) string {
	buf := []byte(a)
	for i := 0; i < len(b); i++ {
		if b[i] == '1' {
			buf[i] = '1'
		}
	}
	return string(buf)
}
