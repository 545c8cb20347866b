package backend

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"math/rand"
	"strings"

	"github.com/rs/zerolog"

	"github.com/qirin-io/qirin/quantum"
)

// Local is a statevector execution backend. Estimation is exact; sampling is
// shot-based with a seeded generator, including mid-circuit measurement by
// per-shot collapse. It stands in for a remote device in tests and local runs.
type Local struct {
	rng *rand.Rand
	log zerolog.Logger
}

// NewLocal creates a local backend with a fixed seed for reproducible
// sampling.
func NewLocal(seed int64, log zerolog.Logger) *Local {
	return &Local{
		rng: rand.New(rand.NewSource(seed)),
		log: log.With().Str("backend", "local").Logger(),
	}
}

// Estimate computes exact expectation values for each pub.
func (l *Local) Estimate(ctx context.Context, pubs []EstimatePub) ([]EstimateResult, error) {
	results := make([]EstimateResult, len(pubs))
	for i, pub := range pubs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bound, err := pub.Circuit.Bind(pub.Bindings)
		if err != nil {
			return nil, fmt.Errorf("estimate pub %d: %w", i, err)
		}
		if pub.Observable == nil {
			return nil, fmt.Errorf("estimate pub %d: missing observable", i)
		}
		if pub.Observable.NumQubits != bound.NumQubits {
			return nil, fmt.Errorf("estimate pub %d: observable has %d qubits, circuit has %d",
				i, pub.Observable.NumQubits, bound.NumQubits)
		}
		state := newState(bound.NumQubits)
		for _, ins := range bound.Instructions {
			if ins.Name == "measure" {
				return nil, fmt.Errorf("estimate pub %d: circuit contains a measurement", i)
			}
			if err := state.apply(ins); err != nil {
				return nil, fmt.Errorf("estimate pub %d: %w", i, err)
			}
		}
		var ev float64
		for _, term := range pub.Observable.Terms {
			ev += term.Coeff * state.pauliExpectation(term)
		}
		results[i] = EstimateResult{Ev: ev}
	}
	l.log.Debug().Int("pubs", len(pubs)).Msg("estimation batch complete")
	return results, nil
}

// Sample measures bit-string counts for each pub.
func (l *Local) Sample(ctx context.Context, pubs []SamplePub, shots int) ([]SampleResult, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("shots must be positive, got %d", shots)
	}
	results := make([]SampleResult, len(pubs))
	for i, pub := range pubs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bound, err := pub.Circuit.Bind(pub.Bindings)
		if err != nil {
			return nil, fmt.Errorf("sample pub %d: %w", i, err)
		}
		counts, err := l.sampleOne(bound, shots)
		if err != nil {
			return nil, fmt.Errorf("sample pub %d: %w", i, err)
		}
		results[i] = SampleResult{Counts: counts, Shots: shots}
	}
	l.log.Debug().Int("pubs", len(pubs)).Int("shots", shots).Msg("sampling batch complete")
	return results, nil
}

// sampleOne evolves the circuit up to its first measurement once, then runs
// the measured tail shot by shot with projective collapse.
func (l *Local) sampleOne(c *quantum.Circuit, shots int) (map[string]int, error) {
	firstMeas := len(c.Instructions)
	for i, ins := range c.Instructions {
		if ins.Name == "measure" {
			firstMeas = i
			break
		}
	}
	prefix := newState(c.NumQubits)
	for _, ins := range c.Instructions[:firstMeas] {
		if err := prefix.apply(ins); err != nil {
			return nil, err
		}
	}
	counts := make(map[string]int)
	clbits := make([]byte, c.NumClbits)
	for s := 0; s < shots; s++ {
		state := prefix.clone()
		for i := range clbits {
			clbits[i] = '0'
		}
		for _, ins := range c.Instructions[firstMeas:] {
			if ins.Name == "measure" {
				outcome := state.collapse(ins.Qubits[0], l.rng.Float64())
				if outcome == 1 {
					clbits[ins.Clbits[0]] = '1'
				}
				continue
			}
			if err := state.apply(ins); err != nil {
				return nil, err
			}
		}
		var key strings.Builder
		for i := len(clbits) - 1; i >= 0; i-- {
			key.WriteByte(clbits[i])
		}
		counts[key.String()]++
	}
	return counts, nil
}

// state is a dense statevector over n qubits.
type state struct {
	n    int
	amps []complex128
}

func newState(n int) *state {
	s := &state{n: n, amps: make([]complex128, 1<<uint(n))}
	s.amps[0] = 1
	return s
}

func (s *state) clone() *state {
	out := &state{n: s.n, amps: make([]complex128, len(s.amps))}
	copy(out.amps, s.amps)
	return out
}

func (s *state) apply(ins quantum.Instruction) error {
	if ins.Param != "" {
		return fmt.Errorf("instruction %s has unbound parameter %q", ins.Name, ins.Param)
	}
	switch ins.Name {
	case "h":
		inv := complex(1/math.Sqrt2, 0)
		s.apply1q(ins.Qubits[0], [4]complex128{inv, inv, inv, -inv})
	case "x":
		s.apply1q(ins.Qubits[0], [4]complex128{0, 1, 1, 0})
	case "y":
		s.apply1q(ins.Qubits[0], [4]complex128{0, -1i, 1i, 0})
	case "z":
		s.apply1q(ins.Qubits[0], [4]complex128{1, 0, 0, -1})
	case "s":
		s.apply1q(ins.Qubits[0], [4]complex128{1, 0, 0, 1i})
	case "sdg":
		s.apply1q(ins.Qubits[0], [4]complex128{1, 0, 0, -1i})
	case "rx":
		c := complex(math.Cos(ins.Value/2), 0)
		is := complex(0, -math.Sin(ins.Value/2))
		s.apply1q(ins.Qubits[0], [4]complex128{c, is, is, c})
	case "ry":
		c := complex(math.Cos(ins.Value/2), 0)
		sn := complex(math.Sin(ins.Value/2), 0)
		s.apply1q(ins.Qubits[0], [4]complex128{c, -sn, sn, c})
	case "rz":
		s.apply1q(ins.Qubits[0], [4]complex128{
			cmplx.Exp(complex(0, -ins.Value/2)), 0,
			0, cmplx.Exp(complex(0, ins.Value/2)),
		})
	case "cx":
		s.applyCX(ins.Qubits[0], ins.Qubits[1])
	case "cz":
		s.applyCZ(ins.Qubits[0], ins.Qubits[1])
	default:
		return fmt.Errorf("unsupported instruction %q", ins.Name)
	}
	return nil
}

// apply1q applies the 2x2 matrix {m[0] m[1]; m[2] m[3]} to qubit q.
func (s *state) apply1q(q int, m [4]complex128) {
	bit := 1 << uint(q)
	for i := range s.amps {
		if i&bit != 0 {
			continue
		}
		j := i | bit
		a0, a1 := s.amps[i], s.amps[j]
		s.amps[i] = m[0]*a0 + m[1]*a1
		s.amps[j] = m[2]*a0 + m[3]*a1
	}
}

func (s *state) applyCX(control, target int) {
	cb := 1 << uint(control)
	tb := 1 << uint(target)
	for i := range s.amps {
		if i&cb != 0 && i&tb == 0 {
			j := i | tb
			s.amps[i], s.amps[j] = s.amps[j], s.amps[i]
		}
	}
}

func (s *state) applyCZ(a, b int) {
	ab := 1 << uint(a)
	bb := 1 << uint(b)
	for i := range s.amps {
		if i&ab != 0 && i&bb != 0 {
			s.amps[i] = -s.amps[i]
		}
	}
}

// collapse projectively measures qubit q using r in [0,1) and renormalizes.
func (s *state) collapse(q int, r float64) int {
	bit := 1 << uint(q)
	var p1 float64
	for i, a := range s.amps {
		if i&bit != 0 {
			p1 += real(a)*real(a) + imag(a)*imag(a)
		}
	}
	outcome := 0
	p := 1 - p1
	if r < p1 {
		outcome = 1
		p = p1
	}
	if p <= 0 {
		p = 1
	}
	norm := complex(1/math.Sqrt(p), 0)
	for i := range s.amps {
		hit := i&bit != 0
		if (outcome == 1) != hit {
			s.amps[i] = 0
		} else {
			s.amps[i] *= norm
		}
	}
	return outcome
}

// pauliExpectation returns the real part of <psi|P|psi> for one Pauli term.
func (s *state) pauliExpectation(term quantum.PauliTerm) float64 {
	phi := s.clone()
	for q := 0; q < s.n; q++ {
		switch term.At(q) {
		case 'X':
			phi.apply1q(q, [4]complex128{0, 1, 1, 0})
		case 'Y':
			phi.apply1q(q, [4]complex128{0, -1i, 1i, 0})
		case 'Z':
			phi.apply1q(q, [4]complex128{1, 0, 0, -1})
		}
	}
	var ev complex128
	for i := range s.amps {
		ev += cmplx.Conj(s.amps[i]) * phi.amps[i]
	}
	return real(ev)
}
