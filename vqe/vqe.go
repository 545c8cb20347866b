// Package vqe drives the variational optimization loop: a classical minimizer
// repeatedly evaluates the ansatz energy on an execution backend, directly or
// through circuit cutting when the backend is narrower than the ansatz. The
// driver tracks the best iterate, reports every iteration to an optional
// observer and classifies why the loop stopped.
package vqe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/qirin-io/qirin/backend"
	"github.com/qirin-io/qirin/cutting"
	"github.com/qirin-io/qirin/quantum"
)

// HaltReason classifies why an optimization run stopped. Exactly one is set
// on a terminal Result.
type HaltReason string

const (
	// HaltTolerance means the minimizer converged within the iteration cap.
	HaltTolerance HaltReason = "tolerance"
	// HaltMaxIterations means the iteration cap stopped the run.
	HaltMaxIterations HaltReason = "maxiter"
	// HaltInterrupted means the observer or a cancellation stopped the run.
	HaltInterrupted HaltReason = "interrupt"
)

// RawResults carries the backend results behind one cost evaluation: a single
// estimation on the direct path, or the fragment sampling results on the cut
// path.
type RawResults struct {
	Estimates []backend.EstimateResult `json:"estimates,omitempty"`
	Samples   []backend.SampleResult   `json:"samples,omitempty"`
}

// Iteration is one optimizer step, passed to the observer and retained when
// it is the best seen so far.
type Iteration struct {
	Index  int
	Cost   float64
	Params []float64
	Raw    RawResults
	Best   bool
}

// Observer receives every iteration in increasing index order. Returning a
// non-nil error requests a cooperative interrupt; the run still produces a
// Result. Observers must not block the loop.
type Observer func(*Iteration) error

// Interpreter maps a measured bit-string to an application-level value. It
// must be a pure function of the bit-string.
type Interpreter interface {
	Interpret(bits string) (any, error)
}

// InterpretedCount is an application value with its aggregated sample count.
// Value is the canonical JSON encoding of the interpreted value.
type InterpretedCount struct {
	Value json.RawMessage `json:"value"`
	Count int             `json:"count"`
}

// Result is the terminal record of a run.
type Result struct {
	BestParams  []float64
	BestCost    float64
	HasBest     bool
	Iterations  int
	Reason      HaltReason
	BestRaw     RawResults
	Counts      map[string]int
	Interpreted []InterpretedCount
}

// VQE is a fully validated optimization problem. Build one with a Builder.
type VQE struct {
	ansatz      *quantum.Circuit
	observable  *quantum.Observable
	initial     []float64
	optimizer   Optimizer
	maxIter     int
	backend     backend.Backend
	shots       int
	sampleCap   int
	sampleShots int
	interpreter Interpreter
	observer    Observer

	paramNames   []quantum.Parameter
	solution     *cutting.FoundCutSolution
	decomp       *cutting.Decomposition
	set          *cutting.ExperimentSet
	sampleDecomp *cutting.Decomposition

	log zerolog.Logger
}

// Ansatz returns the resolved ansatz circuit.
func (v *VQE) Ansatz() *quantum.Circuit { return v.ansatz }

// Observable returns the observable being minimized.
func (v *VQE) Observable() *quantum.Observable { return v.observable }

// InitialParams returns the starting parameter vector.
func (v *VQE) InitialParams() []float64 { return append([]float64(nil), v.initial...) }

// Optimizer returns the configured minimizer.
func (v *VQE) Optimizer() Optimizer { return v.optimizer }

// MaxIter returns the iteration cap, zero meaning uncapped.
func (v *VQE) MaxIter() int { return v.maxIter }

// CutSolution returns the cut solution in effect, or nil when the ansatz fits
// the backend without cutting.
func (v *VQE) CutSolution() *cutting.FoundCutSolution { return v.solution }

var errHalted = errors.New("optimization halted")

// Run executes the optimization loop until convergence, the iteration cap or
// an interrupt. Backend failures abort the run without a result; interrupts
// are swallowed and produce a Result with reason HaltInterrupted.
func (v *VQE) Run(ctx context.Context) (*Result, error) {
	var (
		iter     int
		best     *Iteration
		prevCost float64
		reason   HaltReason
		stopped  bool
		evalErr  error
	)

	// rawCost evaluates without iteration accounting; gradient probes for
	// quasi-Newton methods go through here and do not count as iterations.
	rawCost := func(x []float64) float64 {
		if stopped || evalErr != nil {
			return prevCost
		}
		cost, _, err := v.evaluate(ctx, x)
		if err != nil {
			evalErr = err
			stopped = true
			return prevCost
		}
		prevCost = cost
		return cost
	}

	fn := func(x []float64) float64 {
		if stopped || evalErr != nil {
			return prevCost
		}
		if ctx.Err() != nil {
			reason = HaltInterrupted
			stopped = true
			return prevCost
		}
		cost, raw, err := v.evaluate(ctx, x)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				reason = HaltInterrupted
			} else {
				evalErr = err
			}
			stopped = true
			return prevCost
		}
		iter++
		it := &Iteration{
			Index:  iter,
			Cost:   cost,
			Params: append([]float64(nil), x...),
			Raw:    raw,
		}
		if best == nil || cost < best.Cost {
			it.Best = true
			best = it
		}
		if v.observer != nil {
			if err := v.observer(it); err != nil {
				v.log.Debug().Int("iteration", iter).Msg("observer requested interrupt")
				reason = HaltInterrupted
				stopped = true
			}
		}
		if !stopped && v.maxIter > 0 && iter >= v.maxIter {
			reason = HaltMaxIterations
			stopped = true
		}
		prevCost = cost
		return cost
	}

	problem := optimize.Problem{
		Func: fn,
		Status: func() (optimize.Status, error) {
			if stopped {
				return optimize.Failure, errHalted
			}
			return optimize.NotTerminated, nil
		},
	}
	method, needGrad, err := v.optimizer.method()
	if err != nil {
		return nil, err
	}
	if needGrad {
		problem.Grad = func(grad, x []float64) {
			fd.Gradient(grad, rawCost, x, nil)
		}
	}

	x := append([]float64(nil), v.initial...)
	_, optErr := optimize.Minimize(problem, x, nil, method)
	if evalErr != nil {
		return nil, fmt.Errorf("cost evaluation: %w", evalErr)
	}
	if optErr != nil && !errors.Is(optErr, errHalted) && !stopped {
		return nil, fmt.Errorf("minimize: %w", optErr)
	}
	if !stopped {
		reason = HaltTolerance
	}

	res := &Result{Iterations: iter, Reason: reason}
	if best != nil {
		res.BestParams = best.Params
		res.BestCost = best.Cost
		res.HasBest = true
		res.BestRaw = best.Raw
	}
	v.log.Info().
		Str("reason", string(reason)).
		Int("iterations", iter).
		Float64("best_cost", res.BestCost).
		Msg("optimization finished")

	if v.sampleShots > 0 && best != nil {
		counts, err := v.SampleCounts(ctx, best.Params)
		if err != nil {
			return nil, fmt.Errorf("post-run sampling: %w", err)
		}
		res.Counts = counts
		if v.interpreter != nil {
			interpreted, err := InterpretCounts(v.interpreter, counts)
			if err != nil {
				return nil, fmt.Errorf("interpret counts: %w", err)
			}
			res.Interpreted = interpreted
		}
	}
	return res, nil
}

// evaluate computes the cost at one parameter vector, through the cut
// experiment set when cutting is in effect.
func (v *VQE) evaluate(ctx context.Context, x []float64) (float64, RawResults, error) {
	bindings := v.bind(x)
	if v.set != nil {
		results, err := v.backend.Sample(ctx, v.set.Bind(bindings), v.shots)
		if err != nil {
			return 0, RawResults{}, err
		}
		cost, err := cutting.Reconstruct(v.set, results)
		if err != nil {
			return 0, RawResults{}, err
		}
		return cost, RawResults{Samples: results}, nil
	}
	results, err := v.backend.Estimate(ctx, []backend.EstimatePub{{
		Circuit:    v.ansatz,
		Observable: v.observable,
		Bindings:   bindings,
	}})
	if err != nil {
		return 0, RawResults{}, err
	}
	return results[0].Ev, RawResults{Estimates: results}, nil
}

func (v *VQE) bind(x []float64) map[quantum.Parameter]float64 {
	m := make(map[quantum.Parameter]float64, len(v.paramNames))
	for i, p := range v.paramNames {
		m[p] = x[i]
	}
	return m
}

// SampleCounts measures the ansatz at the given parameters and returns
// bit-string counts over all qubits, reconstructing through the cut fragments
// when cutting is in effect.
func (v *VQE) SampleCounts(ctx context.Context, params []float64) (map[string]int, error) {
	if len(params) != len(v.paramNames) {
		return nil, fmt.Errorf("got %d parameters, ansatz has %d", len(params), len(v.paramNames))
	}
	bindings := v.bind(params)
	shots := v.sampleShots
	if shots <= 0 {
		shots = v.shots
	}
	if v.solution != nil && len(v.solution.Actions) > 0 {
		if v.sampleDecomp == nil {
			d, err := cutting.Decompose(v.ansatz.MeasureAll(), v.solution.Actions)
			if err != nil {
				return nil, fmt.Errorf("decompose for sampling: %w", err)
			}
			v.sampleDecomp = d
		}
		quasi, err := cutting.SampleCut(ctx, v.backend, v.sampleDecomp, bindings,
			cutting.ExperimentOptions{Shots: shots, SampleCap: v.sampleCap}, v.log)
		if err != nil {
			return nil, err
		}
		return countsFromQuasi(quasi, shots), nil
	}
	results, err := v.backend.Sample(ctx, []backend.SamplePub{{
		Circuit:  v.ansatz.MeasureAll(),
		Bindings: bindings,
	}}, shots)
	if err != nil {
		return nil, err
	}
	return results[0].Counts, nil
}

// countsFromQuasi rounds a quasi-probability distribution into integer
// counts, clamping negative entries to zero.
func countsFromQuasi(quasi map[string]float64, shots int) map[string]int {
	counts := make(map[string]int)
	for key, p := range quasi {
		if n := int(math.Round(p * float64(shots))); n > 0 {
			counts[key] = n
		}
	}
	return counts
}

// InterpretCounts maps bit-strings through an interpreter, merging the counts
// of bit-strings that interpret to the same value. Values are identified by
// their canonical JSON encoding. The output is ordered by descending count,
// ties by ascending encoded value.
func InterpretCounts(in Interpreter, counts map[string]int) ([]InterpretedCount, error) {
	merged := make(map[string]int)
	for bits, cnt := range counts {
		v, err := in.Interpret(bits)
		if err != nil {
			return nil, fmt.Errorf("interpret %q: %w", bits, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode interpreted value for %q: %w", bits, err)
		}
		merged[string(raw)] += cnt
	}
	out := make([]InterpretedCount, 0, len(merged))
	for raw, cnt := range merged {
		out = append(out, InterpretedCount{Value: json.RawMessage(raw), Count: cnt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return string(out[i].Value) < string(out[j].Value)
	})
	return out, nil
}

// MostSampled returns the most frequently sampled value: the canonical JSON
// of the top interpreted value when an interpreter ran, otherwise the raw
// bit-string with the highest count. Ties resolve to the lexicographically
// smallest value. ok is false when the result has no counts.
func (r *Result) MostSampled() (value string, count int, ok bool) {
	if len(r.Interpreted) > 0 {
		top := r.Interpreted[0]
		return string(top.Value), top.Count, true
	}
	for bits, cnt := range r.Counts {
		if !ok || cnt > count || (cnt == count && bits < value) {
			value, count, ok = bits, cnt, true
		}
	}
	return value, count, ok
}
