package vqe

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/qirin-io/qirin/backend"
	"github.com/qirin-io/qirin/cutting"
	"github.com/qirin-io/qirin/quantum"
)

// DefaultShots is the per-experiment shot count used when none is configured.
const DefaultShots = 1024

// AnsatzGenerator derives an ansatz from the observable, typically from its
// qubit count. Generation happens once, at build time.
type AnsatzGenerator func(*quantum.Observable) *quantum.Circuit

// EfficientSU2Generator builds a hardware-efficient ansatz matching the
// observable's width.
func EfficientSU2Generator(reps int) AnsatzGenerator {
	return func(o *quantum.Observable) *quantum.Circuit {
		return quantum.EfficientSU2(o.NumQubits, reps)
	}
}

// Builder accumulates the configuration of a VQE run. Every Build call
// validates from scratch and returns a fresh, independent VQE.
type Builder struct {
	ansatz      *quantum.Circuit
	generator   AnsatzGenerator
	transform   func(*quantum.Circuit) *quantum.Circuit
	observable  *quantum.Observable
	initial     []float64
	optimizer   Optimizer
	maxIter     int
	backend     backend.Backend
	shots       int
	qubitBudget int
	search      cutting.SearchOptions
	sampleCap   int
	sampleShots int
	interpreter Interpreter
	observer    Observer
	log         zerolog.Logger
}

// New returns a builder with the default optimizer, shot count and a no-op
// logger.
func New() *Builder {
	return &Builder{
		optimizer: NelderMead(),
		shots:     DefaultShots,
		log:       zerolog.Nop(),
	}
}

// Ansatz sets a fixed ansatz circuit. Mutually exclusive with AnsatzGenerator.
func (b *Builder) Ansatz(c *quantum.Circuit) *Builder {
	b.ansatz = c
	return b
}

// AnsatzGenerator sets a generator that derives the ansatz from the
// observable at build time. Mutually exclusive with Ansatz.
func (b *Builder) AnsatzGenerator(g AnsatzGenerator) *Builder {
	b.generator = g
	return b
}

// Transform sets a circuit transform applied to the ansatz after resolution.
func (b *Builder) Transform(fn func(*quantum.Circuit) *quantum.Circuit) *Builder {
	b.transform = fn
	return b
}

// Observable sets the observable to minimize. Required.
func (b *Builder) Observable(o *quantum.Observable) *Builder {
	b.observable = o
	return b
}

// InitialParams sets the starting parameter vector. Defaults to all zeros.
func (b *Builder) InitialParams(x []float64) *Builder {
	b.initial = append([]float64(nil), x...)
	return b
}

// Optimizer sets the classical minimizer.
func (b *Builder) Optimizer(o Optimizer) *Builder {
	b.optimizer = o
	return b
}

// MaxIter caps the iteration count. Zero means uncapped.
func (b *Builder) MaxIter(n int) *Builder {
	b.maxIter = n
	return b
}

// Backend sets the execution backend. Required.
func (b *Builder) Backend(be backend.Backend) *Builder {
	b.backend = be
	return b
}

// Shots sets the per-experiment shot count for cut evaluation and sampling.
func (b *Builder) Shots(n int) *Builder {
	b.shots = n
	return b
}

// QubitBudget sets the widest circuit the backend can run. When the ansatz is
// wider, a cut solution is searched at build time. Zero disables cutting.
func (b *Builder) QubitBudget(n int) *Builder {
	b.qubitBudget = n
	return b
}

// SearchOptions configures the cut search.
func (b *Builder) SearchOptions(opts cutting.SearchOptions) *Builder {
	b.search = opts
	return b
}

// SampleCap truncates the cut channel expansion. Zero means no cap.
func (b *Builder) SampleCap(n int) *Builder {
	b.sampleCap = n
	return b
}

// Sampling requests a post-run measurement pass with the given shot count.
func (b *Builder) Sampling(shots int) *Builder {
	b.sampleShots = shots
	return b
}

// Interpreter attaches an application-level interpreter for post-run
// sampling aggregation.
func (b *Builder) Interpreter(in Interpreter) *Builder {
	b.interpreter = in
	return b
}

// Observer attaches the per-iteration callback.
func (b *Builder) Observer(fn Observer) *Builder {
	b.observer = fn
	return b
}

// Logger sets the structured logger.
func (b *Builder) Logger(log zerolog.Logger) *Builder {
	b.log = log
	return b
}

// Build validates the configuration and prepares the run: the ansatz is
// resolved and transformed, the parameter table is frozen, and when the
// ansatz exceeds the qubit budget a cut solution is searched and its
// experiment set generated. All configuration errors surface here, before
// any backend call.
func (b *Builder) Build() (*VQE, error) {
	if b.observable == nil {
		return nil, fmt.Errorf("observable is required")
	}
	if b.backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if b.ansatz != nil && b.generator != nil {
		return nil, fmt.Errorf("ansatz and ansatz generator are mutually exclusive")
	}
	ansatz := b.ansatz
	if ansatz == nil {
		if b.generator == nil {
			return nil, fmt.Errorf("ansatz or ansatz generator is required")
		}
		ansatz = b.generator(b.observable)
	}
	if b.transform != nil {
		ansatz = b.transform(ansatz)
	}
	if err := ansatz.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ansatz: %w", err)
	}
	if ansatz.NumQubits != b.observable.NumQubits {
		return nil, fmt.Errorf("ansatz has %d qubits, observable has %d", ansatz.NumQubits, b.observable.NumQubits)
	}
	params := ansatz.Parameters()
	if len(params) == 0 {
		return nil, fmt.Errorf("ansatz has no free parameters")
	}
	initial := b.initial
	if initial == nil {
		initial = make([]float64, len(params))
	} else if len(initial) != len(params) {
		return nil, fmt.Errorf("got %d initial parameters, ansatz has %d", len(initial), len(params))
	}
	if _, _, err := b.optimizer.method(); err != nil {
		return nil, err
	}
	shots := b.shots
	if shots <= 0 {
		shots = DefaultShots
	}

	log := b.log.With().Str("component", "vqe").Logger()
	v := &VQE{
		ansatz:      ansatz,
		observable:  b.observable,
		initial:     append([]float64(nil), initial...),
		optimizer:   b.optimizer,
		maxIter:     b.maxIter,
		backend:     b.backend,
		shots:       shots,
		sampleCap:   b.sampleCap,
		sampleShots: b.sampleShots,
		interpreter: b.interpreter,
		observer:    b.observer,
		paramNames:  params,
		log:         log,
	}

	if b.qubitBudget > 0 && ansatz.NumQubits > b.qubitBudget {
		solution, err := cutting.FindCuts(ansatz, b.qubitBudget, b.search, log)
		if err != nil {
			return nil, fmt.Errorf("cut search: %w", err)
		}
		decomp, err := cutting.Decompose(ansatz, solution.Actions)
		if err != nil {
			return nil, fmt.Errorf("decompose: %w", err)
		}
		set, err := cutting.GenerateExperiments(decomp, b.observable, nil, cutting.ExperimentOptions{
			Shots:     shots,
			SampleCap: b.sampleCap,
		})
		if err != nil {
			return nil, fmt.Errorf("generate experiments: %w", err)
		}
		v.solution = solution
		v.decomp = decomp
		v.set = set
		log.Info().
			Float64("overhead", solution.SamplingOverhead).
			Int("fragments", len(decomp.Fragments)).
			Int("experiments", len(set.Pubs)).
			Msg("circuit cut to fit qubit budget")
	}
	return v, nil
}
