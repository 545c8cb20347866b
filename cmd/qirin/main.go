// Command qirin runs a variational optimization either locally, on the
// built-in statevector backend, or remotely through the job service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/qirin-io/qirin/api"
	"github.com/qirin-io/qirin/app"
	"github.com/qirin-io/qirin/backend"
	"github.com/qirin-io/qirin/client"
	"github.com/qirin-io/qirin/internal/config"
	"github.com/qirin-io/qirin/pkg/logger"
	"github.com/qirin-io/qirin/vqe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})
	logger.SetGlobalLogger(log)

	var (
		nodes  = flag.Int("nodes", 5, "ring graph size for the demo problem")
		reps   = flag.Int("reps", 2, "ansatz entangling repetitions")
		budget = flag.Int("budget", cfg.QubitBudget, "qubit budget, 0 disables cutting")
		shots  = flag.Int("shots", cfg.Shots, "shots per experiment")
		maxit  = flag.Int("maxiter", cfg.MaxIter, "iteration cap, 0 means uncapped")
		seed   = flag.Int64("seed", 7, "backend and search seed")
		remote = flag.Bool("remote", false, "submit to the job service instead of running locally")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, *nodes, *reps, *budget, *shots, *maxit, *seed, *remote); err != nil {
		log.Error().Err(err).Msg("run failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger, nodes, reps, budget, shots, maxIter int, seed int64, remote bool) error {
	problem := ringMaxcut(nodes)
	builder, err := app.NewBuilder(problem)
	if err != nil {
		return err
	}
	builder.
		AnsatzGenerator(vqe.EfficientSU2Generator(reps)).
		Backend(backend.NewLocal(seed, log)).
		QubitBudget(budget).
		Shots(shots).
		MaxIter(maxIter).
		Sampling(shots).
		Logger(log)
	v, err := builder.Build()
	if err != nil {
		return err
	}

	var result *vqe.Result
	if remote {
		result, err = submit(ctx, cfg, log, v, shots, budget)
	} else {
		result, err = v.Run(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Printf("halt reason: %s after %d iterations\n", result.Reason, result.Iterations)
	if result.HasBest {
		fmt.Printf("best cost:   %.6f\n", result.BestCost)
	}
	if value, count, ok := result.MostSampled(); ok {
		fmt.Printf("most sampled: %s (%d)\n", value, count)
	}
	return nil
}

// submit sends the problem to the job service and blocks for the result.
func submit(ctx context.Context, cfg *config.Config, log zerolog.Logger, v *vqe.VQE, shots, budget int) (*vqe.Result, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}
	request, err := api.NewJobRequest(v, api.RunOptions{
		Shots:       shots,
		QubitBudget: budget,
		Sampling:    true,
	})
	if err != nil {
		return nil, err
	}
	return request.Run(ctx, client.New(creds, log), client.WaitOptions{
		Interval: cfg.PollInterval,
		MaxWait:  cfg.MaxWait,
	})
}

func loadCredentials(cfg *config.Config) (client.Credentials, error) {
	if cfg.CredentialsPath != "" {
		return client.LoadCredentials(cfg.CredentialsPath)
	}
	return client.CredentialsFromEnv()
}

// ringMaxcut builds a unit-weight cycle graph over n named nodes.
func ringMaxcut(n int) *app.Maxcut {
	m := app.NewMaxcut()
	for i := 0; i < n; i++ {
		m.AddEdge(fmt.Sprintf("n%02d", i), fmt.Sprintf("n%02d", (i+1)%n), 1)
	}
	return m
}
