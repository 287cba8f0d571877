// Command tetopsplit runs the distributed solver: a chain mesh of
// tetrahedra partitioned across workers, pure diffusion spreading an
// initial bolus from the first element, with boundary deltas exchanged at
// fixed sync intervals.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/WeiliangChenOIST/FORK-STEPS/core"
	"github.com/WeiliangChenOIST/FORK-STEPS/internal/logging"
	"github.com/WeiliangChenOIST/FORK-STEPS/internal/observability"
	"github.com/WeiliangChenOIST/FORK-STEPS/model"
	"github.com/WeiliangChenOIST/FORK-STEPS/tetopsplit"
)

func main() {
	nWorkers := flag.Int("workers", 4, "number of workers")
	nElems := flag.Int("elements", 64, "mesh elements in the chain")
	endTime := flag.Float64("endtime", 0.01, "simulated end time in seconds")
	interval := flag.Float64("sync-interval", tetopsplit.DefaultSyncInterval, "sim-time width of one sync round")
	seed := flag.Uint64("seed", 42, "base random seed")
	molecules := flag.Int("molecules", 10000, "initial molecules in element 0")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on (empty disables)")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, log := logging.WithRunLogger(context.Background(), log)

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	def := model.NewStatedef()
	specX, _ := def.AddSpec("X")
	diffX, err := def.AddDiff("diffX", specX, 1e-9)
	if err != nil {
		log.Error(ctx, "model build failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	cytIdx, _ := def.AddComp("cyt")
	if err := def.CompAddDiff(cytIdx, diffX); err != nil {
		log.Error(ctx, "model build failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if err := def.Freeze(); err != nil {
		log.Error(ctx, "model build failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	const vol = 1e-18
	mesh := tetopsplit.ChainMesh(*nElems, vol, core.CouplingScale(1e-12, vol, 1e-6), cytIdx)
	part := tetopsplit.Uniform(*nElems, *nWorkers)

	cfg := tetopsplit.Config{
		Interval: *interval,
		BaseSeed: *seed,
		Logger:   log,
	}
	if *metricsAddr != "" {
		collector, err := observability.NewSyncCollector(nil)
		if err != nil {
			log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		cfg.Collector = collector
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
	}

	cluster, err := tetopsplit.NewCluster(def, mesh, part, cfg)
	if err != nil {
		log.Error(ctx, "cluster build failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cluster.SetTetCount(0, specX, *molecules); err != nil {
		log.Error(ctx, "seeding failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if err := cluster.RunUntil(ctx, *endTime); err != nil {
		log.Error(ctx, "run failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("global time %.6g s, total X %d\n", cluster.GlobalTime(), cluster.TotalCount(specX))
	for k := 0; k < *nElems; k++ {
		fmt.Printf("elem %3d  %6d\n", k, cluster.TetCount(k, specX))
	}
}
