// Command tetexact runs the exact single-worker solver on a small built-in
// reaction-diffusion scenario: a second-order association A + B -> C in a
// four-element compartment with A diffusing, plus a surface binding step
// on a three-face patch.
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
	"github.com/WeiliangChenOIST/FORK-STEPS/rng"
	"go.opentelemetry.io/otel"
)

func main() {
	endTime := flag.Float64("endtime", 0.1, "simulated end time in seconds")
	seed := flag.Uint64("seed", 42, "random seed")
	metricsAddr := flag.String("metrics-addr", "", "address to serve /metrics on (empty disables)")
	checkpointPath := flag.String("checkpoint", "", "write a checkpoint here after the run")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx, log := logging.WithRunLogger(context.Background(), log)

	shutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "tracing init failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdown, log)

	st, cyt, err := buildScenario(*seed)
	if err != nil {
		log.Error(ctx, "scenario build failed", logging.String("error", err.Error()))
		os.Exit(1)
	}
	st.SetLogger(log)

	if *metricsAddr != "" {
		collector, err := observability.NewSolverCollector(nil)
		if err != nil {
			log.Error(ctx, "metrics init failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		st.SetRecorder(collector)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Warn(ctx, "metrics server stopped", logging.String("error", err.Error()))
			}
		}()
	}

	tracer := otel.Tracer("tetexact")
	runCtx, span := tracer.Start(ctx, "tetexact.run")
	err = st.Run(*endTime)
	span.End()
	if err != nil {
		log.Error(runCtx, "run failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	def := st.Def()
	for gidx := 0; gidx < def.CountSpecs(); gidx++ {
		fmt.Printf("%-4s %8d\n", def.Spec(gidx).Name, cyt.Count(gidx))
	}
	fmt.Printf("time %.6g s, %d events\n", st.Time(), st.Steps())

	if *checkpointPath != "" {
		f, err := os.Create(*checkpointPath)
		if err != nil {
			log.Error(ctx, "checkpoint create failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
		defer f.Close()
		if err := st.Checkpoint(f); err != nil {
			log.Error(ctx, "checkpoint write failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}
}

// buildScenario assembles the demo model and geometry and seeds the
// initial molecule populations.
func buildScenario(seed uint64) (*core.State, *core.Comp, error) {
	def := model.NewStatedef()
	specA, _ := def.AddSpec("A")
	specB, _ := def.AddSpec("B")
	_, _ = def.AddSpec("C")
	specR, _ := def.AddSpec("R")

	assoc, err := def.AddReac("assoc",
		[]int{1, 1, 0, 0}, // A + B ->
		[]int{0, 0, 1, 0}, // -> C
		1e8)
	if err != nil {
		return nil, nil, err
	}
	diffA, err := def.AddDiff("diffA", specA, 1e-9)
	if err != nil {
		return nil, nil, err
	}
	bind, err := def.AddSReac("bind",
		[]int{0, 0, 0, 1}, []int{0, 0, 0, 0}, // surface: R ->
		[]int{1, 0, 0, 0}, []int{0, 0, 0, 1}, // volume: A -> R (released to surface)
		1e7)
	if err != nil {
		return nil, nil, err
	}

	cytIdx, _ := def.AddComp("cyt")
	memIdx, _ := def.AddPatch("mem")
	if err := def.CompAddReac(cytIdx, assoc); err != nil {
		return nil, nil, err
	}
	if err := def.CompAddDiff(cytIdx, diffA); err != nil {
		return nil, nil, err
	}
	if err := def.PatchAddSReac(memIdx, bind); err != nil {
		return nil, nil, err
	}
	if err := def.Freeze(); err != nil {
		return nil, nil, err
	}

	st, err := core.NewState(def, rng.NewStd(seed))
	if err != nil {
		return nil, nil, err
	}
	cyt, err := st.AddComp(cytIdx)
	if err != nil {
		return nil, nil, err
	}
	mem, err := st.AddPatch(memIdx)
	if err != nil {
		return nil, nil, err
	}

	const vol = 1e-18 // litres per element
	tets := make([]*core.Tet, 4)
	for i := range tets {
		tets[i], err = st.AddTet(cyt, vol)
		if err != nil {
			return nil, nil, err
		}
	}
	scale := core.CouplingScale(1e-12, vol, 1e-6)
	for i := 0; i+1 < len(tets); i++ {
		if err := st.ConnectTets(tets[i], tets[i+1], scale, scale); err != nil {
			return nil, nil, err
		}
	}
	for _, area := range []float64{1.0e-12, 2.0e-12, 3.0e-12} {
		if _, err := st.AddTri(mem, area, tets[0]); err != nil {
			return nil, nil, err
		}
	}

	if err := st.Setup(); err != nil {
		return nil, nil, err
	}
	if err := st.ValidateDeps(); err != nil {
		return nil, nil, err
	}
	if err := st.SetCompCount(cyt, specA, 1000); err != nil {
		return nil, nil, err
	}
	if err := st.SetCompCount(cyt, specB, 800); err != nil {
		return nil, nil, err
	}
	if err := st.SetPatchCount(mem, specR, 200); err != nil {
		return nil, nil, err
	}
	return st, cyt, nil
}
