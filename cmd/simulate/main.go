// Command simulate drives a synthetic two-variant experiment through
// the engine end to end and prints the resulting report. Useful as a
// smoke test and as a worked example of the programmatic API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"gosplit/adapters/excel"
	"gosplit/adapters/memory"
	"gosplit/app"
	"gosplit/internal"
	"gosplit/internal/testkit"
)

func main() {
	users := flag.Int("users", 10000, "synthetic population size")
	controlRate := flag.Float64("control-rate", 0.10, "control conversion probability")
	treatmentRate := flag.Float64("treatment-rate", 0.13, "treatment conversion probability")
	seed := flag.Int64("seed", 42, "conversion draw seed")
	out := flag.String("out", "", "optional xlsx export path")
	flag.Parse()

	logger := internal.NewDefaultLogger()
	engine := app.NewEngine(
		memory.NewExperimentStore(),
		memory.NewAssignmentTable(),
		memory.NewMetricLedger(),
		logger,
	)

	ctx := context.Background()
	exp, err := engine.CreateExperiment(ctx, testkit.TwoVariantExperiment("simulated-rollout", 1, 1))
	if err != nil {
		log.Fatalf("create experiment: %v", err)
	}
	if !engine.StartExperiment(ctx, exp.ID) {
		log.Fatalf("start experiment %s failed", exp.ID)
	}

	started := time.Now()
	included := testkit.Drive(ctx, engine, exp.ID, testkit.UserIDs("sim", *users), testkit.ConversionRates{
		"control":   *controlRate,
		"treatment": *treatmentRate,
	}, *seed)
	logger.Info("drove %d users (%d included) in %s", *users, included, time.Since(started).Round(time.Millisecond))

	if !engine.StopExperiment(ctx, exp.ID) {
		log.Fatalf("stop experiment %s failed", exp.ID)
	}
	result := engine.GetResults(ctx, exp.ID)
	if result == nil {
		log.Fatalf("no results for %s", exp.ID)
	}

	fmt.Print(app.MarkdownReport(engine.GetExperiment(ctx, exp.ID), result))

	if *out != "" {
		exporter := excel.NewExporter()
		if err := exporter.Export(engine.GetExperiment(ctx, exp.ID), result, *out); err != nil {
			log.Fatalf("export: %v", err)
		}
		logger.Info("exported workbook to %s", *out)
	}
}
