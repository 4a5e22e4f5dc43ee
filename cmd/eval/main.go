package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/feedbacklab/feedback-analyzer/internal/bootstrap"
	"github.com/feedbacklab/feedback-analyzer/internal/config"
	"github.com/feedbacklab/feedback-analyzer/internal/core/domain"
	"github.com/feedbacklab/feedback-analyzer/internal/eval"
	"github.com/feedbacklab/feedback-analyzer/internal/observability/logging"
	"github.com/feedbacklab/feedback-analyzer/internal/observability/metrics"
	"github.com/feedbacklab/feedback-analyzer/internal/retrieval"
)

func main() {
	var (
		runFilePath  = flag.String("config", "", "optional YAML run file")
		outputPath   = flag.String("output", "retrieval_comparison.md", "markdown report path")
		workbookPath = flag.String("workbook", "retrieval_comparison.xlsx", "xlsx workbook path")
		freshGolden  = flag.Bool("fresh-golden", false, "regenerate the golden dataset even when a cache exists")
	)
	flag.Parse()

	cfg := config.Load()
	strategyNames := retrieval.Known
	if *runFilePath != "" {
		rf, err := config.LoadRunFile(*runFilePath)
		if err != nil {
			log.Fatalf("run file error: %v", err)
		}
		cfg = rf.Apply(cfg)
		if len(rf.Strategies) > 0 {
			strategyNames = rf.Strategies
		}
		if rf.OutputMarkdown != "" {
			*outputPath = rf.OutputMarkdown
		}
		if rf.OutputWorkbook != "" {
			*workbookPath = rf.OutputWorkbook
		}
	}

	logger := logging.NewJSONLogger("eval", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	if _, err := app.IndexCorpus(indexCtx); err != nil {
		cancel()
		log.Fatalf("index corpus error: %v", err)
	}
	cancel()

	evalMetrics := metrics.NewEvalMetrics("eval")
	golden, err := loadOrGenerateGolden(ctx, app, evalMetrics, *freshGolden)
	if err != nil {
		log.Fatalf("golden dataset error: %v", err)
	}
	logger.Info("golden dataset ready", "examples", len(golden), "cache", cfg.GoldenCachePath)

	strategies := make([]eval.Strategy, 0, len(strategyNames))
	disabled := make(map[string]error)
	for _, name := range strategyNames {
		strategy, err := app.Factory.Create(name)
		if err != nil {
			disabled[name] = err
			logger.Warn("strategy disabled", "strategy", name, "error", err)
			continue
		}
		strategies = append(strategies, strategy)
	}

	harness := eval.NewHarness(
		eval.NewAnswerSynthesizer(app.Generator),
		eval.NewMetricScorer(app.Generator, app.Embedder),
		cfg.EvalConcurrency,
		time.Duration(cfg.EvalCallTimeoutSec)*time.Second,
		evalMetrics,
		"eval",
		logger,
	)

	started := time.Now()
	runs := harness.Run(ctx, strategies, golden)
	logger.Info("harness finished", "runs", len(runs), "elapsed", time.Since(started).String())

	aggregates := eval.Aggregate(runs)
	for _, name := range strategyNames {
		if err, ok := disabled[name]; ok {
			aggregates = append(aggregates, eval.DisabledAggregate(name, err))
		}
	}

	priority := domain.Metric(cfg.EvalPriorityMetric)
	ranked := eval.Rank(aggregates, priority)

	report := eval.RenderMarkdown(ranked, priority)
	if err := os.WriteFile(*outputPath, []byte(report), 0o644); err != nil {
		log.Fatalf("write report: %v", err)
	}
	if err := eval.WriteWorkbook(*workbookPath, ranked, runs); err != nil {
		log.Fatalf("write workbook: %v", err)
	}

	printSummary(ranked, priority, *outputPath, *workbookPath)
}

func loadOrGenerateGolden(ctx context.Context, app *bootstrap.App, m *metrics.EvalMetrics, fresh bool) ([]domain.GoldenExample, error) {
	cfg := app.Config
	if !fresh {
		if golden, err := eval.LoadGolden(cfg.GoldenCachePath); err == nil && len(golden) > 0 {
			for range golden {
				m.GoldenExample("eval", "cached")
			}
			return golden, nil
		}
	}

	generator := eval.NewGoldenGenerator(app.Generator, cfg.GoldenSize, cfg.GoldenSeed, app.Logger)
	golden, usage, err := generator.Generate(ctx, app.Corpus.Records())
	if err != nil {
		return nil, err
	}
	for range golden {
		m.GoldenExample("eval", "generated")
	}
	app.Logger.Info("golden dataset generated",
		"examples", len(golden),
		"prompt_tokens", usage.PromptTokens,
		"cost_usd", usage.CostUSD,
	)

	if err := eval.SaveGolden(cfg.GoldenCachePath, golden); err != nil {
		return nil, err
	}
	return golden, nil
}

func printSummary(ranked []domain.StrategyAggregate, priority domain.Metric, outputPath, workbookPath string) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)

	bold.Println("\nRetrieval strategy comparison")
	fmt.Printf("priority metric: %s\n\n", priority)

	for i, agg := range ranked {
		if agg.Succeeded == 0 {
			red.Printf("%2d. %-16s disabled: %s\n", i+1, agg.Strategy, agg.Err)
			continue
		}
		line := fmt.Sprintf("%2d. %-16s %s=%.4f latency=%.3fs cost=$%.4f failures=%.0f%%",
			i+1, agg.Strategy, priority, agg.MetricValue(priority),
			agg.AvgLatencySeconds, agg.TotalCostUSD, agg.FailureRate*100)
		switch {
		case i == 0:
			green.Println(line)
		case agg.Failed > 0:
			yellow.Println(line)
		default:
			fmt.Println(line)
		}
	}

	fmt.Printf("\nreport:   %s\nworkbook: %s\n", outputPath, workbookPath)
}
