package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescraper/internal/model"
)

// BatchProcessor runs one pipeline per seed, several seeds at a time.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each seed, so per-site
	// settings can differ between seeds.
	pipelineFactory func(seed string) *Pipeline

	// runFactory creates the run for a seed.
	runFactory func(seed string) *model.CrawlRun

	// concurrency is the maximum number of seeds crawled at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of seeds processed at once.
// Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a BatchProcessor.
func NewBatchProcessor(pipelineFactory func(seed string) *Pipeline, runFactory func(seed string) *model.CrawlRun, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		runFactory:      runFactory,
		concurrency:     1,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// BatchResult is the outcome of one seed.
type BatchResult struct {
	Run *model.CrawlRun
	Err error
}

// ProcessBatch runs the pipeline for every seed and returns the results in
// seed order. A failing seed does not stop the others. Seeds not started
// before ctx is cancelled get no run.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, seeds []string) []BatchResult {
	bp.logger.Info("starting batch processing",
		"total_seeds", len(seeds),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]BatchResult, len(seeds))

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, seed := range seeds {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			bp.logger.Info("processing seed",
				"seed", seed,
				"index", i+1,
				"total", len(seeds),
			)

			run := bp.runFactory(seed)
			err := bp.pipelineFactory(seed).Execute(ctx, run)

			// Each goroutine owns its own index.
			results[i] = BatchResult{Run: run, Err: err}

			if err != nil {
				bp.logger.Warn("seed failed", "seed", seed, "error", err)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	bp.logger.Info("batch processing complete",
		"total_seeds", len(seeds),
		"elapsed", time.Since(startTime),
	)

	return results
}
