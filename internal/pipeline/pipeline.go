package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nao1215/sitescraper/internal/model"
)

// Step is one stage of a crawl run. Steps receive the run filled in by the
// steps before them.
type Step interface {
	// Do executes the step. A returned error is fatal for the run;
	// recoverable problems are logged by the step and Do returns nil.
	Do(ctx context.Context, run *model.CrawlRun) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Pipeline runs steps in order, then runs finalizers.
//
// Finalizers (persisting and recording the run) always execute, even after
// cancellation or a failed step, with a context that is never cancelled.
// That is how an interrupted crawl still writes its partial results.
type Pipeline struct {
	steps      []Step
	finalizers []Step

	logger *slog.Logger

	// continueOnError keeps executing steps after one fails.
	continueOnError bool
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError configures the pipeline to continue execution
// even when a step fails.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New creates a new Pipeline with the given options.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:      make([]Step, 0),
		finalizers: make([]Step, 0),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// AddFinalizer appends a step that runs after the regular steps no matter
// how they ended.
func (p *Pipeline) AddFinalizer(steps ...Step) {
	p.finalizers = append(p.finalizers, steps...)
}

// Execute runs the steps, then the finalizers.
//
// Cancellation is not an error: it marks the run as interrupted, skips the
// remaining steps and still runs the finalizers. Execute returns the first
// fatal step or finalizer error.
func (p *Pipeline) Execute(ctx context.Context, run *model.CrawlRun) error {
	var firstErr error

	for _, step := range p.steps {
		if ctx.Err() != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			run.Interrupted = true
			break
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"seed", run.SeedURL,
		)

		err := step.Do(ctx, run)
		if err == nil {
			p.logger.Debug("step completed", "step", step.Name(), "seed", run.SeedURL)
			continue
		}

		if ctx.Err() != nil && isCancellation(err) {
			run.Interrupted = true
			break
		}

		p.logger.Error("step failed",
			"step", step.Name(),
			"seed", run.SeedURL,
			"error", err,
		)
		p.recordError(run, err)
		if firstErr == nil {
			firstErr = err
		}
		if !p.continueOnError {
			break
		}
	}

	fctx := context.WithoutCancel(ctx)
	for _, f := range p.finalizers {
		p.logger.Info("executing finalizer", "step", f.Name(), "seed", run.SeedURL)

		if err := f.Do(fctx, run); err != nil {
			p.logger.Error("finalizer failed",
				"step", f.Name(),
				"seed", run.SeedURL,
				"error", err,
			)
			p.recordError(run, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (p *Pipeline) recordError(run *model.CrawlRun, err error) {
	run.Err = err
	run.ErrorMessage = err.Error()
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// StepCount returns the number of regular steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps and finalizers in execution
// order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps)+len(p.finalizers))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	for _, f := range p.finalizers {
		names = append(names, f.Name())
	}
	return names
}
