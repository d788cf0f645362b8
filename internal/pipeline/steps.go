package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitescraper/internal/crawler"
	"github.com/nao1215/sitescraper/internal/model"
	"github.com/nao1215/sitescraper/internal/report"
)

// Crawler runs a crawl and sends records to sink.
// *crawler.Spider implements it.
type Crawler interface {
	Crawl(ctx context.Context, seed string, sink crawler.Sink) (crawler.SpiderStats, error)
}

// HistoryStore records finished runs.
// *database.CrawlDB implements it.
type HistoryStore interface {
	SaveRun(ctx context.Context, run *model.CrawlRun) error
}

// CrawlStep crawls from the run's seed and fills in the run's pages.
type CrawlStep struct {
	crawler Crawler
	logger  *slog.Logger
	now     func() time.Time
}

// CrawlStepOption configures a CrawlStep.
type CrawlStepOption func(*CrawlStep)

// WithCrawlLogger sets a custom logger for the crawl step.
func WithCrawlLogger(logger *slog.Logger) CrawlStepOption {
	return func(s *CrawlStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewCrawlStep creates a crawl step around c.
func NewCrawlStep(c Crawler, opts ...CrawlStepOption) *CrawlStep {
	s := &CrawlStep{
		crawler: c,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do runs the crawl. Records produced before a cancellation are kept and
// the run is marked interrupted.
func (s *CrawlStep) Do(ctx context.Context, run *model.CrawlRun) error {
	collector := report.NewCollector()

	run.StartedAt = s.now()
	stats, err := s.crawler.Crawl(ctx, run.SeedURL, collector)
	run.FinishedAt = s.now()
	run.Pages = collector.Records()

	s.logger.Info("crawl finished",
		"seed", run.SeedURL,
		"pages", stats.PagesVisited,
		"failures", stats.Failures,
		"urls_seen", stats.URLsSeen,
		"robots_skipped", stats.RobotsSkipped,
	)

	if err == nil {
		return nil
	}
	if isCancellation(err) {
		s.logger.Warn("crawl interrupted, keeping partial results", "pages", len(run.Pages))
		run.Interrupted = true
		return nil
	}
	return fmt.Errorf("crawl failed: %w", err)
}

// PersistStep writes the run with a report.Writer.
type PersistStep struct {
	writer report.Writer
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPersistStep creates a persist step around w.
func NewPersistStep(w report.Writer, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		writer: w,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do writes the outputs. Partial write failures are logged as warnings;
// anything else, such as an unusable output directory, is fatal.
func (s *PersistStep) Do(ctx context.Context, run *model.CrawlRun) error {
	files, err := s.writer.Write(ctx, run)
	run.OutputFiles = append(run.OutputFiles, files...)

	if err == nil {
		return nil
	}
	if errors.Is(err, report.ErrPartialWrite) {
		s.logger.Warn("some outputs were not written", "written", len(files), "error", err)
		return nil
	}
	return fmt.Errorf("failed to write results: %w", err)
}

// HistoryStep stores the run in the history database. Failures are logged
// and never fail the run.
type HistoryStep struct {
	store  HistoryStore
	logger *slog.Logger
}

// HistoryStepOption configures a HistoryStep.
type HistoryStepOption func(*HistoryStep)

// WithHistoryLogger sets a custom logger for the history step.
func WithHistoryLogger(logger *slog.Logger) HistoryStepOption {
	return func(s *HistoryStep) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHistoryStep creates a history step. A nil store makes the step a
// no-op.
func NewHistoryStep(store HistoryStore, opts ...HistoryStepOption) *HistoryStep {
	s := &HistoryStep{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *HistoryStep) Name() string {
	return "history"
}

// Do saves the run.
func (s *HistoryStep) Do(ctx context.Context, run *model.CrawlRun) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.SaveRun(ctx, run); err != nil {
		s.logger.Warn("failed to record crawl history", "run", run.ID, "error", err)
		return nil
	}
	s.logger.Debug("crawl history recorded", "run", run.ID, "pages", len(run.Pages))
	return nil
}

// SummaryStep prints the run summary.
type SummaryStep struct {
	writer *report.SummaryWriter
}

// NewSummaryStep creates a summary step printing with w.
func NewSummaryStep(w *report.SummaryWriter) *SummaryStep {
	return &SummaryStep{writer: w}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// Do prints the summary.
func (s *SummaryStep) Do(_ context.Context, run *model.CrawlRun) error {
	if _, err := s.writer.WriteSummary(run); err != nil {
		return fmt.Errorf("failed to print summary: %w", err)
	}
	return nil
}
