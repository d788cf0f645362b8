package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/nao1215/sitescraper/internal/model"
)

func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() }, newSeedRun)
		if bp.concurrency != 1 {
			t.Errorf("expected concurrency 1, got %d", bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New() }, newSeedRun, WithConcurrency(0))
		if bp.concurrency != 1 {
			t.Errorf("expected concurrency 1, got %d", bp.concurrency)
		}
	})
}

func newSeedRun(seed string) *model.CrawlRun {
	return model.NewCrawlRun("site", seed, 1)
}

func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("results follow seed order", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		factory := func(string) *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&mockStep{name: "crawl", doFunc: func(_ context.Context, run *model.CrawlRun) error {
				calls.Add(1)
				if run.SeedURL == "https://bad.example/" {
					return errors.New("bad seed")
				}
				return nil
			}})
			return p
		}

		seeds := []string{"https://a.example/", "https://bad.example/", "https://c.example/"}
		bp := NewBatchProcessor(factory, newSeedRun, WithConcurrency(3), WithBatchLogger(quietLogger()))
		results := bp.ProcessBatch(context.Background(), seeds)

		if calls.Load() != 3 {
			t.Errorf("expected 3 pipeline runs, got %d", calls.Load())
		}
		if len(results) != 3 {
			t.Fatalf("expected 3 results, got %d", len(results))
		}
		for i, r := range results {
			if r.Run == nil || r.Run.SeedURL != seeds[i] {
				t.Fatalf("result %d: expected seed %s, got %+v", i, seeds[i], r.Run)
			}
		}
		if results[1].Err == nil {
			t.Error("expected failing seed to report its error")
		}
		if results[0].Err != nil || results[2].Err != nil {
			t.Error("expected other seeds to succeed")
		}
	})

	t.Run("cancelled before start", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func(string) *Pipeline { return New(WithLogger(quietLogger())) }, newSeedRun, WithBatchLogger(quietLogger()))
		results := bp.ProcessBatch(ctx, []string{"https://a.example/"})
		if results[0].Run != nil {
			t.Error("expected no run for a seed that never started")
		}
	})
}
