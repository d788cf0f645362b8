package model

import (
	"errors"
	"testing"
	"time"
)

func TestNewSuccessRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("keeps extracted fields", func(t *testing.T) {
		t.Parallel()

		rec := NewSuccessRecord("https://x.com/a", 1, 3,
			PageContent{Title: "A", Description: "desc", Content: "body"},
			FetchInfo{StatusCode: 200, ContentType: "text/html", Body: []byte("<html></html>")},
			now,
		)

		if rec.Outcome != OutcomeSuccess {
			t.Errorf("expected outcome success, got %q", rec.Outcome)
		}
		if !rec.IsSuccess() {
			t.Error("expected IsSuccess to be true")
		}
		if rec.Title != "A" || rec.Description != "desc" || rec.Content != "body" {
			t.Errorf("unexpected content fields: %+v", rec)
		}
		if rec.Depth != 1 || rec.Seq != 3 {
			t.Errorf("expected depth 1 seq 3, got %d %d", rec.Depth, rec.Seq)
		}
		if rec.ContentHash == "" {
			t.Error("expected content hash to be set")
		}
		if !rec.FetchedAt.Equal(now) {
			t.Errorf("expected fetched_at %v, got %v", now, rec.FetchedAt)
		}
	})

	t.Run("empty title falls back", func(t *testing.T) {
		t.Parallel()

		rec := NewSuccessRecord("https://x.com", 0, 0, PageContent{}, FetchInfo{}, now)
		if rec.Title != DefaultTitle {
			t.Errorf("expected %q, got %q", DefaultTitle, rec.Title)
		}
		if rec.ContentHash != "" {
			t.Errorf("expected empty hash for empty body, got %q", rec.ContentHash)
		}
	})
}

func TestNewFetchErrorRecord(t *testing.T) {
	t.Parallel()

	rec := NewFetchErrorRecord("https://x.com/b", 2, 7, errors.New("boom"), "network", 0, time.Now())

	if rec.Outcome != OutcomeFetchError {
		t.Errorf("expected outcome fetch_error, got %q", rec.Outcome)
	}
	if rec.IsSuccess() {
		t.Error("expected IsSuccess to be false")
	}
	if rec.Error != "boom" {
		t.Errorf("expected error message 'boom', got %q", rec.Error)
	}
	if rec.ErrorKind != "network" {
		t.Errorf("expected kind 'network', got %q", rec.ErrorKind)
	}
}

func TestHashContent(t *testing.T) {
	t.Parallel()

	a := HashContent([]byte("hello"))
	b := HashContent([]byte("hello"))
	c := HashContent([]byte("world"))

	if a != b {
		t.Error("expected identical input to hash identically")
	}
	if a == c {
		t.Error("expected different input to hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestCrawlRun(t *testing.T) {
	t.Parallel()

	t.Run("domain is taken from seed", func(t *testing.T) {
		t.Parallel()

		run := NewCrawlRun("docs", "https://Docs.Example.com/start", 3)
		if run.Domain != "docs.example.com" {
			t.Errorf("expected domain docs.example.com, got %q", run.Domain)
		}
		if run.ID == "" {
			t.Error("expected run ID to be generated")
		}
		if run.MaxDepth != 3 {
			t.Errorf("expected max depth 3, got %d", run.MaxDepth)
		}
	})

	t.Run("counts outcomes", func(t *testing.T) {
		t.Parallel()

		run := NewCrawlRun("site", "https://x.com", 1)
		now := time.Now()
		run.Pages = []*PageRecord{
			NewSuccessRecord("https://x.com", 0, 0, PageContent{Title: "root"}, FetchInfo{}, now),
			NewFetchErrorRecord("https://x.com/a", 1, 1, errors.New("404"), "http_status", 404, now),
			NewSuccessRecord("https://x.com/b", 1, 2, PageContent{Title: "b"}, FetchInfo{}, now),
		}

		if run.SuccessCount() != 2 {
			t.Errorf("expected 2 successes, got %d", run.SuccessCount())
		}
		if run.FailureCount() != 1 {
			t.Errorf("expected 1 failure, got %d", run.FailureCount())
		}
		if got := len(run.Successful()); got != 2 {
			t.Errorf("expected 2 successful records, got %d", got)
		}
		if got := run.Failed(); len(got) != 1 || got[0].URL != "https://x.com/a" {
			t.Errorf("unexpected failed records: %v", got)
		}
	})

	t.Run("duration is zero until finished", func(t *testing.T) {
		t.Parallel()

		run := NewCrawlRun("site", "https://x.com", 1)
		if run.Duration() != 0 {
			t.Errorf("expected zero duration, got %v", run.Duration())
		}
		run.StartedAt = time.Unix(100, 0)
		run.FinishedAt = time.Unix(105, 0)
		if run.Duration() != 5*time.Second {
			t.Errorf("expected 5s, got %v", run.Duration())
		}
	})
}

func TestSortPages(t *testing.T) {
	t.Parallel()

	pages := []*PageRecord{
		{URL: "c", Depth: 1, Seq: 5},
		{URL: "a", Depth: 0, Seq: 0},
		{URL: "d", Depth: 2, Seq: 3},
		{URL: "b", Depth: 1, Seq: 2},
	}
	SortPages(pages)

	want := []string{"a", "b", "c", "d"}
	for i, p := range pages {
		if p.URL != want[i] {
			t.Errorf("position %d: expected %q, got %q", i, want[i], p.URL)
		}
	}
}
