package model

import (
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CrawlRun is one crawl of one seed URL.
// The pipeline fills it in step by step: the crawl step sets Pages, the
// persist step sets OutputFiles, and the history step stores the whole run.
type CrawlRun struct {
	// ID uniquely identifies the run in the history store.
	ID string `json:"id"`

	// Profile is the crawl profile name ("site" or "docs").
	Profile string `json:"profile"`

	// SeedURL is the seed after scheme defaulting.
	SeedURL string `json:"base_url"`

	// Domain is the seed host (including port, if any).
	Domain string `json:"domain"`

	// MaxDepth is the depth bound used for the crawl.
	MaxDepth int `json:"max_depth"`

	// StartedAt and FinishedAt bound the crawl step.
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Interrupted is set when the crawl was stopped by the operator
	// before the frontier drained.
	Interrupted bool `json:"interrupted"`

	// Pages holds the records in (depth, seq) order.
	Pages []*PageRecord `json:"pages"`

	// OutputFiles lists the files the persist step wrote.
	OutputFiles []string `json:"output_files,omitempty"`

	// Err is the last step error, if any.
	Err error `json:"-"`

	// ErrorMessage is the string form of Err for serialization.
	ErrorMessage string `json:"error,omitempty"`
}

// NewCrawlRun creates a run for the given profile and seed.
func NewCrawlRun(profile, seedURL string, maxDepth int) *CrawlRun {
	domain := ""
	if u, err := url.Parse(seedURL); err == nil {
		domain = strings.ToLower(u.Host)
	}
	return &CrawlRun{
		ID:       uuid.NewString(),
		Profile:  profile,
		SeedURL:  seedURL,
		Domain:   domain,
		MaxDepth: maxDepth,
		Pages:    make([]*PageRecord, 0),
	}
}

// SuccessCount returns the number of successfully fetched pages.
func (r *CrawlRun) SuccessCount() int {
	n := 0
	for _, p := range r.Pages {
		if p.IsSuccess() {
			n++
		}
	}
	return n
}

// FailureCount returns the number of pages whose fetch failed.
func (r *CrawlRun) FailureCount() int {
	return len(r.Pages) - r.SuccessCount()
}

// Successful returns the successful records, in the run's order.
func (r *CrawlRun) Successful() []*PageRecord {
	out := make([]*PageRecord, 0, len(r.Pages))
	for _, p := range r.Pages {
		if p.IsSuccess() {
			out = append(out, p)
		}
	}
	return out
}

// Failed returns the fetch-error records, in the run's order.
func (r *CrawlRun) Failed() []*PageRecord {
	out := make([]*PageRecord, 0)
	for _, p := range r.Pages {
		if !p.IsSuccess() {
			out = append(out, p)
		}
	}
	return out
}

// Duration returns how long the crawl step took.
func (r *CrawlRun) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SortPages orders records by depth, then by first-seen order.
func SortPages(pages []*PageRecord) {
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Depth != pages[j].Depth {
			return pages[i].Depth < pages[j].Depth
		}
		return pages[i].Seq < pages[j].Seq
	})
}
