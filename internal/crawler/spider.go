package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitescraper/internal/extract"
	"github.com/nao1215/sitescraper/internal/fetch"
	"github.com/nao1215/sitescraper/internal/model"
)

// ErrInvalidSeed is returned by Crawl when the seed has no scheme or host.
var ErrInvalidSeed = errors.New("invalid seed URL")

// Sink receives page records as the crawl produces them.
type Sink interface {
	Add(record *model.PageRecord)
}

// RobotsPolicy decides whether a URL may be fetched.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Spider performs a breadth-first crawl from a seed URL.
//
// The crawl proceeds level by level. All entries of one depth are fetched
// (up to concurrency at a time), then their results are applied in queue
// order: records go to the sink and new links are enqueued. Output order
// therefore does not depend on concurrency.
type Spider struct {
	fetcher fetch.Fetcher

	// maxDepth limits how deep to crawl from the seed.
	// 0 means only the seed, 1 means the seed and the pages it links to.
	maxDepth int

	// maxPages limits the number of fetches. 0 means unlimited.
	maxPages int

	// delay is the minimum interval between requests to the same host.
	delay time.Duration

	// concurrency is the number of fetches in flight within a level.
	concurrency int

	// root overrides the scope root. Empty means the seed host.
	root string

	scopeMode    ScopeMode
	denyPatterns []string
	keepQuery    bool

	extractor *extract.Extractor
	robots    RobotsPolicy
	progress  func(Entry)
	logger    *slog.Logger
	now       func() time.Time
}

// SpiderOption configures a Spider.
type SpiderOption func(*Spider)

// WithMaxDepth sets the maximum crawl depth.
func WithMaxDepth(depth int) SpiderOption {
	return func(s *Spider) {
		s.maxDepth = depth
	}
}

// WithMaxPages sets the maximum number of fetches. 0 means unlimited.
func WithMaxPages(maxPages int) SpiderOption {
	return func(s *Spider) {
		s.maxPages = maxPages
	}
}

// WithDelay sets the per-host delay between requests.
func WithDelay(d time.Duration) SpiderOption {
	return func(s *Spider) {
		s.delay = d
	}
}

// WithConcurrency sets how many fetches may run at once.
func WithConcurrency(n int) SpiderOption {
	return func(s *Spider) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRootDomain sets the scope root instead of the seed host.
func WithRootDomain(root string) SpiderOption {
	return func(s *Spider) {
		s.root = root
	}
}

// WithScopeMode sets how hosts are matched against the root.
func WithScopeMode(mode ScopeMode) SpiderOption {
	return func(s *Spider) {
		s.scopeMode = mode
	}
}

// WithDenyPatterns sets the denylist patterns.
func WithDenyPatterns(patterns []string) SpiderOption {
	return func(s *Spider) {
		s.denyPatterns = patterns
	}
}

// WithKeepQuery keeps query strings in URL keys.
func WithKeepQuery(keep bool) SpiderOption {
	return func(s *Spider) {
		s.keepQuery = keep
	}
}

// WithExtractor sets the content extractor.
func WithExtractor(e *extract.Extractor) SpiderOption {
	return func(s *Spider) {
		if e != nil {
			s.extractor = e
		}
	}
}

// WithRobots enables robots.txt checks. Disallowed URLs are skipped
// without a record.
func WithRobots(policy RobotsPolicy) SpiderOption {
	return func(s *Spider) {
		s.robots = policy
	}
}

// WithProgress sets a callback invoked when an entry is dispatched.
// It is always called from the goroutine running Crawl.
func WithProgress(fn func(Entry)) SpiderOption {
	return func(s *Spider) {
		s.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) SpiderOption {
	return func(s *Spider) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpider creates a Spider that retrieves pages with fetcher.
func NewSpider(fetcher fetch.Fetcher, opts ...SpiderOption) *Spider {
	s := &Spider{
		fetcher:     fetcher,
		maxDepth:    2,
		concurrency: 1,
		scopeMode:   ScopeSubdomains,
		extractor:   extract.NewExtractor(),
		logger:      slog.Default(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// SpiderStats contains crawl statistics.
type SpiderStats struct {
	// PagesVisited is the number of records emitted.
	PagesVisited int

	// Failures is the number of fetch_error records.
	Failures int

	// URLsSeen is the number of distinct URLs enqueued.
	URLsSeen int

	// RobotsSkipped is the number of URLs skipped by robots.txt.
	RobotsSkipped int
}

// pageResult is what a worker hands back to the coordinator.
type pageResult struct {
	record *model.PageRecord
	links  []string
}

// crawlState holds the per-crawl collaborators derived from the seed.
type crawlState struct {
	frontier *Frontier
	links    *LinkExtractor
	limiter  *DomainLimiter
}

// Crawl runs the crawl from seed and sends every record to sink.
//
// Per-page failures become fetch_error records and never stop the crawl.
// When ctx is cancelled, records already completed in the current level
// are still emitted, fetches in flight are abandoned without a record, and
// Crawl returns the stats so far together with ctx.Err().
func (s *Spider) Crawl(ctx context.Context, seed string, sink Sink) (SpiderStats, error) {
	normalizer := NewNormalizer(seed, s.keepQuery)
	seedKey := normalizer.SeedKey()
	if seedKey == "" {
		return SpiderStats{}, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
	}

	root := s.root
	if root == "" {
		u, err := url.Parse(seedKey)
		if err != nil {
			return SpiderStats{}, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
		}
		root = u.Host
	}

	scope := NewScope(root, s.scopeMode, s.denyPatterns)
	state := &crawlState{
		frontier: NewFrontier(),
		links:    NewLinkExtractor(normalizer, scope, s.logger),
		limiter:  NewDomainLimiter(s.delay),
	}
	state.frontier.Push(seedKey, 0)

	var stats SpiderStats
	dispatched := 0

	for {
		if err := ctx.Err(); err != nil {
			stats.URLsSeen = state.frontier.VisitedCount()
			return stats, err
		}

		level := state.frontier.PopLevel()
		if len(level) == 0 {
			break
		}

		batch := make([]Entry, 0, len(level))
		for _, e := range level {
			if e.Depth > s.maxDepth {
				continue
			}
			if s.maxPages > 0 && dispatched >= s.maxPages {
				break
			}
			if s.robots != nil && !s.robots.Allowed(ctx, e.URL) {
				s.logger.Debug("skipping URL disallowed by robots.txt", "url", e.URL)
				stats.RobotsSkipped++
				continue
			}
			dispatched++
			batch = append(batch, e)
		}

		results := make([]*pageResult, len(batch))
		var g errgroup.Group
		g.SetLimit(s.concurrency)
		for i, e := range batch {
			if ctx.Err() != nil {
				break
			}
			if s.progress != nil {
				s.progress(e)
			}
			g.Go(func() error {
				results[i] = s.process(ctx, state, e)
				return nil
			})
		}
		_ = g.Wait() //nolint:errcheck // workers never return errors

		for i, r := range results {
			if r == nil {
				continue
			}
			sink.Add(r.record)
			stats.PagesVisited++
			if !r.record.IsSuccess() {
				stats.Failures++
			}
			if ctx.Err() != nil {
				continue
			}
			for _, link := range r.links {
				state.frontier.Push(link, batch[i].Depth+1)
			}
		}

		if s.maxPages > 0 && dispatched >= s.maxPages {
			s.logger.Debug("page budget exhausted", "max_pages", s.maxPages, "queued", state.frontier.Len())
			break
		}
	}

	stats.URLsSeen = state.frontier.VisitedCount()
	return stats, ctx.Err()
}

// process fetches and extracts one entry. It returns nil when the entry
// was abandoned because ctx was cancelled.
func (s *Spider) process(ctx context.Context, state *crawlState, e Entry) *pageResult {
	if u, err := url.Parse(e.URL); err == nil {
		if err := state.limiter.Wait(ctx, u.Host); err != nil {
			return nil
		}
	}

	s.logger.Info("crawling page", "url", e.URL, "depth", e.Depth)

	resp, err := s.fetcher.Fetch(ctx, e.URL)
	fetchedAt := s.now()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Warn("fetch failed", "url", e.URL, "error", err)
		return &pageResult{
			record: model.NewFetchErrorRecord(e.URL, e.Depth, e.Seq, err, string(fetch.KindOf(err)), fetch.StatusOf(err), fetchedAt),
		}
	}

	info := model.FetchInfo{
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
		Body:        resp.Body,
	}

	if !resp.IsHTML() {
		s.logger.Debug("non-HTML response, not expanding", "url", e.URL, "content_type", resp.ContentType)
		return &pageResult{
			record: model.NewSuccessRecord(e.URL, e.Depth, e.Seq, model.PageContent{}, info, fetchedAt),
		}
	}

	doc, err := extract.Parse(resp.Body, resp.ContentType)
	if err != nil {
		s.logger.Debug("unparsable page", "url", e.URL, "error", err)
		return &pageResult{
			record: model.NewSuccessRecord(e.URL, e.Depth, e.Seq, model.PageContent{}, info, fetchedAt),
		}
	}

	var links []string
	if e.Depth < s.maxDepth {
		base := resp.FinalURL
		if base == "" {
			base = e.URL
		}
		links = state.links.Extract(doc, base)
	}

	content, err := s.extractor.Extract(doc)
	if err != nil {
		s.logger.Debug("no content region", "url", e.URL, "error", err)
	}

	return &pageResult{
		record: model.NewSuccessRecord(e.URL, e.Depth, e.Seq, content, info, fetchedAt),
		links:  links,
	}
}
