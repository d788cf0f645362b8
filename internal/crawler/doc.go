// Package crawler implements a breadth-first, domain-scoped web crawl.
//
// # Components
//
//   - Normalizer: turns link references into comparable URL keys
//   - Scope: decides which URLs may be crawled (host rules and denylist)
//   - LinkExtractor: collects in-scope links from a parsed page
//   - Frontier: FIFO queue plus visited set
//   - DomainLimiter: per-host politeness delay
//   - Spider: runs the crawl and emits one record per dequeued URL
//
// # Traversal
//
// The seed is enqueued at depth 0 and every discovered link at its
// parent's depth + 1. A URL enters the visited set when it is enqueued, so
// cycles and duplicate links never cause a second fetch. Pages at the
// maximum depth are fetched but their links are not followed.
//
// Fetch failures are recorded and the crawl continues. Cancelling the
// context stops the crawl after the current level's completed pages have
// been emitted.
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher,
//		crawler.WithMaxDepth(3),
//		crawler.WithDelay(500*time.Millisecond),
//	)
//	stats, err := spider.Crawl(ctx, "https://docs.example.com", collector)
package crawler
