// Package report persists crawl runs.
//
// Collector gathers page records while the crawl runs. When the crawl
// ends, Writers turn the run into files:
//   - JSONWriter: one JSON report per site run
//   - IndexWriter: a markdown index of the scraped pages
//   - DocsWriter: one markdown document per page, mirroring the URL path
//
// SummaryWriter prints a short summary for the terminal.
package report
