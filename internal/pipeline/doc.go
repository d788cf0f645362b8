// Package pipeline runs a crawl run through its stages.
//
// A run goes through the crawl step, then the finalizers: persisting the
// outputs, recording history and printing a summary. Finalizers run even
// when the crawl was interrupted, so partial results are never lost.
//
// BatchProcessor runs one pipeline per seed when several seeds are given,
// with errgroup limiting how many run at once.
package pipeline
