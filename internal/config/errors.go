package config

import "errors"

// Configuration validation errors.
// These are returned by NormalizeSeed and Config.Validate so that callers
// can match them with errors.Is. Any of them aborts the process before the
// crawl starts.
var (
	// ErrNoSeed is returned when no seed URL is given.
	ErrNoSeed = errors.New("no seed URL specified")

	// ErrInvalidSeedURL is returned when the seed has no host even after
	// the https:// prefix was added.
	ErrInvalidSeedURL = errors.New("invalid seed URL")

	// ErrUnknownProfile is returned for a profile other than site or docs.
	ErrUnknownProfile = errors.New("unknown crawl profile")

	// ErrInvalidDepth is returned when the max depth is negative.
	ErrInvalidDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxPages is returned when the page bound is negative.
	// Use 0 for no bound.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be non-negative")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidCrawlDelay is returned when the delay is negative.
	ErrInvalidCrawlDelay = errors.New("invalid crawl delay: must be non-negative")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidMaxBodySize is returned when the body size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidScopeMode is returned for a scope mode other than exact or subdomains.
	ErrInvalidScopeMode = errors.New("invalid scope mode")

	// ErrInvalidLogFormat is returned for a log format other than text or json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("no output directory specified")
)
