// Package main provides the entry point for the sitescraper CLI.
//
// sitescraper crawls a website breadth-first from a seed URL and either
// records page metadata as a JSON report (site profile) or converts every
// page to a markdown document (docs profile).
//
// Usage:
//
//	sitescraper site <url> [url...]
//	sitescraper docs <url> [url...]
//	sitescraper history list [domain]
//
// See --help for all available options.
package main

func main() {
	Execute()
}
