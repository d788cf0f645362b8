package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/sitescraper/internal/config"
)

// NewDocsCmd creates the docs command.
func NewDocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs <url> [url...]",
		Short: "Scrape a documentation site into markdown files",
		Long: `Docs crawls a documentation site and its subdomains, converts the main
content of every page to markdown and writes one document per page.

Each document starts with a YAML front-matter block holding the title,
source URL, description and fetch time. INDEX.md in the output directory
links every document that was written.

The default denylist skips API references, login and search pages,
archives and links to code hosting or chat sites. Use --no-default-deny to
disable it or --deny to add patterns.

Examples:
  # Scrape a documentation site
  sitescraper docs docs.example.com

  # Limit depth and write to a custom directory
  sitescraper docs -d 3 -o ./example-docs https://docs.example.com/guide/

  # Follow every subdomain of the registrable domain
  sitescraper docs --registrable-domain https://docs.example.com/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, config.ProfileDocs, args)
		},
	}

	addCrawlFlags(cmd, config.ProfileDocs)

	return cmd
}
