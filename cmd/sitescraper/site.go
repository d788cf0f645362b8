package main

import (
	"github.com/spf13/cobra"

	"github.com/nao1215/sitescraper/internal/config"
)

// NewSiteCmd creates the site command.
func NewSiteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site <url> [url...]",
		Short: "Scan a website and record the metadata of every page",
		Long: `Site crawls one host breadth-first and records the URL, title and
description of every page it reaches.

Results are written to the output directory as a JSON report
(<domain>-<timestamp>.json) and a markdown index of the same name.
A seed without a scheme is fetched over https.

Examples:
  # Scan a site two levels deep
  sitescraper site example.com

  # Go deeper, stop after 200 pages and include page text in the report
  sitescraper site -d 4 -p 200 --content https://example.com/

  # Stay polite and respect robots.txt
  sitescraper site --delay 1s --robots example.com

  # Scan several sites, two at a time
  sitescraper site --seed-concurrency 2 example.com example.org`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, config.ProfileSite, args)
		},
	}

	addCrawlFlags(cmd, config.ProfileSite)
	cmd.Flags().Bool(flagContent, false,
		"Include the extracted text content of each page in the JSON report")

	return cmd
}
