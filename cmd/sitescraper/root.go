package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescraper/internal/config"
)

// NewRootCmd creates the root command for sitescraper.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitescraper",
		Short: "Breadth-first website crawler and documentation scraper",
		Long: `sitescraper crawls a website breadth-first from a seed URL.

Two profiles are available:
  site  fast scan of one host; writes a JSON report and a markdown index
  docs  thorough documentation crawl; writes one markdown document per page
        plus INDEX.md

Every run is recorded in a local history database so that later runs of
the same domain can be compared with 'sitescraper history diff'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.DefaultLogFormat, "Log format: text or json")

	cmd.AddCommand(NewSiteCmd())
	cmd.AddCommand(NewDocsCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
