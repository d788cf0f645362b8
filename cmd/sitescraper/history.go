package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/sitescraper/internal/config"
	"github.com/nao1215/sitescraper/internal/database"
)

const historyTimeFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command and its subcommands.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect and compare recorded crawl runs",
		Long: `History reads the runs that site and docs recorded in the history
database ($XDG_DATA_HOME/sitescraper/sitescraper.db by default).

Examples:
  # List every recorded run
  sitescraper history list

  # List the runs of one domain
  sitescraper history list docs.example.com

  # Show the pages of one run
  sitescraper history show 0b7c4c1e-2f6a-4d44-a4a5-3f0c2b1f9d10

  # Compare the latest two runs of a domain
  sitescraper history diff docs.example.com`,
	}

	cmd.PersistentFlags().String(flagDBDir, config.XDGDataDir(),
		"Directory of the history database")
	cmd.PersistentFlags().BoolP("json", "j", false,
		"Output in JSON format")

	cmd.AddCommand(newHistoryListCmd())
	cmd.AddCommand(newHistoryShowCmd())
	cmd.AddCommand(newHistoryDiffCmd())

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [domain]",
		Short: "List recorded runs, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runHistoryList,
	}
	cmd.Flags().IntP("limit", "l", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the pages of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
}

func newHistoryDiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <domain>",
		Short: "Compare the latest two runs of a domain",
		Long: `Diff compares the latest two recorded runs of a domain and reports
pages that were added, pages that disappeared and pages whose content hash
or outcome changed. At least two runs of the domain are required.`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryDiff,
	}
	cmd.Flags().BoolP("markdown", "m", false, "Output in Markdown format")
	return cmd
}

// openHistory opens the database named by --db-dir.
func openHistory(cmd *cobra.Command) (*database.CrawlDB, error) {
	dir, err := cmd.Flags().GetString(flagDBDir)
	if err != nil {
		return nil, err
	}
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	return db, nil
}

// normalizeDomain turns a domain or URL argument into the stored host form.
func normalizeDomain(raw string) (string, error) {
	seed, err := config.NormalizeSeed(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(seed)
	if err != nil {
		return "", err
	}
	return strings.ToLower(u.Host), nil
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	domain := ""
	if len(args) == 1 {
		var err error
		if domain, err = normalizeDomain(args[0]); err != nil {
			return err
		}
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(cmd.Context(), domain, limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, runs)
	}

	if len(runs) == 0 {
		if domain != "" {
			fmt.Fprintf(out, "No runs recorded for %s\n", domain)
		} else {
			fmt.Fprintln(out, "No runs recorded.")
		}
		fmt.Fprintln(out, "\nUse 'sitescraper site <url>' or 'sitescraper docs <url>' to crawl a site.")
		return nil
	}

	fmt.Fprintf(out, "Recorded runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %-5s  %-30s  %6s  %6s\n", "ID", "Started", "Prof.", "Domain", "Pages", "Failed")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 112))
	for _, r := range runs {
		marker := ""
		if r.Interrupted {
			marker = " (interrupted)"
		}
		fmt.Fprintf(out, "  %-36s  %-19s  %-5s  %-30s  %6d  %6d%s\n",
			r.ID,
			r.StartedAt.Local().Format(historyTimeFormat),
			r.Profile,
			r.Domain,
			r.TotalPages,
			r.FailedPages,
			marker,
		)
	}
	fmt.Fprintln(out, "\nUse 'sitescraper history diff <domain>' to compare the latest two runs.")

	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	run, err := db.GetRun(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		return fmt.Errorf("failed to get run: %w", err)
	}
	pages, err := db.GetRunPages(cmd.Context(), run.ID)
	if err != nil {
		return fmt.Errorf("failed to get pages: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, struct {
			Run   *database.RunSummary `json:"run"`
			Pages []database.PageRow   `json:"pages"`
		}{Run: run, Pages: pages})
	}

	fmt.Fprintf(out, "Run:     %s\n", run.ID)
	fmt.Fprintf(out, "Profile: %s\n", run.Profile)
	fmt.Fprintf(out, "Seed:    %s\n", run.SeedURL)
	fmt.Fprintf(out, "Started: %s\n", run.StartedAt.Local().Format(historyTimeFormat))
	fmt.Fprintf(out, "Pages:   %d (%d failed)\n\n", run.TotalPages, run.FailedPages)
	for _, p := range pages {
		status := p.Outcome
		if p.StatusCode != 0 {
			status += " " + strconv.Itoa(p.StatusCode)
		}
		fmt.Fprintf(out, "  [%d] %-60s  %s\n", p.Depth, p.URL, status)
	}
	return nil
}

func runHistoryDiff(cmd *cobra.Command, args []string) error {
	domain, err := normalizeDomain(args[0])
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	db, err := openHistory(cmd)
	if err != nil {
		return err
	}
	defer db.Close()

	diff, err := db.DiffRuns(cmd.Context(), domain)
	if err != nil {
		if errors.Is(err, database.ErrNotEnoughRuns) {
			return fmt.Errorf("at least 2 runs of %s are required for comparison", domain)
		}
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		return writeJSON(out, diff)
	case markdownOutput:
		return writeDiffMarkdown(out, diff)
	default:
		writeDiffText(out, diff)
		return nil
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeDiffText(w io.Writer, diff *database.RunDiff) {
	fmt.Fprintf(w, "Comparing runs of %s\n", diff.Domain)
	fmt.Fprintf(w, "  old: %s  %s  (%d pages)\n", diff.Old.ID, diff.Old.StartedAt.Local().Format(historyTimeFormat), diff.Old.TotalPages)
	fmt.Fprintf(w, "  new: %s  %s  (%d pages)\n\n", diff.New.ID, diff.New.StartedAt.Local().Format(historyTimeFormat), diff.New.TotalPages)

	if !diff.HasChanges() {
		fmt.Fprintf(w, "No changes (%d pages unchanged).\n", diff.Unchanged)
		return
	}

	fmt.Fprintf(w, "Added (%d):\n", len(diff.Added))
	for _, u := range diff.Added {
		fmt.Fprintf(w, "  + %s\n", u)
	}
	fmt.Fprintf(w, "Removed (%d):\n", len(diff.Removed))
	for _, u := range diff.Removed {
		fmt.Fprintf(w, "  - %s\n", u)
	}
	fmt.Fprintf(w, "Changed (%d):\n", len(diff.Changed))
	for _, c := range diff.Changed {
		fmt.Fprintf(w, "  ~ %s%s\n", c.URL, changeDetail(c))
	}
	fmt.Fprintf(w, "Unchanged: %d\n", diff.Unchanged)
}

func writeDiffMarkdown(w io.Writer, diff *database.RunDiff) error {
	md := markdown.NewMarkdown(w)
	md.H1("Crawl Comparison: " + diff.Domain)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"", "Run", "Started", "Pages"},
		Rows: [][]string{
			{"Old", "`" + diff.Old.ID + "`", diff.Old.StartedAt.UTC().Format(historyTimeFormat), strconv.Itoa(diff.Old.TotalPages)},
			{"New", "`" + diff.New.ID + "`", diff.New.StartedAt.UTC().Format(historyTimeFormat), strconv.Itoa(diff.New.TotalPages)},
		},
	})
	md.PlainText("")

	if !diff.HasChanges() {
		md.PlainTextf("No changes (%d pages unchanged).", diff.Unchanged)
		return md.Build()
	}

	md.H2(fmt.Sprintf("Added (%d)", len(diff.Added)))
	if len(diff.Added) > 0 {
		md.BulletList(diff.Added...)
	}
	md.H2(fmt.Sprintf("Removed (%d)", len(diff.Removed)))
	if len(diff.Removed) > 0 {
		md.BulletList(diff.Removed...)
	}
	md.H2(fmt.Sprintf("Changed (%d)", len(diff.Changed)))
	if len(diff.Changed) > 0 {
		items := make([]string, 0, len(diff.Changed))
		for _, c := range diff.Changed {
			items = append(items, c.URL+changeDetail(c))
		}
		md.BulletList(items...)
	}
	md.PlainText("")
	md.PlainTextf("Unchanged pages: %d", diff.Unchanged)

	return md.Build()
}

// changeDetail describes an outcome change. Content changes need no detail.
func changeDetail(c database.PageChange) string {
	if c.OldOutcome != c.NewOutcome {
		return fmt.Sprintf(" (%s -> %s)", c.OldOutcome, c.NewOutcome)
	}
	return ""
}
