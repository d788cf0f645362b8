package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitescraper/internal/model"
)

// SummaryWriter prints a short human-readable summary of a run to a
// terminal.
type SummaryWriter struct {
	output io.Writer

	// verbose also lists the failed pages.
	verbose bool
}

// SummaryWriterOption configures a SummaryWriter.
type SummaryWriterOption func(*SummaryWriter)

// WithVerbose lists every failed page in the summary.
func WithVerbose(verbose bool) SummaryWriterOption {
	return func(w *SummaryWriter) {
		w.verbose = verbose
	}
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryWriterOption) *SummaryWriter {
	w := &SummaryWriter{output: output}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteSummary prints the run summary.
func (w *SummaryWriter) WriteSummary(run *model.CrawlRun) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Seed:          %s\n", run.SeedURL)
	fmt.Fprintf(&sb, "Pages scraped: %d\n", run.SuccessCount())
	fmt.Fprintf(&sb, "Failed pages:  %d\n", run.FailureCount())
	if d := run.Duration(); d > 0 {
		fmt.Fprintf(&sb, "Duration:      %s\n", d.Round(time.Millisecond))
	}

	switch {
	case run.Interrupted:
		sb.WriteString("Status:        INTERRUPTED (partial results)\n")
	case run.ErrorMessage != "":
		fmt.Fprintf(&sb, "Status:        ERROR - %s\n", run.ErrorMessage)
	default:
		sb.WriteString("Status:        Complete\n")
	}

	if w.verbose {
		for _, p := range run.Failed() {
			fmt.Fprintf(&sb, "  [!] %s: %s\n", p.URL, p.Error)
		}
	}

	if len(run.OutputFiles) > 0 {
		sb.WriteString("\nResults saved to:\n")
		for _, f := range run.OutputFiles {
			fmt.Fprintf(&sb, "  %s\n", f)
		}
	}

	return io.WriteString(w.output, sb.String())
}
