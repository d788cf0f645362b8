package report

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/nao1215/sitescraper/internal/model"
)

// JSONWriter writes the site profile report as one JSON file per run.
type JSONWriter struct {
	dir string

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string

	// includeContent adds the extracted content to every page entry.
	includeContent bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithContent includes the extracted page content in the report.
func WithContent(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.includeContent = include
	}
}

// NewJSONWriter creates a JSONWriter that writes into dir.
func NewJSONWriter(dir string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{dir: dir}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport is the top-level document of a site report.
type JSONReport struct {
	Domain      string     `json:"domain"`
	BaseURL     string     `json:"base_url"`
	ScrapedAt   time.Time  `json:"scraped_at"`
	TotalPages  int        `json:"total_pages"`
	MaxDepth    int        `json:"max_depth"`
	Interrupted bool       `json:"interrupted"`
	Pages       []JSONPage `json:"pages"`
}

// JSONPage is one page entry of a site report.
type JSONPage struct {
	URL         string `json:"url"`
	Depth       int    `json:"depth"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StatusCode  int    `json:"status_code,omitempty"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
	Content     string `json:"content,omitempty"`
}

// NewJSONReport builds the report document for run.
func NewJSONReport(run *model.CrawlRun, includeContent bool) *JSONReport {
	scrapedAt := run.FinishedAt
	if scrapedAt.IsZero() {
		scrapedAt = run.StartedAt
	}

	pages := make([]JSONPage, 0, len(run.Pages))
	for _, p := range run.Pages {
		page := JSONPage{
			URL:         p.URL,
			Depth:       p.Depth,
			Title:       p.Title,
			Description: p.Description,
			StatusCode:  p.StatusCode,
			Outcome:     string(p.Outcome),
			Error:       p.Error,
		}
		if includeContent {
			page.Content = p.Content
		}
		pages = append(pages, page)
	}

	return &JSONReport{
		Domain:      run.Domain,
		BaseURL:     run.SeedURL,
		ScrapedAt:   scrapedAt,
		TotalPages:  len(pages),
		MaxDepth:    run.MaxDepth,
		Interrupted: run.Interrupted,
		Pages:       pages,
	}
}

// Write writes "<safe-domain>-<timestamp>.json" into the output directory.
func (w *JSONWriter) Write(_ context.Context, run *model.CrawlRun) ([]string, error) {
	if err := ensureDir(w.dir); err != nil {
		return nil, err
	}

	data, err := w.marshal(NewJSONReport(run, w.includeContent))
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	path := filepath.Join(w.dir, reportName(run, ".json"))
	if err := writeFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPartialWrite, path, err)
	}
	return []string{path}, nil
}

// marshal encodes v and appends a trailing newline.
func (w *JSONWriter) marshal(v any) ([]byte, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}
