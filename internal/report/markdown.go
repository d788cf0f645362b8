package report

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/sitescraper/internal/model"
)

// IndexKind selects the heading and file name of an index.
type IndexKind string

const (
	// IndexDocs is the INDEX.md written next to the docs tree.
	IndexDocs IndexKind = "docs"

	// IndexSite is the timestamped markdown index of a site report.
	IndexSite IndexKind = "site"
)

// DocsIndexFile is the name of the docs profile index.
const DocsIndexFile = "INDEX.md"

// IndexEntry is one line of the page list.
type IndexEntry struct {
	Title    string
	Location string
	URL      string
}

// IndexWriter writes a markdown index of a crawl run.
type IndexWriter struct {
	dir  string
	kind IndexKind
}

// NewIndexWriter creates an IndexWriter of the given kind writing into dir.
func NewIndexWriter(dir string, kind IndexKind) *IndexWriter {
	return &IndexWriter{dir: dir, kind: kind}
}

// Write lists every successful page of run, linking to its URL.
// The docs profile uses WriteEntries through DocsWriter instead, so the
// index points at the written documents.
func (w *IndexWriter) Write(_ context.Context, run *model.CrawlRun) ([]string, error) {
	entries := make([]IndexEntry, 0, len(run.Pages))
	for _, p := range run.Successful() {
		entries = append(entries, IndexEntry{
			Title:    DisplayTitle(p),
			Location: p.URL,
			URL:      p.URL,
		})
	}
	return w.WriteEntries(run, entries)
}

// WriteEntries writes the index for run with the given page entries.
func (w *IndexWriter) WriteEntries(run *model.CrawlRun, entries []IndexEntry) ([]string, error) {
	if err := ensureDir(w.dir); err != nil {
		return nil, err
	}

	var buf strings.Builder
	if err := RenderIndex(&buf, w.kind, run, entries); err != nil {
		return nil, fmt.Errorf("failed to render index: %w", err)
	}

	path := filepath.Join(w.dir, w.fileName(run))
	if err := writeFileAtomic(path, []byte(buf.String())); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPartialWrite, path, err)
	}
	return []string{path}, nil
}

func (w *IndexWriter) fileName(run *model.CrawlRun) string {
	if w.kind == IndexDocs {
		return DocsIndexFile
	}
	return reportName(run, ".md")
}

// RenderIndex writes the markdown index to out.
func RenderIndex(out io.Writer, kind IndexKind, run *model.CrawlRun, entries []IndexEntry) error {
	md := markdown.NewMarkdown(out)

	if kind == IndexDocs {
		md.H1("Documentation Index")
	} else {
		md.H1("Site Index")
	}
	md.PlainText("")
	md.PlainTextf("Scraped from: %s", run.SeedURL)
	md.PlainText("")
	md.PlainTextf("Date: %s", indexDate(run).Format(time.RFC3339))
	md.PlainText("")

	if run.Interrupted {
		md.Warningf("The crawl was interrupted. %d page(s) were processed before it stopped.", len(run.Pages))
		md.PlainText("")
	}

	md.H2("Pages")
	md.PlainText("")
	if len(entries) == 0 {
		md.PlainText("No pages were scraped.")
	} else {
		items := make([]string, 0, len(entries))
		for _, e := range entries {
			items = append(items, fmt.Sprintf("[%s](%s) - %s", escapeLinkText(e.Title), e.Location, e.URL))
		}
		md.BulletList(items...)
	}

	if failed := run.Failed(); len(failed) > 0 {
		md.PlainText("")
		md.H2("Failed pages")
		md.PlainText("")
		items := make([]string, 0, len(failed))
		for _, p := range failed {
			items = append(items, fmt.Sprintf("%s - %s", p.URL, p.Error))
		}
		md.BulletList(items...)
	}

	return md.Build()
}

func indexDate(run *model.CrawlRun) time.Time {
	if !run.FinishedAt.IsZero() {
		return run.FinishedAt
	}
	return run.StartedAt
}

// DisplayTitle returns the page title, or a title made from the last URL
// path segment when the page had none.
func DisplayTitle(p *model.PageRecord) string {
	if p.Title != "" && p.Title != model.DefaultTitle {
		return p.Title
	}
	u, err := url.Parse(p.URL)
	if err != nil {
		return model.DefaultTitle
	}
	slug := path.Base(strings.TrimRight(u.Path, "/"))
	slug = strings.TrimSuffix(slug, path.Ext(slug))
	if slug == "" || slug == "." || slug == "/" {
		return model.DefaultTitle
	}
	words := strings.NewReplacer("-", " ", "_", " ").Replace(slug)
	return cases.Title(language.English).String(words)
}

func escapeLinkText(s string) string {
	return strings.NewReplacer("[", `\[`, "]", `\]`).Replace(s)
}
