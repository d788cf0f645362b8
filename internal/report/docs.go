package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nao1215/sitescraper/internal/model"
)

// FrontMatter is the YAML header of a scraped document.
type FrontMatter struct {
	Title       string `yaml:"title"`
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
	ScrapedAt   string `yaml:"scraped_at"`
}

// DocsWriter writes one markdown document per successful page, mirroring
// the URL path, plus an INDEX.md.
type DocsWriter struct {
	dir    string
	logger *slog.Logger
}

// DocsWriterOption configures a DocsWriter.
type DocsWriterOption func(*DocsWriter)

// WithDocsLogger sets the logger used for per-page write failures.
func WithDocsLogger(logger *slog.Logger) DocsWriterOption {
	return func(w *DocsWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewDocsWriter creates a DocsWriter writing into dir.
func NewDocsWriter(dir string, opts ...DocsWriterOption) *DocsWriter {
	w := &DocsWriter{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write writes the documents and then the index.
// Pages that fail to write are logged, left out of the index and returned
// joined under ErrPartialWrite.
func (w *DocsWriter) Write(ctx context.Context, run *model.CrawlRun) ([]string, error) {
	if err := ensureDir(w.dir); err != nil {
		return nil, err
	}

	var (
		files   []string
		entries []IndexEntry
		errs    []error
	)
	used := make(map[string]string)

	for _, p := range run.Successful() {
		rel := DocPath(p.URL, run.Domain)
		if prev, ok := used[rel]; ok {
			w.logger.Warn("document path already used, skipping page", "url", p.URL, "path", rel, "first_url", prev)
			continue
		}
		used[rel] = p.URL

		data, err := RenderDocument(p)
		if err == nil {
			err = writeFileAtomic(filepath.Join(w.dir, filepath.FromSlash(rel)), data)
		}
		if err != nil {
			w.logger.Warn("failed to write document", "url", p.URL, "path", rel, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}

		files = append(files, filepath.Join(w.dir, filepath.FromSlash(rel)))
		entries = append(entries, IndexEntry{
			Title:    DisplayTitle(p),
			Location: rel,
			URL:      p.URL,
		})
	}

	indexFiles, err := NewIndexWriter(w.dir, IndexDocs).WriteEntries(run, entries)
	files = append(files, indexFiles...)
	if err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return files, fmt.Errorf("%w: %w", ErrPartialWrite, errors.Join(errs...))
	}
	return files, nil
}

// RenderDocument returns the front-matter, heading and content of p.
func RenderDocument(p *model.PageRecord) ([]byte, error) {
	fm, err := yaml.Marshal(FrontMatter{
		Title:       p.Title,
		URL:         p.URL,
		Description: p.Description,
		ScrapedAt:   p.FetchedAt.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString("# ")
	buf.WriteString(p.Title)
	buf.WriteString("\n\n")
	if p.Content != "" {
		buf.WriteString(p.Content)
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// DocPath maps a page URL to a slash-separated path relative to the
// output directory. The root maps to index.md, /a/b to a/b.md. Pages on a
// host other than seedHost are nested under a directory named after the
// host.
func DocPath(pageURL, seedHost string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "index.md"
	}

	segments := make([]string, 0)
	for _, s := range strings.Split(u.Path, "/") {
		if s = sanitizeSegment(s); s != "" {
			segments = append(segments, s)
		}
	}

	if len(segments) == 0 {
		segments = append(segments, "index")
	} else {
		last := segments[len(segments)-1]
		switch ext := strings.ToLower(path.Ext(last)); ext {
		case ".html", ".htm", ".md":
			last = strings.TrimSuffix(last, last[len(last)-len(ext):])
		}
		if last == "" {
			last = "index"
		}
		segments[len(segments)-1] = last
	}

	host := strings.ToLower(u.Host)
	if host != "" && !strings.EqualFold(host, seedHost) {
		segments = append([]string{sanitizeSegment(host)}, segments...)
	}

	return path.Join(segments...) + ".md"
}

// sanitizeSegment keeps letters, digits, '.', '_' and '-'. Anything else
// becomes '-'. Segments made only of dots are dropped.
func sanitizeSegment(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := b.String()
	if strings.Trim(out, ".") == "" {
		return ""
	}
	return out
}
