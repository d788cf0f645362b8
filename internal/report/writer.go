package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/nao1215/sitescraper/internal/model"
)

var (
	// ErrCreateOutputDir is returned when the output directory cannot be
	// created. The persist step treats it as fatal.
	ErrCreateOutputDir = errors.New("failed to create output directory")

	// ErrPartialWrite wraps the joined per-file failures of a writer that
	// still produced its other files.
	ErrPartialWrite = errors.New("some report files could not be written")
)

const (
	dirPerm  = 0o750
	filePerm = 0o600

	// fileTimestamp is the layout used in report file names.
	fileTimestamp = "2006-01-02-150405"
)

// Writer persists a finished crawl run.
// Write returns the paths of the files it produced.
type Writer interface {
	Write(ctx context.Context, run *model.CrawlRun) ([]string, error)
}

// MultiWriter runs several Writers against the same run.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes with all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write runs every writer and returns all files written.
// A fatal error from one writer stops the remaining writers. Partial write
// errors are collected and returned joined once every writer has run.
func (m *MultiWriter) Write(ctx context.Context, run *model.CrawlRun) ([]string, error) {
	var (
		files   []string
		partial []error
	)
	for _, w := range m.writers {
		written, err := w.Write(ctx, run)
		files = append(files, written...)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrPartialWrite) {
			return files, err
		}
		partial = append(partial, err)
	}
	return files, errors.Join(partial...)
}

// Collector gathers page records as the crawler emits them.
// It is safe for concurrent use.
type Collector struct {
	mu      sync.Mutex
	records []*model.PageRecord
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{records: make([]*model.PageRecord, 0)}
}

// Add appends a record in arrival order.
func (c *Collector) Add(record *model.PageRecord) {
	if record == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, record)
}

// Len returns the number of records collected so far.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Records returns a copy of the records sorted by depth, then first-seen
// order.
func (c *Collector) Records() []*model.PageRecord {
	c.mu.Lock()
	out := make([]*model.PageRecord, len(c.records))
	copy(out, c.records)
	c.mu.Unlock()

	model.SortPages(out)
	return out
}

var unsafeNameChars = regexp.MustCompile(`[^\w-]`)

// SafeDomain makes a host usable as a file name prefix.
func SafeDomain(domain string) string {
	if domain == "" {
		return "site"
	}
	return unsafeNameChars.ReplaceAllString(domain, "-")
}

// reportName returns "<safe-domain>-<timestamp><ext>" for run.
func reportName(run *model.CrawlRun, ext string) string {
	ts := run.StartedAt
	if ts.IsZero() {
		ts = run.FinishedAt
	}
	return fmt.Sprintf("%s-%s%s", SafeDomain(run.Domain), ts.Format(fileTimestamp), ext)
}

// ensureDir creates dir with the report directory permissions.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCreateOutputDir, dir, err)
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it
// into place, so readers never see a half-written file.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name()) //nolint:errcheck // best effort cleanup
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return err
	}
	if err = tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close() //nolint:errcheck // chmod error takes precedence
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
