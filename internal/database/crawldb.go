package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitescraper/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "sitescraper.db"

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("run not found")

	// ErrNotEnoughRuns is returned by DiffRuns when the domain has fewer
	// than two stored runs.
	ErrNotEnoughRuns = errors.New("at least two runs are needed to compare")
)

// storedTimeFormat sorts lexicographically in UTC.
const storedTimeFormat = "2006-01-02 15:04:05.000000000"

// CrawlDB stores crawl runs and their page records in SQLite.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// DefaultDir returns $XDG_DATA_HOME/sitescraper.
func DefaultDir() string {
	return filepath.Join(xdg.DataHome, "sitescraper")
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned and nothing is created.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file. The busy timeout lets
	// concurrent processes wait for the write lock instead of failing.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}
	dsn += "&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		profile TEXT NOT NULL,
		domain TEXT NOT NULL,
		seed_url TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		interrupted INTEGER NOT NULL DEFAULT 0,
		total_pages INTEGER NOT NULL DEFAULT 0,
		failed_pages INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_domain ON runs(domain, started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		title TEXT,
		status_code INTEGER,
		outcome TEXT NOT NULL,
		error TEXT,
		content_hash TEXT,
		fetched_at TEXT,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunSummary is a stored run without its pages.
type RunSummary struct {
	ID          string    `json:"id"`
	Profile     string    `json:"profile"`
	Domain      string    `json:"domain"`
	SeedURL     string    `json:"seed_url"`
	MaxDepth    int       `json:"max_depth"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Interrupted bool      `json:"interrupted"`
	TotalPages  int       `json:"total_pages"`
	FailedPages int       `json:"failed_pages"`
}

// PageRow is a stored page record.
type PageRow struct {
	URL         string    `json:"url"`
	Depth       int       `json:"depth"`
	Seq         int       `json:"seq"`
	Title       string    `json:"title"`
	StatusCode  int       `json:"status_code"`
	Outcome     string    `json:"outcome"`
	Error       string    `json:"error,omitempty"`
	ContentHash string    `json:"content_hash,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// SaveRun stores run and all its pages in one transaction.
// Saving the same run twice replaces the earlier copy.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.CrawlRun) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is more useful
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM pages WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to clear pages: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, profile, domain, seed_url, max_depth, started_at, finished_at, interrupted, total_pages, failed_pages)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		finished_at = excluded.finished_at,
		interrupted = excluded.interrupted,
		total_pages = excluded.total_pages,
		failed_pages = excluded.failed_pages
	`,
		run.ID,
		run.Profile,
		run.Domain,
		run.SeedURL,
		run.MaxDepth,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Interrupted,
		len(run.Pages),
		run.FailureCount(),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, url, depth, seq, title, status_code, outcome, error, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(run_id, url) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range run.Pages {
		_, err = stmt.ExecContext(ctx,
			run.ID,
			p.URL,
			p.Depth,
			p.Seq,
			p.Title,
			p.StatusCode,
			string(p.Outcome),
			p.Error,
			p.ContentHash,
			formatTimestamp(p.FetchedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to save page %s: %w", p.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, profile, domain, seed_url, max_depth, started_at, finished_at, interrupted, total_pages, failed_pages`

// ListRuns returns stored runs, newest first. An empty domain lists every
// domain. limit <= 0 means no limit.
func (cdb *CrawlDB) ListRuns(ctx context.Context, domain string, limit int) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	args := make([]any, 0)

	if domain != "" {
		query += " AND domain = ?"
		args = append(args, domain)
	}

	query += " ORDER BY started_at DESC, rowid DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	results := make([]RunSummary, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, run)
	}

	return results, rows.Err()
}

// LatestRuns returns the n newest runs of domain.
func (cdb *CrawlDB) LatestRuns(ctx context.Context, domain string, n int) ([]RunSummary, error) {
	if n <= 0 {
		return []RunSummary{}, nil
	}
	return cdb.ListRuns(ctx, domain, n)
}

// GetRun returns the stored run with the given ID.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*RunSummary, error) {
	row := cdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunPages returns the pages of a run in (depth, seq) order.
func (cdb *CrawlDB) GetRunPages(ctx context.Context, runID string) ([]PageRow, error) {
	query := `
	SELECT url, depth, seq, title, status_code, outcome, error, content_hash, fetched_at
	FROM pages
	WHERE run_id = ?
	ORDER BY depth, seq
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	results := make([]PageRow, 0)
	for rows.Next() {
		var (
			p         PageRow
			title     sql.NullString
			status    sql.NullInt64
			errMsg    sql.NullString
			hash      sql.NullString
			fetchedAt sql.NullString
		)
		if err := rows.Scan(&p.URL, &p.Depth, &p.Seq, &title, &status, &p.Outcome, &errMsg, &hash, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.Title = title.String
		p.StatusCode = int(status.Int64)
		p.Error = errMsg.String
		p.ContentHash = hash.String
		p.FetchedAt = parseTimestamp(fetchedAt.String)
		results = append(results, p)
	}

	return results, rows.Err()
}

// PageChange is a page present in both runs whose content or outcome
// differs.
type PageChange struct {
	URL        string `json:"url"`
	OldHash    string `json:"old_hash,omitempty"`
	NewHash    string `json:"new_hash,omitempty"`
	OldOutcome string `json:"old_outcome"`
	NewOutcome string `json:"new_outcome"`
}

// RunDiff compares two runs of the same domain.
type RunDiff struct {
	Domain    string       `json:"domain"`
	Old       RunSummary   `json:"old"`
	New       RunSummary   `json:"new"`
	Added     []string     `json:"added"`
	Removed   []string     `json:"removed"`
	Changed   []PageChange `json:"changed"`
	Unchanged int          `json:"unchanged"`
}

// HasChanges reports whether the runs differ at all.
func (d *RunDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || len(d.Changed) > 0
}

// DiffRuns compares the two newest runs of domain.
func (cdb *CrawlDB) DiffRuns(ctx context.Context, domain string) (*RunDiff, error) {
	runs, err := cdb.LatestRuns(ctx, domain, 2)
	if err != nil {
		return nil, err
	}
	if len(runs) < 2 {
		return nil, fmt.Errorf("%w: %s has %d", ErrNotEnoughRuns, domain, len(runs))
	}

	newer, older := runs[0], runs[1]

	oldPages, err := cdb.GetRunPages(ctx, older.ID)
	if err != nil {
		return nil, err
	}
	newPages, err := cdb.GetRunPages(ctx, newer.ID)
	if err != nil {
		return nil, err
	}

	diff := ComparePages(oldPages, newPages)
	diff.Domain = domain
	diff.Old = older
	diff.New = newer
	return diff, nil
}

// ComparePages diffs two page sets by URL. Result lists are sorted by URL.
func ComparePages(oldPages, newPages []PageRow) *RunDiff {
	oldByURL := make(map[string]PageRow, len(oldPages))
	for _, p := range oldPages {
		oldByURL[p.URL] = p
	}

	diff := &RunDiff{
		Added:   make([]string, 0),
		Removed: make([]string, 0),
		Changed: make([]PageChange, 0),
	}

	seen := make(map[string]bool, len(newPages))
	for _, p := range newPages {
		seen[p.URL] = true
		prev, ok := oldByURL[p.URL]
		if !ok {
			diff.Added = append(diff.Added, p.URL)
			continue
		}
		if prev.ContentHash == p.ContentHash && prev.Outcome == p.Outcome {
			diff.Unchanged++
			continue
		}
		diff.Changed = append(diff.Changed, PageChange{
			URL:        p.URL,
			OldHash:    prev.ContentHash,
			NewHash:    p.ContentHash,
			OldOutcome: prev.Outcome,
			NewOutcome: p.Outcome,
		})
	}

	for _, p := range oldPages {
		if !seen[p.URL] {
			diff.Removed = append(diff.Removed, p.URL)
		}
	}

	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	sort.Slice(diff.Changed, func(i, j int) bool {
		return diff.Changed[i].URL < diff.Changed[j].URL
	})
	return diff
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var (
		run                 RunSummary
		startedAt, finished string
	)
	err := row.Scan(
		&run.ID,
		&run.Profile,
		&run.Domain,
		&run.SeedURL,
		&run.MaxDepth,
		&startedAt,
		&finished,
		&run.Interrupted,
		&run.TotalPages,
		&run.FailedPages,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan run: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finished)
	return run, nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimeFormat)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
