package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// Outcome is the result class of a processed frontier entry.
type Outcome string

const (
	// OutcomeSuccess means the page was fetched and extracted.
	OutcomeSuccess Outcome = "success"

	// OutcomeFetchError means the fetch failed (network error, timeout
	// or non-2xx status). Links are never expanded from such a page.
	OutcomeFetchError Outcome = "fetch_error"
)

// DefaultTitle is used when a page has neither a <title> nor an <h1>.
const DefaultTitle = "Untitled"

// PageRecord is the result of processing one URL popped from the frontier.
//
// A record is created exactly once per dequeued entry, through
// NewSuccessRecord or NewFetchErrorRecord, and is never modified afterwards.
// The URL field is always the normalized key that was popped.
type PageRecord struct {
	// URL is the normalized URL of the page.
	URL string `json:"url"`

	// Depth is the BFS depth at which the page was discovered.
	// The seed has depth 0.
	Depth int `json:"depth"`

	// Seq is the first-seen order of the URL across the whole crawl.
	// Together with Depth it gives a stable ordering for output.
	Seq int `json:"seq"`

	// Title is the resolved page title, never empty for successful pages.
	Title string `json:"title"`

	// Description is the resolved meta description. Empty when none exists.
	Description string `json:"description,omitempty"`

	// Content is the extracted primary content (markdown or plain text).
	Content string `json:"content,omitempty"`

	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`

	// Outcome is success or fetch_error.
	Outcome Outcome `json:"outcome"`

	// Error holds the failure message when Outcome is fetch_error.
	Error string `json:"error,omitempty"`

	// ErrorKind classifies the failure (network, timeout, http_status).
	ErrorKind string `json:"error_kind,omitempty"`

	// StatusCode is the HTTP status code, if a response was received.
	StatusCode int `json:"status_code,omitempty"`

	// ContentType is the response Content-Type header.
	ContentType string `json:"content_type,omitempty"`

	// ContentHash is the hex SHA3-256 digest of the response body.
	// The history store uses it to detect changed pages between runs.
	ContentHash string `json:"content_hash,omitempty"`
}

// PageContent is what the content extractor produced for one page.
type PageContent struct {
	Title       string
	Description string
	Content     string
}

// FetchInfo describes the HTTP response a record was built from.
type FetchInfo struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// NewSuccessRecord creates a record for a fetched and extracted page.
// An empty title is replaced with DefaultTitle.
func NewSuccessRecord(url string, depth, seq int, content PageContent, info FetchInfo, fetchedAt time.Time) *PageRecord {
	title := content.Title
	if title == "" {
		title = DefaultTitle
	}
	return &PageRecord{
		URL:         url,
		Depth:       depth,
		Seq:         seq,
		Title:       title,
		Description: content.Description,
		Content:     content.Content,
		FetchedAt:   fetchedAt,
		Outcome:     OutcomeSuccess,
		StatusCode:  info.StatusCode,
		ContentType: info.ContentType,
		ContentHash: HashContent(info.Body),
	}
}

// NewFetchErrorRecord creates a record for a page whose fetch failed.
// kind and statusCode may be zero values when unknown.
func NewFetchErrorRecord(url string, depth, seq int, err error, kind string, statusCode int, fetchedAt time.Time) *PageRecord {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &PageRecord{
		URL:        url,
		Depth:      depth,
		Seq:        seq,
		Title:      DefaultTitle,
		FetchedAt:  fetchedAt,
		Outcome:    OutcomeFetchError,
		Error:      msg,
		ErrorKind:  kind,
		StatusCode: statusCode,
	}
}

// IsSuccess reports whether the page was fetched successfully.
func (p *PageRecord) IsSuccess() bool {
	return p.Outcome == OutcomeSuccess
}

// HashContent returns the hex SHA3-256 digest of body.
// An empty body hashes to the empty string.
func HashContent(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	sum := sha3.Sum256(body)
	return hex.EncodeToString(sum[:])
}
