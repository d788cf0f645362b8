package fetch

import (
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
)

// Fetcher retrieves one URL.
// Implementations must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// Response is a successful (2xx) fetch result.
type Response struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects. Relative links on the page are
	// resolved against it.
	FinalURL string

	// StatusCode is the HTTP status code.
	StatusCode int

	// ContentType is the Content-Type header value.
	ContentType string

	// Header holds the response headers.
	Header http.Header

	// Body is the response body, truncated to the fetcher's size limit.
	Body []byte
}

// IsHTML reports whether the response should be parsed as HTML.
// A missing Content-Type is treated as HTML.
func (r *Response) IsHTML() bool {
	if r.ContentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return strings.Contains(strings.ToLower(r.ContentType), "html")
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// HTTPFetcher fetches pages over HTTP.
type HTTPFetcher struct {
	// client performs the requests. Timeouts, proxying and header
	// injection are configured on it.
	client *http.Client

	// userAgent is the User-Agent header value.
	userAgent string

	// maxBodySize limits the bytes read from each response.
	maxBodySize int64
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *HTTPFetcher) {
		f.userAgent = ua
	}
}

// WithMaxBodySize sets the maximum response body size.
// Values <= 0 keep the default.
func WithMaxBodySize(size int64) Option {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// NewHTTPFetcher creates a fetcher around client. A nil client gets
// http.DefaultClient.
func NewHTTPFetcher(client *http.Client, opts ...Option) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &HTTPFetcher{
		client:      client,
		userAgent:   "sitescraper/1.0",
		maxBodySize: 5 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a GET request for url.
// Non-2xx responses, transport failures and timeouts are returned as
// *FetchError. When ctx is cancelled the returned error wraps ctx.Err().
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Kind: KindNetwork, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024)) //nolint:errcheck // drain for connection reuse
		return nil, newStatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, classify(url, err)
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &Response{
		URL:         url,
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header,
		Body:        body,
	}, nil
}
