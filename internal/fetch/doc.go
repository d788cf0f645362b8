// Package fetch is the HTTP capability the crawler consumes:
// Fetch(ctx, url) returns the status, headers and a size-limited body, or a
// *FetchError that classifies the failure.
//
// # Client construction
//
// NewHTTPClient builds the *http.Client. It can dial through a SOCKS5 proxy,
// keeps a cookie jar, caps redirects, and injects a configured cookie and
// custom headers into every request through a RoundTripper wrapper, so
// redirects carry them too.
//
// # Usage
//
//	client, err := fetch.NewHTTPClient(fetch.ClientConfig{Timeout: 10 * time.Second})
//	if err != nil {
//	    return err
//	}
//	f := fetch.NewHTTPFetcher(client, fetch.WithUserAgent("sitescraper/1.0"))
//	resp, err := f.Fetch(ctx, "https://example.com")
package fetch
