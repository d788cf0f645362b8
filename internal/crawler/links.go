package crawler

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkExtractor enumerates the in-scope links of a page.
type LinkExtractor struct {
	normalizer *Normalizer
	scope      *Scope
	logger     *slog.Logger
}

// NewLinkExtractor creates a LinkExtractor. A nil logger uses slog.Default().
func NewLinkExtractor(normalizer *Normalizer, scope *Scope, logger *slog.Logger) *LinkExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LinkExtractor{
		normalizer: normalizer,
		scope:      scope,
		logger:     logger,
	}
}

// Extract returns the normalized in-scope targets of every a[href] in doc,
// de-duplicated, in document order. Relative references are resolved
// against currentURL, or against the document's <base href> when present.
func (le *LinkExtractor) Extract(doc *goquery.Document, currentURL string) []string {
	base := currentURL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := url.Parse(currentURL); err == nil {
			if ref, err := url.Parse(strings.TrimSpace(href)); err == nil {
				base = b.ResolveReference(ref).String()
			}
		}
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if skipHref(href) {
			return
		}
		if _, err := url.Parse(href); err != nil {
			le.logger.Debug("dropping malformed link", "href", href, "page", currentURL)
			return
		}

		link := le.normalizer.Normalize(href, base)
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		if !le.scope.InScope(link) {
			return
		}
		links = append(links, link)
	})
	return links
}

// skipHref rejects targets that never name a page: empty, fragment-only,
// mailto and tel.
func skipHref(href string) bool {
	if href == "" || strings.HasPrefix(href, "#") {
		return true
	}
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:")
}
