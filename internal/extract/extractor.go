package extract

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/sitescraper/internal/model"
)

// ErrNoContent is returned when no strategy finds a content region, which
// only happens for documents without a body.
var ErrNoContent = errors.New("no content region found")

// noiseSelector matches elements removed before the content region is
// located.
const noiseSelector = "script, style, nav, header, footer, aside, noscript, iframe"

// DefaultSelectors are tried in order before falling back to the body.
var DefaultSelectors = []string{
	"main",
	"article",
	".content",
	".documentation",
	".docs-content",
	".markdown-body",
	"#content",
	`[role="main"]`,
	".doc-content",
	".page-content",
}

// Strategy locates a candidate content region. An empty selection means no
// match.
type Strategy func(doc *goquery.Document) *goquery.Selection

// SelectorStrategy matches the first element for a CSS selector.
func SelectorStrategy(selector string) Strategy {
	return func(doc *goquery.Document) *goquery.Selection {
		return doc.Find(selector).First()
	}
}

// BodyStrategy matches the document body.
func BodyStrategy(doc *goquery.Document) *goquery.Selection {
	return doc.Find("body").First()
}

// StrategiesFor builds selector strategies followed by the body fallback.
// An empty list uses DefaultSelectors.
func StrategiesFor(selectors []string) []Strategy {
	if len(selectors) == 0 {
		selectors = DefaultSelectors
	}
	strategies := make([]Strategy, 0, len(selectors)+1)
	for _, s := range selectors {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		strategies = append(strategies, SelectorStrategy(s))
	}
	return append(strategies, BodyStrategy)
}

// Extractor pulls title, description and primary content from a page.
type Extractor struct {
	strategies []Strategy
	converter  Converter
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithStrategies replaces the content strategies.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		if len(strategies) > 0 {
			e.strategies = strategies
		}
	}
}

// WithConverter sets the content converter.
func WithConverter(c Converter) Option {
	return func(e *Extractor) {
		if c != nil {
			e.converter = c
		}
	}
}

// NewExtractor creates an Extractor using DefaultSelectors and
// MarkdownConverter unless overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		strategies: StrategiesFor(nil),
		converter:  MarkdownConverter{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads metadata from doc and converts its content region.
// doc is not modified. When no content region exists, the returned page
// still carries title and description along with ErrNoContent.
func (e *Extractor) Extract(doc *goquery.Document) (model.PageContent, error) {
	page := model.PageContent{
		Title:       Title(doc),
		Description: Description(doc),
	}

	clone := goquery.NewDocumentFromNode(doc.Selection.Clone().Get(0))
	clone.Find(noiseSelector).Remove()

	region := e.contentRegion(clone)
	if region == nil {
		return page, ErrNoContent
	}
	page.Content = e.converter.Convert(region)
	return page, nil
}

func (e *Extractor) contentRegion(doc *goquery.Document) *goquery.Selection {
	for _, strategy := range e.strategies {
		if sel := strategy(doc); sel != nil && sel.Length() > 0 {
			return sel
		}
	}
	return nil
}

// Title returns the <title> text, then the first <h1> text, then
// model.DefaultTitle.
func Title(doc *goquery.Document) string {
	if t := NormalizeInline(doc.Find("title").First().Text()); t != "" {
		return t
	}
	if t := NormalizeInline(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return model.DefaultTitle
}

// descriptionMatchers are tried in order; the first meta tag with
// non-empty content wins.
var descriptionMatchers = []func(*goquery.Selection) bool{
	func(s *goquery.Selection) bool {
		return strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), "description")
	},
	func(s *goquery.Selection) bool {
		return strings.EqualFold(s.AttrOr("property", ""), "og:description")
	},
	func(s *goquery.Selection) bool {
		return strings.EqualFold(s.AttrOr("property", ""), "twitter:description") ||
			strings.EqualFold(s.AttrOr("name", ""), "twitter:description")
	},
	func(s *goquery.Selection) bool {
		return strings.EqualFold(s.AttrOr("itemprop", ""), "description")
	},
}

// Description returns the first non-empty meta description, checking
// name=description, og:description, twitter:description and
// itemprop=description in that order.
func Description(doc *goquery.Document) string {
	metas := doc.Find("meta")
	for _, match := range descriptionMatchers {
		var found string
		metas.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !match(s) {
				return true
			}
			if content := NormalizeInline(s.AttrOr("content", "")); content != "" {
				found = content
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}
