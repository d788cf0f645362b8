package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Profile selects a family of defaults and an output format.
type Profile string

const (
	// ProfileSite is the fast generic scan. It records URL, title and
	// description of every page on exactly one host and writes a JSON report.
	ProfileSite Profile = "site"

	// ProfileDocs is the thorough documentation crawl. It follows subdomains,
	// converts the main content of each page to markdown and writes one
	// document per page plus INDEX.md.
	ProfileDocs Profile = "docs"
)

// ParseProfile converts a profile name into a Profile.
func ParseProfile(name string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(name))) {
	case ProfileSite:
		return ProfileSite, nil
	case ProfileDocs:
		return ProfileDocs, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
}

// ScopeMode selects how strictly discovered hosts must match the root domain.
type ScopeMode string

const (
	// ScopeExact accepts only the root host itself.
	ScopeExact ScopeMode = "exact"

	// ScopeSubdomains accepts the root host and any of its subdomains.
	ScopeSubdomains ScopeMode = "subdomains"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "sitescraper"

	// DefaultSiteDepth keeps the generic scan shallow: the seed, its links,
	// and their links.
	DefaultSiteDepth = 2

	// DefaultDocsDepth lets documentation crawls reach deeply nested pages.
	DefaultDocsDepth = 10

	// DefaultSiteTimeout is the per-request timeout of the generic scan.
	DefaultSiteTimeout = 10 * time.Second

	// DefaultDocsTimeout is the per-request timeout of documentation crawls.
	// Documentation hosts are often slow static site generators behind CDNs.
	DefaultDocsTimeout = 30 * time.Second

	// DefaultSiteDelay is the politeness delay of the generic scan.
	DefaultSiteDelay = 0

	// DefaultDocsDelay is the politeness delay of documentation crawls.
	DefaultDocsDelay = 500 * time.Millisecond

	// DefaultSiteOutputDir receives the JSON report and index.
	DefaultSiteOutputDir = "site-reports"

	// DefaultDocsOutputDir receives the per-page documents and INDEX.md.
	DefaultDocsOutputDir = "docs-output"

	// DefaultMaxPages of 0 means no page-count bound.
	DefaultMaxPages = 0

	// DefaultConcurrency of 1 gives the sequential reference behavior.
	DefaultConcurrency = 1

	// DefaultUserAgent identifies the crawler in HTTP requests.
	DefaultUserAgent = "sitescraper/1.0 (+https://github.com/nao1215/sitescraper)"

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultLogFormat is the slog handler format.
	DefaultLogFormat = LogFormatText
)

// DocsDenyPatterns is the default denylist of the docs profile.
// Plain patterns are case-insensitive substrings of the full URL; patterns
// containing glob metacharacters are matched against the URL path.
var DocsDenyPatterns = []string{
	"/api/", "/auth/", "/login", "/signup", "/search",
	".pdf", ".zip", ".tar", ".gz",
	"#", "mailto:", "tel:", "javascript:",
	"github.com", "discord.com", "twitter.com",
}

// SiteDenyPatterns is the default denylist of the site profile.
var SiteDenyPatterns = []string{
	"#", "mailto:", "tel:", "javascript:",
}

// Config holds all configuration options for one crawl.
// It is populated from CLI flags and the optional config file, then passed
// down explicitly; nothing reads it from global state.
type Config struct {
	// Profile selects defaults and output format.
	Profile Profile

	// SeedURL is the crawl start, always with an http(s) scheme after
	// NormalizeSeed.
	SeedURL string

	// MaxDepth is the BFS depth bound. 0 fetches only the seed.
	MaxDepth int

	// MaxPages bounds the number of fetched pages. 0 means unbounded.
	MaxPages int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// Delay is the minimum interval between requests to the same host.
	Delay time.Duration

	// OutputDir is where reports or documents are written.
	OutputDir string

	// UserAgent is sent with every request.
	UserAgent string

	// MaxBodySize limits the bytes read per response.
	MaxBodySize int64

	// Concurrency is the number of fetches in flight within one BFS level.
	Concurrency int

	// KeepQuery keeps query strings in normalized URLs. When false, two URLs
	// that differ only by query string are the same page.
	KeepQuery bool

	// RespectRobots enables robots.txt checks before each fetch.
	RespectRobots bool

	// ScopeMode selects exact-host or subdomain-inclusive scope.
	ScopeMode ScopeMode

	// RegistrableDomain widens the scope root to the seed's eTLD+1.
	RegistrableDomain bool

	// DenyPatterns is the effective denylist.
	DenyPatterns []string

	// ContentSelectors overrides the content-region selector order.
	// Empty means the extractor defaults.
	ContentSelectors []string

	// IncludeContent controls whether extracted content is kept in records.
	IncludeContent bool

	// Headers are added to every request.
	Headers map[string]string

	// Cookie is sent with every request.
	Cookie string

	// ProxyAddress is an optional SOCKS5 proxy in host:port form.
	ProxyAddress string

	// ConfigFilePath is the explicit config file path, if any.
	ConfigFilePath string

	// SiteConfigs holds the loaded config file.
	SiteConfigs *File

	// SaveHistory stores the run in the history database.
	SaveHistory bool

	// DBDir is the directory holding the history database.
	DBDir string

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat is "text" or "json".
	LogFormat string
}

// NewConfig creates a Config with the defaults of the given profile.
// An unknown profile yields the site defaults; Validate reports it.
func NewConfig(profile Profile) *Config {
	cfg := &Config{
		Profile:     profile,
		MaxDepth:    DefaultSiteDepth,
		MaxPages:    DefaultMaxPages,
		Timeout:     DefaultSiteTimeout,
		Delay:       DefaultSiteDelay,
		OutputDir:   DefaultSiteOutputDir,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		Concurrency: DefaultConcurrency,
		ScopeMode:   ScopeExact,
		SaveHistory: true,
		DBDir:       XDGDataDir(),
		LogFormat:   DefaultLogFormat,
	}
	cfg.DenyPatterns = append([]string(nil), SiteDenyPatterns...)

	if profile == ProfileDocs {
		cfg.MaxDepth = DefaultDocsDepth
		cfg.Timeout = DefaultDocsTimeout
		cfg.Delay = DefaultDocsDelay
		cfg.OutputDir = DefaultDocsOutputDir
		cfg.ScopeMode = ScopeSubdomains
		cfg.IncludeContent = true
		cfg.DenyPatterns = append([]string(nil), DocsDenyPatterns...)
	}
	return cfg
}

// DefaultDenyPatterns returns a copy of the profile's default denylist.
func DefaultDenyPatterns(profile Profile) []string {
	if profile == ProfileDocs {
		return append([]string(nil), DocsDenyPatterns...)
	}
	return append([]string(nil), SiteDenyPatterns...)
}

// NormalizeSeed prefixes raw with "https://" when it carries no http(s)
// scheme and checks that the result has a host.
func NormalizeSeed(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNoSeed
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidSeedURL, raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidSeedURL, raw)
	}
	return raw, nil
}

// SeedHost returns the host (with port) of the seed URL, lowercased.
func (c *Config) SeedHost() string {
	u, err := url.Parse(c.SeedURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// XDGDataDir returns the XDG data directory for sitescraper.
// On Linux: ~/.local/share/sitescraper
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitescraper.
// On Linux: ~/.config/sitescraper
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Profile != ProfileSite && c.Profile != ProfileDocs {
		return fmt.Errorf("%w: %q", ErrUnknownProfile, c.Profile)
	}

	if c.SeedURL == "" {
		return ErrNoSeed
	}
	if u, err := url.Parse(c.SeedURL); err != nil || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrInvalidSeedURL, c.SeedURL)
	}

	if c.MaxDepth < 0 {
		return ErrInvalidDepth
	}

	if c.MaxPages < 0 {
		return ErrInvalidMaxPages
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Delay < 0 {
		return ErrInvalidCrawlDelay
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.ScopeMode != ScopeExact && c.ScopeMode != ScopeSubdomains {
		return fmt.Errorf("%w: %q", ErrInvalidScopeMode, c.ScopeMode)
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat)
	}

	if c.OutputDir == "" {
		return ErrNoOutputDir
	}

	return nil
}
