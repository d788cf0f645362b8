package config

import (
	"net"
	"strings"
	"time"
)

// SiteConfig holds per-site settings from the config file.
// Pointer fields distinguish "unset" from an explicit zero value.
type SiteConfig struct {
	// Cookie is sent with every request to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are added to every request to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the profile's max depth.
	Depth *int `yaml:"depth,omitempty"`

	// MaxPages overrides the page-count bound.
	MaxPages *int `yaml:"max_pages,omitempty"`

	// Delay overrides the politeness delay (e.g. "750ms", "2s").
	Delay *time.Duration `yaml:"delay,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// KeepQuery keeps query strings in normalized URLs.
	KeepQuery *bool `yaml:"keep_query,omitempty"`

	// Deny replaces the profile's default denylist.
	Deny []string `yaml:"deny,omitempty"`

	// ExtraDeny is appended to the denylist.
	ExtraDeny []string `yaml:"extra_deny,omitempty"`

	// ContentSelectors replaces the content-region selector order.
	ContentSelectors []string `yaml:"content_selectors,omitempty"`
}

// File represents the structure of the .sitescraper configuration file.
type File struct {
	// Defaults apply to every site unless overridden.
	Defaults SiteConfig `yaml:"defaults,omitempty"`

	// Sites maps hosts (e.g. "docs.example.com") to their settings.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`
}

// GetSiteConfig returns the settings for host merged over the defaults.
// The host is matched case-insensitively, first with its port and then
// without it.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	host = strings.ToLower(host)
	site, ok := cf.lookup(host)
	if !ok {
		if h, _, err := net.SplitHostPort(host); err == nil {
			site, ok = cf.lookup(h)
		}
	}
	if !ok {
		return cf.Defaults
	}
	return MergeSiteConfig(cf.Defaults, site)
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	for key, site := range cf.Sites {
		if strings.EqualFold(key, host) {
			return site, true
		}
	}
	return SiteConfig{}, false
}

// MergeSiteConfig overlays the set fields of override on base.
// Header maps are merged; slices are replaced.
func MergeSiteConfig(base, override SiteConfig) SiteConfig {
	result := base

	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(base.Headers)+len(override.Headers))
		for k, v := range base.Headers {
			headers[k] = v
		}
		for k, v := range override.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}
	if override.Depth != nil {
		result.Depth = override.Depth
	}
	if override.MaxPages != nil {
		result.MaxPages = override.MaxPages
	}
	if override.Delay != nil {
		result.Delay = override.Delay
	}
	if override.UserAgent != "" {
		result.UserAgent = override.UserAgent
	}
	if override.KeepQuery != nil {
		result.KeepQuery = override.KeepQuery
	}
	if len(override.Deny) > 0 {
		result.Deny = override.Deny
	}
	if len(override.ExtraDeny) > 0 {
		result.ExtraDeny = append(append([]string(nil), base.ExtraDeny...), override.ExtraDeny...)
	}
	if len(override.ContentSelectors) > 0 {
		result.ContentSelectors = override.ContentSelectors
	}

	return result
}

// Setting names used by ApplySiteConfig to skip values the operator set
// explicitly on the command line.
const (
	SettingDepth     = "depth"
	SettingMaxPages  = "max-pages"
	SettingDelay     = "delay"
	SettingUserAgent = "user-agent"
	SettingKeepQuery = "keep-query"
)

// ApplySiteConfig copies site settings into c. Settings for which locked
// returns true were given on the command line and keep their value.
// A nil locked function locks nothing.
func (c *Config) ApplySiteConfig(site SiteConfig, locked func(setting string) bool) {
	if locked == nil {
		locked = func(string) bool { return false }
	}

	if site.Depth != nil && !locked(SettingDepth) {
		c.MaxDepth = *site.Depth
	}
	if site.MaxPages != nil && !locked(SettingMaxPages) {
		c.MaxPages = *site.MaxPages
	}
	if site.Delay != nil && !locked(SettingDelay) {
		c.Delay = *site.Delay
	}
	if site.UserAgent != "" && !locked(SettingUserAgent) {
		c.UserAgent = site.UserAgent
	}
	if site.KeepQuery != nil && !locked(SettingKeepQuery) {
		c.KeepQuery = *site.KeepQuery
	}

	if site.Cookie != "" {
		c.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(site.Headers))
		}
		for k, v := range site.Headers {
			c.Headers[k] = v
		}
	}

	if len(site.Deny) > 0 {
		c.DenyPatterns = append([]string(nil), site.Deny...)
	}
	c.DenyPatterns = append(c.DenyPatterns, site.ExtraDeny...)

	if len(site.ContentSelectors) > 0 {
		c.ContentSelectors = append([]string(nil), site.ContentSelectors...)
	}
}
