package crawler

import (
	"net"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ScopeMode selects how hosts are compared with the root domain.
type ScopeMode string

const (
	// ScopeExact accepts the root host and host-less URLs only.
	ScopeExact ScopeMode = "exact"

	// ScopeSubdomains accepts the root host and any subdomain of it.
	ScopeSubdomains ScopeMode = "subdomains"
)

// Scope decides whether a URL is eligible for traversal.
type Scope struct {
	root        string
	rootHasPort bool
	mode        ScopeMode
	deny        []string
}

// NewScope creates a Scope for root (a host, optionally with port).
// deny holds denylist patterns: patterns containing glob metacharacters
// are matched against the URL path, anything else is a case-insensitive
// substring of the full URL.
func NewScope(root string, mode ScopeMode, deny []string) *Scope {
	root = strings.ToLower(strings.TrimSpace(root))
	_, port, err := net.SplitHostPort(root)
	if mode != ScopeExact {
		mode = ScopeSubdomains
	}
	return &Scope{
		root:        root,
		rootHasPort: err == nil && port != "",
		mode:        mode,
		deny:        deny,
	}
}

// Root returns the root domain.
func (s *Scope) Root() string {
	return s.root
}

// InScope reports whether rawURL passes the denylist, uses http or https
// and has a host inside the root domain.
func (s *Scope) InScope(rawURL string) bool {
	if s.Denied(rawURL) {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false
	}

	host := strings.ToLower(u.Host)
	if !s.rootHasPort {
		host = strings.ToLower(u.Hostname())
	}

	switch s.mode {
	case ScopeExact:
		return host == "" || host == s.root
	default:
		return host == s.root || strings.HasSuffix(host, "."+s.root)
	}
}

// Denied reports whether rawURL matches a denylist pattern.
func (s *Scope) Denied(rawURL string) bool {
	if len(s.deny) == 0 {
		return false
	}

	lower := strings.ToLower(rawURL)
	path := ""
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	if path == "" {
		path = "/"
	}

	for _, pattern := range s.deny {
		if pattern == "" {
			continue
		}
		if strings.ContainsAny(pattern, "*?[") {
			if matchPattern(pattern, path) {
				return true
			}
			continue
		}
		if strings.Contains(lower, strings.ToLower(pattern)) {
			return true
		}
	}
	return false
}

// RegistrableDomain returns the eTLD+1 of hostport, keeping the port.
// IP addresses, single-label hosts and public suffixes are returned
// unchanged.
func RegistrableDomain(hostport string) string {
	hostport = strings.ToLower(hostport)
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = hostport, ""
	}
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return hostport
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return hostport
	}
	if port != "" {
		return net.JoinHostPort(domain, port)
	}
	return domain
}

// matchPattern checks if a path matches a glob pattern.
// Patterns can use:
//   - * to match any sequence of non-separator characters
//   - ? to match any single character
//
// Examples:
//   - "/admin/*" matches "/admin/dashboard", "/admin/users"
//   - "*.pdf" matches "/docs/file.pdf"
//   - "/api/v?" matches "/api/v1", "/api/v2"
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		ext := strings.TrimPrefix(pattern, "*")
		if strings.HasSuffix(strings.ToLower(path), strings.ToLower(ext)) {
			return true
		}
	}

	matched, err := filepath.Match(pattern, path)
	if err != nil {
		return false
	}
	if matched {
		return true
	}

	// "*.pdf" style patterns also match on the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		matched, err := filepath.Match(pattern, filepath.Base(path))
		if err == nil && matched {
			return true
		}
	}

	return false
}
