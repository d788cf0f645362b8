package crawler

import (
	"net/url"
	"strings"
)

// Normalizer turns link references into comparable URL keys.
//
// A key is scheme://host/path with the host lowercased, no fragment, no
// userinfo, no trailing slash and, unless keepQuery is set, no query. The
// seed is the one exception to the trailing slash rule: any reference
// that differs from the seed only by trailing slashes maps to the seed's
// own spelling, so the seed and its variants share one key.
type Normalizer struct {
	keepQuery bool

	// seedKey is the seed's key with its trailing slashes intact.
	seedKey string

	// seedStripped is seedKey without trailing slashes.
	seedStripped string
}

// NewNormalizer creates a Normalizer anchored at seed.
func NewNormalizer(seed string, keepQuery bool) *Normalizer {
	n := &Normalizer{keepQuery: keepQuery}
	u, err := url.Parse(strings.TrimSpace(seed))
	if err != nil || u.Opaque != "" || u.Host == "" {
		return n
	}
	u.Fragment = ""
	n.seedKey = n.key(u, false)
	n.seedStripped = n.key(u, true)
	return n
}

// SeedKey returns the key of the seed URL.
func (n *Normalizer) SeedKey() string {
	return n.seedKey
}

// Normalize resolves rawRef against base and returns its key.
//
// Normalize never fails. A reference that cannot be parsed is returned
// unchanged, and an opaque reference such as mailto:x@example.com is
// returned in resolved form. Normalize is idempotent.
func (n *Normalizer) Normalize(rawRef, base string) string {
	ref, err := url.Parse(strings.TrimSpace(rawRef))
	if err != nil {
		return rawRef
	}
	if base != "" {
		if b, err := url.Parse(base); err == nil {
			ref = b.ResolveReference(ref)
		}
	}
	ref.Fragment = ""
	ref.RawFragment = ""

	if ref.Opaque != "" || ref.Host == "" {
		return ref.String()
	}

	key := n.key(ref, true)
	if n.seedKey != "" && key == n.seedStripped {
		return n.seedKey
	}
	return key
}

func (n *Normalizer) key(u *url.URL, stripSlash bool) string {
	path := u.EscapedPath()
	if stripSlash {
		path = strings.TrimRight(path, "/")
	}

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(strings.ToLower(u.Host))
	b.WriteString(path)
	if n.keepQuery && u.RawQuery != "" {
		b.WriteString("?")
		b.WriteString(u.RawQuery)
	}
	return b.String()
}
