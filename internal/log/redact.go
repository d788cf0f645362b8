package log

import (
	"net/url"
	"regexp"
	"strings"
)

// MaskValue replaces every redacted value.
const MaskValue = "***REDACTED***"

// maskedKeys are attribute keys whose values are never logged. Header
// names are compared lowercased.
var maskedKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"x-csrf-token":        true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"sid":                 true,
	"jsessionid":          true,
	"phpsessid":           true,
	"session":             true,
	"session_id":          true,
	"sessionid":           true,
}

// maskedFragments mask any key containing them. A bare "key" is not in the
// list: cache_key, sort_key and the like are harmless.
var maskedFragments = []string{
	"auth", "cookie", "credential", "passwd", "password",
	"private", "secret", "token",
}

// secretShapes match values that are secrets whatever their key.
var secretShapes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(bearer|basic|digest)\s+\S+`),
	regexp.MustCompile(`^eyJ[\w-]*\.eyJ[\w-]*\.[\w-]*$`),
	regexp.MustCompile(`^(AKIA|ASIA)[0-9A-Z]{16}$`),
	regexp.MustCompile(`^(ghp|gho|ghs|github_pat|xox[abp])_?[A-Za-z0-9_-]{20,}$`),
	regexp.MustCompile(`^[A-Za-z0-9]{40,}$`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
}

// maskedParams are query parameters whose values are masked in URLs.
var maskedParams = map[string]bool{
	"access_token": true, "api_key": true, "apikey": true, "auth": true,
	"code": true, "id_token": true, "key": true, "password": true,
	"refresh_token": true, "secret": true, "session": true, "sid": true,
	"sig": true, "signature": true, "token": true,
	"x-amz-credential": true, "x-amz-signature": true,
}

var embeddedURL = regexp.MustCompile(`https?://[^\s"'<>]+`)

// redactor decides what a log attribute may reveal. extraKeys holds
// header names configured for the crawl, which are always masked.
type redactor struct {
	extraKeys map[string]bool
}

func newRedactor(extraKeys []string) *redactor {
	r := &redactor{extraKeys: make(map[string]bool, len(extraKeys))}
	for _, k := range extraKeys {
		if k = strings.TrimSpace(k); k != "" {
			r.extraKeys[strings.ToLower(k)] = true
		}
	}
	return r
}

func (r *redactor) maskKey(key string) bool {
	key = strings.ToLower(key)
	if maskedKeys[key] || r.extraKeys[key] {
		return true
	}
	for _, f := range maskedFragments {
		if strings.Contains(key, f) {
			return true
		}
	}
	return false
}

func looksSecret(value string) bool {
	for _, re := range secretShapes {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}

// SanitizeURLs rewrites the http(s) URLs in s: userinfo is dropped and
// sensitive query values are masked in place. Other text is untouched.
func SanitizeURLs(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	return embeddedURL.ReplaceAllStringFunc(s, cleanURL)
}

func cleanURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	dirty := u.User != nil
	u.User = nil

	if u.RawQuery != "" {
		params := strings.Split(u.RawQuery, "&")
		for i, p := range params {
			name, _, _ := strings.Cut(p, "=")
			if n, err := url.QueryUnescape(name); err == nil {
				name = n
			}
			if maskedParams[strings.ToLower(name)] {
				params[i] = url.QueryEscape(name) + "=" + MaskValue
				dirty = true
			}
		}
		u.RawQuery = strings.Join(params, "&")
	}

	if !dirty {
		return raw
	}
	return u.String()
}
