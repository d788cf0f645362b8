package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig documents the per-profile defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	t.Run("site profile", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(ProfileSite)
		if cfg.MaxDepth != 2 {
			t.Errorf("expected MaxDepth 2, got %d", cfg.MaxDepth)
		}
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout 10s, got %v", cfg.Timeout)
		}
		if cfg.Delay != 0 {
			t.Errorf("expected no delay, got %v", cfg.Delay)
		}
		if cfg.ScopeMode != ScopeExact {
			t.Errorf("expected exact scope, got %q", cfg.ScopeMode)
		}
		if cfg.IncludeContent {
			t.Error("expected IncludeContent to be false")
		}
		if cfg.OutputDir != DefaultSiteOutputDir {
			t.Errorf("expected output dir %q, got %q", DefaultSiteOutputDir, cfg.OutputDir)
		}
		if len(cfg.DenyPatterns) != len(SiteDenyPatterns) {
			t.Errorf("expected site denylist, got %v", cfg.DenyPatterns)
		}
	})

	t.Run("docs profile", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(ProfileDocs)
		if cfg.MaxDepth != 10 {
			t.Errorf("expected MaxDepth 10, got %d", cfg.MaxDepth)
		}
		if cfg.Timeout != 30*time.Second {
			t.Errorf("expected Timeout 30s, got %v", cfg.Timeout)
		}
		if cfg.Delay != 500*time.Millisecond {
			t.Errorf("expected Delay 500ms, got %v", cfg.Delay)
		}
		if cfg.ScopeMode != ScopeSubdomains {
			t.Errorf("expected subdomain scope, got %q", cfg.ScopeMode)
		}
		if !cfg.IncludeContent {
			t.Error("expected IncludeContent to be true")
		}
		if len(cfg.DenyPatterns) != len(DocsDenyPatterns) {
			t.Errorf("expected docs denylist, got %v", cfg.DenyPatterns)
		}
	})

	t.Run("denylist is a copy", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(ProfileDocs)
		cfg.DenyPatterns[0] = "changed"
		if DocsDenyPatterns[0] == "changed" {
			t.Error("modifying config denylist must not modify the package default")
		}
	})

	t.Run("common defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(ProfileSite)
		if cfg.UserAgent != DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", cfg.UserAgent)
		}
		if cfg.Concurrency != 1 {
			t.Errorf("expected concurrency 1, got %d", cfg.Concurrency)
		}
		if cfg.MaxBodySize != DefaultMaxBodySize {
			t.Errorf("expected max body size %d, got %d", DefaultMaxBodySize, cfg.MaxBodySize)
		}
		if !cfg.SaveHistory {
			t.Error("expected SaveHistory to default to true")
		}
		if cfg.KeepQuery {
			t.Error("expected KeepQuery to default to false")
		}
	})
}

func TestParseProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Profile
		wantErr bool
	}{
		{name: "site", input: "site", want: ProfileSite},
		{name: "docs", input: "docs", want: ProfileDocs},
		{name: "case insensitive", input: " DOCS ", want: ProfileDocs},
		{name: "unknown", input: "blog", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseProfile(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnknownProfile) {
					t.Errorf("expected ErrUnknownProfile, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNormalizeSeed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{name: "adds https scheme", input: "docs.example.com", want: "https://docs.example.com"},
		{name: "keeps https", input: "https://example.com/docs", want: "https://example.com/docs"},
		{name: "keeps http", input: "http://localhost:8080", want: "http://localhost:8080"},
		{name: "scheme check is case insensitive", input: "HTTPS://Example.com", want: "HTTPS://Example.com"},
		{name: "trims whitespace", input: "  example.com  ", want: "https://example.com"},
		{name: "empty", input: "", wantErr: ErrNoSeed},
		{name: "no host", input: "https://", wantErr: ErrInvalidSeedURL},
		{name: "unparsable", input: "exa mple.com/%zz", wantErr: ErrInvalidSeedURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NormalizeSeed(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

// TestConfigValidate checks each validation rule in isolation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	validConfig := func() *Config {
		cfg := NewConfig(ProfileDocs)
		cfg.SeedURL = "https://docs.example.com"
		return cfg
	}

	t.Run("valid config returns nil", func(t *testing.T) {
		t.Parallel()

		if err := validConfig().Validate(); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "unknown profile", mutate: func(c *Config) { c.Profile = "blog" }, wantErr: ErrUnknownProfile},
		{name: "missing seed", mutate: func(c *Config) { c.SeedURL = "" }, wantErr: ErrNoSeed},
		{name: "seed without host", mutate: func(c *Config) { c.SeedURL = "https://" }, wantErr: ErrInvalidSeedURL},
		{name: "negative depth", mutate: func(c *Config) { c.MaxDepth = -1 }, wantErr: ErrInvalidDepth},
		{name: "negative max pages", mutate: func(c *Config) { c.MaxPages = -5 }, wantErr: ErrInvalidMaxPages},
		{name: "zero timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative delay", mutate: func(c *Config) { c.Delay = -time.Second }, wantErr: ErrInvalidCrawlDelay},
		{name: "zero concurrency", mutate: func(c *Config) { c.Concurrency = 0 }, wantErr: ErrInvalidConcurrency},
		{name: "negative body size", mutate: func(c *Config) { c.MaxBodySize = -1 }, wantErr: ErrInvalidMaxBodySize},
		{name: "bad scope mode", mutate: func(c *Config) { c.ScopeMode = "fuzzy" }, wantErr: ErrInvalidScopeMode},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: ErrInvalidLogFormat},
		{name: "empty output dir", mutate: func(c *Config) { c.OutputDir = "" }, wantErr: ErrNoOutputDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	t.Run("depth zero is valid", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		cfg.MaxDepth = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected depth 0 to be valid, got %v", err)
		}
	})
}

func TestSeedHost(t *testing.T) {
	t.Parallel()

	cfg := NewConfig(ProfileSite)
	cfg.SeedURL = "https://Example.COM:8443/path"
	if got := cfg.SeedHost(); got != "example.com:8443" {
		t.Errorf("expected example.com:8443, got %q", got)
	}
}

func intPtr(v int) *int                          { return &v }
func boolPtr(v bool) *bool                       { return &v }
func durationPtr(v time.Duration) *time.Duration { return &v }

func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{
			Depth:     intPtr(3),
			Headers:   map[string]string{"X-Default": "1"},
			ExtraDeny: []string{"/private"},
		},
		Sites: map[string]SiteConfig{
			"Docs.Example.com": {
				Depth:     intPtr(7),
				Cookie:    "session=abc",
				Headers:   map[string]string{"X-Site": "2"},
				ExtraDeny: []string{"/beta"},
			},
			"localhost": {
				MaxPages: intPtr(5),
			},
		},
	}

	t.Run("merges site over defaults", func(t *testing.T) {
		t.Parallel()

		sc := file.GetSiteConfig("docs.example.com")
		if sc.Depth == nil || *sc.Depth != 7 {
			t.Errorf("expected depth 7, got %v", sc.Depth)
		}
		if sc.Cookie != "session=abc" {
			t.Errorf("expected cookie, got %q", sc.Cookie)
		}
		if sc.Headers["X-Default"] != "1" || sc.Headers["X-Site"] != "2" {
			t.Errorf("expected merged headers, got %v", sc.Headers)
		}
		if len(sc.ExtraDeny) != 2 {
			t.Errorf("expected both extra deny patterns, got %v", sc.ExtraDeny)
		}
	})

	t.Run("matches host without port", func(t *testing.T) {
		t.Parallel()

		sc := file.GetSiteConfig("localhost:8080")
		if sc.MaxPages == nil || *sc.MaxPages != 5 {
			t.Errorf("expected max pages 5, got %v", sc.MaxPages)
		}
		if sc.Depth == nil || *sc.Depth != 3 {
			t.Errorf("expected default depth 3, got %v", sc.Depth)
		}
	})

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		sc := file.GetSiteConfig("other.com")
		if sc.Depth == nil || *sc.Depth != 3 {
			t.Errorf("expected default depth 3, got %v", sc.Depth)
		}
		if sc.Cookie != "" {
			t.Errorf("expected no cookie, got %q", sc.Cookie)
		}
	})

	t.Run("nil file", func(t *testing.T) {
		t.Parallel()

		var f *File
		sc := f.GetSiteConfig("x.com")
		if sc.Depth != nil {
			t.Error("expected empty site config")
		}
	})
}

func TestApplySiteConfig(t *testing.T) {
	t.Parallel()

	site := SiteConfig{
		Depth:            intPtr(4),
		MaxPages:         intPtr(50),
		Delay:            durationPtr(2 * time.Second),
		KeepQuery:        boolPtr(true),
		Cookie:           "a=b",
		Headers:          map[string]string{"Authorization": "Bearer x"},
		ExtraDeny:        []string{"/changelog"},
		ContentSelectors: []string{".prose"},
	}

	t.Run("applies unlocked settings", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(ProfileDocs)
		cfg.ApplySiteConfig(site, nil)

		if cfg.MaxDepth != 4 || cfg.MaxPages != 50 || cfg.Delay != 2*time.Second {
			t.Errorf("unexpected bounds: depth=%d pages=%d delay=%v", cfg.MaxDepth, cfg.MaxPages, cfg.Delay)
		}
		if !cfg.KeepQuery {
			t.Error("expected KeepQuery true")
		}
		if cfg.Cookie != "a=b" || cfg.Headers["Authorization"] != "Bearer x" {
			t.Error("expected cookie and headers to be applied")
		}
		if cfg.DenyPatterns[len(cfg.DenyPatterns)-1] != "/changelog" {
			t.Errorf("expected extra deny appended, got %v", cfg.DenyPatterns)
		}
		if len(cfg.DenyPatterns) != len(DocsDenyPatterns)+1 {
			t.Errorf("expected defaults kept, got %v", cfg.DenyPatterns)
		}
		if len(cfg.ContentSelectors) != 1 || cfg.ContentSelectors[0] != ".prose" {
			t.Errorf("expected content selectors, got %v", cfg.ContentSelectors)
		}
	})

	t.Run("locked settings keep flag values", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(ProfileDocs)
		cfg.MaxDepth = 1
		cfg.ApplySiteConfig(site, func(name string) bool { return name == SettingDepth })

		if cfg.MaxDepth != 1 {
			t.Errorf("expected locked depth 1, got %d", cfg.MaxDepth)
		}
		if cfg.MaxPages != 50 {
			t.Errorf("expected unlocked max pages 50, got %d", cfg.MaxPages)
		}
	})

	t.Run("deny replaces defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig(ProfileDocs)
		cfg.ApplySiteConfig(SiteConfig{Deny: []string{"/only"}}, nil)
		if len(cfg.DenyPatterns) != 1 || cfg.DenyPatterns[0] != "/only" {
			t.Errorf("expected replaced denylist, got %v", cfg.DenyPatterns)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.sitescraper")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitescraper")
		content := `defaults:
  depth: 5
  delay: 750ms
sites:
  docs.example.com:
    depth: 0
    keep_query: true
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    extra_deny:
      - "/v1/*"
    content_selectors:
      - ".theme-doc-markdown"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Depth == nil || *cfg.Defaults.Depth != 5 {
			t.Errorf("expected default depth 5, got %v", cfg.Defaults.Depth)
		}
		if cfg.Defaults.Delay == nil || *cfg.Defaults.Delay != 750*time.Millisecond {
			t.Errorf("expected default delay 750ms, got %v", cfg.Defaults.Delay)
		}

		site, ok := cfg.Sites["docs.example.com"]
		if !ok {
			t.Fatal("expected docs.example.com in sites")
		}
		if site.Depth == nil || *site.Depth != 0 {
			t.Errorf("expected explicit depth 0, got %v", site.Depth)
		}
		if site.KeepQuery == nil || !*site.KeepQuery {
			t.Error("expected keep_query true")
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Error("expected Authorization header")
		}
		if len(site.ExtraDeny) != 1 || len(site.ContentSelectors) != 1 {
			t.Errorf("expected one extra deny and one selector, got %v %v", site.ExtraDeny, site.ContentSelectors)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitescraper")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfigFile(configPath)
		if err == nil {
			t.Fatal("expected error for invalid YAML")
		}
		if !strings.Contains(err.Error(), configPath) {
			t.Errorf("expected error to name the file, got %v", err)
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".sitescraper")
		if err := os.WriteFile(configPath, []byte("defaults:\n  depth: 2\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

func TestLoadConfigFile_Strict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantErr   string
		wantHosts []string
	}{
		{name: "empty file", content: ""},
		{name: "comments only", content: "# sites:\n#   example.com: {}\n"},
		{
			name:      "url keys become hosts",
			content:   "sites:\n  https://Docs.Example.com/:\n    depth: 1\n  blog.example.com/:\n    depth: 2\n  localhost:8080: {}\n",
			wantHosts: []string{"docs.example.com", "blog.example.com", "localhost:8080"},
		},
		{name: "misspelled setting", content: "defaults:\n  max_page: 10\n", wantErr: "max_page"},
		{name: "path in site key", content: "sites:\n  example.com/docs: {}\n", wantErr: "invalid site"},
		{name: "duplicate host", content: "sites:\n  example.com: {}\n  https://EXAMPLE.com: {}\n", wantErr: "listed twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			configPath := filepath.Join(t.TempDir(), ".sitescraper")
			if err := os.WriteFile(configPath, []byte(tt.content), 0600); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg, err := LoadConfigFile(configPath)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(cfg.Sites) != len(tt.wantHosts) {
				t.Errorf("expected %d sites, got %v", len(tt.wantHosts), cfg.Sites)
			}
			for _, host := range tt.wantHosts {
				if _, ok := cfg.Sites[host]; !ok {
					t.Errorf("expected site %q, got %v", host, cfg.Sites)
				}
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if got := FindConfigFile(configPath); got != configPath {
			t.Errorf("expected %q, got %q", configPath, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile("/nonexistent/path/config.yaml"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})
}

func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if !strings.HasSuffix(XDGDataDir(), AppName) {
		t.Errorf("expected data dir to end with %q, got %q", AppName, XDGDataDir())
	}
	if !strings.HasSuffix(XDGConfigDir(), AppName) {
		t.Errorf("expected config dir to end with %q, got %q", AppName, XDGConfigDir())
	}
}
