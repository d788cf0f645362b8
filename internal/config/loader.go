package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitescraper"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads site configurations from a YAML file.
// Unknown settings are rejected so that a misspelled key does not silently
// fall back to the default. Site keys may be written as hosts or as URLs;
// they are stored as lowercase hosts. A missing file yields
// ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cf); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	sites := make(map[string]SiteConfig, len(cf.Sites))
	for key, site := range cf.Sites {
		host := siteKeyHost(key)
		if host == "" {
			return nil, fmt.Errorf("failed to parse %s: invalid site %q", path, key)
		}
		if _, dup := sites[host]; dup {
			return nil, fmt.Errorf("failed to parse %s: site %q is listed twice", path, host)
		}
		sites[host] = site
	}
	cf.Sites = sites

	return &cf, nil
}

// siteKeyHost returns the host a sites entry refers to.
func siteKeyHost(key string) string {
	key = strings.TrimSpace(key)
	if !strings.Contains(key, "://") {
		key = strings.TrimSuffix(key, "/")
		if strings.ContainsAny(key, "/?# ") {
			return ""
		}
		return strings.ToLower(key)
	}
	u, err := url.Parse(key)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// FindConfigFile searches for the configuration file in the following order:
//  1. configPath, if given
//  2. .sitescraper in the current directory
//  3. .sitescraper in the user's home directory
//  4. config.yaml in the XDG config directory
//
// It returns the empty string when nothing is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	candidates := make([]string, 0, 3)
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), "config.yaml"))

	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
