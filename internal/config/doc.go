// Package config provides the crawl configuration: per-profile defaults,
// validation, and the optional YAML file with per-site overrides.
package config
