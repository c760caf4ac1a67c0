// Package config loads the ingest daemon's YAML configuration (spec
// §6.4's enumerated option table) via gopkg.in/yaml.v3, the same
// library the teacher uses for its resource manifests.
package config

import (
	"os"
	"time"

	"github.com/econdata/tsengine/pkg/types"
	"github.com/econdata/tsengine/pkg/xerrors"
	"gopkg.in/yaml.v3"
)

// FetcherConfig controls C6's admission and retry behavior.
// PerRequestTimeoutSeconds is plain seconds rather than a
// time.Duration string, since yaml.v3 has no built-in Duration codec.
type FetcherConfig struct {
	MaxRequestsPerSecond      float64 `yaml:"max_requests_per_second"`
	MaxConcurrentRequests     int     `yaml:"max_concurrent_requests"`
	PerRequestTimeoutSeconds  int     `yaml:"per_request_timeout_seconds"`
	MaxRetries                int     `yaml:"max_retries"`
	UserAgent                 string  `yaml:"user_agent"`
}

// PerRequestTimeout returns PerRequestTimeoutSeconds as a time.Duration.
func (f FetcherConfig) PerRequestTimeout() time.Duration {
	return time.Duration(f.PerRequestTimeoutSeconds) * time.Second
}

// PipelineConfig controls C7's filtering and outer concurrency.
// StartDate/EndDate are YAML-literal "YYYY-MM-DD" strings, parsed by
// StartDateValue/EndDateValue since types.Date only round-trips
// through JSON, not YAML.
type PipelineConfig struct {
	FormTypes              []string `yaml:"form_types"`
	StartDate              string   `yaml:"start_date"`
	EndDate                string   `yaml:"end_date"`
	MaxFileSizeBytes       int64    `yaml:"max_file_size_bytes"`
	MaxConcurrentCompanies int      `yaml:"max_concurrent_companies"`
}

// StartDateValue parses StartDate, returning nil if unset.
func (p PipelineConfig) StartDateValue() (*types.Date, error) {
	return parseOptionalDate(p.StartDate)
}

// EndDateValue parses EndDate, returning nil if unset.
func (p PipelineConfig) EndDateValue() (*types.Date, error) {
	return parseOptionalDate(p.EndDate)
}

func parseOptionalDate(s string) (*types.Date, error) {
	if s == "" {
		return nil, nil
	}
	d, err := types.ParseDate(s)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Invalid, "parse date option", err)
	}
	return &d, nil
}

// BlobConfig controls C5's compression and storage-mode split.
type BlobConfig struct {
	CompressionEnabled bool  `yaml:"compression_enabled"`
	CompressionLevel   int   `yaml:"compression_level"`
	MaxInlineBytes     int64 `yaml:"max_inline_bytes"`
}

// Config is the full ingest daemon configuration file.
type Config struct {
	DataRoot    string         `yaml:"data_root"`
	CatalogRoot string         `yaml:"catalog_root"`
	Fetcher     FetcherConfig  `yaml:"fetcher"`
	Pipeline    PipelineConfig `yaml:"pipeline"`
	Blob        BlobConfig     `yaml:"blob"`
	LogLevel    string         `yaml:"log_level"`
	LogJSON     bool           `yaml:"log_json"`
}

func withDefaults(c Config) Config {
	if c.DataRoot == "" {
		c.DataRoot = "./data"
	}
	if c.CatalogRoot == "" {
		c.CatalogRoot = "./catalog"
	}
	if c.Fetcher.MaxRequestsPerSecond <= 0 {
		c.Fetcher.MaxRequestsPerSecond = 5
	}
	if c.Fetcher.MaxConcurrentRequests <= 0 {
		c.Fetcher.MaxConcurrentRequests = 3
	}
	if c.Fetcher.PerRequestTimeoutSeconds <= 0 {
		c.Fetcher.PerRequestTimeoutSeconds = 30
	}
	if c.Fetcher.MaxRetries <= 0 {
		c.Fetcher.MaxRetries = 3
	}
	if c.Fetcher.UserAgent == "" {
		c.Fetcher.UserAgent = "tsengine-ingest/1.0"
	}
	if c.Pipeline.MaxConcurrentCompanies <= 0 {
		c.Pipeline.MaxConcurrentCompanies = 3
	}
	if c.Blob.CompressionLevel <= 0 {
		c.Blob.CompressionLevel = 3
	}
	if c.Blob.MaxInlineBytes <= 0 {
		c.Blob.MaxInlineBytes = 100 * 1024 * 1024
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return c
}

// Load reads and parses a YAML config file, applying defaults for any
// option the file omits.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, xerrors.Wrap(xerrors.Invalid, "read config file", err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, xerrors.Wrap(xerrors.Invalid, "parse config yaml", err)
	}
	return withDefaults(c), nil
}

// FormTypeSet returns Pipeline.FormTypes as a lookup set, nil when empty
// (meaning "all forms allowed").
func (c Config) FormTypeSet() map[string]bool {
	if len(c.Pipeline.FormTypes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(c.Pipeline.FormTypes))
	for _, f := range c.Pipeline.FormTypes {
		set[f] = true
	}
	return set
}
