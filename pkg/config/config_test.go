package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ingest.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `data_root: /tmp/ts-data`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ts-data", c.DataRoot)
	assert.Equal(t, "./catalog", c.CatalogRoot)
	assert.Equal(t, float64(5), c.Fetcher.MaxRequestsPerSecond)
	assert.Equal(t, 3, c.Fetcher.MaxConcurrentRequests)
	assert.Equal(t, 30*time.Second, c.Fetcher.PerRequestTimeout())
	assert.Equal(t, 3, c.Fetcher.MaxRetries)
	assert.Equal(t, "tsengine-ingest/1.0", c.Fetcher.UserAgent)
	assert.Equal(t, 3, c.Pipeline.MaxConcurrentCompanies)
	assert.Equal(t, 3, c.Blob.CompressionLevel)
	assert.Equal(t, int64(100*1024*1024), c.Blob.MaxInlineBytes)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeConfig(t, `
data_root: /data
catalog_root: /catalog
log_level: debug
log_json: true
fetcher:
  max_requests_per_second: 10
  max_concurrent_requests: 5
  per_request_timeout_seconds: 45
  max_retries: 8
  user_agent: my-bot/2.0
pipeline:
  form_types: ["10-K", "10-Q"]
  start_date: "2023-01-01"
  end_date: "2023-12-31"
  max_file_size_bytes: 5000000
  max_concurrent_companies: 10
blob:
  compression_enabled: true
  compression_level: 9
  max_inline_bytes: 1024
`)

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, float64(10), c.Fetcher.MaxRequestsPerSecond)
	assert.Equal(t, 45*time.Second, c.Fetcher.PerRequestTimeout())
	assert.Equal(t, "my-bot/2.0", c.Fetcher.UserAgent)
	assert.Equal(t, map[string]bool{"10-K": true, "10-Q": true}, c.FormTypeSet())
	assert.True(t, c.Blob.CompressionEnabled)
	assert.Equal(t, int64(1024), c.Blob.MaxInlineBytes)

	start, err := c.Pipeline.StartDateValue()
	require.NoError(t, err)
	require.NotNil(t, start)
	assert.Equal(t, "2023-01-01", start.String())
}

func TestLoadMissingFileIsInvalid(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFormTypeSetNilWhenEmpty(t *testing.T) {
	c := Config{}
	assert.Nil(t, c.FormTypeSet())
}
