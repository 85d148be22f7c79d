package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reugn/topgrep/internal/assert"
	"github.com/reugn/topgrep/query"
)

const document = `
queries:
  - pid: 42
  - command: nginx
  - command: "firefox --profile /x y"
  - pid: 42
fold:
  enabled: true
  bucket: 10s
  time_layout: "15:04:05"
output:
  path: out.tsv
  nats:
    url: nats://localhost:4222
    subject: topgrep.results
metrics:
  addr: ":9464"
`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "topgrep.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(document), 0o600))

	cfg, err := LoadConfig(path)
	assert.NoError(t, err)

	queries, err := cfg.QueryList()
	assert.NoError(t, err)
	assert.Equal(t, []query.Query{
		query.ByPID(42),
		query.ByCommand("nginx"),
		query.ByCommand("firefox --profile /x y"),
		query.ByPID(42),
	}, queries)
	assert.Equal(t, FoldConfig{Enabled: true, Bucket: 10 * time.Second, TimeLayout: "15:04:05"}, cfg.Fold)
	assert.Equal(t, "out.tsv", cfg.Output.Path)
	assert.Equal(t, NATSConfig{URL: "nats://localhost:4222", Subject: "topgrep.results"}, cfg.Output.NATS)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestParse_PIDZero(t *testing.T) {
	cfg, err := Parse([]byte("queries:\n  - pid: 0\n"))
	assert.NoError(t, err)
	queries, _ := cfg.QueryList()
	assert.Equal(t, []query.Query{query.ByPID(0)}, queries)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		document string
		err      string
	}{
		{"syntax", "queries: [", "failed to unmarshal"},
		{"empty query", "queries:\n  - {}\n", "either pid or command must be set"},
		{"both", "queries:\n  - pid: 1\n    command: init\n", "mutually exclusive"},
		{"negative pid", "queries:\n  - pid: -1\n", "failed to unmarshal"},
		{"bucket", "fold:\n  bucket: 500ms\n", "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.document))
			assert.ErrorContains(t, err, tt.err)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(cfg.Queries))
}
