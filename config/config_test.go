package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propwatch/propwatch/proposal"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 2, cfg.Concurrency)
	require.Len(t, cfg.Trackers, 4)

	types := make(map[string]bool)
	for _, tr := range cfg.Trackers {
		types[tr.Type] = true
	}
	for _, want := range []string{"eip", "rust_rfc", "pep", "django_dep"} {
		assert.True(t, types[want], "missing default tracker type %s", want)
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			DataDir:     "data",
			Concurrency: 1,
			Trackers: []TrackerConfig{
				{ID: "eips", Type: "eip", RepoURL: "https://github.com/ethereum/EIPs"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing data dir", func(c *Config) { c.DataDir = "" }, "data_dir"},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, "concurrency"},
		{"missing tracker id", func(c *Config) { c.Trackers[0].ID = "" }, "id is required"},
		{"duplicate tracker id", func(c *Config) {
			c.Trackers = append(c.Trackers, c.Trackers[0])
		}, "duplicate id"},
		{"unknown tracker type", func(c *Config) { c.Trackers[0].Type = "svn" }, "unknown type"},
		{"bad repo url", func(c *Config) { c.Trackers[0].RepoURL = "ftp://example.com/x" }, "repo_url"},
		{"unknown priority kind", func(c *Config) { c.PriorityKinds = []string{"exploded"} }, "event kind"},
		{"known priority kinds", func(c *Config) {
			c.PriorityKinds = []string{"created", "accepted"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProposalTrackers_Defaults(t *testing.T) {
	disabled := false
	cfg := &Config{
		Trackers: []TrackerConfig{
			{ID: "peps", Type: "pep", RepoURL: "https://github.com/python/peps"},
			{ID: "off", Type: "eip", RepoURL: "https://github.com/ethereum/EIPs", Branch: "master", Enabled: &disabled},
		},
	}

	trackers := cfg.ProposalTrackers()
	require.Len(t, trackers, 2)

	assert.Equal(t, "main", trackers[0].Branch, "branch defaults to main")
	assert.True(t, trackers[0].Enabled, "enabled defaults to true")
	assert.Equal(t, proposal.TrackerPEP, trackers[0].Type)

	assert.Equal(t, "master", trackers[1].Branch)
	assert.False(t, trackers[1].Enabled)
}

func TestPriority(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.Priority(), "empty config falls back to the default subset")

	cfg.PriorityKinds = []string{"accepted", "rejected"}
	assert.Equal(t, []proposal.EventKind{proposal.EventAccepted, proposal.EventRejected}, cfg.Priority())
}

func TestMerge(t *testing.T) {
	cfg := DefaultConfig()
	overlay := &Config{
		Schedule: "0 * * * *",
		Metrics:  MetricsConfig{Addr: ":9100"},
		Trackers: []TrackerConfig{
			{ID: "peps", Type: "pep", RepoURL: "https://github.com/python/peps"},
		},
	}
	cfg.Merge(overlay)

	assert.Equal(t, "0 * * * *", cfg.Schedule)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, "data", cfg.DataDir, "unset overlay fields keep defaults")
	assert.Equal(t, 2, cfg.Concurrency)
	require.Len(t, cfg.Trackers, 1, "tracker list replaces, never appends")
	assert.Equal(t, "peps", cfg.Trackers[0].ID)

	cfg.Merge(nil)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "propwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/propwatch
concurrency: 4
trackers:
  - id: eips
    type: eip
    repo_url: https://github.com/ethereum/EIPs
    branch: master
    proposal_dir: EIPS
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/propwatch", cfg.DataDir)
	assert.Equal(t, 4, cfg.Concurrency)
	require.Len(t, cfg.Trackers, 1)
	assert.Equal(t, "EIPS", cfg.Trackers[0].ProposalDir)

	_, err = LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("trackers: {not: a list}\n"), 0o644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}
