// Package config provides configuration loading and management for
// propwatch.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/propwatch/propwatch/proposal"
)

// Config is the complete propwatch configuration.
type Config struct {
	// DataDir holds the database and cloned proposal repositories.
	DataDir string `yaml:"data_dir"`
	// Concurrency bounds how many trackers are checked in parallel.
	Concurrency int `yaml:"concurrency"`
	// Schedule is a cron expression for periodic checks (empty = run once).
	Schedule string `yaml:"schedule"`
	// SyncTimeout is the git sync timeout per tracker (e.g. "5m").
	SyncTimeout string `yaml:"sync_timeout"`
	// PriorityKinds overrides the high-priority event subset.
	PriorityKinds []string `yaml:"priority_kinds"`

	Metrics  MetricsConfig   `yaml:"metrics"`
	NATS     NATSConfig      `yaml:"nats"`
	Trackers []TrackerConfig `yaml:"trackers"`
}

// MetricsConfig configures the optional Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled).
	Addr string `yaml:"addr"`
}

// NATSConfig configures the optional event publisher.
type NATSConfig struct {
	// URL is the NATS server URL (empty = publishing disabled).
	URL string `yaml:"url"`
	// Subject is the subject events are published to.
	Subject string `yaml:"subject"`
}

// TrackerConfig is one configured proposal source.
type TrackerConfig struct {
	ID          string `yaml:"id"`
	Type        string `yaml:"type"`
	RepoURL     string `yaml:"repo_url"`
	Branch      string `yaml:"branch"`
	ProposalDir string `yaml:"proposal_dir"`
	FilePattern string `yaml:"file_pattern"`
	Enabled     *bool  `yaml:"enabled"`
}

var githubURLRe = regexp.MustCompile(`^https://github\.com/[^/]+/[^/]+(\.git)?$`)

// DefaultConfig returns a Config watching the four canonical proposal
// repositories.
func DefaultConfig() *Config {
	enabled := true
	return &Config{
		DataDir:     "data",
		Concurrency: 2,
		SyncTimeout: "5m",
		Trackers: []TrackerConfig{
			{ID: "eips", Type: "eip", RepoURL: "https://github.com/ethereum/EIPs", Branch: "master", ProposalDir: "EIPS", Enabled: &enabled},
			{ID: "rust-rfcs", Type: "rust_rfc", RepoURL: "https://github.com/rust-lang/rfcs", Branch: "master", ProposalDir: "text", Enabled: &enabled},
			{ID: "peps", Type: "pep", RepoURL: "https://github.com/python/peps", Branch: "main", ProposalDir: "peps", Enabled: &enabled},
			{ID: "django-deps", Type: "django_dep", RepoURL: "https://github.com/django/deps", Branch: "main", FilePattern: "*.rst", Enabled: &enabled},
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	ids := make(map[string]bool, len(c.Trackers))
	for i, t := range c.Trackers {
		if t.ID == "" {
			return fmt.Errorf("trackers[%d]: id is required", i)
		}
		if ids[t.ID] {
			return fmt.Errorf("trackers[%d]: duplicate id %q", i, t.ID)
		}
		ids[t.ID] = true
		if !proposal.TrackerType(t.Type).Valid() {
			return fmt.Errorf("trackers[%d]: unknown type %q", i, t.Type)
		}
		if !githubURLRe.MatchString(t.RepoURL) {
			return fmt.Errorf("trackers[%d]: repo_url %q must be https://github.com/<owner>/<repo>", i, t.RepoURL)
		}
	}
	for _, k := range c.PriorityKinds {
		if !validEventKind(k) {
			return fmt.Errorf("priority_kinds: unknown event kind %q", k)
		}
	}
	return nil
}

func validEventKind(k string) bool {
	switch proposal.EventKind(k) {
	case proposal.EventCreated, proposal.EventStatusChanged, proposal.EventAccepted,
		proposal.EventRejected, proposal.EventWithdrawn, proposal.EventPostponed,
		proposal.EventResurrected, proposal.EventSuperseded, proposal.EventContentModified:
		return true
	}
	return false
}

// Priority returns the configured high-priority event kinds, or nil to
// use the default subset.
func (c *Config) Priority() []proposal.EventKind {
	if len(c.PriorityKinds) == 0 {
		return nil
	}
	kinds := make([]proposal.EventKind, 0, len(c.PriorityKinds))
	for _, k := range c.PriorityKinds {
		kinds = append(kinds, proposal.EventKind(k))
	}
	return kinds
}

// ProposalTrackers converts the configured trackers to domain trackers,
// applying defaults.
func (c *Config) ProposalTrackers() []proposal.Tracker {
	trackers := make([]proposal.Tracker, 0, len(c.Trackers))
	for _, t := range c.Trackers {
		branch := t.Branch
		if branch == "" {
			branch = "main"
		}
		enabled := true
		if t.Enabled != nil {
			enabled = *t.Enabled
		}
		trackers = append(trackers, proposal.Tracker{
			ID:          t.ID,
			Type:        proposal.TrackerType(t.Type),
			RepoURL:     t.RepoURL,
			Branch:      branch,
			ProposalDir: t.ProposalDir,
			FilePattern: t.FilePattern,
			Enabled:     enabled,
		})
	}
	return trackers
}

// Merge overlays non-zero fields from other onto c.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if other.Concurrency != 0 {
		c.Concurrency = other.Concurrency
	}
	if other.Schedule != "" {
		c.Schedule = other.Schedule
	}
	if other.SyncTimeout != "" {
		c.SyncTimeout = other.SyncTimeout
	}
	if len(other.PriorityKinds) > 0 {
		c.PriorityKinds = other.PriorityKinds
	}
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.Subject != "" {
		c.NATS.Subject = other.NATS.Subject
	}
	if len(other.Trackers) > 0 {
		c.Trackers = other.Trackers
	}
}

// LoadFromFile reads a YAML config file as an overlay layer.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return config, nil
}
