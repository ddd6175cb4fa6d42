package marque

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config configures an Engine.
type Config struct {
	// Path is the SQLite database file. ":memory:" works for tests.
	Path string `yaml:"path"`

	// BusyTimeoutMs is the SQLite busy timeout. Default 10000.
	BusyTimeoutMs int `yaml:"busy_timeout_ms"`

	// CacheSizeKiB sets the page-cache budget in KiB. 0 keeps the
	// SQLite default.
	CacheSizeKiB int `yaml:"cache_size_kib"`

	Search SearchConfig `yaml:"search"`
	Batch  BatchConfig  `yaml:"batch"`
}

// SearchConfig tunes the query engine.
type SearchConfig struct {
	// CandidateCap bounds per-term index probes. Default 200.
	CandidateCap int `yaml:"candidate_cap"`

	// DisableHistory turns off the search-history side channel.
	DisableHistory bool `yaml:"disable_history"`
}

// BatchConfig tunes bulk writes.
type BatchConfig struct {
	// Size fixes the chunk size for batch writes; 0 selects the dynamic
	// device-aware policy.
	Size int `yaml:"size"`
}

func (c *Config) defaults() {
	if c.Path == "" {
		c.Path = "marque.db"
	}
	if c.BusyTimeoutMs <= 0 {
		c.BusyTimeoutMs = 10_000
	}
	if c.Search.CandidateCap <= 0 {
		c.Search.CandidateCap = 200
	}
}

// LoadConfig reads a YAML config file. Missing fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("marque: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("marque: parse config %s: %w", path, err)
	}
	cfg.defaults()
	return cfg, nil
}
