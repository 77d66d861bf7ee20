// Package config loads relaysync configuration from YAML or JSONC files.
//
// Files are layered over Default: fields a file leaves out keep their
// default values. Unknown fields are rejected so typos fail loudly.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/roach88/relaysync/internal/bundle"
	"github.com/roach88/relaysync/internal/ingest"
	"github.com/roach88/relaysync/internal/store"
	"github.com/roach88/relaysync/internal/syncer"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the complete relaysync configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" json:"store"`
	Log    LogConfig    `yaml:"log" json:"log"`
	Ingest IngestConfig `yaml:"ingest" json:"ingest"`
	Sync   SyncConfig   `yaml:"sync" json:"sync"`
}

// StoreConfig selects and locates the revision and checkpoint store.
type StoreConfig struct {
	Driver      string `yaml:"driver" json:"driver"`
	Path        string `yaml:"path,omitempty" json:"path,omitempty"`
	RedisURL    string `yaml:"redis_url,omitempty" json:"redis_url,omitempty"`
	RedisPrefix string `yaml:"redis_prefix,omitempty" json:"redis_prefix,omitempty"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// IngestConfig tunes the ingest engine.
type IngestConfig struct {
	SeenCache   int `yaml:"seen_cache" json:"seen_cache"`
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	Concurrency int `yaml:"concurrency" json:"concurrency"`
}

// SyncConfig configures the fetch loop and bundle defaults.
type SyncConfig struct {
	FetchTimeout Duration       `yaml:"fetch_timeout" json:"fetch_timeout"`
	Interval     Duration       `yaml:"interval" json:"interval"`
	Limit        int            `yaml:"limit" json:"limit"`
	Parallelism  int            `yaml:"parallelism" json:"parallelism"`
	Shards       []syncer.Shard `yaml:"shards,omitempty" json:"shards,omitempty"`
	Bundle       bundle.Options `yaml:"bundle" json:"bundle"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Driver:      DriverSQLite,
			Path:        "relaysync.db",
			RedisPrefix: store.DefaultRedisPrefix,
		},
		Log: LogConfig{
			Level:  "info",
			Format: FormatText,
		},
		Ingest: IngestConfig{
			SeenCache:   4096,
			Concurrency: ingest.DefaultConcurrency,
		},
		Sync: SyncConfig{
			FetchTimeout: Duration(syncer.DefaultFetchTimeout),
			Interval:     Duration(time.Minute),
			Limit:        syncer.DefaultLimit,
			Parallelism:  syncer.DefaultParallelism,
			Bundle:       bundle.Options{IncludeProfiles: true, IncludeListSets: true},
		},
	}
}

// Load reads path and layers it over Default. The format follows the file
// extension: .yaml and .yml are YAML, .json and .jsonc are JSON with
// comments and trailing commas allowed.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext and validates the result.
func Parse(data []byte, ext string) (Config, error) {
	cfg := Default()
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse YAML: %w", err)
		}
	case ".json", ".jsonc":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse JSON: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("unsupported config extension %q", ext)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	case DriverRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("store.driver %q: want sqlite, redis or memory", c.Store.Driver)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if c.Log.Format != FormatText && c.Log.Format != FormatJSON {
		return fmt.Errorf("log.format %q: want text or json", c.Log.Format)
	}

	if c.Ingest.SeenCache < 0 {
		return fmt.Errorf("ingest.seen_cache must not be negative")
	}
	if c.Ingest.MaxAttempts < 0 {
		return fmt.Errorf("ingest.max_attempts must not be negative")
	}
	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("ingest.concurrency must be at least 1")
	}

	if c.Sync.FetchTimeout <= 0 {
		return fmt.Errorf("sync.fetch_timeout must be positive")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.Sync.Limit < 0 {
		return fmt.Errorf("sync.limit must not be negative")
	}
	if c.Sync.Parallelism < 1 {
		return fmt.Errorf("sync.parallelism must be at least 1")
	}
	seen := make(map[string]bool, len(c.Sync.Shards))
	for i, sh := range c.Sync.Shards {
		if sh.ID == "" {
			return fmt.Errorf("sync.shards[%d]: id is required", i)
		}
		if seen[string(sh.ID)] {
			return fmt.Errorf("sync.shards[%d]: duplicate id %q", i, sh.ID)
		}
		seen[string(sh.ID)] = true
	}
	return nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return level, nil
}

// EngineOptions returns the ingest options this configuration implies.
func (c IngestConfig) EngineOptions() []ingest.EngineOption {
	return []ingest.EngineOption{
		ingest.WithSeenCache(c.SeenCache),
		ingest.WithMaxAttempts(c.MaxAttempts),
		ingest.WithConcurrency(c.Concurrency),
	}
}

// RunnerOptions returns the syncer options this configuration implies.
func (c SyncConfig) RunnerOptions() []syncer.RunnerOption {
	return []syncer.RunnerOption{
		syncer.WithFetchTimeout(time.Duration(c.FetchTimeout)),
		syncer.WithLimit(c.Limit),
		syncer.WithParallelism(c.Parallelism),
	}
}

// Open connects the configured backend.
func (c StoreConfig) Open(ctx context.Context) (store.Backend, error) {
	switch c.Driver {
	case DriverSQLite:
		s, err := store.OpenSQLite(c.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverRedis:
		r, err := store.OpenRedis(ctx, c.RedisURL, c.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return r, nil
	case DriverMemory:
		return store.NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", c.Driver)
	}
}
