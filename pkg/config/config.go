// Package config loads social-hunter settings from a YAML file and
// SOCIAL_HUNTER_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/catalog"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SOCIAL_HUNTER_"

// Store kinds.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config holds the resolved settings.
type Config struct {
	Store       string
	DBPath      string
	Timeout     time.Duration
	UserAgent   string
	Concurrency int
	Addr        string
	LogLevel    string
	LogFormat   string
	// Platforms are appended after the built-in rules.
	Platforms []catalog.Platform
}

type fileConfig struct {
	Store       string             `yaml:"store"`
	DBPath      string             `yaml:"db_path"`
	Timeout     string             `yaml:"timeout"`
	UserAgent   string             `yaml:"user_agent"`
	Concurrency *int               `yaml:"concurrency"`
	Addr        string             `yaml:"addr"`
	LogLevel    string             `yaml:"log_level"`
	LogFormat   string             `yaml:"log_format"`
	Platforms   []catalog.Platform `yaml:"platforms"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Store:       StoreSQLite,
		DBPath:      DefaultDBPath(StoreSQLite),
		Timeout:     30 * time.Second,
		UserAgent:   "social-hunter/1.0",
		Concurrency: 1,
		Addr:        "127.0.0.1:8787",
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

// DefaultDBPath returns the default location for the given store kind.
func DefaultDBPath(store string) string {
	home, _ := os.UserHomeDir()
	name := "saved.db"
	if store == StoreFile {
		name = "saved.json"
	}
	return filepath.Join(home, ".social-hunter", name)
}

// Load resolves settings from defaults, then the YAML file at path (skipped
// when path is empty), then the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := cfg.applyYAML(data); err != nil {
			return cfg, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyYAML(data []byte) error {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	dbPathSet := fc.DBPath != ""
	if fc.Store != "" {
		c.Store = strings.ToLower(fc.Store)
		if !dbPathSet {
			c.DBPath = DefaultDBPath(c.Store)
		}
	}
	if dbPathSet {
		c.DBPath = expandHome(fc.DBPath)
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		c.Timeout = d
	}
	if fc.UserAgent != "" {
		c.UserAgent = fc.UserAgent
	}
	if fc.Concurrency != nil {
		c.Concurrency = *fc.Concurrency
	}
	if fc.Addr != "" {
		c.Addr = fc.Addr
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}
	c.Platforms = append(c.Platforms, fc.Platforms...)
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("STORE"); ok {
		c.Store = strings.ToLower(v)
		if _, set := get("DB"); !set {
			c.DBPath = DefaultDBPath(c.Store)
		}
	}
	if v, ok := get("DB"); ok {
		c.DBPath = expandHome(v)
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		c.Timeout = d
	}
	if v, ok := get("USER_AGENT"); ok {
		c.UserAgent = v
	}
	if v, ok := get("CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCONCURRENCY: %w", EnvPrefix, err)
		}
		c.Concurrency = n
	}
	if v, ok := get("ADDR"); ok {
		c.Addr = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := get("LOG_FORMAT"); ok {
		c.LogFormat = v
	}
	return nil
}

// Validate checks the settings for values the commands cannot work with.
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreFile, StoreMemory:
	default:
		return fmt.Errorf("unknown store %q (want sqlite, file or memory)", c.Store)
	}
	if c.Store != StoreMemory && c.DBPath == "" {
		return fmt.Errorf("store %s needs a db path", c.Store)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	return nil
}

// Catalog returns the built-in catalog extended with the configured platforms.
func (c Config) Catalog() (*catalog.Catalog, error) {
	cat, err := catalog.Default().With(c.Platforms...)
	if err != nil {
		return nil, fmt.Errorf("config platforms: %w", err)
	}
	return cat, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
