// Package config handles explorer configuration from environment variables
// and an optional YAML file.
//
// Defaults come first, then a config file if one is given, then environment
// variables on top. The standard NEO4J_* variables are honored so the tool
// drops into existing Neo4j deployment workflows, plus OSDR_* extensions for
// the explorer itself.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
// Environment Variables:
//
// Neo4j-compatible:
//   - NEO4J_URI=bolt://localhost:7687
//   - NEO4J_USER=neo4j
//   - NEO4J_PASSWORD=secret
//   - NEO4J_DATABASE=neo4j
//
// Explorer-specific:
//   - OSDR_QUERY_TIMEOUT=30s
//   - OSDR_SLOW_QUERY_THRESHOLD=2s
//   - OSDR_LARGE_RESULT_THRESHOLD=50
//   - OSDR_CACHE_SIZE=128
//   - OSDR_CACHE_TTL=5m
//   - OSDR_MAX_GRAPH_NODES=50
//   - OSDR_PAGE_SIZE=25
//   - OSDR_HISTORY_DIR=~/.osdrgraph/history
//   - OSDR_HISTORY_MAX_ENTRIES=20
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all explorer configuration.
type Config struct {
	// Neo4j connection settings
	Neo4j Neo4jConfig `yaml:"neo4j"`

	// Query execution settings
	Query QueryConfig `yaml:"query"`

	// Display settings for formatted results
	Display DisplayConfig `yaml:"display"`

	// History persistence settings
	History HistoryConfig `yaml:"history"`
}

// Neo4jConfig holds connection settings for the OSDR graph database.
type Neo4jConfig struct {
	// URI is the bolt address, e.g. bolt://localhost:7687
	URI string `yaml:"uri"`
	// Username for basic auth; empty disables authentication
	Username string `yaml:"username"`
	// Password for basic auth
	Password string `yaml:"password"`
	// Database selects the target database; empty uses the server default
	Database string `yaml:"database"`
}

// QueryConfig holds execution limits and caching settings.
type QueryConfig struct {
	// Timeout bounds a single query execution
	Timeout time.Duration `yaml:"timeout"`
	// SlowQueryThreshold triggers a performance warning when exceeded
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
	// LargeResultThreshold triggers a size warning when exceeded
	LargeResultThreshold int `yaml:"large_result_threshold"`
	// CacheSize bounds the formatted-result cache; 0 disables caching
	CacheSize int `yaml:"cache_size"`
	// CacheTTL expires cached results
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// DisplayConfig holds presentation settings.
type DisplayConfig struct {
	// MaxGraphNodes caps graph visualizations
	MaxGraphNodes int `yaml:"max_graph_nodes"`
	// PageSize is the table pagination size
	PageSize int `yaml:"page_size"`
}

// HistoryConfig holds history store settings.
type HistoryConfig struct {
	// Dir is the badger directory for history and checkpoints
	Dir string `yaml:"dir"`
	// MaxEntries bounds the query history
	MaxEntries int `yaml:"max_entries"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Neo4j: Neo4jConfig{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		Query: QueryConfig{
			Timeout:              30 * time.Second,
			SlowQueryThreshold:   2 * time.Second,
			LargeResultThreshold: 50,
			CacheSize:            128,
			CacheTTL:             5 * time.Minute,
		},
		Display: DisplayConfig{
			MaxGraphNodes: 50,
			PageSize:      25,
		},
		History: HistoryConfig{
			Dir:        defaultHistoryDir(),
			MaxEntries: 20,
		},
	}
}

// LoadFromEnv returns the default config with environment overrides applied.
func LoadFromEnv() *Config {
	cfg := Default()
	cfg.ApplyEnv()
	return cfg
}

// LoadFile reads a YAML config file over the defaults. Environment
// variables are applied on top afterwards.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides the config from environment variables.
func (c *Config) ApplyEnv() {
	c.Neo4j.URI = getEnv("NEO4J_URI", c.Neo4j.URI)
	c.Neo4j.Username = getEnv("NEO4J_USER", c.Neo4j.Username)
	c.Neo4j.Password = getEnv("NEO4J_PASSWORD", c.Neo4j.Password)
	c.Neo4j.Database = getEnv("NEO4J_DATABASE", c.Neo4j.Database)

	c.Query.Timeout = getEnvDuration("OSDR_QUERY_TIMEOUT", c.Query.Timeout)
	c.Query.SlowQueryThreshold = getEnvDuration("OSDR_SLOW_QUERY_THRESHOLD", c.Query.SlowQueryThreshold)
	c.Query.LargeResultThreshold = getEnvInt("OSDR_LARGE_RESULT_THRESHOLD", c.Query.LargeResultThreshold)
	c.Query.CacheSize = getEnvInt("OSDR_CACHE_SIZE", c.Query.CacheSize)
	c.Query.CacheTTL = getEnvDuration("OSDR_CACHE_TTL", c.Query.CacheTTL)

	c.Display.MaxGraphNodes = getEnvInt("OSDR_MAX_GRAPH_NODES", c.Display.MaxGraphNodes)
	c.Display.PageSize = getEnvInt("OSDR_PAGE_SIZE", c.Display.PageSize)

	c.History.Dir = getEnv("OSDR_HISTORY_DIR", c.History.Dir)
	c.History.MaxEntries = getEnvInt("OSDR_HISTORY_MAX_ENTRIES", c.History.MaxEntries)
}

// Validate checks the configuration for startup.
//
// Returns nil if configuration is valid, or an error describing the problem.
func (c *Config) Validate() error {
	if c.Neo4j.URI == "" {
		return fmt.Errorf("neo4j uri cannot be empty")
	}
	if c.Neo4j.Username != "" && c.Neo4j.Password == "" {
		return fmt.Errorf("neo4j username set but password is empty")
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("invalid query timeout: %v", c.Query.Timeout)
	}
	if c.Query.LargeResultThreshold < 0 {
		return fmt.Errorf("invalid large result threshold: %d", c.Query.LargeResultThreshold)
	}
	if c.Display.MaxGraphNodes <= 0 {
		return fmt.Errorf("invalid max graph nodes: %d", c.Display.MaxGraphNodes)
	}
	if c.Display.PageSize <= 0 {
		return fmt.Errorf("invalid page size: %d", c.Display.PageSize)
	}
	if c.History.MaxEntries <= 0 {
		return fmt.Errorf("invalid history max entries: %d", c.History.MaxEntries)
	}
	return nil
}

// String returns a safe string representation of the Config.
//
// The password is never included, making this safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{URI: %s, User: %s, Database: %s, Timeout: %v, PageSize: %d}",
		c.Neo4j.URI, c.Neo4j.Username, c.Neo4j.Database,
		c.Query.Timeout, c.Display.PageSize,
	)
}

func defaultHistoryDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".osdrgraph/history"
	}
	return filepath.Join(home, ".osdrgraph", "history")
}

// Helper functions for environment variable parsing

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		// Plain integers are read as seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
