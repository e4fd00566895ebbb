package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Neo4j.URI != "bolt://localhost:7687" {
		t.Errorf("URI = %q", cfg.Neo4j.URI)
	}
	if cfg.Query.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v", cfg.Query.Timeout)
	}
	if cfg.Display.MaxGraphNodes != 50 || cfg.Display.PageSize != 25 {
		t.Errorf("Display = %+v", cfg.Display)
	}
	if cfg.History.MaxEntries != 20 {
		t.Errorf("History.MaxEntries = %d", cfg.History.MaxEntries)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NEO4J_URI", "bolt://graph.example.org:7687")
	t.Setenv("NEO4J_USER", "reader")
	t.Setenv("NEO4J_PASSWORD", "s3cret")
	t.Setenv("OSDR_QUERY_TIMEOUT", "45s")
	t.Setenv("OSDR_PAGE_SIZE", "10")
	t.Setenv("OSDR_MAX_GRAPH_NODES", "100")

	cfg := LoadFromEnv()
	if cfg.Neo4j.URI != "bolt://graph.example.org:7687" {
		t.Errorf("URI = %q", cfg.Neo4j.URI)
	}
	if cfg.Neo4j.Username != "reader" || cfg.Neo4j.Password != "s3cret" {
		t.Errorf("credentials not applied: %+v", cfg.Neo4j)
	}
	if cfg.Query.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v", cfg.Query.Timeout)
	}
	if cfg.Display.PageSize != 10 || cfg.Display.MaxGraphNodes != 100 {
		t.Errorf("Display = %+v", cfg.Display)
	}
}

func TestLoadFromEnv_PlainSecondsDuration(t *testing.T) {
	t.Setenv("OSDR_QUERY_TIMEOUT", "60")
	cfg := LoadFromEnv()
	if cfg.Query.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want 60s", cfg.Query.Timeout)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osdrgraph.yaml")
	content := `
neo4j:
  uri: bolt://db.internal:7687
  username: osdr
  password: filepass
  database: osdr
query:
  timeout: 20s
  cache_size: 64
display:
  page_size: 50
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Neo4j.URI != "bolt://db.internal:7687" || cfg.Neo4j.Database != "osdr" {
		t.Errorf("Neo4j = %+v", cfg.Neo4j)
	}
	if cfg.Query.Timeout != 20*time.Second || cfg.Query.CacheSize != 64 {
		t.Errorf("Query = %+v", cfg.Query)
	}
	if cfg.Display.PageSize != 50 {
		t.Errorf("PageSize = %d", cfg.Display.PageSize)
	}
	// Unset file fields keep their defaults.
	if cfg.Display.MaxGraphNodes != 50 {
		t.Errorf("MaxGraphNodes = %d, want default 50", cfg.Display.MaxGraphNodes)
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osdrgraph.yaml")
	if err := os.WriteFile(path, []byte("neo4j:\n  uri: bolt://from-file:7687\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEO4J_URI", "bolt://from-env:7687")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Neo4j.URI != "bolt://from-env:7687" {
		t.Errorf("URI = %q, env should win over file", cfg.Neo4j.URI)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) { c.Neo4j.Password = "pw" }, false},
		{"no auth valid", func(c *Config) { c.Neo4j.Username = "" }, false},
		{"empty uri", func(c *Config) { c.Neo4j.URI = "" }, true},
		{"username without password", func(c *Config) { c.Neo4j.Password = "" }, true},
		{"zero timeout", func(c *Config) { c.Neo4j.Password = "pw"; c.Query.Timeout = 0 }, true},
		{"bad page size", func(c *Config) { c.Neo4j.Password = "pw"; c.Display.PageSize = 0 }, true},
		{"bad graph cap", func(c *Config) { c.Neo4j.Password = "pw"; c.Display.MaxGraphNodes = -1 }, true},
		{"bad history bound", func(c *Config) { c.Neo4j.Password = "pw"; c.History.MaxEntries = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestString_RedactsPassword(t *testing.T) {
	cfg := Default()
	cfg.Neo4j.Password = "supersecret"
	if s := cfg.String(); strings.Contains(s, "supersecret") {
		t.Errorf("String() leaks password: %s", s)
	}
}
