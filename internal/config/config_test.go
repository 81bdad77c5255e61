package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "debug: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if !cfg.Debug {
		t.Error("debug flag not read")
	}
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server defaults not applied: %+v", cfg.Server)
	}
	if cfg.Chunking.ChunkSize != 800 || cfg.Chunking.ChunkOverlap != 150 {
		t.Errorf("chunking defaults not applied: %+v", cfg.Chunking)
	}
	if cfg.Extraction.ChunkSize != 2000 || cfg.Extraction.ChunkOverlap != 200 {
		t.Errorf("extraction defaults not applied: %+v", cfg.Extraction)
	}
	if cfg.Embedding.QueryPrefix != "query: " {
		t.Errorf("query prefix default not applied: %q", cfg.Embedding.QueryPrefix)
	}
	if cfg.Retrieval.TopK != 15 {
		t.Errorf("top_k default not applied: %d", cfg.Retrieval.TopK)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9999
chunking:
  chunk_size: 400
  chunk_overlap: 50
retrieval:
  top_k: 5
embedding:
  model: custom-embed
  dimensions: 256
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port override lost: %d", cfg.Server.Port)
	}
	if cfg.Chunking.ChunkSize != 400 || cfg.Chunking.ChunkOverlap != 50 {
		t.Errorf("chunking override lost: %+v", cfg.Chunking)
	}
	if cfg.Retrieval.TopK != 5 {
		t.Errorf("top_k override lost: %d", cfg.Retrieval.TopK)
	}
	if cfg.Embedding.Model != "custom-embed" || cfg.Embedding.Dimensions != 256 {
		t.Errorf("embedding override lost: %+v", cfg.Embedding)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadRejectsBadChunking(t *testing.T) {
	path := writeConfig(t, `
chunking:
  chunk_size: 100
  chunk_overlap: 100
`)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error for overlap >= chunk size")
	}
	if !strings.Contains(err.Error(), "chunk_overlap") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRejectsBadDimensions(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Embedding.Dimensions = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative dimensions")
	}
}

func TestExpandPathRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: ./data/db.sqlite
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(path), "data/db.sqlite")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database path = %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if !filepath.IsAbs(cfg.Storage.VectorIndexPath) {
		t.Errorf("vector index default not expanded: %q", cfg.Storage.VectorIndexPath)
	}
}

func TestWatchRecursiveDefault(t *testing.T) {
	w := &WatchConfig{}
	if !w.RecursiveOrDefault() {
		t.Error("unset recursive should default to true")
	}
	f := false
	w.Recursive = &f
	if w.RecursiveOrDefault() {
		t.Error("explicit false must be honored")
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("ACERVO_TEST_KEY", "sekret")
	e := EmbeddingConfig{APIKeyEnv: "ACERVO_TEST_KEY"}
	if e.APIKey() != "sekret" {
		t.Errorf("got %q", e.APIKey())
	}
	none := EmbeddingConfig{}
	if none.APIKey() != "" {
		t.Errorf("expected empty key, got %q", none.APIKey())
	}
}
