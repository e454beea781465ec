package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "docs")
	if err := os.MkdirAll(root, 0755); err != nil {
		t.Fatal(err)
	}
	path := writeConfig(t, dir, `
debug: true
root: `+root+`
server:
  port: 9000
embedding:
  dimensions: 384
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true")
	}
	if cfg.Root != root {
		t.Errorf("root: got %s, want %s", cfg.Root, root)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port: got %d, want 9000", cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 384 {
		t.Errorf("dimensions: got %d, want 384", cfg.Embedding.Dimensions)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "root: "+dir+"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Extension != ".md" {
		t.Errorf("extension default: got %s", cfg.Extension)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 8023 {
		t.Errorf("server defaults: got %s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("dimensions default: got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Search.DefaultMaxDistance != 0.5 {
		t.Errorf("max distance default: got %f", cfg.Search.DefaultMaxDistance)
	}
	if cfg.Watch.DebounceMillis != 400 {
		t.Errorf("debounce default: got %d", cfg.Watch.DebounceMillis)
	}
	if !cfg.Watch.RecursiveOrDefault() {
		t.Error("recursive should default to true")
	}
	if cfg.MCP.Name != "kioku" {
		t.Errorf("mcp name default: got %s", cfg.MCP.Name)
	}
}

func TestLoad_MissingRoot(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "debug: false\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error when root is missing")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "root: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_RelativePathsExpanded(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
root: ./docs
storage:
  database_path: ./data/kioku.db
`)
	if err := os.MkdirAll(filepath.Join(dir, "docs"), 0755); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(cfg.Root) {
		t.Errorf("root should be absolute: %s", cfg.Root)
	}
	if !filepath.IsAbs(cfg.Storage.DatabasePath) {
		t.Errorf("database_path should be absolute: %s", cfg.Storage.DatabasePath)
	}
}

func TestValidate_RootNotDirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "afile")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := &Config{Root: file}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when root is a file")
	}
	cfg = &Config{Root: filepath.Join(dir, "missing")}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when root does not exist")
	}
}

func TestRecursiveOrDefault_Explicit(t *testing.T) {
	f := false
	w := WatchConfig{Recursive: &f}
	if w.RecursiveOrDefault() {
		t.Error("explicit false should win over default")
	}
}
