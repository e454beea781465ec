// Package config provides configuration loading and structs for the kioku server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Root      string          `yaml:"root"`
	Extension string          `yaml:"extension"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds settings for the remote embedding provider
// (OpenAI-compatible /embeddings endpoint).
type EmbeddingConfig struct {
	URL            string `yaml:"url"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	CacheSize      int    `yaml:"cache_size"`
}

// SearchConfig holds search defaults.
type SearchConfig struct {
	DefaultMaxDistance float64 `yaml:"default_max_distance"`
}

// WatchConfig holds filesystem watch settings.
type WatchConfig struct {
	DebounceMillis int   `yaml:"debounce_ms"`
	Recursive      *bool `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// MCPConfig holds MCP server identity and tool naming.
type MCPConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
	// ToolSuffix, when set, is appended to every tool name (e.g.
	// "search_documents_notes") so that multiple collections can be exposed
	// to the same client without name collisions.
	ToolSuffix string `yaml:"tool_suffix"`
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed, or if the root directory
// is missing from the config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	if cfg.Root == "" {
		return nil, fmt.Errorf("config: root directory is required")
	}

	configDir := filepath.Dir(path)
	cfg.Root = expandPath(cfg.Root, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)

	return &cfg, nil
}

// Validate checks that the root directory exists and is a directory.
// Kept separate from Load so one-shot commands can create it first.
func (c *Config) Validate() error {
	info, err := os.Stat(c.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("config: root does not exist: %s", c.Root)
		}
		return fmt.Errorf("config: stat root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("config: root is not a directory: %s", c.Root)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
