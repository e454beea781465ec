package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Extension == "" {
		cfg.Extension = ".md"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8023
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ".local/share/kioku/documents.db"
	}
	if cfg.Embedding.URL == "" {
		cfg.Embedding.URL = "http://127.0.0.1:1338/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-nomic-embed-text-v1.5-embedding"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.TimeoutSeconds == 0 {
		cfg.Embedding.TimeoutSeconds = 60
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Search.DefaultMaxDistance == 0 {
		cfg.Search.DefaultMaxDistance = 0.5
	}
	if cfg.Watch.DebounceMillis == 0 {
		cfg.Watch.DebounceMillis = 400
	}
	if cfg.MCP.Name == "" {
		cfg.MCP.Name = "kioku"
	}
	if cfg.MCP.Version == "" {
		cfg.MCP.Version = "0.1.0"
	}
}
