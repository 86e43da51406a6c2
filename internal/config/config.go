// Package config loads deckforge configuration from the workspace config
// file (.deckforge/config.yaml), a .env file, and environment variables.
// Environment variables win over the file; the file wins over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the deck-building core.
type Config struct {
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StoreConfig holds the persistence paths.
type StoreConfig struct {
	CardDBPath   string `yaml:"card_db_path"`
	VectorDBPath string `yaml:"vector_db_path"`
}

// CacheConfig bounds the in-memory card cache.
type CacheConfig struct {
	MaxSize int `yaml:"max_size"`
}

// LoggingConfig mirrors the section consumed by internal/logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Level      string          `yaml:"level"`
}

// Default returns the baseline configuration rooted at the given workspace.
func Default(workspace string) Config {
	dataDir := filepath.Join(workspace, ".deckforge", "data")
	return Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  "2m",
		},
		Embedding: EmbeddingConfig{
			Provider: "openai",
			Model:    "text-embedding-3-small",
		},
		Store: StoreConfig{
			CardDBPath:   filepath.Join(dataDir, "cards.db"),
			VectorDBPath: filepath.Join(dataDir, "vectors.db"),
		},
		Cache:   CacheConfig{MaxSize: 1000},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load resolves the effective configuration: defaults, then the workspace
// config file if present, then .env, then environment overrides.
func Load(workspace string) (Config, error) {
	cfg := Default(workspace)

	path := filepath.Join(workspace, ".deckforge", "config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return cfg, fmt.Errorf("failed to read %s: %w", path, err)
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load(filepath.Join(workspace, ".env"))

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		if cfg.LLM.Provider == "openai" {
			cfg.LLM.APIKey = v
		}
		if cfg.Embedding.Provider == "openai" {
			cfg.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		if cfg.LLM.Provider == "gemini" {
			cfg.LLM.APIKey = v
		}
		if cfg.Embedding.Provider == "genai" {
			cfg.Embedding.APIKey = v
		}
	}
	if v := os.Getenv("CACHE_L2_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Cache.MaxSize = n
		}
	}
	if v := os.Getenv("DECKFORGE_DATA_DIR"); v != "" {
		cfg.Store.CardDBPath = filepath.Join(v, "cards.db")
		cfg.Store.VectorDBPath = filepath.Join(v, "vectors.db")
	}
}
