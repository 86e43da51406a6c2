package config

import "time"

// defaultLLMTimeout applies when the configured timeout is missing or
// unparseable.
const defaultLLMTimeout = 2 * time.Minute

// LLMConfig configures the chat/tool-calling LLM client.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"` // Go duration string, e.g. "2m"
}

// TimeoutDuration parses the configured timeout, falling back to the
// default on empty or invalid values.
func (c LLMConfig) TimeoutDuration() time.Duration {
	if c.Timeout == "" {
		return defaultLLMTimeout
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return defaultLLMTimeout
	}
	return d
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // openai, genai
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}
