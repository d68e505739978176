// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	OpenAI      OpenAIConfig
	Chat        ChatConfig
}

// OpenAIConfig holds the remote assistant credentials. Both values are
// required; a missing key fails startup instead of the first chat request.
type OpenAIConfig struct {
	APIKey      string
	AssistantID string
}

// ChatConfig tunes the run poll loop.
type ChatConfig struct {
	PollInterval time.Duration
	RunTimeout   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/tea-study-buddy.db"),
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			AssistantID: getEnv("OPENAI_ASSISTANT_ID", ""),
		},
		Chat: ChatConfig{
			PollInterval: getEnvDuration("CHAT_POLL_INTERVAL", time.Second),
			RunTimeout:   getEnvDuration("CHAT_RUN_TIMEOUT", 2*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if c.OpenAI.AssistantID == "" {
		return fmt.Errorf("OPENAI_ASSISTANT_ID is not set")
	}
	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("CHAT_POLL_INTERVAL must be > 0")
	}
	if c.Chat.RunTimeout <= 0 {
		return fmt.Errorf("CHAT_RUN_TIMEOUT must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare numbers are treated as seconds.
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
