package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_ASSISTANT_ID", "asst_test")
}

// unsetEnv clears a variable for the test, restoring it afterwards.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	for _, key := range []string{"PORT", "DB_PATH", "CHAT_POLL_INTERVAL", "CHAT_RUN_TIMEOUT"} {
		unsetEnv(t, key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DBPath != "./data/tea-study-buddy.db" {
		t.Errorf("Unexpected default db path: %q", cfg.DBPath)
	}
	if cfg.Chat.PollInterval != time.Second {
		t.Errorf("Expected default poll interval 1s, got %v", cfg.Chat.PollInterval)
	}
	if cfg.Chat.RunTimeout != 2*time.Minute {
		t.Errorf("Expected default run timeout 2m, got %v", cfg.Chat.RunTimeout)
	}
}

func TestLoadRequiresOpenAICredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_ASSISTANT_ID", "asst_test")

	if _, err := Load(); err == nil {
		t.Error("Expected error without OPENAI_API_KEY")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_ASSISTANT_ID", "")

	if _, err := Load(); err == nil {
		t.Error("Expected error without OPENAI_ASSISTANT_ID")
	}
}

func TestLoadDurationForms(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHAT_POLL_INTERVAL", "250ms")
	t.Setenv("CHAT_RUN_TIMEOUT", "90")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Chat.PollInterval != 250*time.Millisecond {
		t.Errorf("Expected 250ms poll interval, got %v", cfg.Chat.PollInterval)
	}
	if cfg.Chat.RunTimeout != 90*time.Second {
		t.Errorf("Bare numbers are seconds; expected 90s, got %v", cfg.Chat.RunTimeout)
	}
}

func TestLoadMalformedDurationFallsBack(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHAT_POLL_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Chat.PollInterval != time.Second {
		t.Errorf("Malformed value must fall back to 1s, got %v", cfg.Chat.PollInterval)
	}
}

func TestValidateRejectsNonPositiveDurations(t *testing.T) {
	cfg := &Config{
		Port:   "8080",
		DBPath: "test.db",
		OpenAI: OpenAIConfig{APIKey: "sk-test", AssistantID: "asst_test"},
		Chat:   ChatConfig{PollInterval: 0, RunTimeout: time.Minute},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero poll interval")
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		frontendURL string
		want        bool
	}{
		{"", true},
		{"http://localhost:5173", true},
		{"http://127.0.0.1:3000", true},
		{"https://tea.example.com", false},
	}
	for _, tt := range tests {
		cfg := &Config{FrontendURL: tt.frontendURL}
		if got := cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%q) = %v, want %v", tt.frontendURL, got, tt.want)
		}
	}
}
