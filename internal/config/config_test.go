package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.LLM.MaxHistoryPairs != 5 {
		t.Errorf("expected 5 history pairs, got %d", cfg.LLM.MaxHistoryPairs)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("expected temperature 0.7, got %f", cfg.LLM.Temperature)
	}
	if cfg.TTS.Provider != "piper" {
		t.Errorf("expected piper provider, got %s", cfg.TTS.Provider)
	}
	if cfg.Fallback.NoTranscription == "" || cfg.Fallback.InternalError == "" {
		t.Error("expected non-empty fallback messages")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("LLM_MAX_HISTORY_PAIRS", "2")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("FALLBACK_INTERNAL_ERROR", "custom error text")

	cfg := Load()

	if cfg.Server.Port != 9001 {
		t.Errorf("expected port 9001, got %d", cfg.Server.Port)
	}
	if cfg.LLM.MaxHistoryPairs != 2 {
		t.Errorf("expected 2 history pairs, got %d", cfg.LLM.MaxHistoryPairs)
	}
	if cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.LLM.Timeout)
	}
	if cfg.Fallback.InternalError != "custom error text" {
		t.Errorf("unexpected fallback text: %s", cfg.Fallback.InternalError)
	}
}

func TestEnvOverridesIgnoreMalformed(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("LLM_TEMPERATURE", "warm")

	cfg := Load()

	if cfg.Server.Port != 8000 {
		t.Errorf("malformed PORT should fall back to default, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("malformed temperature should fall back to default, got %f", cfg.LLM.Temperature)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"negative history pairs", func(c *Config) { c.LLM.MaxHistoryPairs = -1 }, "MAX_HISTORY_PAIRS"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "PORT"},
		{"missing model path", func(c *Config) { c.STT.ModelPath = "" }, "STT_MODEL_PATH"},
		{"missing llm base", func(c *Config) { c.LLM.BaseURL = "" }, "LLM_API_BASE"},
		{"unknown tts provider", func(c *Config) { c.TTS.Provider = "festival" }, "TTS_PROVIDER"},
		{"openai without key", func(c *Config) { c.TTS.Provider = "openai"; c.TTS.OpenAIKey = "" }, "TTS_OPENAI_API_KEY"},
		{"chain without key", func(c *Config) { c.TTS.Provider = "chain"; c.TTS.OpenAIKey = "" }, "TTS_OPENAI_API_KEY"},
		{"chain without piper url", func(c *Config) { c.TTS.Provider = "chain"; c.TTS.OpenAIKey = "k"; c.TTS.PiperURL = "" }, "TTS_PIPER_URL"},
		{"empty fallback", func(c *Config) { c.Fallback.InternalError = "" }, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChainProvider(t *testing.T) {
	cfg := Load()
	cfg.TTS.Provider = "chain"
	cfg.TTS.OpenAIKey = "test-key"

	if err := cfg.Validate(); err != nil {
		t.Errorf("chain with piper url and openai key should validate: %v", err)
	}
}

func TestServerAddr(t *testing.T) {
	s := Server{Host: "0.0.0.0", Port: 8000}
	if s.Addr() != "0.0.0.0:8000" {
		t.Errorf("unexpected addr %s", s.Addr())
	}
}
