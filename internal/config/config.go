// Package config provides environment-driven configuration for jarv1s.
// Every setting has a default that works against a local stack
// (LM Studio for the LLM, a local whisper.cpp model, a Piper daemon).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Application metadata reported on the root endpoint.
const (
	AppName        = "Jarv1s"
	AppVersion     = "0.3.0"
	AppDescription = "Personal AI Copilot - 100% Local"
)

// DefaultSystemPrompt is the system instruction for the conversation.
const DefaultSystemPrompt = "You are Jarv1s, a personal AI copilot. Your responses are always " +
	"concise, helpful, and friendly. You remember previous conversation " +
	"context to provide coherent responses. Respond in the same language " +
	"the user is using."

// Server holds HTTP server settings.
type Server struct {
	Host        string
	Port        int
	CORSOrigins string
}

// Addr returns the listen address in host:port form.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// STT holds speech-to-text settings.
type STT struct {
	ModelPath string
	Language  string
	Threads   int
}

// LLM holds language-model settings.
type LLM struct {
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	MaxHistoryPairs int
	SystemPrompt    string
}

// TTS holds text-to-speech settings.
type TTS struct {
	Provider   string // "piper", "openai", or "chain" (piper with openai failover)
	PiperURL   string
	Voice      string
	SampleRate int
	OpenAIKey  string
	Timeout    time.Duration
}

// Fallback holds the canned response texts.
type Fallback struct {
	NoTranscription string
	InternalError   string
}

// Config is the full application configuration.
type Config struct {
	Server   Server
	STT      STT
	LLM      LLM
	TTS      TTS
	Fallback Fallback
	LogLevel string
}

// Load builds a Config from environment variables.
// Call godotenv.Load first if a .env file should be honored.
func Load() Config {
	return Config{
		Server: Server{
			Host:        getEnv("HOST", "127.0.0.1"),
			Port:        getEnvInt("PORT", 8000),
			CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173"),
		},
		STT: STT{
			ModelPath: getEnv("STT_MODEL_PATH", "models/stt/ggml-small.bin"),
			Language:  getEnv("STT_LANGUAGE", "auto"),
			Threads:   getEnvInt("STT_THREADS", 0),
		},
		LLM: LLM{
			BaseURL:         getEnv("LLM_API_BASE", "http://localhost:1234/v1"),
			APIKey:          getEnv("LLM_API_KEY", "not-required"),
			Model:           getEnv("LLM_MODEL_NAME", "lmstudio-local-model"),
			Temperature:     getEnvFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:       getEnvInt("LLM_MAX_TOKENS", 1024),
			Timeout:         getEnvDuration("LLM_TIMEOUT", 60*time.Second),
			MaxHistoryPairs: getEnvInt("LLM_MAX_HISTORY_PAIRS", 5),
			SystemPrompt:    getEnv("LLM_SYSTEM_PROMPT", DefaultSystemPrompt),
		},
		TTS: TTS{
			Provider:   getEnv("TTS_PROVIDER", "piper"),
			PiperURL:   getEnv("TTS_PIPER_URL", "http://localhost:5000"),
			Voice:      getEnv("TTS_VOICE", "es_ES-sharvard-medium"),
			SampleRate: getEnvInt("TTS_SAMPLE_RATE", 22050),
			OpenAIKey:  getEnv("TTS_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY")),
			Timeout:    getEnvDuration("TTS_TIMEOUT", 30*time.Second),
		},
		Fallback: Fallback{
			NoTranscription: getEnv("FALLBACK_NO_TRANSCRIPTION",
				"Sorry, I didn't hear you clearly. Could you repeat that?"),
			InternalError: getEnv("FALLBACK_INTERNAL_ERROR",
				"I'm sorry, I'm having a technical issue. Please try again in a moment."),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports the first invalid setting.
// A non-nil error is fatal at startup.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Server.Port)
	}
	if c.STT.ModelPath == "" {
		return errors.New("config: STT_MODEL_PATH is required")
	}
	if c.LLM.BaseURL == "" {
		return errors.New("config: LLM_API_BASE is required")
	}
	if c.LLM.Model == "" {
		return errors.New("config: LLM_MODEL_NAME is required")
	}
	if c.LLM.MaxHistoryPairs < 0 {
		return fmt.Errorf("config: LLM_MAX_HISTORY_PAIRS must be >= 0, got %d", c.LLM.MaxHistoryPairs)
	}
	switch c.TTS.Provider {
	case "piper", "chain":
		if c.TTS.PiperURL == "" {
			return fmt.Errorf("config: TTS_PIPER_URL is required for the %s provider", c.TTS.Provider)
		}
		if c.TTS.SampleRate <= 0 {
			return fmt.Errorf("config: TTS_SAMPLE_RATE must be > 0, got %d", c.TTS.SampleRate)
		}
		if c.TTS.Provider == "chain" && c.TTS.OpenAIKey == "" {
			return errors.New("config: TTS_OPENAI_API_KEY is required for the chain provider")
		}
	case "openai":
		if c.TTS.OpenAIKey == "" {
			return errors.New("config: TTS_OPENAI_API_KEY is required for the openai provider")
		}
	default:
		return fmt.Errorf("config: unknown TTS_PROVIDER %q", c.TTS.Provider)
	}
	if c.Fallback.NoTranscription == "" || c.Fallback.InternalError == "" {
		return errors.New("config: fallback messages must not be empty")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
