// jarvisd: local voice assistant daemon.
// Speech in over HTTP, spoken reply out: whisper.cpp transcription, an
// OpenAI-compatible local LLM, and a Piper (or OpenAI) voice.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/jarv1s/jarv1s/internal/config"
	"github.com/jarv1s/jarv1s/internal/log"
	"github.com/jarv1s/jarv1s/pkg/fallback"
	"github.com/jarv1s/jarv1s/pkg/health"
	"github.com/jarv1s/jarv1s/pkg/llm"
	"github.com/jarv1s/jarv1s/pkg/orchestrator"
	"github.com/jarv1s/jarv1s/pkg/session"
	"github.com/jarv1s/jarv1s/pkg/stt"
	"github.com/jarv1s/jarv1s/pkg/tts"
	"github.com/jarv1s/jarv1s/pkg/web"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	port := cli.IntP("port", "p", 0, "HTTP port (overrides PORT)")
	logLevel := cli.StringP("log", "l", "", "Log level (overrides LOG_LEVEL)")
	requestLog := cli.Bool("request-log", false, "Log every HTTP request")
	cli.Parse()

	godotenv.Load(*envFile)

	cfg := config.Load()
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log.Init(cfg.LogLevel)
	log.Info("booting", "app", config.AppName, "version", config.AppVersion)

	transcriber, err := stt.NewWhisper(
		stt.WithModelPath(cfg.STT.ModelPath),
		stt.WithLanguage(cfg.STT.Language),
		stt.WithThreads(cfg.STT.Threads),
	)
	if err != nil {
		log.Error("failed to load whisper model", "path", cfg.STT.ModelPath, "error", err)
		os.Exit(1)
	}
	defer transcriber.Close()

	responder, err := llm.NewClient(
		llm.WithBaseURL(cfg.LLM.BaseURL),
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithModel(cfg.LLM.Model),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTimeout(cfg.LLM.Timeout),
	)
	if err != nil {
		log.Error("failed to create llm client", "error", err)
		os.Exit(1)
	}
	defer responder.Close()

	synthesizer, err := newSynthesizer(cfg.TTS)
	if err != nil {
		log.Error("failed to create tts provider", "provider", cfg.TTS.Provider, "error", err)
		os.Exit(1)
	}
	defer synthesizer.Close()

	store := session.NewStore(cfg.LLM.SystemPrompt, cfg.LLM.MaxHistoryPairs)

	fallbacks := fallback.NewCache(synthesizer, map[fallback.Scenario]string{
		fallback.ScenarioNoTranscription: cfg.Fallback.NoTranscription,
		fallback.ScenarioInternalError:   cfg.Fallback.InternalError,
	})
	preloadCtx, cancelPreload := context.WithTimeout(context.Background(), 30*time.Second)
	if err := fallbacks.Preload(preloadCtx); err != nil {
		log.Warn("fallback preload incomplete, degraded entries serve text only", "error", err)
	}
	cancelPreload()

	orch := orchestrator.New(transcriber, responder, synthesizer, store, fallbacks)

	reporter := health.NewReporter(5 * time.Second)
	reporter.Register("stt", transcriber.Health)
	reporter.Register("llm", responder.Health)
	reporter.Register("tts", synthesizer.Health)
	reporter.SetModel("whisper", cfg.STT.ModelPath)
	reporter.SetModel("tts_voice", cfg.TTS.Voice)

	server := web.NewServer(orch, reporter, web.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		RequestLog:  *requestLog,
	})

	go func() {
		if err := server.Listen(cfg.Server.Addr()); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}

	log.Info("goodbye")
}

func newSynthesizer(cfg config.TTS) (tts.Provider, error) {
	switch cfg.Provider {
	case "openai":
		return tts.NewOpenAI(
			tts.WithAPIKey(cfg.OpenAIKey),
			tts.WithVoice(cfg.Voice),
			tts.WithTimeout(cfg.Timeout),
		)
	case "chain":
		// Local Piper first, OpenAI as failover.
		piper, err := tts.NewPiper(
			tts.WithBaseURL(cfg.PiperURL),
			tts.WithVoice(cfg.Voice),
			tts.WithSampleRate(cfg.SampleRate),
			tts.WithTimeout(cfg.Timeout),
		)
		if err != nil {
			return nil, err
		}
		openai, err := tts.NewOpenAI(
			tts.WithAPIKey(cfg.OpenAIKey),
			tts.WithTimeout(cfg.Timeout),
		)
		if err != nil {
			return nil, err
		}
		return tts.NewChain(piper, openai)
	default:
		return tts.NewPiper(
			tts.WithBaseURL(cfg.PiperURL),
			tts.WithVoice(cfg.Voice),
			tts.WithSampleRate(cfg.SampleRate),
			tts.WithTimeout(cfg.Timeout),
		)
	}
}
