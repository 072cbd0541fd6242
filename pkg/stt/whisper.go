package stt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/jarv1s/jarv1s/pkg/audioconv"
)

const providerWhisper = "whisper"

// Whisper implements Transcriber on a local whisper.cpp model.
type Whisper struct {
	config *Config
	logger *slog.Logger

	mu    sync.Mutex
	model whisper.Model
}

// NewWhisper loads the configured ggml model and returns a ready transcriber.
// Loading can take seconds for larger models; do it once at startup.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger.With("component", "stt.whisper")
	logger.Info("loading whisper model", "path", cfg.ModelPath)

	model, err := whisper.New(cfg.ModelPath)
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("load model: %w", err))
	}

	logger.Info("whisper model loaded")

	return &Whisper{
		config: cfg,
		logger: logger,
		model:  model,
	}, nil
}

// Transcribe decodes the payload to 16 kHz mono and runs whisper inference.
func (w *Whisper) Transcribe(ctx context.Context, audio []byte) (*Result, error) {
	start := time.Now()

	samples, err := audioconv.DecodePCM16k(audio, audioconv.Options{
		MaxSamples: w.config.MaxAudioSeconds * audioconv.TargetSampleRate,
	})
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("decode audio: %w", err))
	}

	// whisper.cpp contexts are not safe for concurrent use on one model.
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.model == nil {
		return nil, WrapError(providerWhisper, ErrModelNotLoaded)
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("new context: %w", err))
	}

	lang := w.config.Language
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("set language: %w", err))
	}

	threads := w.config.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if w.config.InitialPrompt != "" {
		wctx.SetInitialPrompt(w.config.InitialPrompt)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return nil, WrapError(providerWhisper, fmt.Errorf("process: %w", err))
	}

	var (
		segments []Segment
		parts    []string
	)
	for {
		select {
		case <-ctx.Done():
			return nil, WrapError(providerWhisper, ctx.Err())
		default:
		}

		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, WrapError(providerWhisper, fmt.Errorf("next segment: %w", err))
		}
		text := strings.TrimSpace(seg.Text)
		segments = append(segments, Segment{
			Text:     text,
			StartSec: seg.Start.Seconds(),
			EndSec:   seg.End.Seconds(),
		})
		if text != "" {
			parts = append(parts, text)
		}
	}

	detected := wctx.DetectedLanguage()
	if detected == "" {
		detected = wctx.Language()
	}

	result := &Result{
		Text:      strings.Join(parts, " "),
		Segments:  segments,
		Language:  detected,
		LatencyMs: time.Since(start).Milliseconds(),
	}

	w.logger.Debug("transcription completed",
		"chars", len(result.Text),
		"segments", len(segments),
		"language", detected,
		"latency_ms", result.LatencyMs,
	)

	return result, nil
}

// Health reports whether the model is loaded.
func (w *Whisper) Health(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return WrapError(providerWhisper, ErrModelNotLoaded)
	}
	return nil
}

// Close releases the model.
func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.model == nil {
		return nil
	}
	err := w.model.Close()
	w.model = nil
	return err
}

// Verify Whisper implements Transcriber at compile time.
var _ Transcriber = (*Whisper)(nil)
