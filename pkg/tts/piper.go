package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jarv1s/jarv1s/internal/httpc"
	"github.com/jarv1s/jarv1s/pkg/audioconv"
)

const providerPiper = "piper"

// Piper implements Provider against a local Piper HTTP daemon running in
// raw-output mode. The daemon returns headerless PCM16 mono at the voice's
// native sample rate; the provider frames it as WAV for callers.
type Piper struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewPiper creates a new Piper TTS provider.
func NewPiper(opts ...Option) (*Piper, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = "http://localhost:5000"
	cfg.Apply(opts...)

	if cfg.BaseURL == "" {
		return nil, ErrNoBaseURL
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("tts [%s]: invalid sample rate %d", providerPiper, cfg.SampleRate)
	}

	return &Piper{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "tts.piper"),
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// Synthesize converts text to a WAV audio buffer.
func (p *Piper) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(providerPiper, ErrEmptyText)
	}

	start := time.Now()

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, WrapError(providerPiper, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, WrapError(providerPiper, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, WrapError(providerPiper, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Provider:   providerPiper,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerPiper, fmt.Errorf("read response: %w", err))
	}
	if len(raw) == 0 {
		return nil, WrapError(providerPiper, fmt.Errorf("daemon returned no audio"))
	}

	wavBytes, err := audioconv.EncodeWAV(raw, p.config.SampleRate)
	if err != nil {
		return nil, WrapError(providerPiper, err)
	}

	latency := time.Since(start).Milliseconds()
	p.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(wavBytes),
		"latency_ms", latency,
		"voice", p.config.Voice,
	)

	return &AudioResult{
		Audio: wavBytes,
		Format: AudioFormat{
			Encoding:   EncodingWAV,
			SampleRate: p.config.SampleRate,
			Channels:   1,
			BitDepth:   16,
		},
		CharCount: len(text),
		LatencyMs: latency,
	}, nil
}

// Health checks daemon reachability.
func (p *Piper) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/", nil)
	if err != nil {
		return WrapError(providerPiper, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return WrapError(providerPiper, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status, Provider: providerPiper}
	}
	return nil
}

// Close releases resources.
func (p *Piper) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// Voice returns the configured voice name.
func (p *Piper) Voice() string {
	return p.config.Voice
}

// Verify Piper implements Provider at compile time.
var _ Provider = (*Piper)(nil)
