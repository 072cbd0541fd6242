// Package fallback keeps pre-synthesized spoken responses for known
// failure scenarios so an interaction can answer instantly, without a
// live synthesis call, when the pipeline degrades.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jarv1s/jarv1s/pkg/tts"
)

// Scenario identifies a failure mode with a canned response.
type Scenario string

const (
	// ScenarioNoTranscription is served when speech recognition produces
	// an empty transcript.
	ScenarioNoTranscription Scenario = "no_transcription"

	// ScenarioInternalError is served when any pipeline stage fails.
	ScenarioInternalError Scenario = "internal_error"
)

// Entry is a cached response for one scenario. Audio may be nil when
// preloading failed; the text is always present.
type Entry struct {
	Scenario   Scenario
	Text       string
	Audio      []byte
	SampleRate int
}

// Cache holds one entry per scenario. Lookups are safe for concurrent
// use with reloads.
type Cache struct {
	mu       sync.RWMutex
	entries  map[Scenario]*Entry
	provider tts.Provider
	logger   *slog.Logger
}

// NewCache creates a cache with the given scenario texts. Entries start
// text-only; call Preload to synthesize their audio.
func NewCache(provider tts.Provider, texts map[Scenario]string) *Cache {
	c := &Cache{
		entries:  make(map[Scenario]*Entry, len(texts)),
		provider: provider,
		logger:   slog.Default().With("component", "fallback"),
	}
	for scenario, text := range texts {
		c.entries[scenario] = &Entry{Scenario: scenario, Text: text}
	}
	return c
}

// Preload synthesizes audio for every scenario. A synthesis failure
// leaves that entry text-only and is reported in the returned error,
// but never prevents the cache from serving.
func (c *Cache) Preload(ctx context.Context) error {
	c.mu.RLock()
	scenarios := make([]Scenario, 0, len(c.entries))
	for s := range c.entries {
		scenarios = append(scenarios, s)
	}
	c.mu.RUnlock()

	var errs []error
	for _, scenario := range scenarios {
		if err := c.Reload(ctx, scenario); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("preload incomplete: %d of %d scenarios failed: %w",
			len(errs), len(scenarios), errs[0])
	}

	c.logger.Info("fallback responses preloaded", "scenarios", len(scenarios))
	return nil
}

// Reload re-synthesizes the audio for one scenario.
func (c *Cache) Reload(ctx context.Context, scenario Scenario) error {
	c.mu.RLock()
	entry, ok := c.entries[scenario]
	text := ""
	if ok {
		text = entry.Text
	}
	c.mu.RUnlock()

	if !ok {
		return fmt.Errorf("unknown fallback scenario %q", scenario)
	}

	result, err := c.provider.Synthesize(ctx, text)
	if err != nil {
		c.logger.Warn("fallback synthesis failed, entry stays text-only",
			"scenario", scenario,
			"error", err,
		)
		return fmt.Errorf("synthesize %q: %w", scenario, err)
	}

	c.mu.Lock()
	c.entries[scenario] = &Entry{
		Scenario:   scenario,
		Text:       text,
		Audio:      result.Audio,
		SampleRate: result.Format.SampleRate,
	}
	c.mu.Unlock()

	c.logger.Debug("fallback entry loaded",
		"scenario", scenario,
		"bytes", len(result.Audio),
	)
	return nil
}

// Get returns the entry for a scenario. The boolean is false when the
// scenario was never registered.
func (c *Cache) Get(scenario Scenario) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[scenario]
	if !ok {
		return nil, false
	}
	// Shallow copy so callers cannot swap the cached audio.
	cp := *entry
	return &cp, true
}
