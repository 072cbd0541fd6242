// Package orchestrator runs the speech-in, speech-out interaction
// pipeline: transcribe the uploaded audio, ask the language model for a
// reply with conversation context, and synthesize the reply as audio.
//
// Domain failures never escape as errors. Every stage failure is
// contained into a cached fallback response so the caller always gets a
// speakable answer.
package orchestrator

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/jarv1s/jarv1s/pkg/fallback"
	"github.com/jarv1s/jarv1s/pkg/llm"
	"github.com/jarv1s/jarv1s/pkg/session"
	"github.com/jarv1s/jarv1s/pkg/stt"
	"github.com/jarv1s/jarv1s/pkg/tts"
)

// Result is the outcome of one interaction. It is always populated,
// whether the pipeline completed or a fallback was served.
type Result struct {
	// Transcription is the recognized user speech; empty when nothing
	// was recognized.
	Transcription string

	// Text is the spoken reply, either the model's answer or a
	// fallback message.
	Text string

	// Audio holds the synthesized reply as a WAV buffer. Nil when the
	// served fallback has no preloaded audio.
	Audio []byte

	// SampleRate of Audio in Hz; zero when Audio is nil.
	SampleRate int

	// Fallback names the scenario that was served, empty on the happy
	// path.
	Fallback fallback.Scenario

	// Timings holds per-stage durations in seconds, rounded to
	// milliseconds. Only stages that ran are present; "total" always is.
	Timings map[string]float64
}

// Orchestrator wires the capability adapters to the conversation store.
type Orchestrator struct {
	transcriber stt.Transcriber
	responder   llm.Responder
	synthesizer tts.Provider
	store       *session.Store
	fallbacks   *fallback.Cache
	logger      *slog.Logger

	// exchange serializes history mutation so concurrent interactions
	// commit whole user/assistant pairs, never interleaved turns.
	exchange sync.Mutex
}

// New creates an orchestrator over the given adapters and store.
func New(
	transcriber stt.Transcriber,
	responder llm.Responder,
	synthesizer tts.Provider,
	store *session.Store,
	fallbacks *fallback.Cache,
) *Orchestrator {
	return &Orchestrator{
		transcriber: transcriber,
		responder:   responder,
		synthesizer: synthesizer,
		store:       store,
		fallbacks:   fallbacks,
		logger:      slog.Default().With("component", "orchestrator"),
	}
}

// HandleInteraction runs the full pipeline over one uploaded audio
// payload. The returned error is reserved for programmer mistakes;
// stage failures come back as a Result carrying a fallback scenario.
func (o *Orchestrator) HandleInteraction(ctx context.Context, audio []byte) (*Result, error) {
	start := time.Now()
	timings := make(map[string]float64, 4)

	sttStart := time.Now()
	transcript, err := o.transcribe(ctx, audio)
	timings["stt"] = seconds(time.Since(sttStart))
	if err != nil {
		o.logger.Error("transcription failed", "error", err)
		return o.fallbackResult(fallback.ScenarioInternalError, "", start, timings), nil
	}

	if transcript == "" {
		o.logger.Info("empty transcription, serving fallback")
		return o.fallbackResult(fallback.ScenarioNoTranscription, "", start, timings), nil
	}

	reply, err := o.runExchange(ctx, transcript, timings)
	if err != nil {
		o.logger.Error("reply generation failed", "error", err)
		return o.fallbackResult(fallback.ScenarioInternalError, transcript, start, timings), nil
	}

	// The pair is committed; synthesis runs outside the exchange mutex
	// so concurrent requests do not serialize behind one voice call.
	ttsStart := time.Now()
	synth, err := o.synthesizer.Synthesize(ctx, reply.Text)
	timings["tts"] = seconds(time.Since(ttsStart))
	if err != nil {
		// The exchange stays in history; only the spoken response
		// degrades to the canned fallback.
		o.logger.Error("synthesis failed", "error", err)
		return o.fallbackResult(fallback.ScenarioInternalError, transcript, start, timings), nil
	}

	timings["total"] = seconds(time.Since(start))

	o.logger.Info("interaction complete",
		"transcript_chars", len(transcript),
		"reply_chars", len(reply.Text),
		"total_s", timings["total"],
	)

	return &Result{
		Transcription: transcript,
		Text:          reply.Text,
		Audio:         synth.Audio,
		SampleRate:    synth.Format.SampleRate,
		Timings:       timings,
	}, nil
}

// Reset clears the conversation history back to the system turn.
func (o *Orchestrator) Reset() {
	o.exchange.Lock()
	defer o.exchange.Unlock()
	o.store.Reset()
}

// Info reports the current conversation state.
func (o *Orchestrator) Info() session.Info {
	return o.store.Info()
}

// runExchange commits one user/assistant exchange under the exchange
// mutex: append user → snapshot → reply → append assistant → trim. The
// user turn is committed before the reply and stays committed even when
// the reply fails: it reflects what the user said. The mutex covers
// only this sequence; synthesis happens after it is released.
func (o *Orchestrator) runExchange(ctx context.Context, transcript string, timings map[string]float64) (*llm.Response, error) {
	o.exchange.Lock()
	defer o.exchange.Unlock()

	o.store.AppendUser(transcript)
	messages := o.store.Snapshot()

	llmStart := time.Now()
	reply, err := o.responder.Reply(ctx, messages)
	timings["llm"] = seconds(time.Since(llmStart))
	if err != nil {
		return nil, err
	}

	o.store.AppendAssistant(reply.Text)
	o.store.Trim()
	return reply, nil
}

func (o *Orchestrator) transcribe(ctx context.Context, audio []byte) (string, error) {
	result, err := o.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

func (o *Orchestrator) fallbackResult(scenario fallback.Scenario, transcript string, start time.Time, timings map[string]float64) *Result {
	timings["total"] = seconds(time.Since(start))

	result := &Result{
		Transcription: transcript,
		Fallback:      scenario,
		Timings:       timings,
	}

	entry, ok := o.fallbacks.Get(scenario)
	if !ok {
		// Should not happen; the cache is seeded with every scenario.
		o.logger.Error("missing fallback entry", "scenario", scenario)
		return result
	}

	result.Text = entry.Text
	result.Audio = entry.Audio
	result.SampleRate = entry.SampleRate
	return result
}

func seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}
