package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jarv1s/jarv1s/pkg/fallback"
	"github.com/jarv1s/jarv1s/pkg/llm"
	"github.com/jarv1s/jarv1s/pkg/orchestrator"
	"github.com/jarv1s/jarv1s/pkg/session"
	"github.com/jarv1s/jarv1s/pkg/stt"
	"github.com/jarv1s/jarv1s/pkg/tts"
)

func newCache(t *testing.T) *fallback.Cache {
	t.Helper()
	cache := fallback.NewCache(tts.NewMock(), map[fallback.Scenario]string{
		fallback.ScenarioNoTranscription: "Sorry, I didn't hear you clearly. Could you repeat that?",
		fallback.ScenarioInternalError:   "I'm sorry, I'm having a technical issue. Please try again in a moment.",
	})
	if err := cache.Preload(context.Background()); err != nil {
		t.Fatalf("preload: %v", err)
	}
	return cache
}

func TestHandleInteraction(t *testing.T) {
	store := session.NewStore("system", 5)
	orch := orchestrator.New(
		stt.NewMock("what time is it"),
		llm.NewMock(),
		tts.NewMock(),
		store,
		newCache(t),
	)

	result, err := orch.HandleInteraction(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Transcription != "what time is it" {
		t.Errorf("unexpected transcription: %q", result.Transcription)
	}
	if result.Text != "echo: what time is it" {
		t.Errorf("unexpected reply: %q", result.Text)
	}
	if len(result.Audio) == 0 {
		t.Error("expected synthesized audio")
	}
	if result.Fallback != "" {
		t.Errorf("unexpected fallback scenario: %s", result.Fallback)
	}
	for _, key := range []string{"stt", "llm", "tts", "total"} {
		if _, ok := result.Timings[key]; !ok {
			t.Errorf("missing timing %q", key)
		}
	}

	// The exchange landed as one pair after the system turn.
	history := store.Snapshot()
	if len(history) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(history))
	}
	if history[1].Content != "what time is it" || history[2].Content != "echo: what time is it" {
		t.Errorf("unexpected committed exchange: %+v", history[1:])
	}
}

func TestHandleInteractionEmptyTranscript(t *testing.T) {
	store := session.NewStore("system", 5)
	responder := llm.NewMock()
	synthesizer := tts.NewMock()
	orch := orchestrator.New(stt.NewMock("   "), responder, synthesizer, store, newCache(t))

	result, err := orch.HandleInteraction(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Fallback != fallback.ScenarioNoTranscription {
		t.Errorf("expected no_transcription fallback, got %q", result.Fallback)
	}
	if result.Transcription != "" {
		t.Errorf("expected empty transcription, got %q", result.Transcription)
	}
	if !strings.Contains(result.Text, "didn't hear you") {
		t.Errorf("unexpected fallback text: %q", result.Text)
	}
	if len(result.Audio) == 0 {
		t.Error("expected preloaded fallback audio")
	}

	// Neither downstream stage ran.
	if responder.CallCount("Reply") != 0 {
		t.Error("responder must not run on an empty transcript")
	}
	if synthesizer.CallCount("Synthesize") != 0 {
		t.Error("synthesizer must not run on an empty transcript")
	}
	if len(store.Snapshot()) != 1 {
		t.Error("history must be untouched")
	}
}

func TestHandleInteractionTranscriptionFailure(t *testing.T) {
	store := session.NewStore("system", 5)
	orch := orchestrator.New(
		stt.WithError(errors.New("model not loaded")),
		llm.NewMock(),
		tts.NewMock(),
		store,
		newCache(t),
	)

	result, err := orch.HandleInteraction(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Fallback != fallback.ScenarioInternalError {
		t.Errorf("expected internal_error fallback, got %q", result.Fallback)
	}
	if _, ok := result.Timings["stt"]; !ok {
		t.Error("expected stt timing for the stage that ran")
	}
	if _, ok := result.Timings["llm"]; ok {
		t.Error("llm timing must be absent for a stage that never ran")
	}
	if _, ok := result.Timings["total"]; !ok {
		t.Error("total timing must always be present")
	}
}

func TestHandleInteractionReplyFailure(t *testing.T) {
	store := session.NewStore("system", 5)
	orch := orchestrator.New(
		stt.NewMock("hello"),
		llm.WithError(errors.New("backend down")),
		tts.NewMock(),
		store,
		newCache(t),
	)

	result, err := orch.HandleInteraction(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Fallback != fallback.ScenarioInternalError {
		t.Errorf("expected internal_error fallback, got %q", result.Fallback)
	}
	if result.Transcription != "hello" {
		t.Errorf("transcription must survive a reply failure, got %q", result.Transcription)
	}

	// The user turn stays committed; no assistant turn joins it.
	history := store.Snapshot()
	if len(history) != 2 {
		t.Fatalf("expected system + user turn, got %d messages", len(history))
	}
	if history[1].Role != llm.RoleUser || history[1].Content != "hello" {
		t.Errorf("unexpected retained turn: %+v", history[1])
	}
}

func TestHandleInteractionSynthesisFailure(t *testing.T) {
	store := session.NewStore("system", 5)
	orch := orchestrator.New(
		stt.NewMock("hello"),
		llm.NewMock(),
		tts.WithError(errors.New("voice daemon down")),
		store,
		newCache(t),
	)

	result, err := orch.HandleInteraction(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Fallback != fallback.ScenarioInternalError {
		t.Errorf("expected internal_error fallback, got %q", result.Fallback)
	}
	if !strings.Contains(result.Text, "technical issue") {
		t.Errorf("reply text must be discarded in favor of the fallback, got %q", result.Text)
	}

	// The exchange already landed; only the response degraded.
	history := store.Snapshot()
	if len(history) != 3 {
		t.Fatalf("expected system + committed pair, got %d messages", len(history))
	}
	if history[2].Content != "echo: hello" {
		t.Errorf("expected committed assistant turn, got %+v", history[2])
	}
}

func TestHandleInteractionTextOnlyFallback(t *testing.T) {
	store := session.NewStore("system", 5)
	// Cache whose preload failed: entries carry text but no audio.
	cache := fallback.NewCache(tts.WithError(errors.New("down")), map[fallback.Scenario]string{
		fallback.ScenarioNoTranscription: "Could you repeat that?",
		fallback.ScenarioInternalError:   "Please try again in a moment.",
	})
	_ = cache.Preload(context.Background())

	orch := orchestrator.New(stt.NewMock(""), llm.NewMock(), tts.NewMock(), store, cache)

	result, err := orch.HandleInteraction(context.Background(), []byte("audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Text == "" {
		t.Error("expected fallback text even without audio")
	}
	if result.Audio != nil {
		t.Error("expected no audio when preload failed")
	}
}

func TestResetAndInfo(t *testing.T) {
	store := session.NewStore("system", 5)
	orch := orchestrator.New(stt.NewMock("hi"), llm.NewMock(), tts.NewMock(), store, newCache(t))

	if _, err := orch.HandleInteraction(context.Background(), []byte("audio")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info := orch.Info(); info.PairCount != 1 {
		t.Errorf("expected 1 pair, got %d", info.PairCount)
	}

	orch.Reset()
	if info := orch.Info(); info.MessageCount != 1 || info.PairCount != 0 {
		t.Errorf("unexpected info after reset: %+v", orch.Info())
	}
}

func TestSynthesisRunsOutsideExchangeMutex(t *testing.T) {
	store := session.NewStore("system", 10)

	transcriber := &stt.Mock{}
	transcriber.TranscribeFunc = func(ctx context.Context, audio []byte) (*stt.Result, error) {
		return &stt.Result{Text: string(audio)}, nil
	}

	// Each synthesis call parks until both interactions have reached it.
	// If one request held the exchange mutex through synthesis, the
	// second could never arrive.
	arrived := make(chan struct{}, 2)
	release := make(chan struct{})
	synthesizer := tts.NewMock()
	synthesizer.SynthesizeFunc = func(ctx context.Context, text string) (*tts.AudioResult, error) {
		arrived <- struct{}{}
		<-release
		return &tts.AudioResult{
			Audio:  []byte("wav"),
			Format: tts.AudioFormat{Encoding: tts.EncodingWAV, SampleRate: 22050},
		}, nil
	}

	orch := orchestrator.New(transcriber, llm.NewMock(), synthesizer, store, newCache(t))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf("utterance-%d", i))
			if _, err := orch.HandleInteraction(context.Background(), payload); err != nil {
				t.Errorf("interaction %d: %v", i, err)
			}
		}(i)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-arrived:
		case <-time.After(2 * time.Second):
			t.Fatal("second synthesis never started: synthesis is serialized behind the exchange mutex")
		}
	}
	close(release)
	wg.Wait()

	history := store.Snapshot()
	if len(history) != 5 {
		t.Fatalf("expected system + 2 pairs, got %d messages", len(history))
	}
	for i := 1; i < len(history); i += 2 {
		if history[i+1].Content != "echo: "+history[i].Content {
			t.Errorf("pair at %d interleaved: user %q, assistant %q",
				i, history[i].Content, history[i+1].Content)
		}
	}
}

func TestConcurrentInteractionsCommitWholePairs(t *testing.T) {
	store := session.NewStore("system", 100)

	transcriber := &stt.Mock{}
	transcriber.TranscribeFunc = func(ctx context.Context, audio []byte) (*stt.Result, error) {
		return &stt.Result{Text: string(audio)}, nil
	}

	orch := orchestrator.New(transcriber, llm.NewMock(), tts.NewMock(), store, newCache(t))

	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := []byte(fmt.Sprintf("utterance-%d", i))
			if _, err := orch.HandleInteraction(context.Background(), payload); err != nil {
				t.Errorf("interaction %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	history := store.Snapshot()
	if len(history) != 1+2*n {
		t.Fatalf("expected %d messages, got %d", 1+2*n, len(history))
	}

	// Every user turn must be directly followed by its own reply.
	for i := 1; i < len(history); i += 2 {
		user, assistant := history[i], history[i+1]
		if user.Role != llm.RoleUser || assistant.Role != llm.RoleAssistant {
			t.Fatalf("messages %d/%d: roles out of order: %s, %s", i, i+1, user.Role, assistant.Role)
		}
		if assistant.Content != "echo: "+user.Content {
			t.Errorf("pair at %d interleaved: user %q, assistant %q", i, user.Content, assistant.Content)
		}
	}
}
