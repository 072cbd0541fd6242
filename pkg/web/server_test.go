package web_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarv1s/jarv1s/pkg/fallback"
	"github.com/jarv1s/jarv1s/pkg/health"
	"github.com/jarv1s/jarv1s/pkg/llm"
	"github.com/jarv1s/jarv1s/pkg/orchestrator"
	"github.com/jarv1s/jarv1s/pkg/session"
	"github.com/jarv1s/jarv1s/pkg/stt"
	"github.com/jarv1s/jarv1s/pkg/tts"
	"github.com/jarv1s/jarv1s/pkg/web"
)

func newServer(t *testing.T, transcriber stt.Transcriber) *web.Server {
	t.Helper()

	cache := fallback.NewCache(tts.NewMock(), map[fallback.Scenario]string{
		fallback.ScenarioNoTranscription: "Sorry, I didn't hear you clearly. Could you repeat that?",
		fallback.ScenarioInternalError:   "I'm sorry, I'm having a technical issue. Please try again in a moment.",
	})
	if err := cache.Preload(context.Background()); err != nil {
		t.Fatalf("preload: %v", err)
	}

	store := session.NewStore("system", 5)
	orch := orchestrator.New(transcriber, llm.NewMock(), tts.NewMock(), store, cache)

	reporter := health.NewReporter(time.Second)
	reporter.Register("stt", func(ctx context.Context) error { return transcriber.Health(ctx) })
	reporter.Register("llm", func(ctx context.Context) error { return nil })
	reporter.Register("tts", func(ctx context.Context) error { return nil })
	reporter.SetModel("whisper", "models/ggml-base.bin")
	reporter.SetModel("tts_voice", "test-voice")

	return web.NewServer(orch, reporter, web.Options{})
}

func multipartAudio(t *testing.T, field string, payload []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, "speech.wav")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(payload); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestRootEndpoint(t *testing.T) {
	srv := newServer(t, stt.NewMock("hello"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	decodeJSON(t, resp, &body)
	if body["name"] == "" || body["version"] == "" {
		t.Errorf("expected service identity, got %v", body)
	}
	if body["status"] != "online" {
		t.Errorf("expected status online, got %q", body["status"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newServer(t, stt.WithError(errors.New("model not loaded")))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var report health.Report
	decodeJSON(t, resp, &report)
	if report.Status != health.StatusDegraded {
		t.Errorf("expected degraded, got %s", report.Status)
	}
	if report.Services["stt"] != health.StatusUnavailable {
		t.Errorf("expected stt unavailable, got %s", report.Services["stt"])
	}
	if report.Services["llm"] != health.StatusOperational {
		t.Errorf("expected llm operational, got %s", report.Services["llm"])
	}
	if report.Models["whisper"] == "" {
		t.Error("expected whisper model in report")
	}
}

func TestInteractMissingUpload(t *testing.T) {
	srv := newServer(t, stt.NewMock("hello"))

	req := httptest.NewRequest(http.MethodPost, "/interact", nil)
	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing upload, got %d", resp.StatusCode)
	}
}

func TestInteractWrongFieldName(t *testing.T) {
	srv := newServer(t, stt.NewMock("hello"))

	body, contentType := multipartAudio(t, "file", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/interact", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for wrong field name, got %d", resp.StatusCode)
	}
}

func TestInteract(t *testing.T) {
	srv := newServer(t, stt.NewMock("what time is it"))

	body, contentType := multipartAudio(t, "audio_file", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/interact", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Transcription  string             `json:"transcription"`
		Response       string             `json:"response"`
		AudioBase64    string             `json:"audio_base64"`
		Fallback       string             `json:"fallback"`
		ProcessingTime map[string]float64 `json:"processing_time"`
	}
	decodeJSON(t, resp, &payload)

	if payload.Transcription != "what time is it" {
		t.Errorf("unexpected transcription: %q", payload.Transcription)
	}
	if payload.Response != "echo: what time is it" {
		t.Errorf("unexpected response: %q", payload.Response)
	}
	if payload.Fallback != "" {
		t.Errorf("unexpected fallback: %q", payload.Fallback)
	}
	if _, err := base64.StdEncoding.DecodeString(payload.AudioBase64); err != nil {
		t.Errorf("audio_base64 does not decode: %v", err)
	}
	if len(payload.AudioBase64) == 0 {
		t.Error("expected audio payload")
	}
	for _, key := range []string{"stt", "llm", "tts", "total"} {
		if _, ok := payload.ProcessingTime[key]; !ok {
			t.Errorf("missing processing_time key %q", key)
		}
	}
}

func TestInteractPipelineFailureStays200(t *testing.T) {
	srv := newServer(t, stt.WithError(errors.New("model crashed")))

	body, contentType := multipartAudio(t, "audio_file", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/interact", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := srv.App().Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pipeline failures must answer 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Response string `json:"response"`
		Fallback string `json:"fallback"`
	}
	decodeJSON(t, resp, &payload)
	if payload.Fallback != string(fallback.ScenarioInternalError) {
		t.Errorf("expected internal_error fallback, got %q", payload.Fallback)
	}
	if payload.Response == "" {
		t.Error("expected spoken fallback text")
	}
}

func TestResetAndConversationInfo(t *testing.T) {
	srv := newServer(t, stt.NewMock("hello"))

	// One interaction commits a pair.
	body, contentType := multipartAudio(t, "audio_file", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/interact", body)
	req.Header.Set("Content-Type", contentType)
	if _, err := srv.App().Test(req); err != nil {
		t.Fatalf("interact failed: %v", err)
	}

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/conversation/info", nil))
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	var info session.Info
	decodeJSON(t, resp, &info)
	if info.PairCount != 1 || info.MessageCount != 3 {
		t.Errorf("unexpected info: %+v", info)
	}

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodPost, "/reset", nil))
	if err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from reset, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = srv.App().Test(httptest.NewRequest(http.MethodGet, "/conversation/info", nil))
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	decodeJSON(t, resp, &info)
	if info.PairCount != 0 || info.MessageCount != 1 {
		t.Errorf("unexpected info after reset: %+v", info)
	}
}
