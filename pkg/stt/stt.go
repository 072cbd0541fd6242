// Package stt provides speech-to-text transcription.
//
// The package defines a Transcriber interface with a local whisper.cpp
// implementation. Uploaded audio in any supported container is normalized
// to 16 kHz mono by pkg/audioconv before inference.
//
// Example usage:
//
//	tr, _ := stt.NewWhisper(
//	    stt.WithModelPath("models/stt/ggml-small.bin"),
//	    stt.WithLanguage("auto"),
//	)
//	defer tr.Close()
//
//	result, _ := tr.Transcribe(ctx, uploadBytes)
//	// result.Text holds the joined transcript; it may be empty for silence.
package stt

import "context"

// Transcriber converts raw audio bytes to text.
// An empty transcript is a valid result, not an error.
type Transcriber interface {
	// Transcribe decodes and transcribes an audio payload.
	Transcribe(ctx context.Context, audio []byte) (*Result, error)

	// Health reports whether the transcriber is ready to serve.
	Health(ctx context.Context) error

	// Close releases the model and any resources.
	Close() error
}

// Result is a completed transcription.
type Result struct {
	// Text is the full transcript, segments joined with single spaces.
	// Empty or whitespace-only text means nothing intelligible was heard.
	Text string

	// Segments are the individual recognized spans.
	Segments []Segment

	// Language is the detected or forced language code.
	Language string

	// LatencyMs is the inference wall time in milliseconds.
	LatencyMs int64
}

// Segment is one recognized span of speech.
type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}
