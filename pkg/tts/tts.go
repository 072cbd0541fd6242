// Package tts provides a unified interface for text-to-speech providers.
//
// The package supports a local Piper daemon (the default, fully offline) and
// OpenAI's speech API. All providers implement the Provider interface,
// enabling seamless switching without changing caller code, and Chain
// composes several providers into an ordered failover.
//
// Example usage:
//
//	provider, _ := tts.NewPiper(
//	    tts.WithBaseURL("http://localhost:5000"),
//	    tts.WithSampleRate(22050),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Hello world")
//	// result.Audio contains a playable WAV file
package tts

import "context"

// Provider defines the TTS provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and readiness.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the synthesis wall time in milliseconds.
	LatencyMs int64
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the container/codec.
	Encoding Encoding

	// SampleRate in Hz (e.g., 22050, 24000, 44100).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (e.g., 16 for PCM16).
	BitDepth int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// EncodingWAV is a RIFF/WAV container with PCM16 samples.
	EncodingWAV Encoding = "wav"

	// EncodingMP3 is MP3 compressed audio.
	EncodingMP3 Encoding = "mp3"
)
