package stt

import "log/slog"

// Config holds transcriber configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// ModelPath is the path to the ggml model file.
	ModelPath string

	// Language is the language code ("auto" enables detection).
	Language string

	// Threads is the inference thread count; <=0 uses all CPUs.
	Threads int

	// InitialPrompt biases decoding toward a domain vocabulary.
	InitialPrompt string

	// MaxAudioSeconds caps decoded audio length; 0 means no cap.
	MaxAudioSeconds int

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Option is a functional option for configuring transcribers.
type Option func(*Config)

// WithModelPath sets the ggml model file path.
func WithModelPath(path string) Option {
	return func(c *Config) { c.ModelPath = path }
}

// WithLanguage sets the language code ("auto" for detection).
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithThreads sets the inference thread count.
func WithThreads(n int) Option {
	return func(c *Config) { c.Threads = n }
}

// WithInitialPrompt sets a decoding prompt.
func WithInitialPrompt(prompt string) Option {
	return func(c *Config) { c.InitialPrompt = prompt }
}

// WithMaxAudioSeconds caps the decoded audio length.
func WithMaxAudioSeconds(sec int) Option {
	return func(c *Config) { c.MaxAudioSeconds = sec }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Language:        "auto",
		MaxAudioSeconds: 120,
		Logger:          slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return ErrNoModelPath
	}
	return nil
}
