// Package session maintains the conversation history shared by every
// interaction: a pinned system turn followed by alternating user and
// assistant turns, trimmed to a bounded number of exchange pairs.
package session

import (
	"log/slog"
	"sync"

	"github.com/jarv1s/jarv1s/pkg/llm"
)

// Info is a point-in-time summary of the conversation state.
type Info struct {
	MessageCount    int `json:"message_count"`
	PairCount       int `json:"conversation_pairs"`
	MaxHistoryPairs int `json:"max_history_pairs"`
}

// Store holds the conversation history for a single session.
//
// Individual operations are safe for concurrent use. Callers that need a
// whole user/assistant exchange to land atomically must serialize the
// exchange themselves; the store only guarantees that each call observes
// a consistent history.
type Store struct {
	mu           sync.RWMutex
	systemPrompt string
	maxPairs     int
	history      []llm.Message
	logger       *slog.Logger
}

// NewStore creates a conversation store seeded with the system prompt.
// maxPairs bounds how many user/assistant pairs are retained. Zero is
// valid and means no pairs survive a trim, leaving only the system
// turn; negative values are treated as zero.
func NewStore(systemPrompt string, maxPairs int) *Store {
	if maxPairs < 0 {
		maxPairs = 0
	}
	s := &Store{
		systemPrompt: systemPrompt,
		maxPairs:     maxPairs,
		logger:       slog.Default().With("component", "session"),
	}
	s.history = []llm.Message{llm.NewSystemMessage(systemPrompt)}
	return s
}

// AppendUser records a user turn at the end of the history.
func (s *Store) AppendUser(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, llm.NewUserMessage(content))
}

// AppendAssistant records an assistant turn at the end of the history.
func (s *Store) AppendAssistant(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, llm.NewAssistantMessage(content))
}

// Snapshot returns a copy of the current history, system turn first.
// The caller may retain and mutate the returned slice freely.
func (s *Store) Snapshot() []llm.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Trim discards the oldest exchanges so that at most maxPairs pairs
// remain. The system turn is always kept; within the retained window the
// relative order of turns is unchanged.
func (s *Store) Trim() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// System turn plus two messages per pair.
	max := 1 + 2*s.maxPairs
	if len(s.history) <= max {
		return
	}

	evicted := len(s.history) - max
	trimmed := make([]llm.Message, 0, max)
	trimmed = append(trimmed, s.history[0])
	trimmed = append(trimmed, s.history[len(s.history)-(max-1):]...)
	s.history = trimmed

	s.logger.Debug("trimmed history", "evicted", evicted, "retained", len(s.history))
}

// Reset drops all turns and restores the initial state: a history
// containing only the system turn.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = []llm.Message{llm.NewSystemMessage(s.systemPrompt)}
	s.logger.Info("conversation reset")
}

// Info reports the current message count, completed pair count and the
// configured pair limit.
func (s *Store) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Info{
		MessageCount:    len(s.history),
		PairCount:       (len(s.history) - 1) / 2,
		MaxHistoryPairs: s.maxPairs,
	}
}
