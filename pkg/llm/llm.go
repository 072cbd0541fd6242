// Package llm provides the language-model responder for the voice pipeline.
//
// The Client speaks the OpenAI-compatible chat completions API, which covers
// OpenAI itself as well as local backends like LM Studio, Ollama, and vLLM.
//
// Example usage:
//
//	client, _ := llm.NewClient(
//	    llm.WithBaseURL("http://localhost:1234/v1"),
//	    llm.WithModel("lmstudio-local-model"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Reply(ctx, []llm.Message{
//	    llm.NewSystemMessage("You are a helpful copilot."),
//	    llm.NewUserMessage("Hello!"),
//	})
package llm

import "context"

// Responder generates a reply from a conversation history.
type Responder interface {
	// Reply generates the assistant's next message for the given history.
	// The history must start with a system message.
	Reply(ctx context.Context, history []Message) (*Response, error)

	// Health checks backend connectivity.
	Health(ctx context.Context) error

	// Close releases any resources held by the responder.
	Close() error
}

// Role defines message roles in a conversation.
type Role string

const (
	// RoleSystem is for system instructions.
	RoleSystem Role = "system"

	// RoleUser is for user messages.
	RoleUser Role = "user"

	// RoleAssistant is for assistant responses.
	RoleAssistant Role = "assistant"
)

// Message represents a chat message in a conversation.
type Message struct {
	// Role identifies the message sender.
	Role Role `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Usage reports token accounting from the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Response is a completed chat reply.
type Response struct {
	// Text is the assistant's reply, whitespace-trimmed.
	Text string

	// FinishReason indicates why generation stopped (stop, length).
	FinishReason string

	// Usage is the backend's token accounting.
	Usage Usage

	// Model is the model that actually served the request.
	Model string

	// LatencyMs is the request wall time in milliseconds.
	LatencyMs int64
}
