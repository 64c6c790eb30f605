package llms

import "context"

// Message represents a message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"` // source tag for assistant turns
}

// Roles used in conversation histories.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider is a chat-completions backend for one debate participant.
type Provider interface {
	// Generate produces a completion for the full conversation history.
	// Returns the reply text and the total tokens used.
	Generate(ctx context.Context, messages []Message) (string, int, error)

	// ModelName returns the model this provider talks to.
	ModelName() string

	// Close releases any resources held by the provider.
	Close() error
}
