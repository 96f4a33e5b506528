package oracle

import "context"

// #region types

// Role tags a chat message segment.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged text segment of a chat request.
type Message struct {
	Role Role
	Text string
}

// Options is the small option bag sent with every chat request.
type Options struct {
	ReasoningEffort string // "low" | "medium" | "high", empty = service default
}

// #endregion types

// #region client

// Client is the request/response contract of the reasoning oracle.
type Client interface {
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}

// System returns a single-message request carrying a system prompt.
func System(text string) []Message {
	return []Message{{Role: RoleSystem, Text: text}}
}

// #endregion client
