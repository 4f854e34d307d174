package conversation

import (
	"github.com/google/uuid"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// State is the lifecycle state of a message
type State int

const (
	// Final messages are immutable
	Final State = iota
	// Pending assistant messages may still grow while a reply streams in
	Pending
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Final:
		return "final"
	default:
		return "unknown"
	}
}

// ErrorReply is the content of the assistant message shown when a request fails
const ErrorReply = "Error: failed to get response."

// Message represents a single message in a conversation
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	State   State  `json:"state"`
	// Error marks the assistant reply shown in place of a failed request
	Error bool `json:"error,omitempty"`
}

// NewID returns a fresh message identity. IDs are random so rapid
// consecutive messages can never collide.
func NewID() string {
	return uuid.NewString()
}

func NewUserMessage(text string) Message {
	return Message{ID: NewID(), Role: RoleUser, Content: text, State: Final}
}

func NewAssistantMessage(text string) Message {
	return Message{ID: NewID(), Role: RoleAssistant, Content: text, State: Final}
}

// NewPendingAssistantMessage returns an empty placeholder for a streaming reply
func NewPendingAssistantMessage() Message {
	return Message{ID: NewID(), Role: RoleAssistant, State: Pending}
}

func NewErrorMessage() Message {
	return Message{ID: NewID(), Role: RoleAssistant, Content: ErrorReply, State: Final, Error: true}
}

// IsPending reports whether the message content may still change
func (m Message) IsPending() bool {
	return m.State == Pending
}
