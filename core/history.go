package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a history turn.
type Role string

const (
	// RoleUser marks input typed by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks an utterance emitted by an agent.
	RoleAssistant Role = "assistant"
	// RoleTool marks a reduced tool result. It is never shown to the end user
	// and is rendered to the model as a user message.
	RoleTool Role = "tool"
)

// ToolErrorPrefix starts every history line produced by a failed tool call.
const ToolErrorPrefix = "TOOL_ERROR:"

// Turn is one entry of the conversation transcript.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Agent     string    `json:"agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTurn creates a turn with a fresh id and UTC timestamp.
func NewTurn(role Role, content, agent string) Turn {
	return Turn{
		ID:        NewID(),
		Role:      role,
		Content:   content,
		Agent:     agent,
		Timestamp: time.Now().UTC(),
	}
}

// History is the ordered, append-only transcript of a conversation.
type History []Turn

// Clone returns a copy whose backing array is independent of h.
func (h History) Clone() History {
	out := make(History, len(h))
	copy(out, h)
	return out
}

// LastIndex returns the index of the most recent turn with the given role,
// or -1.
func (h History) LastIndex(role Role) int {
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].Role == role {
			return i
		}
	}
	return -1
}

// EndsWithUserTurn reports whether the final turn is the user turn with the
// given id.
func (h History) EndsWithUserTurn(id string) bool {
	if len(h) == 0 || id == "" {
		return false
	}
	last := h[len(h)-1]
	return last.Role == RoleUser && last.ID == id
}

// NewID generates a new unique identifier for turns and conversations.
func NewID() string { return uuid.NewString() }
