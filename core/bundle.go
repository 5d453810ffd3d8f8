package core

// MessageKind names a situation that has a canned, deterministic message.
type MessageKind string

const (
	MessageWelcome             MessageKind = "welcome"
	MessageHandback            MessageKind = "handback"
	MessageHandoffConfirmation MessageKind = "handoff_confirmation"
	MessageEndOfTask           MessageKind = "end_of_task"
	MessageFarewell            MessageKind = "farewell"
)

// AgentBundle is the behaviour snapshot of one agent for one language and
// tenant. It is immutable for the duration of a turn and shared through the
// resolver cache, so callers must not modify it.
type AgentBundle struct {
	Agent        string
	Language     string
	Tenant       string
	Instructions string

	// Temperature and MaxTokens are nil when the store has no value; the
	// decision requester then applies its documented fallbacks.
	Temperature *float64
	MaxTokens   *int64

	RetrievalEnabled bool
	KnowledgeSource  string

	// Messages maps situation -> language -> text.
	Messages map[MessageKind]map[string]string
}

// Message returns the canned text for kind in language. Empty strings count
// as not configured.
func (b *AgentBundle) Message(kind MessageKind, language string) (string, bool) {
	if b == nil || b.Messages == nil {
		return "", false
	}
	text, ok := b.Messages[kind][language]
	return text, ok && text != ""
}
