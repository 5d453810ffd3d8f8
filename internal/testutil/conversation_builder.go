package testutil

import (
	"time"

	"github.com/hupe1980/agentdesk/core"
)

// StateBuilder helps construct session state with fluent chaining for tests.
// Example:
//
//	st := NewStateBuilder().Agent("billing").Language("es").Set("k", "v").Build()
type StateBuilder struct {
	state core.State
}

// NewStateBuilder creates an empty state builder.
func NewStateBuilder() *StateBuilder {
	return &StateBuilder{state: core.State{}}
}

// Agent sets active_agent (chainable).
func (b *StateBuilder) Agent(name string) *StateBuilder { return b.Set(core.KeyActiveAgent, name) }

// Language sets language (chainable).
func (b *StateBuilder) Language(lang string) *StateBuilder { return b.Set(core.KeyLanguage, lang) }

// Handback sets the one-shot hand-back flag (chainable).
func (b *StateBuilder) Handback() *StateBuilder { return b.Set(core.KeyHandbackTurn, true) }

// Bot sets bot_id (chainable).
func (b *StateBuilder) Bot(id string) *StateBuilder { return b.Set(core.KeyBotID, id) }

// Set sets or overwrites a key (chainable).
func (b *StateBuilder) Set(key string, val any) *StateBuilder {
	b.state[key] = val
	return b
}

// Build returns a copy of the accumulated state.
func (b *StateBuilder) Build() core.State { return b.state.Clone() }

// HistoryBuilder helps construct transcripts for tests.
// Example:
//
//	h := NewHistoryBuilder().User("hola").Assistant("info", "¿En qué te ayudo?").Build()
type HistoryBuilder struct {
	turns core.History
	clock time.Time
}

// NewHistoryBuilder creates an empty history builder. Timestamps increase by
// one second per turn from a fixed origin so ordering is deterministic.
func NewHistoryBuilder() *HistoryBuilder {
	return &HistoryBuilder{clock: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

// User appends a user turn (chainable).
func (b *HistoryBuilder) User(content string) *HistoryBuilder {
	return b.add(core.RoleUser, content, "")
}

// Assistant appends an agent utterance (chainable).
func (b *HistoryBuilder) Assistant(agent, content string) *HistoryBuilder {
	return b.add(core.RoleAssistant, content, agent)
}

// Tool appends a reduced tool result (chainable).
func (b *HistoryBuilder) Tool(agent, content string) *HistoryBuilder {
	return b.add(core.RoleTool, content, agent)
}

func (b *HistoryBuilder) add(role core.Role, content, agent string) *HistoryBuilder {
	t := core.NewTurn(role, content, agent)
	b.clock = b.clock.Add(time.Second)
	t.Timestamp = b.clock
	b.turns = append(b.turns, t)
	return b
}

// Build returns the transcript.
func (b *HistoryBuilder) Build() core.History { return b.turns.Clone() }

// BundleBuilder helps construct agent bundles for tests.
// Example:
//
//	b := NewBundleBuilder("info", "es").Instructions("Eres Lola").Welcome("¡Bienvenido!").Build()
type BundleBuilder struct {
	bundle core.AgentBundle
}

// NewBundleBuilder creates a bundle for agent in language.
func NewBundleBuilder(agent, language string) *BundleBuilder {
	return &BundleBuilder{bundle: core.AgentBundle{
		Agent:    agent,
		Language: language,
		Messages: map[core.MessageKind]map[string]string{},
	}}
}

// Instructions sets the instruction text (chainable).
func (b *BundleBuilder) Instructions(text string) *BundleBuilder {
	b.bundle.Instructions = text
	return b
}

// Tenant sets the owning client (chainable).
func (b *BundleBuilder) Tenant(tenant string) *BundleBuilder {
	b.bundle.Tenant = tenant
	return b
}

// Temperature sets the sampling temperature (chainable).
func (b *BundleBuilder) Temperature(v float64) *BundleBuilder {
	b.bundle.Temperature = &v
	return b
}

// MaxTokens sets the output cap (chainable).
func (b *BundleBuilder) MaxTokens(v int64) *BundleBuilder {
	b.bundle.MaxTokens = &v
	return b
}

// Retrieval enables retrieval against source (chainable).
func (b *BundleBuilder) Retrieval(source string) *BundleBuilder {
	b.bundle.RetrievalEnabled = true
	b.bundle.KnowledgeSource = source
	return b
}

// Message sets a canned message in the bundle's language (chainable).
func (b *BundleBuilder) Message(kind core.MessageKind, text string) *BundleBuilder {
	if b.bundle.Messages[kind] == nil {
		b.bundle.Messages[kind] = map[string]string{}
	}
	b.bundle.Messages[kind][b.bundle.Language] = text
	return b
}

// Welcome is shorthand for Message(core.MessageWelcome, text).
func (b *BundleBuilder) Welcome(text string) *BundleBuilder {
	return b.Message(core.MessageWelcome, text)
}

// Build returns the bundle.
func (b *BundleBuilder) Build() *core.AgentBundle {
	out := b.bundle
	return &out
}
