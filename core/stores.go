package core

import (
	"context"
	"errors"
)

var (
	// ErrBundleNotFound is returned when no configuration exists for an
	// (agent, language, tenant) triple. It is a soft condition.
	ErrBundleNotFound = errors.New("agent bundle not found")

	// ErrConversationNotFound is returned by stores for unknown conversation ids.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrTenantNotFound is returned when a bot id has no owning client.
	ErrTenantNotFound = errors.New("tenant not found")
)

// BundleStore supplies per-agent behaviour configuration.
type BundleStore interface {
	FetchBundle(ctx context.Context, agent, language, tenant string) (*AgentBundle, error)
}

// ConversationStore persists session state and the append-only transcript.
type ConversationStore interface {
	LoadState(ctx context.Context, conversationID string) (State, error)
	SaveState(ctx context.Context, conversationID string, state State) error
	LoadHistory(ctx context.Context, conversationID string) (History, error)
	AppendTurns(ctx context.Context, conversationID string, turns ...Turn) error
}

// TenantResolver maps a bot identifier to its owning client.
type TenantResolver interface {
	ResolveClient(ctx context.Context, botID string) (string, error)
}

// RetrievalQuery carries the inputs of one knowledge lookup.
type RetrievalQuery struct {
	Query          string
	Source         string
	Tenant         string
	MaxResults     int
	ScoreThreshold float64
}

// Retriever returns ranked passages for a query against one knowledge source.
type Retriever interface {
	Retrieve(ctx context.Context, q RetrievalQuery) ([]Passage, error)
}
