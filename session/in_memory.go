package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentdesk/core"
)

type conversation struct {
	state   core.State
	history core.History
}

// InMemoryStore is a volatile core.ConversationStore and core.TenantResolver
// keeping conversations in a process local map. It is safe for concurrent
// access and best suited for tests or ephemeral demo servers. Values are
// copied on the way in and out to prevent external mutation of internal state.
type InMemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	bots          map[string]string
}

// NewInMemoryStore constructs an empty in‑memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		conversations: make(map[string]*conversation),
		bots:          make(map[string]string),
	}
}

// LoadState returns a copy of the conversation's state or
// core.ErrConversationNotFound.
func (s *InMemoryStore) LoadState(_ context.Context, conversationID string) (core.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("load state %s: %w", conversationID, core.ErrConversationNotFound)
	}
	return c.state.Clone(), nil
}

// SaveState replaces the conversation's state, creating the conversation lazily.
func (s *InMemoryStore) SaveState(_ context.Context, conversationID string, state core.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getOrCreateLocked(conversationID).state = state.Clone()
	return nil
}

// LoadHistory returns a copy of the transcript or core.ErrConversationNotFound.
func (s *InMemoryStore) LoadHistory(_ context.Context, conversationID string) (core.History, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("load history %s: %w", conversationID, core.ErrConversationNotFound)
	}
	return c.history.Clone(), nil
}

// AppendTurns adds turns to the transcript, creating the conversation lazily.
func (s *InMemoryStore) AppendTurns(_ context.Context, conversationID string, turns ...core.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.getOrCreateLocked(conversationID)
	c.history = append(c.history, turns...)
	return nil
}

// RegisterBot maps botID to its owning client.
func (s *InMemoryStore) RegisterBot(botID, clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bots[botID] = clientID
}

// ResolveClient implements core.TenantResolver.
func (s *InMemoryStore) ResolveClient(_ context.Context, botID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.bots[botID]
	if !ok {
		return "", fmt.Errorf("resolve bot %s: %w", botID, core.ErrTenantNotFound)
	}
	return client, nil
}

// getOrCreateLocked returns the conversation, allocating it when missing;
// caller must already hold the write lock.
func (s *InMemoryStore) getOrCreateLocked(conversationID string) *conversation {
	c, ok := s.conversations[conversationID]
	if !ok {
		c = &conversation{state: core.State{}, history: core.History{}}
		s.conversations[conversationID] = c
	}
	return c
}
