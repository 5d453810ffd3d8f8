package bundle

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/hupe1980/agentdesk/core"
)

// Definition is the language-independent description of an agent. Stores
// project it onto one language to produce a core.AgentBundle.
type Definition struct {
	Agent  string `yaml:"name"`
	Tenant string `yaml:"tenant"`

	// Instructions maps language -> prompt text.
	Instructions map[string]string `yaml:"instructions"`

	Temperature *float64 `yaml:"temperature"`
	MaxTokens   *int64   `yaml:"max_tokens"`

	RetrievalEnabled bool   `yaml:"retrieval"`
	KnowledgeSource  string `yaml:"knowledge_source"`

	// Messages maps situation -> language -> text.
	Messages map[core.MessageKind]map[string]string `yaml:"messages"`
}

// Project renders d for one language. Instructions fall back to
// fallbackLanguage when the requested language has none; canned messages
// never fall back. ok is false when no instructions exist in either.
func (d Definition) Project(language, fallbackLanguage string) (*core.AgentBundle, bool) {
	instructions, ok := d.Instructions[language]
	if !ok && fallbackLanguage != "" {
		instructions, ok = d.Instructions[fallbackLanguage]
	}
	if !ok {
		return nil, false
	}

	messages := make(map[core.MessageKind]map[string]string, len(d.Messages))
	for kind, byLang := range d.Messages {
		cp := make(map[string]string, len(byLang))
		for lang, text := range byLang {
			cp[lang] = text
		}
		messages[kind] = cp
	}

	return &core.AgentBundle{
		Agent:            d.Agent,
		Language:         language,
		Tenant:           d.Tenant,
		Instructions:     instructions,
		Temperature:      d.Temperature,
		MaxTokens:        d.MaxTokens,
		RetrievalEnabled: d.RetrievalEnabled,
		KnowledgeSource:  d.KnowledgeSource,
		Messages:         messages,
	}, true
}

type defKey struct{ agent, tenant string }

// InMemoryStore is a process-local core.BundleStore. Tenant-specific
// definitions win over global ones (tenant "").
type InMemoryStore struct {
	mu               sync.RWMutex
	defs             map[defKey]Definition
	fallbackLanguage string
}

// NewInMemoryStore creates a store; fallbackLanguage is used for
// instructions missing in the requested language (may be empty).
func NewInMemoryStore(fallbackLanguage string, defs ...Definition) *InMemoryStore {
	s := &InMemoryStore{defs: make(map[defKey]Definition), fallbackLanguage: fallbackLanguage}
	for _, d := range defs {
		s.defs[defKey{d.Agent, d.Tenant}] = d
	}
	return s
}

// Put adds or replaces a definition.
func (s *InMemoryStore) Put(d Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defs[defKey{d.Agent, d.Tenant}] = d
}

// Definitions returns every stored definition ordered by agent, then tenant.
func (s *InMemoryStore) Definitions() []Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Definition, 0, len(s.defs))
	for _, d := range s.defs {
		out = append(out, d)
	}
	slices.SortFunc(out, func(a, b Definition) int {
		if c := cmp.Compare(a.Agent, b.Agent); c != 0 {
			return c
		}
		return cmp.Compare(a.Tenant, b.Tenant)
	})
	return out
}

// FetchBundle implements core.BundleStore.
func (s *InMemoryStore) FetchBundle(_ context.Context, agent, language, tenant string) (*core.AgentBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.defs[defKey{agent, tenant}]
	if !ok && tenant != "" {
		d, ok = s.defs[defKey{agent, ""}]
	}
	if !ok {
		return nil, core.ErrBundleNotFound
	}

	b, ok := d.Project(language, s.fallbackLanguage)
	if !ok {
		return nil, core.ErrBundleNotFound
	}
	return b, nil
}
