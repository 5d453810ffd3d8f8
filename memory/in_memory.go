package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/hupe1980/agentdesk/core"
)

// StoredPassage is the internal representation persisted by InMemoryStore.
type StoredPassage struct {
	ID       string
	Content  string
	Metadata map[string]any
	tokens   map[string]struct{}
}

type sourceKey struct{ tenant, source string }

// InMemoryStore is a naive process-local knowledge base implementing
// core.Retriever. Passages live in (tenant, source) buckets; a tenant query
// also sees the global bucket (tenant "").
//
// Scoring: the fraction of distinct query tokens present in the passage.
// Suitable for tests, demos and small FAQ sets; swap for a vector index for
// production retrieval.
type InMemoryStore struct {
	mu      sync.RWMutex
	storage map[sourceKey][]StoredPassage
	seq     int
}

// NewInMemoryStore creates an empty knowledge store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[sourceKey][]StoredPassage)}
}

// Store appends a passage to the (tenant, source) bucket and returns its id.
func (m *InMemoryStore) Store(tenant, source, content string, metadata map[string]any) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := fmt.Sprintf("psg_%d", m.seq)
	k := sourceKey{tenant, source}
	m.storage[k] = append(m.storage[k], StoredPassage{
		ID:       id,
		Content:  content,
		Metadata: metadata,
		tokens:   tokenSet(content),
	})
	return id
}

// Delete removes a passage by id.
func (m *InMemoryStore) Delete(tenant, source, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := sourceKey{tenant, source}
	passages := m.storage[k]
	for i, p := range passages {
		if p.ID == id {
			m.storage[k] = append(passages[:i], passages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("passage %s not found", id)
}

// Retrieve implements core.Retriever. Results are sorted by descending score,
// ties broken by insertion order, and cut at MaxResults when positive.
func (m *InMemoryStore) Retrieve(ctx context.Context, q core.RetrievalQuery) ([]core.Passage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := tokenSet(q.Query)
	if len(query) == 0 {
		return []core.Passage{}, nil
	}

	m.mu.RLock()
	candidates := append([]StoredPassage(nil), m.storage[sourceKey{q.Tenant, q.Source}]...)
	if q.Tenant != "" {
		candidates = append(candidates, m.storage[sourceKey{"", q.Source}]...)
	}
	m.mu.RUnlock()

	results := make([]core.Passage, 0, len(candidates))
	for _, p := range candidates {
		hits := 0
		for tok := range query {
			if _, ok := p.tokens[tok]; ok {
				hits++
			}
		}
		score := float64(hits) / float64(len(query))
		if hits == 0 || score < q.ScoreThreshold {
			continue
		}
		md := make(map[string]any, len(p.Metadata))
		for k, v := range p.Metadata {
			md[k] = v
		}
		results = append(results, core.Passage{ID: p.ID, Content: p.Content, Score: score, Metadata: md})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	if q.MaxResults > 0 && len(results) > q.MaxResults {
		results = results[:q.MaxResults]
	}

	return results, nil
}

// tokenSet lower-cases s and splits it on anything that is not a letter or
// digit. Tokens shorter than three runes are ignored as noise.
func tokenSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}
