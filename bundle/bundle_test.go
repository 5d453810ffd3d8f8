package bundle

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/agentdesk/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ core.BundleStore = (*InMemoryStore)(nil)
	_ Cache            = (*TTLCache)(nil)
)

type countingStore struct {
	inner core.BundleStore
	calls atomic.Int32
	err   error
}

func (s *countingStore) FetchBundle(ctx context.Context, agent, language, tenant string) (*core.AgentBundle, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.FetchBundle(ctx, agent, language, tenant)
}

func infoDefinition() Definition {
	return Definition{
		Agent:        "info",
		Instructions: map[string]string{"es": "Eres el asistente de información.", "en": "You are the info assistant."},
		Messages: map[core.MessageKind]map[string]string{
			core.MessageWelcome: {"es": "¡Bienvenido!"},
		},
	}
}

func TestInMemoryStore_TenantOverridesGlobal(t *testing.T) {
	tenantDef := infoDefinition()
	tenantDef.Tenant = "acme"
	tenantDef.Instructions = map[string]string{"es": "Instrucciones de ACME."}

	store := NewInMemoryStore("es", infoDefinition(), tenantDef)

	b, err := store.FetchBundle(context.Background(), "info", "es", "acme")
	require.NoError(t, err)
	assert.Equal(t, "Instrucciones de ACME.", b.Instructions)

	b, err = store.FetchBundle(context.Background(), "info", "es", "other")
	require.NoError(t, err)
	assert.Equal(t, "Eres el asistente de información.", b.Instructions)

	_, err = store.FetchBundle(context.Background(), "billing", "es", "")
	assert.ErrorIs(t, err, core.ErrBundleNotFound)
}

func TestInMemoryStore_DefinitionsSorted(t *testing.T) {
	tenantDef := infoDefinition()
	tenantDef.Tenant = "acme"
	billing := Definition{Agent: "billing", Instructions: map[string]string{"es": "Facturación."}}

	store := NewInMemoryStore("es", tenantDef, infoDefinition())
	store.Put(billing)

	defs := store.Definitions()
	require.Len(t, defs, 3)
	assert.Equal(t, "billing", defs[0].Agent)
	assert.Equal(t, "", defs[1].Tenant)
	assert.Equal(t, "acme", defs[2].Tenant)
}

func TestResolver_PurgeAfterReload(t *testing.T) {
	live := NewInMemoryStore("es", infoDefinition())
	r := NewResolver(live)
	ctx := context.Background()

	b, err := r.Resolve(ctx, "info", "es", "")
	require.NoError(t, err)
	assert.Equal(t, "Eres el asistente de información.", b.Instructions)

	edited := infoDefinition()
	edited.Instructions["es"] = "Instrucciones nuevas."
	live.Put(edited)

	b, _ = r.Resolve(ctx, "info", "es", "")
	assert.Equal(t, "Eres el asistente de información.", b.Instructions)

	r.Purge()
	b, err = r.Resolve(ctx, "info", "es", "")
	require.NoError(t, err)
	assert.Equal(t, "Instrucciones nuevas.", b.Instructions)
}

func TestDefinition_ProjectFallsBackForInstructionsOnly(t *testing.T) {
	b, ok := infoDefinition().Project("fr", "es")
	require.True(t, ok)
	assert.Equal(t, "fr", b.Language)
	assert.Equal(t, "Eres el asistente de información.", b.Instructions)

	_, hasWelcome := b.Message(core.MessageWelcome, "fr")
	assert.False(t, hasWelcome, "canned messages must not fall back to another language")

	_, ok = infoDefinition().Project("fr", "")
	assert.False(t, ok)
}

func TestResolver_CachesHitsNotMisses(t *testing.T) {
	store := &countingStore{inner: NewInMemoryStore("es", infoDefinition())}
	r := NewResolver(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b, err := r.Resolve(ctx, "info", "es", "")
		require.NoError(t, err)
		assert.Equal(t, "info", b.Agent)
	}
	assert.Equal(t, int32(1), store.calls.Load())

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(ctx, "ghost", "es", "")
		assert.ErrorIs(t, err, core.ErrBundleNotFound)
	}
	assert.Equal(t, int32(3), store.calls.Load())

	r.Purge()
	_, err := r.Resolve(ctx, "info", "es", "")
	require.NoError(t, err)
	assert.Equal(t, int32(4), store.calls.Load())
}

func TestResolver_WrapsStoreErrors(t *testing.T) {
	store := &countingStore{err: errors.New("db down")}
	r := NewResolver(store)

	_, err := r.Resolve(context.Background(), "info", "es", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrBundleNotFound)
	assert.Contains(t, err.Error(), "db down")

	_, err = r.Resolve(context.Background(), "", "es", "")
	assert.ErrorIs(t, err, core.ErrBundleNotFound)
}

func TestTTLCache_Expiry(t *testing.T) {
	c := NewTTLCache(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	k := Key{Agent: "info", Language: "es"}
	c.Set(k, &core.AgentBundle{Agent: "info"})

	_, ok := c.Get(k)
	assert.True(t, ok)

	now = now.Add(61 * time.Second)
	_, ok = c.Get(k)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCache_ConcurrentAccess(t *testing.T) {
	c := NewTTLCache(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k := Key{Agent: "info", Language: "es", Tenant: string(rune('a' + i%4))}
			c.Set(k, &core.AgentBundle{Agent: "info"})
			b, ok := c.Get(k)
			if ok {
				assert.Equal(t, "info", b.Agent)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 4)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

const bundlesYAML = `
default_language: es
agents:
  - name: info
    temperature: 0.1
    max_tokens: 300
    retrieval: true
    knowledge_source: faq
    instructions:
      es: "Eres el asistente de {{sessionState.bot_name}}."
    messages:
      welcome:
        es: "¡Bienvenido!"
      handoff_confirmation:
        es: "Te paso con facturación."
  - name: billing
    instructions:
      es: "Gestionas facturas."
    messages:
      end_of_task:
        es: "¿Algo más?"
`

func TestDecodeYAML(t *testing.T) {
	store, err := DecodeYAML(strings.NewReader(bundlesYAML))
	require.NoError(t, err)

	b, err := store.FetchBundle(context.Background(), "info", "es", "")
	require.NoError(t, err)
	require.NotNil(t, b.Temperature)
	assert.InDelta(t, 0.1, *b.Temperature, 1e-9)
	require.NotNil(t, b.MaxTokens)
	assert.Equal(t, int64(300), *b.MaxTokens)
	assert.True(t, b.RetrievalEnabled)
	assert.Equal(t, "faq", b.KnowledgeSource)

	text, ok := b.Message(core.MessageHandoffConfirmation, "es")
	assert.True(t, ok)
	assert.Equal(t, "Te paso con facturación.", text)

	billing, err := store.FetchBundle(context.Background(), "billing", "en", "")
	require.NoError(t, err, "instructions fall back to default_language")
	assert.Nil(t, billing.Temperature)
}

func TestDecodeYAML_RejectsDuplicates(t *testing.T) {
	_, err := DecodeYAML(strings.NewReader(`
agents:
  - name: info
    instructions: {es: a}
  - name: info
    instructions: {es: b}
`))
	assert.ErrorContains(t, err, "duplicate agent")

	_, err = DecodeYAML(strings.NewReader("agents:\n  - instructions: {es: a}\n"))
	assert.ErrorContains(t, err, "has no name")
}
