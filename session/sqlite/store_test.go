package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentdesk/core"
)

// Interface compliance (compile-time assertions)
var (
	_ core.ConversationStore = (*Store)(nil)
	_ core.TenantResolver    = (*Store)(nil)
	_ core.BundleStore       = (*Store)(nil)
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_UnknownConversation(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.LoadState(ctx, "c-1")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)

	_, err = s.LoadHistory(ctx, "c-1")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
}

func TestStore_StateRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveState(ctx, "c-1", core.State{core.KeyActiveAgent: "info", "count": 1, core.KeyHandbackTurn: true}))
	require.NoError(t, s.SaveState(ctx, "c-1", core.State{core.KeyActiveAgent: "billing", "count": 2, core.KeyHandbackTurn: false}))

	st, err := s.LoadState(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "billing", st.ActiveAgent())
	assert.Equal(t, float64(2), st["count"])
	assert.False(t, st.Bool(core.KeyHandbackTurn))

	h, err := s.LoadHistory(ctx, "c-1")
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestStore_AppendTurnsPreservesOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	ts := time.Date(2025, 3, 1, 10, 0, 0, 123, time.UTC)
	first := core.Turn{ID: "t-1", Role: core.RoleUser, Content: "hola", Timestamp: ts}

	require.NoError(t, s.AppendTurns(ctx, "c-1", first))
	require.NoError(t, s.AppendTurns(ctx, "c-1",
		core.NewTurn(core.RoleAssistant, "¡Bienvenido!", "info"),
		core.Turn{Role: core.RoleTool, Content: "TOOL_ERROR: timeout", Agent: "info"},
	))
	require.NoError(t, s.AppendTurns(ctx, "c-2", core.NewTurn(core.RoleUser, "other", "")))
	require.NoError(t, s.AppendTurns(ctx, "c-1"))

	h, err := s.LoadHistory(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, h, 3)
	assert.Equal(t, "t-1", h[0].ID)
	assert.Equal(t, "hola", h[0].Content)
	assert.True(t, ts.Equal(h[0].Timestamp))
	assert.Equal(t, "info", h[1].Agent)
	assert.Equal(t, core.RoleTool, h[2].Role)
	assert.NotEmpty(t, h[2].ID)
	assert.False(t, h[2].Timestamp.IsZero())
}

func TestStore_ResolveClient(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterBot(ctx, "bot-1", "acme"))
	require.NoError(t, s.RegisterBot(ctx, "bot-1", "globex"))

	client, err := s.ResolveClient(ctx, "bot-1")
	require.NoError(t, err)
	assert.Equal(t, "globex", client)

	_, err = s.ResolveClient(ctx, "nope")
	assert.ErrorIs(t, err, core.ErrTenantNotFound)
}

func TestStore_Bundles(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	temp := 0.4
	global := &core.AgentBundle{
		Agent:        "info",
		Language:     "es",
		Instructions: "Eres el asistente.",
		Temperature:  &temp,
		Messages: map[core.MessageKind]map[string]string{
			core.MessageWelcome: {"es": "¡Bienvenido!", "en": "Welcome!"},
		},
	}
	acme := &core.AgentBundle{
		Agent:            "info",
		Language:         "es",
		Tenant:           "acme",
		Instructions:     "Eres el asistente de ACME.",
		RetrievalEnabled: true,
		KnowledgeSource:  "acme-faq",
	}
	require.NoError(t, s.PutBundle(ctx, global))
	require.NoError(t, s.PutBundle(ctx, acme))

	b, err := s.FetchBundle(ctx, "info", "es", "")
	require.NoError(t, err)
	assert.Equal(t, "Eres el asistente.", b.Instructions)
	require.NotNil(t, b.Temperature)
	assert.Equal(t, 0.4, *b.Temperature)
	assert.Nil(t, b.MaxTokens)
	welcome, ok := b.Message(core.MessageWelcome, "es")
	assert.True(t, ok)
	assert.Equal(t, "¡Bienvenido!", welcome)

	b, err = s.FetchBundle(ctx, "info", "es", "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", b.Tenant)
	assert.True(t, b.RetrievalEnabled)
	assert.Equal(t, "acme-faq", b.KnowledgeSource)
	_, ok = b.Message(core.MessageWelcome, "es")
	assert.False(t, ok)

	b, err = s.FetchBundle(ctx, "info", "es", "globex")
	require.NoError(t, err)
	assert.Equal(t, "", b.Tenant)

	_, err = s.FetchBundle(ctx, "info", "fr", "")
	assert.ErrorIs(t, err, core.ErrBundleNotFound)

	assert.Error(t, s.PutBundle(ctx, &core.AgentBundle{Agent: "x"}))
}
