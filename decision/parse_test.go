package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentdesk/core"
)

func TestParseReply_Variants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		say  string
		want core.Action
	}{
		{
			name: "absent action",
			raw:  `{"say":"hola","action":null}`,
			say:  "hola",
			want: core.Stop{},
		},
		{
			name: "absent type",
			raw:  `{"say":"hola","action":{"type":null,"target_agent":"x"}}`,
			say:  "hola",
			want: core.Stop{},
		},
		{
			name: "none",
			raw:  `{"say":null,"action":{"type":"none"}}`,
			want: core.Stop{},
		},
		{
			name: "set_state",
			raw:  `{"say":"ok","action":{"type":"set_state","state_patch":{"step":2,"ratio":0.5,"name":"x"}}}`,
			say:  "ok",
			want: core.SetState{Patch: map[string]any{"step": int64(2), "ratio": 0.5, "name": "x"}},
		},
		{
			name: "call_tool inside action",
			raw:  `{"say":null,"action":{"type":"call_tool","tool":{"name":"get_pending_documents","args":{"limit":3}}}}`,
			want: core.CallTool{Name: "get_pending_documents", Args: map[string]any{"limit": int64(3)}},
		},
		{
			name: "call_tool top-level tool without args",
			raw:  `{"say":null,"action":{"type":"call_tool"},"tool":{"name":"ping","args":null}}`,
			want: core.CallTool{Name: "ping", Args: map[string]any{}},
		},
		{
			name: "handoff",
			raw:  `{"say":"te paso","action":{"type":"HANDOFF","target_agent":" billing "}}`,
			say:  "te paso",
			want: core.Handoff{Target: "billing"},
		},
		{
			name: "finish_turn",
			raw:  `{"say":"listo","action":{"type":"finish_turn"}}`,
			say:  "listo",
			want: core.FinishTurn{},
		},
		{
			name: "end_conversation",
			raw:  `{"say":"adiós","action":{"type":"end_conversation"}}`,
			say:  "adiós",
			want: core.EndConversation{},
		},
		{
			name: "unrecognized",
			raw:  `{"say":"?","action":{"type":"escalate"}}`,
			say:  "?",
			want: core.Unrecognized{Name: "escalate"},
		},
		{
			name: "json fence",
			raw:  "```json\n{\"say\":\"hola\",\"action\":{\"type\":\"none\"}}\n```",
			say:  "hola",
			want: core.Stop{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseReply(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.say, d.Say)
			assert.Equal(t, tt.want, d.Action)
		})
	}
}

func TestParseReply_Errors(t *testing.T) {
	tests := map[string]string{
		"prose":               "Claro, te ayudo.",
		"array":               `[{"say":"x"}]`,
		"truncated":           `{"say":"x","action":{"type":"none"}`,
		"trailing object":     `{"say":"x"}{"say":"y"}`,
		"set_state no patch":  `{"say":"x","action":{"type":"set_state","state_patch":null}}`,
		"handoff no target":   `{"say":"x","action":{"type":"handoff","target_agent":""}}`,
		"call_tool no name":   `{"say":"x","action":{"type":"call_tool","tool":{"name":" "}}}`,
		"call_tool no tool":   `{"say":"x","action":{"type":"call_tool"}}`,
		"wrong type for say":  `{"say":3}`,
		"fence without close": "```json\n{\"say\":\"x\"",
	}

	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseReply(raw)
			assert.ErrorIs(t, err, ErrMalformedReply)
		})
	}
}

func TestStripFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFence("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFence("```json {\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripFence("  {\"a\":1}  "))
}
