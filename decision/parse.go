package decision

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/agentdesk/core"
)

// ErrMalformedReply is wrapped by every ParseReply error.
var ErrMalformedReply = errors.New("malformed model reply")

type reply struct {
	Say    *string      `json:"say"`
	Action *replyAction `json:"action"`
	// Tool is accepted at the top level as well as inside action.
	Tool *replyTool `json:"tool"`
}

type replyAction struct {
	Type        *string        `json:"type"`
	TargetAgent *string        `json:"target_agent"`
	StatePatch  map[string]any `json:"state_patch"`
	Tool        *replyTool     `json:"tool"`
}

type replyTool struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ParseReply decodes raw model output into a Decision. The text must be one
// JSON object, optionally inside a Markdown code fence. Fields required by
// the action variant are enforced here.
func ParseReply(raw string) (core.Decision, error) {
	body := stripFence(raw)
	if !strings.HasPrefix(body, "{") {
		return core.Decision{}, fmt.Errorf("%w: not a JSON object", ErrMalformedReply)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()

	var r reply
	if err := dec.Decode(&r); err != nil {
		return core.Decision{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return core.Decision{}, fmt.Errorf("%w: trailing data after object", ErrMalformedReply)
	}

	d := core.Decision{Action: core.Stop{}}
	if r.Say != nil {
		d.Say = strings.TrimSpace(*r.Say)
	}

	if r.Action == nil || r.Action.Type == nil {
		return d, nil
	}

	action, err := toAction(r)
	if err != nil {
		return core.Decision{}, err
	}
	d.Action = action

	return d, nil
}

func toAction(r reply) (core.Action, error) {
	a := r.Action
	kind := core.ActionType(strings.ToLower(strings.TrimSpace(*a.Type)))

	switch kind {
	case "", core.ActionNone:
		return core.Stop{}, nil
	case core.ActionSetState:
		if a.StatePatch == nil {
			return nil, fmt.Errorf("%w: set_state without state_patch", ErrMalformedReply)
		}
		return core.SetState{Patch: normalizeMap(a.StatePatch)}, nil
	case core.ActionCallTool:
		t := a.Tool
		if t == nil {
			t = r.Tool
		}
		if t == nil || strings.TrimSpace(t.Name) == "" {
			return nil, fmt.Errorf("%w: call_tool without tool name", ErrMalformedReply)
		}
		args := normalizeMap(t.Args)
		if args == nil {
			args = map[string]any{}
		}
		return core.CallTool{Name: strings.TrimSpace(t.Name), Args: args}, nil
	case core.ActionHandoff:
		if a.TargetAgent == nil || strings.TrimSpace(*a.TargetAgent) == "" {
			return nil, fmt.Errorf("%w: handoff without target_agent", ErrMalformedReply)
		}
		return core.Handoff{Target: strings.TrimSpace(*a.TargetAgent)}, nil
	case core.ActionFinishTurn:
		return core.FinishTurn{}, nil
	case core.ActionEndConversation:
		return core.EndConversation{}, nil
	default:
		return core.Unrecognized{Name: string(kind)}, nil
	}
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// normalizeMap converts json.Number values decoded with UseNumber back into
// int64 or float64 so state patches and tool args carry plain Go numbers.
func normalizeMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil && !bytes.ContainsAny([]byte(t), ".eE") {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		return normalizeMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
