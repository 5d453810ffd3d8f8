package testutil

import (
	"encoding/json"
)

// ReplyBuilder produces the JSON text a model returns for one decision, with
// every field present and unused ones null.
// Example:
//
//	raw := NewReplyBuilder().Say("Te paso con facturación").Handoff("billing").JSON()
//
// Chain only the parts you need; the action defaults to "none".
type ReplyBuilder struct {
	say        *string
	actionType *string
	target     *string
	patch      map[string]any
	tool       map[string]any
}

// NewReplyBuilder creates a reply whose action type is "none".
func NewReplyBuilder() *ReplyBuilder {
	none := "none"
	return &ReplyBuilder{actionType: &none}
}

// Say sets the utterance (chainable).
func (b *ReplyBuilder) Say(text string) *ReplyBuilder {
	b.say = &text
	return b
}

// NoAction removes the action type entirely (chainable).
func (b *ReplyBuilder) NoAction() *ReplyBuilder {
	b.actionType = nil
	return b
}

// Action sets an arbitrary action type (chainable).
func (b *ReplyBuilder) Action(kind string) *ReplyBuilder {
	b.actionType = &kind
	return b
}

// SetState sets a set_state action with patch (chainable).
func (b *ReplyBuilder) SetState(patch map[string]any) *ReplyBuilder {
	b.patch = patch
	return b.Action("set_state")
}

// CallTool sets a call_tool action (chainable).
func (b *ReplyBuilder) CallTool(name string, args map[string]any) *ReplyBuilder {
	b.tool = map[string]any{"name": name, "args": args}
	return b.Action("call_tool")
}

// Handoff sets a handoff action to target (chainable).
func (b *ReplyBuilder) Handoff(target string) *ReplyBuilder {
	b.target = &target
	return b.Action("handoff")
}

// FinishTurn sets a finish_turn action (chainable).
func (b *ReplyBuilder) FinishTurn() *ReplyBuilder { return b.Action("finish_turn") }

// EndConversation sets an end_conversation action (chainable).
func (b *ReplyBuilder) EndConversation() *ReplyBuilder { return b.Action("end_conversation") }

// JSON renders the reply.
func (b *ReplyBuilder) JSON() string {
	var patch any
	if b.patch != nil {
		patch = b.patch
	}
	var tool any
	if b.tool != nil {
		tool = b.tool
	}
	reply := map[string]any{
		"say": b.say,
		"action": map[string]any{
			"type":         b.actionType,
			"target_agent": b.target,
			"state_patch":  patch,
			"tool":         tool,
		},
	}
	raw, err := json.Marshal(reply)
	if err != nil {
		panic(err)
	}
	return string(raw)
}
