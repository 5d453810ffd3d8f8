package core

// ActionType is the wire name of a decision action.
type ActionType string

const (
	ActionNone            ActionType = "none"
	ActionSetState        ActionType = "set_state"
	ActionCallTool        ActionType = "call_tool"
	ActionHandoff         ActionType = "handoff"
	ActionFinishTurn      ActionType = "finish_turn"
	ActionEndConversation ActionType = "end_conversation"
)

// Action is the closed set of things a model may ask the engine to do after
// an utterance. Concrete variants implement the unexported isAction marker.
type Action interface {
	Type() ActionType
	isAction()
}

// Stop ends the decision loop. It is what an absent action type or the
// explicit "none" type decode to.
type Stop struct{}

func (Stop) Type() ActionType { return ActionNone }
func (Stop) isAction()        {}

// SetState shallow-merges Patch into the session state.
type SetState struct {
	Patch map[string]any
}

func (SetState) Type() ActionType { return ActionSetState }
func (SetState) isAction()        {}

// CallTool asks the engine to dispatch a named tool.
type CallTool struct {
	Name string
	Args map[string]any
}

func (CallTool) Type() ActionType { return ActionCallTool }
func (CallTool) isAction()        {}

// Handoff switches the active agent to Target.
type Handoff struct {
	Target string
}

func (Handoff) Type() ActionType { return ActionHandoff }
func (Handoff) isAction()        {}

// FinishTurn ends the turn; specialists hand control back to the coordinator.
type FinishTurn struct{}

func (FinishTurn) Type() ActionType { return ActionFinishTurn }
func (FinishTurn) isAction()        {}

// EndConversation ends the turn with the agent's farewell, if any.
type EndConversation struct{}

func (EndConversation) Type() ActionType { return ActionEndConversation }
func (EndConversation) isAction()        {}

// Unrecognized carries an action type the engine does not know. The engine
// logs it and ends the turn.
type Unrecognized struct {
	Name string
}

func (u Unrecognized) Type() ActionType { return ActionType(u.Name) }
func (Unrecognized) isAction()          {}

// Decision is the parsed output of one model call.
type Decision struct {
	Say    string
	Action Action
}

// ActionOrStop returns the decision's action, treating nil as Stop.
func (d Decision) ActionOrStop() Action {
	if d.Action == nil {
		return Stop{}
	}
	return d.Action
}

// PendingAction tells the caller which loop-ending action, if any, closed the
// turn, for its own bookkeeping.
type PendingAction struct {
	Type   ActionType `json:"type"`
	Target string     `json:"target,omitempty"`
}
