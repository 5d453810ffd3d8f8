package core

// ResponseMessage is one outward-facing chat bubble.
type ResponseMessage struct {
	Text      string `json:"text"`
	AgentName string `json:"agentName"`
}

// TurnInput is everything the engine needs to process one user input.
type TurnInput struct {
	UserInput string
	State     State
	History   History

	// UserTurnID is set when the caller already appended UserInput to
	// History as the turn with this ID. The engine then does not record the
	// input a second time. Repeats of an earlier message are always recorded.
	UserTurnID string
}

// TurnResult is the outcome of one ProcessInput call.
//
// History is the full transcript after the turn while Appended holds only the
// turns added during it, which is what stores persist.
type TurnResult struct {
	State         State
	Messages      []ResponseMessage
	History       History
	Appended      History
	PendingAction *PendingAction
	Iterations    int
}
