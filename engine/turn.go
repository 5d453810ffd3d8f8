package engine

import (
	"errors"
	"strings"

	"github.com/hupe1980/agentdesk/core"
	"github.com/hupe1980/agentdesk/tool"
)

var errNoInvoker = errors.New("no tool invoker configured")

// turn is the working set of one ProcessInput call. Entries added during the
// turn are staged in appended and only become durable when the caller
// persists TurnResult.Appended.
//
// The pending slot points at the most recent utterance while nothing has been
// staged after it. Deterministic overrides rewrite that slot instead of
// appending a second bubble.
type turn struct {
	state         core.State
	base          core.History
	appended      core.History
	messages      []core.ResponseMessage
	pending       *pendingSlot
	pendingAction *core.PendingAction
	iterations    int
}

type pendingSlot struct {
	message int
	entry   int
}

func newTurn(state core.State, history core.History) *turn {
	return &turn{
		state:    state.Clone(),
		base:     history.Clone(),
		appended: core.History{},
		messages: []core.ResponseMessage{},
	}
}

// history returns base plus staged entries as one transcript.
func (t *turn) history() core.History {
	out := make(core.History, 0, len(t.base)+len(t.appended))
	out = append(out, t.base...)
	return append(out, t.appended...)
}

// recordUser stages the user input unless it is blank or the caller already
// appended it as the turn callerID.
func (t *turn) recordUser(input, callerID string) {
	if strings.TrimSpace(input) == "" || t.history().EndsWithUserTurn(callerID) {
		return
	}
	t.stage(core.NewTurn(core.RoleUser, input, ""))
}

// say emits an utterance and makes it the pending slot.
func (t *turn) say(text, agent string) {
	t.messages = append(t.messages, core.ResponseMessage{Text: text, AgentName: agent})
	t.stage(core.NewTurn(core.RoleAssistant, text, agent))
	t.pending = &pendingSlot{message: len(t.messages) - 1, entry: len(t.appended) - 1}
}

func (t *turn) recordTool(line, agent string) {
	t.stage(core.NewTurn(core.RoleTool, line, agent))
}

// override replaces the pending utterance with text, or emits text when there
// is none.
func (t *turn) override(text, agent string) {
	if t.pending == nil {
		t.say(text, agent)
		return
	}
	t.messages[t.pending.message] = core.ResponseMessage{Text: text, AgentName: agent}
	t.appended[t.pending.entry].Content = text
	t.appended[t.pending.entry].Agent = agent
}

func (t *turn) stage(entry core.Turn) {
	t.appended = append(t.appended, entry)
	t.pending = nil
}

func (t *turn) result() core.TurnResult {
	return core.TurnResult{
		State:         t.state,
		Messages:      t.messages,
		History:       t.history(),
		Appended:      t.appended,
		PendingAction: t.pendingAction,
		Iterations:    t.iterations,
	}
}

func toolErrorMessage(err error) string {
	return tool.ErrorMessage(err)
}
