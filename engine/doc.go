// Package engine implements the turn orchestrator: the bounded decision loop
// that runs once per user input.
//
// # Turn Lifecycle
//
//  1. The caller's state is cloned and seeded with the default agent and
//     language; client_id is resolved from bot_id when missing.
//  2. The one-shot isHandbackTurn flag is consumed.
//  3. Deterministic openings: a welcome message on an empty history, or a
//     hand-back message right after a specialist finished. Either one ends
//     the turn without calling the model.
//  4. Up to core.MaxDecisionsPerTurn iterations: resolve the active agent's
//     bundle, optionally augment the last user turn with retrieval context,
//     request a Decision, emit its utterance and apply its action.
//
// # Actions
//
//	set_state         merge the patch, continue
//	call_tool         run the tool, stage its summary or a TOOL_ERROR line, continue
//	handoff           switch the active agent, continue
//	finish_turn       specialists return to the coordinator; end-of-task override; stop
//	end_conversation  farewell override; stop
//	none / absent     stop
//	anything else     log, stop
//
// A handoff answered with a bare "si"/"yes" short-circuits the loop when the
// current agent has a hand-off confirmation message.
//
// # Overrides
//
// Deterministic messages replace the pending utterance of the turn: the
// latest bubble, as long as nothing has been staged after it. Otherwise they
// are appended. Entries added during a turn are returned in
// TurnResult.Appended for the caller to persist.
//
// # Failure Model
//
// ProcessInput has no error return. Missing bundles, model failures, tool
// failures and tenant lookup failures each degrade to a logged fallback.
//
// # Callbacks
//
// A CallbackManager passed through Options observes decisions, tool calls,
// state patches and hand-offs. Callbacks registered for CallbackOnStateChange
// and CallbackBeforeTool can veto the operation by returning an error.
package engine
