package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentdesk/core"
	"github.com/hupe1980/agentdesk/logging"
)

// CallbackType defines the lifecycle points of a turn where callbacks run.
//
// Callbacks are executed synchronously in registration order. Their errors
// never escape ProcessInput: most are logged and ignored, while the two
// veto points below change what the engine does next.
//
//   - BeforeTool: an error rejects the call; the model sees a TOOL_ERROR line.
//   - OnStateChange: an error rejects the set_state patch.
type CallbackType string

const (
	// CallbackBeforeDecision is triggered before the model is asked for a Decision.
	CallbackBeforeDecision CallbackType = "before_decision"

	// CallbackAfterDecision is triggered once a Decision (possibly the
	// fail-closed apology) is available.
	CallbackAfterDecision CallbackType = "after_decision"

	// CallbackBeforeTool is triggered before a tool runs.
	CallbackBeforeTool CallbackType = "before_tool"

	// CallbackAfterTool is triggered after a tool ran, with its summary or error.
	CallbackAfterTool CallbackType = "after_tool"

	// CallbackOnStateChange is triggered before a set_state patch is merged.
	CallbackOnStateChange CallbackType = "on_state_change"

	// CallbackOnHandoff is triggered after the active agent changed.
	CallbackOnHandoff CallbackType = "on_handoff"
)

// CallbackContext carries what a callback may inspect. Fields irrelevant to
// the callback type are zero.
type CallbackContext struct {
	CallbackType CallbackType

	// Agent is the active agent at the time of the callback.
	Agent string

	// State is the turn's working state. Callbacks must treat it as read-only.
	State core.State

	// Decision is set for CallbackAfterDecision.
	Decision *core.Decision

	// ToolName, ToolArgs, ToolSummary and ToolErr describe a tool call.
	ToolName    string
	ToolArgs    map[string]any
	ToolSummary string
	ToolErr     error

	// StateDelta is the proposed patch for CallbackOnStateChange.
	StateDelta map[string]any

	// HandoffFrom and HandoffTo are set for CallbackOnHandoff.
	HandoffFrom string
	HandoffTo   string

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback is one lifecycle hook.
//
// Implementations should be fast since they run inline with the turn.
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := NewFunctionCallback(
//	    CallbackOnHandoff,
//	    func(ctx context.Context, cc *CallbackContext) error {
//	        log.Printf("handoff %s -> %s", cc.HandoffFrom, cc.HandoffTo)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager is the registry of lifecycle callbacks. Registration and
// execution are safe for concurrent use.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback for its type. Callbacks of one type run
// in registration order.
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks runs all callbacks for callbackType and stops at the first
// error, which is returned. A panicking callback is reported as an error.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) (err error) {
	if cm == nil {
		return nil
	}

	cm.mu.RLock()
	callbacks := append([]Callback(nil), cm.callbacks[callbackType]...)
	cm.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s callback panicked: %v", callbackType, r)
		}
	}()

	callbackCtx.CallbackType = callbackType
	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback writes every lifecycle event of one type to a Logger.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logging.OrNoOp(logger),
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the event at debug level.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	args := []any{"agent", callbackCtx.Agent}
	switch {
	case callbackCtx.ToolName != "":
		args = append(args, "tool", callbackCtx.ToolName)
	case callbackCtx.HandoffTo != "":
		args = append(args, "from", callbackCtx.HandoffFrom, "to", callbackCtx.HandoffTo)
	case callbackCtx.Decision != nil:
		args = append(args, "action", string(callbackCtx.Decision.ActionOrStop().Type()))
	}
	c.logger.Debug("engine.callback."+string(c.callbackType), args...)
	return nil
}

// StateValidationCallback validates set_state patches before they are merged.
//
// Example:
//
//	validator := func(delta map[string]any) error {
//	    if _, ok := delta[core.KeyClientID]; ok {
//	        return errors.New("client_id is read-only")
//	    }
//	    return nil
//	}
//	callback := NewStateValidationCallback(validator)
type StateValidationCallback struct {
	validator func(stateDelta map[string]any) error
}

// NewStateValidationCallback creates a new state validation callback.
func NewStateValidationCallback(validator func(stateDelta map[string]any) error) *StateValidationCallback {
	return &StateValidationCallback{
		validator: validator,
	}
}

// Type returns the callback type (always CallbackOnStateChange).
func (c *StateValidationCallback) Type() CallbackType {
	return CallbackOnStateChange
}

// Execute runs the validator over the proposed patch.
func (c *StateValidationCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.validator != nil && callbackCtx.StateDelta != nil {
		return c.validator(callbackCtx.StateDelta)
	}
	return nil
}

// ProtectedKeysValidator rejects patches that touch any of keys.
func ProtectedKeysValidator(keys ...string) func(map[string]any) error {
	return func(delta map[string]any) error {
		for _, k := range keys {
			if _, ok := delta[k]; ok {
				return fmt.Errorf("state key %q cannot be set by an agent", k)
			}
		}
		return nil
	}
}
