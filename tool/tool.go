// Package tool implements the capabilities an agent can ask the engine to
// run through a call_tool action: the Tool interface, a FunctionTool adapter,
// a Registry, and the Invoker that executes a tool under a timeout and reduces
// its result to one line of text for the model.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agentdesk/internal/util"
)

// Tool is a named capability with a JSON schema for its arguments.
//
// Implementations must be safe for concurrent use: one Tool instance serves
// every conversation.
type Tool interface {
	// Name returns the identifier models use in call_tool actions (snake_case recommended).
	Name() string

	// Description returns a human-readable description of what this tool does.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool. ctx carries the invoker's per-call deadline.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodePanic      = "PANIC"
	CodeTimeout    = "TIMEOUT"
)

// ErrToolNotFound is wrapped by the ToolError returned for unknown tool names.
var ErrToolNotFound = errors.New("tool not found")

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
	cause   error
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ToolError) Unwrap() error { return e.cause }

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// ErrorMessage returns the short message used for TOOL_ERROR history lines:
// the ToolError message when err is one, err.Error() otherwise.
func ErrorMessage(err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr.Message
	}
	return err.Error()
}
