package tool

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentdesk/logging"
)

// DefaultTimeout bounds one tool call.
const DefaultTimeout = 15 * time.Second

// Options configures an Invoker.
type Options struct {
	// Timeout bounds each call. Zero disables the deadline.
	Timeout time.Duration
	// Reducers maps tool names to result reducers; tools without one use
	// GenericSummary. Defaults to DefaultReducers().
	Reducers map[string]Reducer
	Logger   logging.Logger
}

// Invoker runs registered tools and reduces their results to one line.
type Invoker struct {
	registry *Registry
	opts     Options
	logger   logging.EventLogger
}

// NewInvoker creates an Invoker over registry.
func NewInvoker(registry *Registry, optFns ...func(o *Options)) *Invoker {
	opts := Options{
		Timeout:  DefaultTimeout,
		Reducers: DefaultReducers(),
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if registry == nil {
		registry = NewRegistry()
	}

	return &Invoker{registry: registry, opts: opts, logger: logging.Events(opts.Logger)}
}

// Invoke runs the tool called name and returns its reduced summary. Every
// failure, including unknown names, panics and timeouts, is a *ToolError.
func (inv *Invoker) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	t, ok := inv.registry.Get(name)
	if !ok {
		err := &ToolError{Tool: name, Message: fmt.Sprintf("unknown tool %q", name), Code: CodeNotFound, cause: ErrToolNotFound}
		inv.logger.LogToolCall(name, 0, false, err)
		return "", err
	}
	if args == nil {
		args = map[string]any{}
	}

	inv.logger.Debug("tool.call.start", "tool", name)
	start := time.Now()

	result, err := inv.call(ctx, t, args)
	inv.logger.LogToolCall(name, time.Since(start), err == nil, err)
	if err != nil {
		return "", err
	}

	return inv.reduce(name, result), nil
}

type callResult struct {
	value any
	err   error
}

func (inv *Invoker) call(ctx context.Context, t Tool, args map[string]any) (any, error) {
	if inv.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, inv.opts.Timeout)
		defer cancel()
	}

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: &ToolError{Tool: t.Name(), Message: fmt.Sprintf("panic: %v", r), Code: CodePanic}}
			}
		}()
		v, err := t.Call(ctx, args)
		done <- callResult{value: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.value, nil
		}
		var toolErr *ToolError
		if errors.As(res.err, &toolErr) {
			return nil, toolErr
		}
		if errors.Is(res.err, context.DeadlineExceeded) {
			return nil, &ToolError{Tool: t.Name(), Message: "timed out", Code: CodeTimeout, cause: res.err}
		}
		return nil, &ToolError{Tool: t.Name(), Message: res.err.Error(), Code: CodeExecution, cause: res.err}
	case <-ctx.Done():
		code := CodeTimeout
		msg := "timed out"
		if errors.Is(ctx.Err(), context.Canceled) {
			code, msg = CodeExecution, "canceled"
		}
		return nil, &ToolError{Tool: t.Name(), Message: msg, Code: code, cause: ctx.Err()}
	}
}

func (inv *Invoker) reduce(name string, result any) string {
	if r, ok := inv.opts.Reducers[name]; ok && r != nil {
		return r(result)
	}
	return GenericSummary(result)
}
