package engine

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/hupe1980/agentdesk/core"
	"github.com/hupe1980/agentdesk/decision"
	"github.com/hupe1980/agentdesk/logging"
	"github.com/hupe1980/agentdesk/retrieval"
)

// BundleResolver resolves agent bundles. *bundle.Resolver implements it.
type BundleResolver interface {
	Resolve(ctx context.Context, agent, language, tenant string) (*core.AgentBundle, error)
}

// DecisionRequester asks the model for the next Decision and never fails.
// *decision.Requester implements it.
type DecisionRequester interface {
	Request(ctx context.Context, bundle *core.AgentBundle, history core.History, state core.State) core.Decision
}

// ToolInvoker runs a tool and returns its one-line summary. *tool.Invoker
// implements it.
type ToolInvoker interface {
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

// Augmentor looks up retrieval context. *retrieval.Augmentor implements it.
type Augmentor interface {
	Augment(ctx context.Context, query string, bundle *core.AgentBundle, state core.State) retrieval.Result
}

// Defaults for Options.
const (
	DefaultAgent    = "info"
	DefaultLanguage = "es"
)

// Options configures an Engine.
type Options struct {
	// DefaultAgent is the coordinator: new conversations start with it and
	// specialists hand control back to it on finish_turn.
	DefaultAgent string

	// DefaultLanguage seeds the language of new conversations.
	DefaultLanguage string

	// Specialists lists the agents that return control to DefaultAgent when
	// they finish a turn. When empty, every agent other than DefaultAgent is
	// a specialist.
	Specialists []string

	// Augmentor is optional; without it retrieval is skipped.
	Augmentor Augmentor

	// Invoker is optional; without it every call_tool action fails with a
	// TOOL_ERROR line.
	Invoker ToolInvoker

	// TenantResolver is optional; it fills client_id from bot_id.
	TenantResolver core.TenantResolver

	// Callbacks is optional.
	Callbacks *CallbackManager

	Logger logging.Logger
}

// Engine runs the bounded decision loop of one conversation turn. An Engine
// holds no per-conversation state and is safe for concurrent use; callers
// must serialise turns of the same conversation.
type Engine struct {
	resolver  BundleResolver
	requester DecisionRequester
	opts      Options
	logger    logging.EventLogger
}

// New creates an Engine.
//
// Example:
//
//	eng := engine.New(
//	    bundle.NewResolver(store),
//	    decision.New(model),
//	    func(o *engine.Options) {
//	        o.DefaultAgent = "info"
//	        o.Invoker = tool.NewInvoker(registry)
//	    },
//	)
func New(resolver BundleResolver, requester DecisionRequester, optFns ...func(o *Options)) *Engine {
	opts := Options{
		DefaultAgent:    DefaultAgent,
		DefaultLanguage: DefaultLanguage,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Engine{
		resolver:  resolver,
		requester: requester,
		opts:      opts,
		logger:    logging.Events(opts.Logger),
	}
}

// ProcessInput runs one turn. It never returns an error: every failure is
// logged and turned into a fallback (apology message, TOOL_ERROR line, or a
// skipped step). The caller's State and History are not modified.
func (e *Engine) ProcessInput(ctx context.Context, in core.TurnInput) (result core.TurnResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("engine.turn.panic", "panic", r)
			result = e.panicResult(in)
		}
	}()

	t := newTurn(in.State, in.History)
	e.seed(t.state)
	e.resolveTenant(ctx, t.state)

	handback := t.state.ConsumeHandback()

	e.logger.Debug("engine.turn.start",
		"agent", t.state.ActiveAgent(),
		"language", t.state.Language(),
		"handback", handback,
		"history", len(in.History),
	)

	terminal := e.run(ctx, t, in, handback)

	result = t.result()
	e.logger.LogTurn(t.state.ActiveAgent(), result.Iterations, len(result.Messages), time.Since(start), terminal)

	return result
}

func (e *Engine) run(ctx context.Context, t *turn, in core.TurnInput, handback bool) string {
	lang := t.state.Language()
	userInput := in.UserInput
	startAgent := t.state.ActiveAgent()

	if len(t.base) == 0 {
		if text, ok := e.cannedMessage(ctx, t.state, t.state.ActiveAgent(), core.MessageWelcome); ok {
			t.say(text, t.state.ActiveAgent())
			return "welcome"
		}
	}

	t.recordUser(userInput, in.UserTurnID)

	if handback {
		if text, ok := e.cannedMessage(ctx, t.state, t.state.ActiveAgent(), core.MessageHandback); ok {
			t.say(text, t.state.ActiveAgent())
			return "handback"
		}
	}

	limiter := core.NewDecisionLimiter(core.MaxDecisionsPerTurn)
	for limiter.Increment() == nil {
		t.iterations = limiter.Count()
		agent := t.state.ActiveAgent()

		bundle, err := e.resolver.Resolve(ctx, agent, lang, t.state.Tenant())
		if err != nil {
			e.logger.Warn("engine.bundle.unavailable", "agent", agent, "language", lang, "error", err.Error())
			if errors.Is(err, core.ErrBundleNotFound) {
				e.recoverAgent(t, agent, startAgent)
			}
			t.say(decision.Apology(lang).Say, t.state.ActiveAgent())
			return "bundle_unavailable"
		}

		e.logger.Debug("engine.decision.start", "agent", agent, "iteration", t.iterations, "remaining", limiter.Remaining())

		d := e.decide(ctx, t, bundle, userInput)
		if d.Say != "" {
			t.say(d.Say, agent)
		}
		if decision.IsApology(d) {
			return "decision_failed"
		}

		action := d.ActionOrStop()

		if h, ok := action.(core.Handoff); ok && !e.resolvable(ctx, t.state, h.Target) {
			e.logger.Warn("engine.handoff.unknown_target", "agent", agent, "target", h.Target)
			t.say(decision.Apology(lang).Say, agent)
			return "handoff_unavailable"
		}

		if h, ok := action.(core.Handoff); ok && IsAffirmative(userInput) {
			if text, ok := bundle.Message(core.MessageHandoffConfirmation, lang); ok {
				t.override(text, agent)
				e.handoff(ctx, t, agent, h.Target)
				t.pendingAction = &core.PendingAction{Type: core.ActionHandoff, Target: h.Target}
				return "handoff_confirmation"
			}
		}

		switch a := action.(type) {
		case core.Stop:
			return "stop"

		case core.SetState:
			e.setState(ctx, t, agent, a.Patch)

		case core.CallTool:
			e.callTool(ctx, t, agent, a)

		case core.Handoff:
			e.handoff(ctx, t, agent, a.Target)

		case core.FinishTurn:
			if e.isSpecialist(agent) {
				e.handoff(ctx, t, agent, e.opts.DefaultAgent)
				t.state[core.KeyHandbackTurn] = true
			}
			if text, ok := bundle.Message(core.MessageEndOfTask, lang); ok {
				t.override(text, agent)
			}
			t.pendingAction = &core.PendingAction{Type: core.ActionFinishTurn}
			return string(core.ActionFinishTurn)

		case core.EndConversation:
			if text, ok := bundle.Message(core.MessageFarewell, lang); ok {
				t.override(text, agent)
			}
			t.pendingAction = &core.PendingAction{Type: core.ActionEndConversation}
			return string(core.ActionEndConversation)

		default:
			e.logger.Warn("engine.action.unrecognized", "agent", agent, "type", string(action.Type()))
			return "unrecognized_action"
		}
	}

	e.logger.Warn("engine.turn.cap_reached", "agent", t.state.ActiveAgent(), "max", core.MaxDecisionsPerTurn)

	return "cap_reached"
}

func (e *Engine) decide(ctx context.Context, t *turn, bundle *core.AgentBundle, userInput string) core.Decision {
	history := t.history()
	if bundle.RetrievalEnabled && e.opts.Augmentor != nil {
		res := e.opts.Augmentor.Augment(ctx, userInput, bundle, t.state)
		history = retrieval.AugmentHistory(history, res.Block)
	}

	e.callback(ctx, CallbackBeforeDecision, &CallbackContext{Agent: bundle.Agent, State: t.state})

	d := e.requester.Request(ctx, bundle, history, t.state)

	e.callback(ctx, CallbackAfterDecision, &CallbackContext{Agent: bundle.Agent, State: t.state, Decision: &d})

	return d
}

func (e *Engine) setState(ctx context.Context, t *turn, agent string, patch map[string]any) {
	cc := &CallbackContext{Agent: agent, State: t.state, StateDelta: patch}
	if err := e.callback(ctx, CallbackOnStateChange, cc); err != nil {
		e.logger.Warn("engine.state.rejected", "agent", agent, "error", err.Error())
		return
	}
	t.state.Merge(patch)
}

func (e *Engine) callTool(ctx context.Context, t *turn, agent string, call core.CallTool) {
	cc := &CallbackContext{Agent: agent, State: t.state, ToolName: call.Name, ToolArgs: call.Args}

	var summary string
	err := errNoInvoker
	if e.opts.Invoker != nil {
		if err = e.callback(ctx, CallbackBeforeTool, cc); err == nil {
			summary, err = e.opts.Invoker.Invoke(ctx, call.Name, call.Args)
		}
	}

	line := summary
	if err != nil {
		line = core.ToolErrorPrefix + " " + toolErrorMessage(err)
		e.logger.Warn("tool.call.error", "agent", agent, "tool", call.Name, "error", err.Error())
	}
	t.recordTool(line, agent)

	cc.ToolSummary, cc.ToolErr = summary, err
	e.callback(ctx, CallbackAfterTool, cc)
}

func (e *Engine) handoff(ctx context.Context, t *turn, from, to string) {
	t.state[core.KeyActiveAgent] = to
	if from == to {
		return
	}
	e.logger.Info("engine.handoff", "from", from, "to", to)
	e.callback(ctx, CallbackOnHandoff, &CallbackContext{Agent: to, State: t.state, HandoffFrom: from, HandoffTo: to})
}

// resolvable reports whether agent has a bundle for the conversation's
// language and tenant.
func (e *Engine) resolvable(ctx context.Context, state core.State, agent string) bool {
	_, err := e.resolver.Resolve(ctx, agent, state.Language(), state.Tenant())
	return err == nil
}

// recoverAgent moves the conversation off an agent that has no bundle: back
// to the agent the turn started with, or to the default agent.
func (e *Engine) recoverAgent(t *turn, missing, startAgent string) {
	target := startAgent
	if target == missing {
		target = e.opts.DefaultAgent
	}
	if target == missing {
		return
	}
	t.state[core.KeyActiveAgent] = target
	e.logger.Warn("engine.agent.recovered", "from", missing, "to", target)
}

// cannedMessage resolves agent's bundle and looks up kind. A missing bundle
// is a soft condition.
func (e *Engine) cannedMessage(ctx context.Context, state core.State, agent string, kind core.MessageKind) (string, bool) {
	b, err := e.resolver.Resolve(ctx, agent, state.Language(), state.Tenant())
	if err != nil {
		e.logger.Debug("engine.bundle.skip", "agent", agent, "kind", string(kind), "error", err.Error())
		return "", false
	}
	return b.Message(kind, state.Language())
}

func (e *Engine) seed(state core.State) {
	if state.ActiveAgent() == "" {
		state[core.KeyActiveAgent] = e.opts.DefaultAgent
	}
	if state.Language() == "" {
		state[core.KeyLanguage] = e.opts.DefaultLanguage
	}
}

func (e *Engine) resolveTenant(ctx context.Context, state core.State) {
	botID, ok := state.String(core.KeyBotID)
	if !ok || state.Tenant() != "" || e.opts.TenantResolver == nil {
		return
	}
	client, err := e.opts.TenantResolver.ResolveClient(ctx, botID)
	if err != nil {
		e.logger.Warn("engine.tenant.unresolved", "bot_id", botID, "error", err.Error())
		return
	}
	state[core.KeyClientID] = client
}

func (e *Engine) isSpecialist(agent string) bool {
	if agent == e.opts.DefaultAgent {
		return false
	}
	if len(e.opts.Specialists) == 0 {
		return true
	}
	return slices.Contains(e.opts.Specialists, agent)
}

func (e *Engine) callback(ctx context.Context, ct CallbackType, cc *CallbackContext) error {
	if e.opts.Callbacks == nil {
		return nil
	}
	err := e.opts.Callbacks.ExecuteCallbacks(ctx, ct, cc)
	if err != nil && ct != CallbackOnStateChange && ct != CallbackBeforeTool {
		e.logger.Warn("engine.callback.error", "type", string(ct), "error", err.Error())
	}
	return err
}

// panicResult is the worst case: the caller's state with the hand-back flag
// consumed, no new history, and an apology.
func (e *Engine) panicResult(in core.TurnInput) core.TurnResult {
	state := in.State.Clone()
	e.seed(state)
	state.ConsumeHandback()
	apology := decision.Apology(state.Language())
	return core.TurnResult{
		State:    state,
		Messages: []core.ResponseMessage{{Text: apology.Say, AgentName: state.ActiveAgent()}},
		History:  in.History.Clone(),
		Appended: core.History{},
	}
}

// IsAffirmative reports whether input is a bare yes: "si", "sí" or "yes" in
// any case, ignoring surrounding whitespace and punctuation.
func IsAffirmative(input string) bool {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.Trim(s, " .,!¡?¿")
	switch s {
	case "si", "sí", "yes":
		return true
	default:
		return false
	}
}
