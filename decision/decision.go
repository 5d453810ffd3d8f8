// Package decision turns an agent bundle, the conversation history and the
// session state into one model request and parses the reply into a
// core.Decision.
//
// The Requester fails closed: transport errors, provider errors, timeouts and
// malformed replies all yield an apology Decision whose action is Stop.
package decision

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hupe1980/agentdesk/core"
	"github.com/hupe1980/agentdesk/internal/util"
	"github.com/hupe1980/agentdesk/logging"
	"github.com/hupe1980/agentdesk/model"
)

// Generation fallbacks used when a bundle leaves a parameter unset.
const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = int64(1024)
	DefaultTimeout     = 60 * time.Second
)

// Options configures a Requester.
type Options struct {
	// Timeout bounds each model call. Zero disables the per-call deadline.
	Timeout time.Duration

	Temperature float64
	MaxTokens   int64

	// JSONObject asks the provider for JSON-constrained output when supported.
	JSONObject bool

	Logger logging.Logger
}

// Requester requests Decisions from a model.
type Requester struct {
	model  model.Model
	opts   Options
	logger logging.EventLogger
}

// New creates a Requester over m.
func New(m model.Model, optFns ...func(o *Options)) *Requester {
	opts := Options{
		Timeout:     DefaultTimeout,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		JSONObject:  true,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Requester{model: m, opts: opts, logger: logging.Events(opts.Logger)}
}

// Request asks the model what the agent described by bundle should do next.
// It never returns an error; failures produce Apology(state.Language()).
func (r *Requester) Request(ctx context.Context, bundle *core.AgentBundle, history core.History, state core.State) core.Decision {
	language := state.Language()
	if bundle == nil {
		r.logger.Warn("decision.no_bundle", "agent", state.ActiveAgent(), "language", language)
		return Apology(language)
	}

	req := r.BuildRequest(bundle, history, state)

	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	modelName := r.model.Info().Name
	start := time.Now()

	resp, err := r.model.Generate(ctx, req)
	if err != nil {
		r.logger.LogDecision(bundle.Agent, modelName, time.Since(start), false, err)
		return Apology(language)
	}

	d, err := ParseReply(resp.Text)
	if err != nil {
		r.logger.LogDecision(bundle.Agent, modelName, time.Since(start), false, err)
		r.logger.Debug("decision.raw_reply", "agent", bundle.Agent, "reply", resp.Text)
		return Apology(language)
	}

	r.logger.LogDecision(bundle.Agent, modelName, time.Since(start), true, nil)

	return d
}

// BuildRequest assembles the model request: the interpolated instructions
// plus the reply format, then the session state, then the history.
func (r *Requester) BuildRequest(bundle *core.AgentBundle, history core.History, state core.State) model.Request {
	instructions, missing := util.InterpolateState(bundle.Instructions, state)
	if len(missing) > 0 {
		r.logger.Warn("decision.unresolved_placeholders", "agent", bundle.Agent, "keys", missing)
	}

	messages := make([]model.Message, 0, len(history)+2)
	messages = append(messages,
		model.Message{Role: model.RoleSystem, Content: strings.TrimSpace(instructions) + "\n\n" + ReplyFormat},
		model.Message{Role: model.RoleSystem, Content: RenderState(state)},
	)

	for _, turn := range history {
		if turn.Content == "" {
			continue
		}
		role := model.RoleUser
		if turn.Role == core.RoleAssistant {
			role = model.RoleAssistant
		}
		messages = append(messages, model.Message{Role: role, Content: turn.Content})
	}

	temperature := r.opts.Temperature
	if bundle.Temperature != nil {
		temperature = *bundle.Temperature
	}
	maxTokens := r.opts.MaxTokens
	if bundle.MaxTokens != nil && *bundle.MaxTokens > 0 {
		maxTokens = *bundle.MaxTokens
	}

	return model.Request{
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		JSONObject:  r.opts.JSONObject,
	}
}

// RenderState renders the session state as the second system message.
func RenderState(state core.State) string {
	b, err := json.Marshal(state)
	if err != nil {
		b = []byte("{}")
	}
	return "Current session state:\n" + string(b)
}
