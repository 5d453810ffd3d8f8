// Package agentdesk provides a high-level façade over the turn engine and the
// conversation store, enabling a conversational front desk where a coordinator
// agent routes users to specialist agents. Most applications interact with
// this package by:
//  1. Building an engine.Engine (bundle resolver, decision requester, tools)
//  2. Creating a Desk via New() (optionally overriding the in-memory store)
//  3. Calling Handle once per inbound user message
//
// The façade loads and persists state and history around every turn while
// the engine owns the orchestration itself. Turns of one conversation are
// strictly sequential; different conversations run concurrently up to
// MaxConcurrentTurns.
package agentdesk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/agentdesk/core"
	"github.com/hupe1980/agentdesk/logging"
	"github.com/hupe1980/agentdesk/session"
)

// DefaultMaxConcurrentTurns bounds the number of turns processed at once.
const DefaultMaxConcurrentTurns = 10

// TurnProcessor runs one turn. *engine.Engine satisfies it.
type TurnProcessor interface {
	ProcessInput(ctx context.Context, in core.TurnInput) core.TurnResult
}

// Options configures the Desk instance.
type Options struct {
	// Store persists state and history (defaults to session.InMemoryStore).
	Store core.ConversationStore

	// MaxConcurrentTurns limits the number of turns that can execute
	// simultaneously across all conversations. Values <= 0 fall back to
	// DefaultMaxConcurrentTurns.
	MaxConcurrentTurns int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Desk is the high-level façade aggregating the engine and the conversation store.
type Desk struct {
	opts      Options
	processor TurnProcessor
	logger    logging.Logger

	sem   chan struct{}
	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	mu   sync.Mutex
	refs int
}

// New creates a new Desk around processor. Any unset store is initialized
// with an in-memory implementation.
func New(processor TurnProcessor, optFns ...func(o *Options)) *Desk {
	opts := Options{
		MaxConcurrentTurns: DefaultMaxConcurrentTurns,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Store == nil {
		opts.Store = session.NewInMemoryStore()
	}
	if opts.MaxConcurrentTurns <= 0 {
		opts.MaxConcurrentTurns = DefaultMaxConcurrentTurns
	}

	return &Desk{
		opts:      opts,
		processor: processor,
		logger:    logging.OrNoOp(opts.Logger),
		sem:       make(chan struct{}, opts.MaxConcurrentTurns),
		locks:     make(map[string]*conversationLock),
	}
}

// NewConversationID returns a fresh conversation identifier.
func NewConversationID() string { return core.NewID() }

// Handle processes one user message of conversationID. extension carries
// externally owned state fields (bot_id, CRM data, ...) merged over the
// persisted state before the turn runs.
//
// Errors only come from the store; the turn itself never fails.
func (d *Desk) Handle(ctx context.Context, conversationID, userInput string, extension core.State) (core.TurnResult, error) {
	if conversationID == "" {
		return core.TurnResult{}, errors.New("conversation id is required")
	}

	// Lock before taking a turn slot: queued turns of one conversation must
	// not hold slots.
	unlock := d.lock(conversationID)
	defer unlock()

	select {
	case d.sem <- struct{}{}:
		defer func() { <-d.sem }()
	case <-ctx.Done():
		return core.TurnResult{}, ctx.Err()
	}

	state, history, err := d.load(ctx, conversationID)
	if err != nil {
		return core.TurnResult{}, err
	}

	state.Merge(extension)
	state[core.KeyConversationID] = conversationID

	result := d.processor.ProcessInput(ctx, core.TurnInput{
		UserInput: userInput,
		State:     state,
		History:   history,
	})

	if len(result.Appended) > 0 {
		if err := d.opts.Store.AppendTurns(ctx, conversationID, result.Appended...); err != nil {
			return result, fmt.Errorf("append turns: %w", err)
		}
	}

	if err := d.opts.Store.SaveState(ctx, conversationID, result.State); err != nil {
		return result, fmt.Errorf("save state: %w", err)
	}

	d.logger.Debug("desk.turn.persisted",
		"conversation", conversationID,
		"appended", len(result.Appended),
		"messages", len(result.Messages),
	)

	return result, nil
}

func (d *Desk) load(ctx context.Context, conversationID string) (core.State, core.History, error) {
	state, err := d.opts.Store.LoadState(ctx, conversationID)
	if err != nil && !errors.Is(err, core.ErrConversationNotFound) {
		return nil, nil, fmt.Errorf("load state: %w", err)
	}

	history, err := d.opts.Store.LoadHistory(ctx, conversationID)
	if err != nil && !errors.Is(err, core.ErrConversationNotFound) {
		return nil, nil, fmt.Errorf("load history: %w", err)
	}

	if state == nil {
		state = core.State{}
	} else {
		state = state.Clone()
	}

	return state, history, nil
}

// lock serializes turns of one conversation. The returned func releases the
// lock and drops the entry once no turn is waiting on it.
func (d *Desk) lock(conversationID string) func() {
	d.mu.Lock()
	l, ok := d.locks[conversationID]
	if !ok {
		l = &conversationLock{}
		d.locks[conversationID] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, conversationID)
		}
		d.mu.Unlock()
	}
}
