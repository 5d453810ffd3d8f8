// Package retrieval enriches a decision request with knowledge passages.
//
// The Augmentor never fails a turn: lookup errors, timeouts and empty result
// sets all produce an empty Result. Augmented context is applied to a copy of
// the history that only the current model request sees.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentdesk/core"
	"github.com/hupe1980/agentdesk/logging"
)

// Defaults for Options.
const (
	DefaultMaxResults     = 4
	DefaultScoreThreshold = 0.2
	DefaultTimeout        = 5 * time.Second
)

// Options configures an Augmentor.
type Options struct {
	MaxResults     int
	ScoreThreshold float64
	Timeout        time.Duration
	Logger         logging.Logger
}

// Result is the outcome of one augmentation.
type Result struct {
	Passages []core.Passage
	// Block is the formatted context text, empty when nothing was found.
	Block string
}

// Empty reports whether the result carries no context.
func (r Result) Empty() bool { return r.Block == "" }

// Augmentor queries a core.Retriever for passages relevant to a user query.
type Augmentor struct {
	retriever core.Retriever
	opts      Options
	logger    logging.Logger
}

// New creates an Augmentor. A nil retriever yields an Augmentor that always
// returns an empty Result.
func New(retriever core.Retriever, optFns ...func(o *Options)) *Augmentor {
	opts := Options{
		MaxResults:     DefaultMaxResults,
		ScoreThreshold: DefaultScoreThreshold,
		Timeout:        DefaultTimeout,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}

	return &Augmentor{retriever: retriever, opts: opts, logger: logging.OrNoOp(opts.Logger)}
}

// Augment looks up passages for query in the bundle's knowledge source. It is
// a no-op for bundles without retrieval enabled.
func (a *Augmentor) Augment(ctx context.Context, query string, bundle *core.AgentBundle, state core.State) Result {
	if a == nil || a.retriever == nil || bundle == nil || !bundle.RetrievalEnabled {
		return Result{}
	}
	if strings.TrimSpace(query) == "" {
		return Result{}
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	tenant := state.Tenant()
	if tenant == "" {
		tenant = bundle.Tenant
	}

	start := time.Now()
	passages, err := a.retriever.Retrieve(ctx, core.RetrievalQuery{
		Query:          query,
		Source:         bundle.KnowledgeSource,
		Tenant:         tenant,
		MaxResults:     a.opts.MaxResults,
		ScoreThreshold: a.opts.ScoreThreshold,
	})
	if err != nil {
		a.logger.Warn("retrieval.failed", "agent", bundle.Agent, "source", bundle.KnowledgeSource, "error", err.Error())
		return Result{}
	}

	kept := make([]core.Passage, 0, len(passages))
	for _, p := range passages {
		if p.Score < a.opts.ScoreThreshold || strings.TrimSpace(p.Content) == "" {
			continue
		}
		kept = append(kept, p)
		if len(kept) == a.opts.MaxResults {
			break
		}
	}

	a.logger.Debug("retrieval.completed",
		"agent", bundle.Agent,
		"source", bundle.KnowledgeSource,
		"results", len(kept),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if len(kept) == 0 {
		return Result{}
	}

	return Result{Passages: kept, Block: FormatBlock(kept)}
}

// FormatBlock renders passages as the context block placed in front of the
// user's message.
func FormatBlock(passages []core.Passage) string {
	if len(passages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant context:\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(p.Content))
	}
	return b.String()
}

// AugmentHistory returns a copy of history whose most recent user turn is
// prefixed with block. history itself is never modified. With an empty block
// or no user turn the copy is returned unchanged.
func AugmentHistory(history core.History, block string) core.History {
	out := history.Clone()
	if block == "" {
		return out
	}
	idx := out.LastIndex(core.RoleUser)
	if idx < 0 {
		return out
	}
	out[idx].Content = block + "\n" + out[idx].Content
	return out
}
