// Package bundle resolves agent configuration bundles: an agent's
// instructions, generation parameters and canned messages for one language
// and tenant. Resolution goes through an injected Cache so the read-mostly
// bundle data can be shared safely between concurrently running conversations.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/agentdesk/core"
	"github.com/hupe1980/agentdesk/logging"
)

// DefaultTTL is how long a resolved bundle is reused before the store is
// consulted again.
const DefaultTTL = 60 * time.Second

// Options configures a Resolver.
type Options struct {
	// Cache defaults to a TTLCache with DefaultTTL.
	Cache Cache
	// Logger defaults to NoOp.
	Logger logging.Logger
}

// Resolver loads bundles from a core.BundleStore through a Cache.
type Resolver struct {
	store  core.BundleStore
	cache  Cache
	logger logging.Logger
}

// NewResolver creates a Resolver over store.
func NewResolver(store core.BundleStore, optFns ...func(o *Options)) *Resolver {
	opts := Options{
		Cache:  NewTTLCache(DefaultTTL),
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Resolver{store: store, cache: opts.Cache, logger: logging.OrNoOp(opts.Logger)}
}

// Resolve returns the bundle for (agent, language, tenant). Misses are not
// cached, so a bundle created after a not-found answer becomes visible on
// the next call.
func (r *Resolver) Resolve(ctx context.Context, agent, language, tenant string) (*core.AgentBundle, error) {
	if agent == "" {
		return nil, fmt.Errorf("resolve bundle: empty agent name: %w", core.ErrBundleNotFound)
	}

	key := Key{Agent: agent, Language: language, Tenant: tenant}
	if b, ok := r.cache.Get(key); ok {
		return b, nil
	}

	b, err := r.store.FetchBundle(ctx, agent, language, tenant)
	if err != nil {
		if errors.Is(err, core.ErrBundleNotFound) {
			r.logger.Debug("bundle.resolve.not_found", "agent", agent, "language", language, "tenant", tenant)
			return nil, err
		}
		return nil, fmt.Errorf("resolve bundle %s/%s: %w", agent, language, err)
	}
	if b == nil {
		return nil, core.ErrBundleNotFound
	}

	r.cache.Set(key, b)

	return b, nil
}

// Purge forgets every cached bundle, e.g. after the store was reloaded.
func (r *Resolver) Purge() {
	r.cache.Purge()
	r.logger.Info("bundle.cache.purged")
}
