package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hupe1980/agentdesk/core"
)

// PutBundle upserts b's row and replaces all of its canned messages.
func (s *Store) PutBundle(ctx context.Context, b *core.AgentBundle) error {
	if b == nil || b.Agent == "" || b.Language == "" {
		return errors.New("put bundle: agent and language are required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put bundle: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO agent_bundles (agent, language, tenant, instructions, temperature, max_tokens, retrieval, knowledge_source)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (agent, language, tenant) DO UPDATE SET
		   instructions = excluded.instructions,
		   temperature = excluded.temperature,
		   max_tokens = excluded.max_tokens,
		   retrieval = excluded.retrieval,
		   knowledge_source = excluded.knowledge_source`,
		b.Agent, b.Language, b.Tenant, b.Instructions,
		nullFloat(b.Temperature), nullInt(b.MaxTokens), b.RetrievalEnabled, b.KnowledgeSource,
	)
	if err != nil {
		return fmt.Errorf("put bundle %s: %w", b.Agent, err)
	}

	for kind, byLang := range b.Messages {
		for lang, text := range byLang {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO agent_messages (agent, tenant, kind, language, text) VALUES (?, ?, ?, ?, ?)
				 ON CONFLICT (agent, tenant, kind, language) DO UPDATE SET text = excluded.text`,
				b.Agent, b.Tenant, string(kind), lang, text,
			)
			if err != nil {
				return fmt.Errorf("put message %s/%s: %w", b.Agent, kind, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put bundle: %w", err)
	}
	return nil
}

// FetchBundle implements core.BundleStore. A tenant-specific row wins over
// the global one (tenant '').
func (s *Store) FetchBundle(ctx context.Context, agent, language, tenant string) (*core.AgentBundle, error) {
	var (
		b           = core.AgentBundle{Agent: agent, Language: language}
		temperature sql.NullFloat64
		maxTokens   sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT tenant, instructions, temperature, max_tokens, retrieval, knowledge_source
		 FROM agent_bundles
		 WHERE agent = ? AND language = ? AND tenant IN (?, '')
		 ORDER BY tenant = '' LIMIT 1`,
		agent, language, tenant,
	).Scan(&b.Tenant, &b.Instructions, &temperature, &maxTokens, &b.RetrievalEnabled, &b.KnowledgeSource)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetch bundle %s/%s/%s: %w", agent, language, tenant, core.ErrBundleNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch bundle %s: %w", agent, err)
	}
	if temperature.Valid {
		b.Temperature = &temperature.Float64
	}
	if maxTokens.Valid {
		b.MaxTokens = &maxTokens.Int64
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, language, text FROM agent_messages WHERE agent = ? AND tenant = ?`,
		agent, b.Tenant,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch messages %s: %w", agent, err)
	}
	defer rows.Close()

	b.Messages = map[core.MessageKind]map[string]string{}
	for rows.Next() {
		var kind, lang, text string
		if err := rows.Scan(&kind, &lang, &text); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		k := core.MessageKind(kind)
		if b.Messages[k] == nil {
			b.Messages[k] = map[string]string{}
		}
		b.Messages[k][lang] = text
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch messages %s: %w", agent, err)
	}

	return &b, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
