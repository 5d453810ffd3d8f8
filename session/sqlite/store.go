// Package sqlite provides a durable store backed by SQLite (the pure Go
// modernc.org/sqlite driver). One Store implements core.ConversationStore,
// core.TenantResolver and core.BundleStore over a single database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/hupe1980/agentdesk/core"
)

// DriverName is the database/sql driver name registered by modernc.org/sqlite.
const DriverName = "sqlite"

// Store is safe for concurrent use (SQLite serializes writes).
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and migrates it.
// ":memory:" databases are limited to one connection so every query sees
// the same database.
func Open(path string) (*Store, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	s, err := NewStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore wraps an open database and creates the schema on first use.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conversation_state (
			conversation_id TEXT PRIMARY KEY,
			state_json      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS conversation_turns (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			turn_id         TEXT NOT NULL,
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			agent           TEXT NOT NULL DEFAULT '',
			created_at      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversation_turns_conversation
			ON conversation_turns(conversation_id, seq);
		CREATE TABLE IF NOT EXISTS bots (
			bot_id    TEXT PRIMARY KEY,
			client_id TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS agent_bundles (
			agent            TEXT NOT NULL,
			language         TEXT NOT NULL,
			tenant           TEXT NOT NULL DEFAULT '',
			instructions     TEXT NOT NULL,
			temperature      REAL,
			max_tokens       INTEGER,
			retrieval        INTEGER NOT NULL DEFAULT 0,
			knowledge_source TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (agent, language, tenant)
		);
		CREATE TABLE IF NOT EXISTS agent_messages (
			agent    TEXT NOT NULL,
			tenant   TEXT NOT NULL DEFAULT '',
			kind     TEXT NOT NULL,
			language TEXT NOT NULL,
			text     TEXT NOT NULL,
			PRIMARY KEY (agent, tenant, kind, language)
		);
	`)
	return err
}

// LoadState returns the conversation's state or core.ErrConversationNotFound.
// Numbers come back as float64 since state is stored as JSON.
func (s *Store) LoadState(ctx context.Context, conversationID string) (core.State, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT state_json FROM conversation_state WHERE conversation_id = ?`,
		conversationID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load state %s: %w", conversationID, core.ErrConversationNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", conversationID, err)
	}

	state := core.State{}
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", conversationID, err)
	}
	return state, nil
}

// SaveState upserts the conversation's state.
func (s *Store) SaveState(ctx context.Context, conversationID string, state core.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state %s: %w", conversationID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_state (conversation_id, state_json, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (conversation_id) DO UPDATE
		 SET state_json = excluded.state_json, updated_at = excluded.updated_at`,
		conversationID, string(raw), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save state %s: %w", conversationID, err)
	}
	return nil
}

// LoadHistory returns the transcript in append order, or
// core.ErrConversationNotFound when the conversation has neither turns nor
// state.
func (s *Store) LoadHistory(ctx context.Context, conversationID string) (core.History, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT turn_id, role, content, agent, created_at
		 FROM conversation_turns WHERE conversation_id = ? ORDER BY seq`,
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", conversationID, err)
	}
	defer rows.Close()

	history := core.History{}
	for rows.Next() {
		var (
			t       core.Turn
			role    string
			created string
		)
		if err := rows.Scan(&t.ID, &role, &t.Content, &t.Agent, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Role = core.Role(role)
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			t.Timestamp = ts
		}
		history = append(history, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history %s: %w", conversationID, err)
	}

	if len(history) == 0 {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM conversation_state WHERE conversation_id = ?)`,
			conversationID,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("load history %s: %w", conversationID, err)
		}
		if !exists {
			return nil, fmt.Errorf("load history %s: %w", conversationID, core.ErrConversationNotFound)
		}
	}

	return history, nil
}

// AppendTurns inserts turns in one transaction.
func (s *Store) AppendTurns(ctx context.Context, conversationID string, turns ...core.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, t := range turns {
		if t.ID == "" {
			t.ID = core.NewID()
		}
		if t.Timestamp.IsZero() {
			t.Timestamp = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO conversation_turns (conversation_id, turn_id, role, content, agent, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			conversationID, t.ID, string(t.Role), t.Content, t.Agent, t.Timestamp.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("append turn %s: %w", conversationID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// RegisterBot maps botID to its owning client.
func (s *Store) RegisterBot(ctx context.Context, botID, clientID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bots (bot_id, client_id) VALUES (?, ?)
		 ON CONFLICT (bot_id) DO UPDATE SET client_id = excluded.client_id`,
		botID, clientID,
	)
	if err != nil {
		return fmt.Errorf("register bot %s: %w", botID, err)
	}
	return nil
}

// ResolveClient implements core.TenantResolver.
func (s *Store) ResolveClient(ctx context.Context, botID string) (string, error) {
	var client string
	err := s.db.QueryRowContext(ctx, `SELECT client_id FROM bots WHERE bot_id = ?`, botID).Scan(&client)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("resolve bot %s: %w", botID, core.ErrTenantNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("resolve bot %s: %w", botID, err)
	}
	return client, nil
}
