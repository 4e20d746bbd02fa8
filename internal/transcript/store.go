// Package transcript persists chat exchanges to SQLite so conversations
// survive restarts and can be browsed over the REST surface.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Message is one chat exchange entry.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"` // "user" or "assistant"
	Content        string    `json:"content"`
	Intent         string    `json:"intent,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Conversation summarizes one conversation for listing.
type Conversation struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	LastAt    time.Time `json:"last_at"`
	Messages  int       `json:"messages"`
}

// Store is an append-only SQLite store for chat transcripts. All public
// methods are safe for concurrent use (SQLite serializes writes).
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore creates a transcript store at the given database path. The
// schema is created automatically on first use.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open transcript database: %w", err)
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate transcript schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcript_messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role            TEXT NOT NULL,
		content         TEXT NOT NULL,
		intent          TEXT,
		timestamp       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcript_conversation ON transcript_messages(conversation_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_transcript_timestamp ON transcript_messages(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append persists one message. If msg.ID is empty a UUIDv7 is generated,
// so IDs sort in insertion order. A zero timestamp becomes now.
func (s *Store) Append(ctx context.Context, msg Message) error {
	if msg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate message ID: %w", err)
		}
		msg.ID = id.String()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcript_messages
			(id, conversation_id, role, content, intent, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		msg.Intent,
		msg.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert transcript message: %w", err)
	}
	return nil
}

// Messages returns the messages of one conversation, oldest first.
// limit <= 0 returns all of them.
func (s *Store) Messages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	query := `SELECT id, conversation_id, role, content, COALESCE(intent, ''), timestamp
		 FROM transcript_messages
		 WHERE conversation_id = ?
		 ORDER BY timestamp, id`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcript messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var ts string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Intent, &ts); err != nil {
			return nil, fmt.Errorf("scan transcript message: %w", err)
		}
		m.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parse message timestamp %q: %w", ts, err)
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// Conversations lists recent conversations, most recently active first.
// limit <= 0 returns all of them.
func (s *Store) Conversations(ctx context.Context, limit int) ([]Conversation, error) {
	query := `SELECT conversation_id, MIN(timestamp), MAX(timestamp), COUNT(*)
		 FROM transcript_messages
		 GROUP BY conversation_id
		 ORDER BY MAX(timestamp) DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []Conversation
	for rows.Next() {
		var c Conversation
		var started, last string
		if err := rows.Scan(&c.ID, &started, &last, &c.Messages); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if c.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse conversation start %q: %w", started, err)
		}
		if c.LastAt, err = time.Parse(time.RFC3339, last); err != nil {
			return nil, fmt.Errorf("parse conversation last %q: %w", last, err)
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// Totals returns the number of stored conversations and messages.
func (s *Store) Totals(ctx context.Context) (conversations, messages int64, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT conversation_id), COUNT(*) FROM transcript_messages`)
	if err := row.Scan(&conversations, &messages); err != nil {
		return 0, 0, fmt.Errorf("query transcript totals: %w", err)
	}
	return conversations, messages, nil
}
