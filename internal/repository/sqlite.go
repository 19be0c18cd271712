package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/iconidentify/buzzteacher/internal/domain"
)

// SQLiteConversationRepository implements ConversationRepository on SQLite.
type SQLiteConversationRepository struct {
	db *sqlx.DB
}

type conversationRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Creators  string `db:"creators"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

type messageRow struct {
	ID             string `db:"id"`
	ConversationID string `db:"conversation_id"`
	Role           string `db:"role"`
	Content        string `db:"content"`
	Creators       string `db:"creators"`
	Sections       string `db:"sections"`
	CreatedAt      int64  `db:"created_at"`
}

// NewSQLiteConversationRepository opens (creating if needed) the database at
// path and applies the schema. Use ":memory:" for a throwaway database.
func NewSQLiteConversationRepository(path string) (*SQLiteConversationRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	r := &SQLiteConversationRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteConversationRepository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		creators TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		creators TEXT NOT NULL DEFAULT '[]',
		sections TEXT NOT NULL DEFAULT '[]',
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Create stores a new conversation.
func (r *SQLiteConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	creators, err := encodeJSON(conv.Personas, "[]")
	if err != nil {
		return err
	}
	_, err = r.db.NamedExecContext(ctx, `
		INSERT INTO conversations (id, title, creators, created_at, updated_at)
		VALUES (:id, :title, :creators, :created_at, :updated_at)`,
		conversationRow{
			ID:        conv.ID.String(),
			Title:     conv.Title,
			Creators:  creators,
			CreatedAt: conv.CreatedAt.UnixMilli(),
			UpdatedAt: conv.UpdatedAt.UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// Get retrieves a conversation by ID.
func (r *SQLiteConversationRepository) Get(ctx context.Context, id domain.ConversationID) (*domain.Conversation, error) {
	var row conversationRow
	err := r.db.GetContext(ctx, &row, `SELECT id, title, creators, created_at, updated_at FROM conversations WHERE id = ?`, id.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return row.toDomain()
}

// List returns conversations, most recently updated first.
func (r *SQLiteConversationRepository) List(ctx context.Context, limit int) ([]*domain.Conversation, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var rows []conversationRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, title, creators, created_at, updated_at
		FROM conversations ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	result := make([]*domain.Conversation, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// UpdateTitle changes the title and bumps updated_at.
func (r *SQLiteConversationRepository) UpdateTitle(ctx context.Context, id domain.ConversationID, title string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE conversations SET title = ?, updated_at = ? WHERE id = ?`,
		title, at.UnixMilli(), id.String())
	if err != nil {
		return fmt.Errorf("update title: %w", err)
	}
	return requireRow(res)
}

// AppendMessage stores a message and bumps the conversation's updated_at.
func (r *SQLiteConversationRepository) AppendMessage(ctx context.Context, msg *domain.Message) error {
	creators, err := encodeJSON(msg.Personas, "[]")
	if err != nil {
		return err
	}
	sections, err := encodeJSON(msg.Sections, "[]")
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt.UnixMilli(), msg.ConversationID.String())
	if err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, creators, sections, created_at)
		VALUES (:id, :conversation_id, :role, :content, :creators, :sections, :created_at)`,
		messageRow{
			ID:             msg.ID,
			ConversationID: msg.ConversationID.String(),
			Role:           string(msg.Role),
			Content:        msg.Content,
			Creators:       creators,
			Sections:       sections,
			CreatedAt:      msg.CreatedAt.UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return tx.Commit()
}

// ListMessages returns a conversation's messages, oldest first.
func (r *SQLiteConversationRepository) ListMessages(ctx context.Context, id domain.ConversationID) ([]*domain.Message, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	var rows []messageRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id, conversation_id, role, content, creators, sections, created_at
		FROM messages WHERE conversation_id = ? ORDER BY created_at, rowid`, id.String())
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	result := make([]*domain.Message, 0, len(rows))
	for _, row := range rows {
		m := &domain.Message{
			ID:             row.ID,
			ConversationID: domain.ConversationID(row.ConversationID),
			Role:           domain.Role(row.Role),
			Content:        row.Content,
			CreatedAt:      time.UnixMilli(row.CreatedAt).UTC(),
		}
		if err := json.Unmarshal([]byte(row.Creators), &m.Personas); err != nil {
			return nil, fmt.Errorf("decode message creators: %w", err)
		}
		if err := json.Unmarshal([]byte(row.Sections), &m.Sections); err != nil {
			return nil, fmt.Errorf("decode message sections: %w", err)
		}
		result = append(result, m)
	}
	return result, nil
}

// Ping checks the database connection.
func (r *SQLiteConversationRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLiteConversationRepository) Close() error {
	return r.db.Close()
}

func (row conversationRow) toDomain() (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:        domain.ConversationID(row.ID),
		Title:     row.Title,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		UpdatedAt: time.UnixMilli(row.UpdatedAt).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Creators), &c.Personas); err != nil {
		return nil, fmt.Errorf("decode conversation creators: %w", err)
	}
	return c, nil
}

func encodeJSON(v any, empty string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrConversationNotFound
	}
	return nil
}
