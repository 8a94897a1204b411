package conversation

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/j0lvera/pulsai/internal/ai"
)

//go:embed schema.sql
var schema string

var _ Store = (*PostgresStore)(nil)

// PostgresStore manages conversations using PostgreSQL
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL conversation store
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply conversation schema: %w", err)
	}
	return nil
}

const conversationColumns = `id, user_id, channel, stage, created_at, updated_at`

func scanConversation(row pgx.Row) (Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.Channel, &c.Stage, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return c, err
}

// GetOrCreate implements Store.
func (s *PostgresStore) GetOrCreate(ctx context.Context, userID string, channel ai.Channel) (Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_id = $1 AND channel = $2 AND stage <> $3
		ORDER BY updated_at DESC
		LIMIT 1`

	c, err := scanConversation(s.pool.QueryRow(ctx, query, userID, channel, ai.StageCompleted))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Conversation{}, fmt.Errorf("find active conversation: %w", err)
	}

	insert := `
		INSERT INTO conversations (id, user_id, channel, stage)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + conversationColumns

	c, err = scanConversation(s.pool.QueryRow(ctx, insert, uuid.New(), userID, channel, ai.StageGreeting))
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// Latest implements Store.
func (s *PostgresStore) Latest(ctx context.Context, userID string, channel ai.Channel) (Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE user_id = $1 AND channel = $2
		ORDER BY updated_at DESC
		LIMIT 1`

	c, err := scanConversation(s.pool.QueryRow(ctx, query, userID, channel))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Conversation{}, fmt.Errorf("find latest conversation: %w", err)
	}
	return c, err
}

// SaveMessage implements Store.
func (s *PostgresStore) SaveMessage(
	ctx context.Context, conversationID uuid.UUID, role Role, content string, channel ai.Channel,
) (Message, error) {
	msg := Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Channel:        channel,
		Timestamp:      time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Message{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = $2 WHERE id = $1`,
		conversationID, msg.Timestamp,
	)
	if err != nil {
		return Message{}, fmt.Errorf("touch conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return Message{}, ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, channel, created_at, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		msg.ID, msg.ConversationID, msg.Role, msg.Content, msg.Channel, msg.Timestamp,
	)
	if err != nil {
		return Message{}, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Message{}, fmt.Errorf("commit message: %w", err)
	}
	return msg, nil
}

// UpdateStage implements Store.
func (s *PostgresStore) UpdateStage(ctx context.Context, conversationID uuid.UUID, stage ai.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversations SET stage = $2, updated_at = now() WHERE id = $1`,
		conversationID, stage,
	)
	if err != nil {
		return fmt.Errorf("update stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Messages implements Store.
func (s *PostgresStore) Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	// Newest first in the subquery so LIMIT keeps the tail, then restore order.
	query := `
		SELECT id, conversation_id, role, content, channel, "timestamp"
		FROM (
			SELECT id, conversation_id, role, content, channel, "timestamp", created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC`

	var limitArg any
	if limit > 0 {
		limitArg = limit
	}

	rows, err := s.pool.Query(ctx, query, conversationID, limitArg)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Channel, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
